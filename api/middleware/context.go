package middleware

import "context"

type contextKey string

const (
	ctxUserID   contextKey = "user_id"
	ctxRole     contextKey = "actor_role"
	ctxBirthday contextKey = "birthday"
	ctxSession  contextKey = "session_id"
)

func UserIDFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxUserID)
}

func RoleFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxRole)
}

// BirthdayFromContext returns the YYYY-MM-DD birthday carried by the access token.
func BirthdayFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxBirthday)
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxUserID, userID)
}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ctxRole, role)
}

func WithBirthday(ctx context.Context, birthday string) context.Context {
	return context.WithValue(ctx, ctxBirthday, birthday)
}

// SessionIDFromContext returns the access token id (jti) of the session.
func SessionIDFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxSession)
}

func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxSession, id)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
