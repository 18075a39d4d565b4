package auth

import (
	"context"
	"testing"
	"time"

	pkgAuth "github.com/angelmondragon/kinfortune-backend/pkg/auth"
	"github.com/angelmondragon/kinfortune-backend/pkg/auth/session"
	"github.com/angelmondragon/kinfortune-backend/pkg/config"
	"github.com/angelmondragon/kinfortune-backend/pkg/db/models"
	"github.com/angelmondragon/kinfortune-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kinfortune-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubUserRepo struct {
	user      *models.User
	lastLogin time.Time
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if r.user == nil || r.user.Email != email {
		return nil, gorm.ErrRecordNotFound
	}
	return r.user, nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if r.user == nil || r.user.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return r.user, nil
}

func (r *stubUserRepo) UpdateLastLogin(_ context.Context, _ uuid.UUID, at time.Time) error {
	r.lastLogin = at
	return nil
}

type stubSessions struct {
	sessions map[string]string // accessID -> token
	owners   map[string]string // accessID -> userID
}

func newStubSessions() *stubSessions {
	return &stubSessions{sessions: map[string]string{}, owners: map[string]string{}}
}

func (s *stubSessions) Generate(_ context.Context, accessID, userID string) (string, error) {
	token := "refresh-" + accessID
	s.sessions[accessID] = token
	s.owners[accessID] = userID
	return token, nil
}

func (s *stubSessions) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, string, error) {
	token, ok := s.sessions[oldAccessID]
	if !ok || token != provided {
		return "", "", "", session.ErrInvalidRefreshToken
	}
	userID := s.owners[oldAccessID]
	delete(s.sessions, oldAccessID)
	newID := session.NewAccessID()
	newToken, _ := s.Generate(ctx, newID, userID)
	return newID, newToken, userID, nil
}

func (s *stubSessions) Revoke(_ context.Context, accessID string) error {
	delete(s.sessions, accessID)
	return nil
}

func testJWT() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "kinfortune", ExpirationMinutes: 30}
}

func buildTestService(t *testing.T, password string) (*service, *stubUserRepo, *stubSessions) {
	t.Helper()
	hasher := testHasher()
	hashed, err := hasher.Hash(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	repo := &stubUserRepo{user: &models.User{
		ID:           uuid.New(),
		Email:        "user@example.com",
		Name:         "User",
		PasswordHash: hashed,
		Birthday:     time.Date(1990, 1, 15, 0, 0, 0, 0, time.UTC),
		Role:         enums.UserRoleUser,
	}}
	sessions := newStubSessions()
	svc, err := NewService(ServiceParams{UserRepo: repo, SessionManager: sessions, Hasher: hasher, JWTConfig: testJWT()})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc.(*service), repo, sessions
}

func TestLoginIssuesTokens(t *testing.T) {
	svc, repo, sessions := buildTestService(t, "correct-horse")

	resp, err := svc.Login(context.Background(), LoginRequest{Email: " User@Example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWT(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != repo.user.ID || claims.Birthday != "1990-01-15" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if sessions.sessions[claims.ID] != resp.RefreshToken {
		t.Fatalf("refresh token not stored under jti")
	}
	if repo.lastLogin.IsZero() {
		t.Fatalf("expected last login to be recorded")
	}
}

func TestLoginFailures(t *testing.T) {
	svc, _, _ := buildTestService(t, "correct-horse")

	_, err := svc.Login(context.Background(), LoginRequest{Email: "other@example.com", Password: "x"})
	if e := pkgerrors.As(err); e == nil || e.Code() != pkgerrors.CodeUnauthorized || e.Message() != msgUserNotFound {
		t.Fatalf("expected user-not-found, got %v", err)
	}

	_, err = svc.Login(context.Background(), LoginRequest{Email: "user@example.com", Password: "wrong"})
	if e := pkgerrors.As(err); e == nil || e.Message() != msgWrongPassword {
		t.Fatalf("expected wrong-password, got %v", err)
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	svc, _, sessions := buildTestService(t, "pw")
	ctx := context.Background()

	first, err := svc.Login(ctx, LoginRequest{Email: "user@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	svc.now = func() time.Time { return time.Now().UTC().Add(time.Hour) }

	second, err := svc.Refresh(ctx, RefreshRequest{AccessToken: first.AccessToken, RefreshToken: first.RefreshToken})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatalf("expected a new refresh token")
	}

	_, err = svc.Refresh(ctx, RefreshRequest{AccessToken: first.AccessToken, RefreshToken: first.RefreshToken})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected reuse of old refresh token to fail, got %v", err)
	}
	if len(sessions.sessions) != 1 {
		t.Fatalf("expected exactly one live session, got %d", len(sessions.sessions))
	}
}

func TestLogoutRevokes(t *testing.T) {
	svc, _, sessions := buildTestService(t, "pw")
	ctx := context.Background()
	resp, err := svc.Login(ctx, LoginRequest{Email: "user@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, _ := pkgAuth.ParseAccessToken(testJWT(), resp.AccessToken)
	if err := svc.Logout(ctx, claims.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, ok := sessions.sessions[claims.ID]; ok {
		t.Fatalf("session should be revoked")
	}
}
