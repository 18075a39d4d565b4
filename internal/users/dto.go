package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/kinfortune-backend/pkg/db/models"
	"github.com/angelmondragon/kinfortune-backend/pkg/enums"
)

// UserDTO is the transport shape that omits credentials.
type UserDTO struct {
	ID                 uuid.UUID                 `json:"id"`
	Name               string                    `json:"name"`
	Email              string                    `json:"email"`
	Birthday           string                    `json:"birthday"`
	Role               enums.UserRole            `json:"role"`
	IsPaid             bool                      `json:"isPaid"`
	SubscriptionPlan   *enums.SubscriptionPlan   `json:"subscriptionPlan"`
	SubscriptionStatus *enums.SubscriptionStatus `json:"subscriptionStatus"`
	StripeCustomerID   *string                   `json:"stripeCustomerId"`
	SquareCustomerID   *string                   `json:"squareCustomerId"`
	RenewalStatus      enums.RenewalStatus       `json:"renewalStatus"`
	CreatedAt          time.Time                 `json:"createdAt"`
}

// CreateUserDTO holds what the repo needs to persist a new account.
type CreateUserDTO struct {
	Name         string
	Email        string
	PasswordHash string
	Birthday     time.Time
	Role         enums.UserRole
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:                 u.ID,
		Name:               u.Name,
		Email:              u.Email,
		Birthday:           u.BirthdayString(),
		Role:               u.Role,
		IsPaid:             u.IsPaid,
		SubscriptionPlan:   u.SubscriptionPlan,
		SubscriptionStatus: u.SubscriptionStatus,
		StripeCustomerID:   u.StripeCustomerID,
		SquareCustomerID:   u.SquareCustomerID,
		RenewalStatus:      u.RenewalStatus,
		CreatedAt:          u.CreatedAt,
	}
}

func FromModels(list []models.User) []UserDTO {
	out := make([]UserDTO, 0, len(list))
	for i := range list {
		out = append(out, *FromModel(&list[i]))
	}
	return out
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if role == "" {
		role = enums.UserRoleUser
	}
	return &models.User{
		Name:          strings.TrimSpace(c.Name),
		Email:         NormalizeEmail(c.Email),
		PasswordHash:  c.PasswordHash,
		Birthday:      c.Birthday,
		Role:          role,
		RenewalStatus: enums.RenewalStatusNone,
	}
}

// NormalizeEmail is applied on every write and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
