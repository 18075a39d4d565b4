package models

import (
	"time"

	"github.com/angelmondragon/kinfortune-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the only mutable entity: identity, numerology seed and billing state.
type User struct {
	ID                 uuid.UUID                 `gorm:"type:uuid;primaryKey"`
	Email              string                    `gorm:"type:text;not null;uniqueIndex"`
	Name               string                    `gorm:"type:text;not null"`
	PasswordHash       string                    `gorm:"column:password_hash;not null"`
	Birthday           time.Time                 `gorm:"type:date;not null"`
	Role               enums.UserRole            `gorm:"type:text;not null;default:USER"`
	IsPaid             bool                      `gorm:"column:is_paid;not null;default:false"`
	SubscriptionPlan   *enums.SubscriptionPlan   `gorm:"column:subscription_plan;type:text"`
	SubscriptionStatus *enums.SubscriptionStatus `gorm:"column:subscription_status;type:text"`
	StripeCustomerID   *string                   `gorm:"column:stripe_customer_id;index"`
	SquareCustomerID   *string                   `gorm:"column:square_customer_id;index"`
	RenewalStatus      enums.RenewalStatus       `gorm:"column:renewal_status;type:text;not null;default:NONE"`
	// BillingSyncedAt is the provider timestamp of the last applied billing write.
	BillingSyncedAt *time.Time `gorm:"column:billing_synced_at"`
	LastLoginAt     *time.Time `gorm:"column:last_login_at"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns ids and defaults so inserts work without database-side defaults.
func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = enums.UserRoleUser
	}
	if u.RenewalStatus == "" {
		u.RenewalStatus = enums.RenewalStatusNone
	}
	return nil
}

// BirthdayString renders the birthday as YYYY-MM-DD.
func (u *User) BirthdayString() string {
	if u.Birthday.IsZero() {
		return ""
	}
	return u.Birthday.Format(time.DateOnly)
}
