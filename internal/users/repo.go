package users

import (
	"context"
	"time"

	"github.com/angelmondragon/kinfortune-backend/pkg/db/models"
	"github.com/angelmondragon/kinfortune-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail retrieves the user matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByStripeCustomerID returns the oldest user linked to the customer.
func (r *Repository) FindByStripeCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Where("stripe_customer_id = ?", customerID).
		Order("created_at asc").
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindBySquareCustomerID returns the oldest user linked to the Square customer.
func (r *Repository) FindBySquareCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Where("square_customer_id = ?", customerID).
		Order("created_at asc").
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns one page of users, newest first, and the cursor of the next page.
func (r *Repository) List(ctx context.Context, page pagination.Params) ([]models.User, string, error) {
	after, err := pagination.Decode(page.Cursor)
	if err != nil {
		return nil, "", err
	}
	size := page.PageSize()
	q := r.db.WithContext(ctx).Order("created_at desc, id desc").Limit(size + 1)
	if after != nil {
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", after.CreatedAt, after.CreatedAt, after.ID)
	}
	var out []models.User
	if err := q.Find(&out).Error; err != nil {
		return nil, "", err
	}
	rows, next := pagination.Trim(out, size, func(u models.User) pagination.Cursor {
		return pagination.Cursor{CreatedAt: u.CreatedAt, ID: u.ID}
	})
	return rows, next, nil
}

// ListStripeLinked returns up to limit users with a Stripe customer id,
// least recently synced first.
func (r *Repository) ListStripeLinked(ctx context.Context, limit int) ([]models.User, error) {
	var out []models.User
	q := r.db.WithContext(ctx).
		Where("stripe_customer_id IS NOT NULL AND stripe_customer_id <> ''").
		Order("billing_synced_at IS NOT NULL, billing_synced_at asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// ApplyBillingByID writes upd to the user with id. The returned count is zero
// when the user is missing or a newer billing write already landed.
func (r *Repository) ApplyBillingByID(ctx context.Context, id uuid.UUID, upd BillingUpdate) (int64, error) {
	return r.applyBilling(ctx, r.db.WithContext(ctx).Where("id = ?", id), upd)
}

// ApplyBillingByEmail writes upd to the user with email.
func (r *Repository) ApplyBillingByEmail(ctx context.Context, email string, upd BillingUpdate) (int64, error) {
	return r.applyBilling(ctx, r.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)), upd)
}

// ApplyBillingByStripeCustomer writes upd to every user linked to customerID.
func (r *Repository) ApplyBillingByStripeCustomer(ctx context.Context, customerID string, upd BillingUpdate) (int64, error) {
	return r.applyBilling(ctx, r.db.WithContext(ctx).Where("stripe_customer_id = ?", customerID), upd)
}

// ApplyBillingBySquareCustomer writes upd to every user linked to the Square customer.
func (r *Repository) ApplyBillingBySquareCustomer(ctx context.Context, customerID string, upd BillingUpdate) (int64, error) {
	return r.applyBilling(ctx, r.db.WithContext(ctx).Where("square_customer_id = ?", customerID), upd)
}

func (r *Repository) applyBilling(_ context.Context, scoped *gorm.DB, upd BillingUpdate) (int64, error) {
	upd = upd.Normalized()
	cols := upd.columns()
	if len(cols) == 0 {
		return 0, nil
	}
	q := scoped.Model(&models.User{})
	if upd.ObservedAt != nil {
		q = q.Where("billing_synced_at IS NULL OR billing_synced_at <= ?", *upd.ObservedAt)
	}
	res := q.Updates(cols)
	return res.RowsAffected, res.Error
}
