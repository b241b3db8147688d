package users

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository reads and writes user rows. Bind it to a transaction with
// NewRepository(tx) when the caller needs atomicity.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts u and returns the stored row with its generated id.
func (r *Repository) Create(ctx context.Context, u NewUser) (*models.User, error) {
	row := u.row()
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// FindByEmail expects email already normalized. Misses surface as
// gorm.ErrRecordNotFound.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *Repository) first(ctx context.Context, cond string, arg any) (*models.User, error) {
	row := new(models.User)
	if err := r.db.WithContext(ctx).Where(cond, arg).Take(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// TouchLastLogin stamps a successful sign-in without bumping updated_at.
func (r *Repository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{ID: id}).
		UpdateColumn("last_login_at", at.UTC()).
		Error
}

// UpdatePasswordHash swaps the stored hash, e.g. after a cost upgrade.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{ID: id}).
		Update("password_hash", hash).
		Error
}

// ListCustomers pages through customer accounts, newest first. search
// matches email or either name.
func (r *Repository) ListCustomers(ctx context.Context, params pagination.Params, search string) ([]models.User, int64, error) {
	qb := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("role = ?", enums.UserRoleCustomer)
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + search + "%"
		qb = qb.Where(
			"LOWER(email) LIKE LOWER(?) OR LOWER(first_name) LIKE LOWER(?) OR LOWER(last_name) LIKE LOWER(?)",
			like, like, like,
		)
	}

	var total int64
	if err := qb.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params = params.Normalize()
	var rows []models.User
	err := qb.
		Order("created_at DESC").
		Order("id DESC").
		Limit(params.Limit).
		Offset(params.Offset()).
		Find(&rows).
		Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
