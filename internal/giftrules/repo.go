package giftrules

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightbasket/brightbasket-backend/pkg/db/models"
)

// Repository wires together free-gift rule persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts the rule.
func (r *Repository) Create(ctx context.Context, rule *models.FreeProductRule) (*models.FreeProductRule, error) {
	if err := r.db.WithContext(ctx).Create(rule).Error; err != nil {
		return nil, err
	}
	return rule, nil
}

// Update saves all fields of the rule.
func (r *Repository) Update(ctx context.Context, rule *models.FreeProductRule) (*models.FreeProductRule, error) {
	if err := r.db.WithContext(ctx).Save(rule).Error; err != nil {
		return nil, err
	}
	return rule, nil
}

// Delete removes the rule row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.FreeProductRule{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindByID loads the rule.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.FreeProductRule, error) {
	var rule models.FreeProductRule
	if err := r.db.WithContext(ctx).First(&rule, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

// ListActive returns the active rules ordered by threshold ascending, which
// keeps evaluation output stable across reads.
func (r *Repository) ListActive(ctx context.Context) ([]models.FreeProductRule, error) {
	var out []models.FreeProductRule
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("min_order_value_cents ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListAll returns every rule, active or not, for the admin surface.
func (r *Repository) ListAll(ctx context.Context) ([]models.FreeProductRule, error) {
	var out []models.FreeProductRule
	err := r.db.WithContext(ctx).
		Order("min_order_value_cents ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
