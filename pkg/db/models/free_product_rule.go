package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FreeProductRule grants one product for free once a cart's paid subtotal
// reaches the threshold. At most one rule may exist per product.
type FreeProductRule struct {
	ID                 uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID          uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:free_product_rules_product_key"`
	MinOrderValueCents int64     `gorm:"column:min_order_value_cents;not null"`
	IsActive           bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *FreeProductRule) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
