package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartLineItem is one product entry inside a cart. A product may appear at
// most once as a paid line and at most once as a free line in the same cart;
// the composite unique index backs that invariant. Free lines are owned by
// the reconciliation pass, never created by direct user input.
type CartLineItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CartID         uuid.UUID `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:cart_line_items_cart_product_free_key;index:cart_line_items_cart_id_idx"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:cart_line_items_cart_product_free_key"`
	IsFree         bool      `gorm:"column:is_free;not null;default:false;uniqueIndex:cart_line_items_cart_product_free_key"`
	Quantity       int       `gorm:"column:quantity;not null"`
	UnitPriceCents int64     `gorm:"column:unit_price_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *CartLineItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
