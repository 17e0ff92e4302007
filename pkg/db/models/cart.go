package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Cart is the per-owner container for line items. Exactly one of OwnerUserID
// or OwnerSessionID is expected to be set; the service layer enforces it.
type Cart struct {
	ID             uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	OwnerUserID    *uuid.UUID     `gorm:"column:owner_user_id;type:uuid;index:carts_owner_user_idx"`
	OwnerSessionID *string        `gorm:"column:owner_session_id;index:carts_owner_session_idx"`
	Items          []CartLineItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Cart) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
