package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightbasket/brightbasket-backend/pkg/db/models"
	"github.com/brightbasket/brightbasket-backend/pkg/types"
)

// Repository wires together cart and line item persistence helpers.
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

// GetOrCreate returns the owner's cart, creating one on first touch. User
// identity wins over session identity when both are present.
func (r *Repository) GetOrCreate(ctx context.Context, owner types.OwnerRef) (*models.Cart, error) {
	if owner.IsZero() {
		return nil, errors.New("cart owner is required")
	}

	q := r.db.WithContext(ctx).Model(&models.Cart{})
	cart := models.Cart{}
	if owner.UserID != nil && *owner.UserID != uuid.Nil {
		q = q.Where("owner_user_id = ?", *owner.UserID)
		cart.OwnerUserID = owner.UserID
	} else {
		q = q.Where("owner_session_id = ?", owner.SessionID)
		sessionID := owner.SessionID
		cart.OwnerSessionID = &sessionID
	}

	var found models.Cart
	err := q.First(&found).Error
	if err == nil {
		return &found, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Create(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindByID loads a cart without items.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.db.WithContext(ctx).First(&cart, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// DeleteCart removes the cart row; line items go with it via the cascade.
func (r *Repository) DeleteCart(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Cart{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ClearItems removes every line item from the cart, paid and free alike.
func (r *Repository) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.CartLineItem{}, "cart_id = ?", cartID).Error
}

// ListLineItems returns all line items for the cart, oldest first so views
// stay stable between reads.
func (r *Repository) ListLineItems(ctx context.Context, cartID uuid.UUID) ([]models.CartLineItem, error) {
	var out []models.CartLineItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FindLineItem loads the line identified by the (cart, product, free) triple.
func (r *Repository) FindLineItem(ctx context.Context, cartID, productID uuid.UUID, isFree bool) (*models.CartLineItem, error) {
	var item models.CartLineItem
	err := r.db.WithContext(ctx).
		First(&item, "cart_id = ? AND product_id = ? AND is_free = ?", cartID, productID, isFree).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// FindLineItemByID loads a line item scoped to its cart.
func (r *Repository) FindLineItemByID(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartLineItem, error) {
	var item models.CartLineItem
	err := r.db.WithContext(ctx).
		First(&item, "id = ? AND cart_id = ?", itemID, cartID).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// AddLineItem accumulates quantity onto an existing (cart, product, free)
// line or inserts a fresh one. The unique index backstops concurrent adds:
// a duplicate-key race retries once as an accumulate.
func (r *Repository) AddLineItem(ctx context.Context, cartID, productID uuid.UUID, isFree bool, quantity int, unitPriceCents int64) (*models.CartLineItem, error) {
	existing, err := r.FindLineItem(ctx, cartID, productID, isFree)
	if err == nil {
		return r.accumulate(ctx, existing, quantity)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	item := &models.CartLineItem{
		CartID:         cartID,
		ProductID:      productID,
		IsFree:         isFree,
		Quantity:       quantity,
		UnitPriceCents: unitPriceCents,
	}
	createErr := r.db.WithContext(ctx).Create(item).Error
	if createErr == nil {
		return item, nil
	}
	if errors.Is(createErr, gorm.ErrDuplicatedKey) {
		existing, err := r.FindLineItem(ctx, cartID, productID, isFree)
		if err != nil {
			return nil, err
		}
		return r.accumulate(ctx, existing, quantity)
	}
	return nil, createErr
}

func (r *Repository) accumulate(ctx context.Context, item *models.CartLineItem, quantity int) (*models.CartLineItem, error) {
	item.Quantity += quantity
	if err := r.db.WithContext(ctx).Save(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// SetLineItemQuantity replaces the quantity on a line. Callers enforce the
// delete-on-zero policy before reaching here.
func (r *Repository) SetLineItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	res := r.db.WithContext(ctx).
		Model(&models.CartLineItem{}).
		Where("id = ?", itemID).
		Update("quantity", quantity)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RemoveLineItem deletes a line item and reports whether a row was removed.
// Removing a line that is already gone is not an error.
func (r *Repository) RemoveLineItem(ctx context.Context, itemID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.CartLineItem{}, "id = ?", itemID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// TouchCart bumps the cart's updated_at after line item mutations.
func (r *Repository) TouchCart(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		Update("updated_at", gorm.Expr("CURRENT_TIMESTAMP")).Error
}
