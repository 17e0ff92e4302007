package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightbasket/brightbasket-backend/internal/giftrules"
	"github.com/brightbasket/brightbasket-backend/pkg/db/models"
	pkgerrors "github.com/brightbasket/brightbasket-backend/pkg/errors"
	"github.com/brightbasket/brightbasket-backend/pkg/logger"
	"github.com/brightbasket/brightbasket-backend/pkg/types"
)

type lineStore interface {
	GetOrCreate(ctx context.Context, owner types.OwnerRef) (*models.Cart, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	DeleteCart(ctx context.Context, id uuid.UUID) error
	ClearItems(ctx context.Context, cartID uuid.UUID) error
	ListLineItems(ctx context.Context, cartID uuid.UUID) ([]models.CartLineItem, error)
	FindLineItem(ctx context.Context, cartID, productID uuid.UUID, isFree bool) (*models.CartLineItem, error)
	FindLineItemByID(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartLineItem, error)
	AddLineItem(ctx context.Context, cartID, productID uuid.UUID, isFree bool, quantity int, unitPriceCents int64) (*models.CartLineItem, error)
	SetLineItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error
	RemoveLineItem(ctx context.Context, itemID uuid.UUID) (bool, error)
	TouchCart(ctx context.Context, cartID uuid.UUID) error
}

type catalog interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

type ruleSource interface {
	ActiveRules(ctx context.Context) ([]models.FreeProductRule, error)
}

// Service exposes the storefront cart operations.
type Service interface {
	Fetch(ctx context.Context, owner types.OwnerRef) (*View, error)
	AddItem(ctx context.Context, owner types.OwnerRef, productID uuid.UUID, quantity int) (*View, error)
	UpdateItemQuantity(ctx context.Context, owner types.OwnerRef, itemID uuid.UUID, quantity int) (*View, error)
	RemoveItem(ctx context.Context, owner types.OwnerRef, itemID uuid.UUID) (*View, error)
	Clear(ctx context.Context, owner types.OwnerRef, cartID uuid.UUID) error
	EligibleFreeProducts(ctx context.Context, owner types.OwnerRef) ([]models.Product, error)
	AddFreeProduct(ctx context.Context, owner types.OwnerRef, productID uuid.UUID) (*View, error)
}

type service struct {
	store    lineStore
	products catalog
	rules    ruleSource
	logg     *logger.Logger
}

// NewService builds the cart service.
func NewService(store lineStore, products catalog, rules ruleSource, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if rules == nil {
		return nil, fmt.Errorf("gift rule source required")
	}
	return &service{store: store, products: products, rules: rules, logg: logg}, nil
}

// Fetch returns the owner's cart, reconciling free lines before the read so
// stale grants never reach the client.
func (s *service) Fetch(ctx context.Context, owner types.OwnerRef) (*View, error) {
	cart, err := s.ownerCart(ctx, owner)
	if err != nil {
		return nil, err
	}
	return s.reconcileAndView(ctx, cart)
}

// AddItem accumulates a paid line for the product, capturing the catalog
// price at add time.
func (s *service) AddItem(ctx context.Context, owner types.OwnerRef, productID uuid.UUID, quantity int) (*View, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	p, err := s.loadActiveProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	cart, err := s.ownerCart(ctx, owner)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.AddLineItem(ctx, cart.ID, p.ID, false, quantity, p.PriceCents); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add line item")
	}
	if err := s.store.TouchCart(ctx, cart.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch cart")
	}
	return s.reconcileAndView(ctx, cart)
}

// UpdateItemQuantity sets a paid line's quantity. Zero removes the line;
// free lines are managed by reconciliation and can't be edited directly.
func (s *service) UpdateItemQuantity(ctx context.Context, owner types.OwnerRef, itemID uuid.UUID, quantity int) (*View, error) {
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be non-negative")
	}

	cart, err := s.ownerCart(ctx, owner)
	if err != nil {
		return nil, err
	}
	item, err := s.store.FindLineItemByID(ctx, cart.ID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "line item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load line item")
	}
	if item.IsFree {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "free items are managed automatically")
	}

	if quantity == 0 {
		if _, err := s.store.RemoveLineItem(ctx, item.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove line item")
		}
	} else if err := s.store.SetLineItemQuantity(ctx, item.ID, quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set line item quantity")
	}
	if err := s.store.TouchCart(ctx, cart.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch cart")
	}
	return s.reconcileAndView(ctx, cart)
}

// RemoveItem deletes a paid line. Removing a line that is already gone
// succeeds; the operation is idempotent.
func (s *service) RemoveItem(ctx context.Context, owner types.OwnerRef, itemID uuid.UUID) (*View, error) {
	cart, err := s.ownerCart(ctx, owner)
	if err != nil {
		return nil, err
	}

	item, err := s.store.FindLineItemByID(ctx, cart.ID, itemID)
	switch {
	case err == nil:
		if item.IsFree {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "free items are managed automatically")
		}
		if _, err := s.store.RemoveLineItem(ctx, item.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove line item")
		}
		if err := s.store.TouchCart(ctx, cart.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch cart")
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// Already gone.
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load line item")
	}

	return s.reconcileAndView(ctx, cart)
}

// Clear empties the identified cart. The cart must belong to the caller.
func (s *service) Clear(ctx context.Context, owner types.OwnerRef, cartID uuid.UUID) error {
	cart, err := s.store.FindByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if !ownedBy(cart, owner) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "cart belongs to a different owner")
	}
	if err := s.store.ClearItems(ctx, cart.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	if err := s.store.TouchCart(ctx, cart.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch cart")
	}
	return nil
}

// EligibleFreeProducts lists the catalog products the owner's cart currently
// qualifies for. Products removed from the catalog are skipped.
func (s *service) EligibleFreeProducts(ctx context.Context, owner types.OwnerRef) ([]models.Product, error) {
	cart, err := s.ownerCart(ctx, owner)
	if err != nil {
		return nil, err
	}
	items, err := s.store.ListLineItems(ctx, cart.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list line items")
	}
	rules, err := s.rules.ActiveRules(ctx)
	if err != nil {
		return nil, err
	}

	eligible := map[uuid.UUID]struct{}{}
	if hasPaidLines(items) {
		eligible = giftrules.EligibleProductIDs(rules, paidSubtotalCents(items))
	}
	if len(eligible) == 0 {
		return []models.Product{}, nil
	}

	ids := make([]uuid.UUID, 0, len(eligible))
	for _, rule := range rules {
		if _, ok := eligible[rule.ProductID]; ok {
			ids = append(ids, rule.ProductID)
			delete(eligible, rule.ProductID)
		}
	}
	products, err := s.products.ListByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load eligible products")
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

// AddFreeProduct grants an eligible gift on explicit request. Reconciliation
// performs the same grant automatically; this is the manual path.
func (s *service) AddFreeProduct(ctx context.Context, owner types.OwnerRef, productID uuid.UUID) (*View, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}

	cart, err := s.ownerCart(ctx, owner)
	if err != nil {
		return nil, err
	}
	items, err := s.store.ListLineItems(ctx, cart.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list line items")
	}
	rules, err := s.rules.ActiveRules(ctx)
	if err != nil {
		return nil, err
	}

	var rule *models.FreeProductRule
	for i := range rules {
		if rules[i].ProductID == productID {
			rule = &rules[i]
			break
		}
	}
	if rule == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no free product offer exists for this product")
	}
	if !hasPaidLines(items) || paidSubtotalCents(items) < rule.MinOrderValueCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart subtotal is below the offer threshold")
	}
	for _, item := range items {
		if item.IsFree && item.ProductID == productID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "free product already in cart")
		}
	}

	if _, err := s.store.AddLineItem(ctx, cart.ID, productID, true, 1, 0); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add free line item")
	}
	if err := s.store.TouchCart(ctx, cart.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch cart")
	}
	return s.reconcileAndView(ctx, cart)
}

func (s *service) ownerCart(ctx context.Context, owner types.OwnerRef) (*models.Cart, error) {
	if owner.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "cart owner is required")
	}
	cart, err := s.store.GetOrCreate(ctx, owner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cart, nil
}

func (s *service) loadActiveProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !p.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}
	return p, nil
}

// reconcileAndView runs a reconciliation pass, then hydrates the cart for
// the response. Reconciliation trouble is logged, not surfaced: the read
// still serves and the next pass repairs whatever was left over.
func (s *service) reconcileAndView(ctx context.Context, cart *models.Cart) (*View, error) {
	items, err := s.store.ListLineItems(ctx, cart.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list line items")
	}

	rules, err := s.rules.ActiveRules(ctx)
	if err != nil {
		return nil, err
	}

	changed, recErr := s.reconcileFreeLines(ctx, cart.ID, items, rules)
	if recErr != nil && s.logg != nil {
		s.logg.Error(s.logg.WithCartID(ctx, cart.ID.String()), "free line reconciliation incomplete", recErr)
	}
	if changed {
		items, err = s.store.ListLineItems(ctx, cart.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list line items")
		}
	}

	ids := make([]uuid.UUID, 0, len(items))
	seen := map[uuid.UUID]struct{}{}
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	productRows, err := s.products.ListByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart products")
	}
	products := make(map[uuid.UUID]models.Product, len(productRows))
	for _, p := range productRows {
		products[p.ID] = p
	}

	return buildView(cart, items, products), nil
}

func ownedBy(cart *models.Cart, owner types.OwnerRef) bool {
	if owner.UserID != nil && *owner.UserID != uuid.Nil {
		return cart.OwnerUserID != nil && *cart.OwnerUserID == *owner.UserID
	}
	return cart.OwnerSessionID != nil && owner.SessionID != "" && *cart.OwnerSessionID == owner.SessionID
}
