package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/brightbasket/brightbasket-backend/pkg/db/models"
)

// LineView is the API-facing shape of one cart line.
type LineView struct {
	ID             uuid.UUID `json:"id"`
	ProductID      uuid.UUID `json:"product_id"`
	Slug           string    `json:"slug"`
	Title          string    `json:"title"`
	IsFree         bool      `json:"is_free"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	LineTotalCents int64     `json:"line_total_cents"`
}

// View is the API-facing shape of a cart. SubtotalCents counts paid lines
// only; free lines always contribute zero.
type View struct {
	ID            uuid.UUID  `json:"id"`
	Items         []LineView `json:"items"`
	SubtotalCents int64      `json:"subtotal_cents"`
	TotalItems    int        `json:"total_items"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// paidSubtotalCents sums quantity times the captured unit price across paid
// lines. Free lines are excluded no matter what price they carry.
func paidSubtotalCents(items []models.CartLineItem) int64 {
	var subtotal int64
	for _, item := range items {
		if item.IsFree {
			continue
		}
		subtotal += int64(item.Quantity) * item.UnitPriceCents
	}
	return subtotal
}

func hasPaidLines(items []models.CartLineItem) bool {
	for _, item := range items {
		if !item.IsFree {
			return true
		}
	}
	return false
}

// buildView hydrates line items with catalog data. Lines whose product has
// been removed from the catalog are skipped rather than failing the read.
func buildView(cart *models.Cart, items []models.CartLineItem, products map[uuid.UUID]models.Product) *View {
	view := &View{
		ID:        cart.ID,
		Items:     []LineView{},
		UpdatedAt: cart.UpdatedAt,
	}
	for _, item := range items {
		p, ok := products[item.ProductID]
		if !ok {
			continue
		}

		line := LineView{
			ID:             item.ID,
			ProductID:      item.ProductID,
			Slug:           p.Slug,
			Title:          p.Title,
			IsFree:         item.IsFree,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		}
		if !item.IsFree {
			line.LineTotalCents = int64(item.Quantity) * item.UnitPriceCents
			view.SubtotalCents += line.LineTotalCents
		}
		view.TotalItems += item.Quantity
		view.Items = append(view.Items, line)
	}
	return view
}
