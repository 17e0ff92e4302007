package cart

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/brightbasket/brightbasket-backend/internal/giftrules"
	"github.com/brightbasket/brightbasket-backend/pkg/db/models"
)

// reconcileFreeLines converges the cart's free lines onto the rule set the
// cart currently qualifies for. A cart with no paid lines qualifies for
// nothing, zero-threshold rules included. Each free line carries quantity 1.
//
// Individual line failures are collected and reported together; one bad rule
// never blocks the rest, and a partially applied pass is repaired by the next
// read. Returns whether anything changed.
func (s *service) reconcileFreeLines(ctx context.Context, cartID uuid.UUID, items []models.CartLineItem, rules []models.FreeProductRule) (bool, error) {
	eligible := map[uuid.UUID]struct{}{}
	if hasPaidLines(items) {
		eligible = giftrules.EligibleProductIDs(rules, paidSubtotalCents(items))
	}

	var (
		changed bool
		errs    error
	)

	for _, item := range items {
		if !item.IsFree {
			continue
		}
		if _, ok := eligible[item.ProductID]; !ok {
			if _, err := s.store.RemoveLineItem(ctx, item.ID); err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			changed = true
			continue
		}
		// Present and still eligible. Repair any drifted quantity.
		if item.Quantity != 1 {
			if err := s.store.SetLineItemQuantity(ctx, item.ID, 1); err != nil {
				errs = multierr.Append(errs, err)
			} else {
				changed = true
			}
		}
		delete(eligible, item.ProductID)
	}

	// Grant what's eligible but absent, in rule order so the pass is
	// deterministic.
	for _, rule := range rules {
		if _, ok := eligible[rule.ProductID]; !ok {
			continue
		}
		delete(eligible, rule.ProductID)
		if _, err := s.store.AddLineItem(ctx, cartID, rule.ProductID, true, 1, 0); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		changed = true
	}

	return changed, errs
}
