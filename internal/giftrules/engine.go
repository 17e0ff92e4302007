package giftrules

import (
	"github.com/google/uuid"

	"github.com/brightbasket/brightbasket-backend/pkg/db/models"
)

// EligibleRules filters the rules a cart qualifies for given its paid
// subtotal. A subtotal exactly at a threshold qualifies. Inactive rules
// never qualify, whatever the subtotal.
func EligibleRules(rules []models.FreeProductRule, subtotalCents int64) []models.FreeProductRule {
	var out []models.FreeProductRule
	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}
		if subtotalCents >= rule.MinOrderValueCents {
			out = append(out, rule)
		}
	}
	return out
}

// EligibleProductIDs projects EligibleRules onto the granted product set.
func EligibleProductIDs(rules []models.FreeProductRule, subtotalCents int64) map[uuid.UUID]struct{} {
	eligible := EligibleRules(rules, subtotalCents)
	out := make(map[uuid.UUID]struct{}, len(eligible))
	for _, rule := range eligible {
		out[rule.ProductID] = struct{}{}
	}
	return out
}
