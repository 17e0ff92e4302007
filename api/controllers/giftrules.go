package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/brightbasket/brightbasket-backend/api/responses"
	"github.com/brightbasket/brightbasket-backend/api/validators"
	"github.com/brightbasket/brightbasket-backend/internal/giftrules"
	"github.com/brightbasket/brightbasket-backend/pkg/logger"
)

type upsertRuleRequest struct {
	ProductID          uuid.UUID `json:"product_id" validate:"required"`
	MinOrderValueCents int64     `json:"min_order_value_cents" validate:"min=0"`
	IsActive           bool      `json:"is_active"`
}

func (req upsertRuleRequest) toInput() giftrules.UpsertRuleInput {
	return giftrules.UpsertRuleInput{
		ProductID:          req.ProductID,
		MinOrderValueCents: req.MinOrderValueCents,
		IsActive:           req.IsActive,
	}
}

// AdminGiftRuleList returns every rule, active or not.
func AdminGiftRuleList(svc giftrules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rules, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rules)
	}
}

// AdminGiftRuleGet returns a single rule.
func AdminGiftRuleGet(svc giftrules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "ruleId"), "ruleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rule, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rule)
	}
}

// AdminGiftRuleCreate registers a new free product offer. One rule per
// product; a second attempt conflicts.
func AdminGiftRuleCreate(svc giftrules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body upsertRuleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		created, err := svc.Create(r.Context(), body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// AdminGiftRuleUpdate replaces a rule's fields.
func AdminGiftRuleUpdate(svc giftrules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "ruleId"), "ruleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body upsertRuleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := svc.Update(r.Context(), id, body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

// AdminGiftRuleDelete removes a rule. Carts shed the revoked gift on their
// next reconciliation.
func AdminGiftRuleDelete(svc giftrules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(chi.URLParam(r, "ruleId"), "ruleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
