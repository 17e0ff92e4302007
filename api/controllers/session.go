package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/brightbasket/brightbasket-backend/api/middleware"
	"github.com/brightbasket/brightbasket-backend/api/responses"
	pkgerrors "github.com/brightbasket/brightbasket-backend/pkg/errors"
	"github.com/brightbasket/brightbasket-backend/pkg/logger"
)

type sessionIssuer interface {
	Issue(ctx context.Context, now time.Time) (string, string, error)
	Revoke(ctx context.Context, sessionID string) error
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
}

// SessionCreate hands an anonymous visitor a session token. The token is the
// only credential the storefront cart endpoints need.
func SessionCreate(manager sessionIssuer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if manager == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session manager unavailable"))
			return
		}

		sessionID, token, err := manager.Issue(r.Context(), time.Now().UTC())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "issue session"))
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, sessionResponse{
			SessionID: sessionID,
			Token:     token,
		})
	}
}

// SessionRevoke invalidates the caller's session; outstanding tokens stop
// working immediately.
func SessionRevoke(manager sessionIssuer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if manager == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session manager unavailable"))
			return
		}

		sessionID := strings.TrimSpace(middleware.SessionIDFromContext(r.Context()))
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session"))
			return
		}

		if err := manager.Revoke(r.Context(), sessionID); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session"))
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "revoked"})
	}
}
