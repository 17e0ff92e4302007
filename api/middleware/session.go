package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/brightbasket/brightbasket-backend/api/responses"
	pkgerrors "github.com/brightbasket/brightbasket-backend/pkg/errors"
	"github.com/brightbasket/brightbasket-backend/pkg/logger"
	"github.com/brightbasket/brightbasket-backend/pkg/session"
)

// SessionValidator is the surface Session needs from the session manager.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (*session.Claims, error)
}

func parseBearerToken(r *http.Request) (string, error) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	token := raw
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return token, nil
}

// Session validates the storefront bearer token and seeds the request context
// with the cart owner identifiers.
func Session(validator SessionValidator, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := parseBearerToken(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			claims, err := validator.Validate(r.Context(), token)
			if err != nil {
				if errors.Is(err, session.ErrInvalidSession) {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid session"))
					return
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
				return
			}

			ctx := WithSessionID(r.Context(), claims.SessionID)
			if claims.UserID != nil && *claims.UserID != "" {
				ctx = WithUserID(ctx, *claims.UserID)
			}

			if logg != nil {
				ctx = logg.WithSessionID(ctx, claims.SessionID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
