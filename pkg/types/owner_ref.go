package types

import (
	"strings"

	"github.com/google/uuid"
)

// OwnerRef identifies who a cart belongs to: a signed-in user or an anonymous
// storefront session. At least one side must be set.
type OwnerRef struct {
	UserID    *uuid.UUID
	SessionID string
}

// IsZero reports whether neither identifier is present.
func (o OwnerRef) IsZero() bool {
	return (o.UserID == nil || *o.UserID == uuid.Nil) && strings.TrimSpace(o.SessionID) == ""
}
