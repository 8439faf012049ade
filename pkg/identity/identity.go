// Package identity carries the authenticated caller through a request.
package identity

import (
	"context"

	"github.com/jordanlanch/prospectroute/pkg/models"
)

// Identity is the authenticated author of an action.
type Identity struct {
	UserID int
	Email  string
	Role   models.Role
}

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored in ctx, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok && id.UserID != 0
}
