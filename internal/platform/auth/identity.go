package auth

import (
	"context"
	"slices"
)

// Identity is the authenticated caller as recorded in artifact and
// rating rows and in the audit trail.
type Identity struct {
	Subject string
	Email   string
	Roles   []string
}

// Clone returns a copy whose Roles slice does not alias the original.
func (i Identity) Clone() Identity {
	i.Roles = slices.Clone(i.Roles)
	return i
}

type ctxKeyIdentity struct{}

func ContextWithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity{}, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(ctxKeyIdentity{}).(Identity)
	return v, ok
}
