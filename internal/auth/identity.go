package auth

import (
	"context"
	"strings"
)

type contextKey string

const identityKey contextKey = "identity"

const (
	RoleAdmin    = "admin"
	RoleVendor   = "vendor"
	RoleCustomer = "customer"
)

// Identity is the caller of a request: an authenticated user (UserID and
// Role set) or an anonymous shopper carrying an opaque cart token. Core
// operations take it explicitly instead of reading ambient request state.
type Identity struct {
	UserID    string
	Role      string
	CartToken string
}

func (id Identity) Authenticated() bool {
	return id.UserID != ""
}

// Role names are compared case-insensitively; tokens issued by older
// versions of the auth service carried capitalized roles.
func (id Identity) IsAdmin() bool {
	return strings.EqualFold(id.Role, RoleAdmin)
}

func (id Identity) IsVendor() bool {
	return strings.EqualFold(id.Role, RoleVendor)
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext returns the identity the middleware stored on the request.
func FromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(identityKey).(Identity); ok {
		return id
	}
	return Identity{}
}
