package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Principal is the caller Auth verified. AccessID is the token jti and
// doubles as the refresh session id.
type Principal struct {
	UserID   uuid.UUID
	Role     enums.UserRole
	AccessID string
}

func (p Principal) IsAdmin() bool {
	return p.Role == enums.UserRoleAdmin
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom reports false on routes that did not pass through Auth.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.UserID != uuid.Nil
}
