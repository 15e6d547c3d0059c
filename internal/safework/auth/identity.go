package auth

import (
	"context"
	"time"

	"github.com/gartstein/safework/internal/safework/models"
	"github.com/google/uuid"
)

// Identity is the authenticated caller, as proven by a session token.
type Identity struct {
	UserID     uuid.UUID
	Email      string
	Profile    string
	ProviderID uuid.UUID
	TokenID    string
	ExpiresAt  time.Time
}

// Role returns the permission tier of the caller's profile.
func (i *Identity) Role() models.Role {
	return models.RoleOf(i.Profile)
}

type contextKey string

const (
	userContextKey contextKey = "user"
)

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, userContextKey, id)
}

// IdentityFromContext returns the caller stored by the middleware or the
// interceptor, if any.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(userContextKey).(*Identity)
	return id, ok && id != nil
}
