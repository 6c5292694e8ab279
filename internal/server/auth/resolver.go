package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/equipkeeper/internal/common"
	"github.com/dmitrijs2005/equipkeeper/internal/server/models"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// UserLookup loads a user by ID.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Resolver turns a bearer token into the acting user. Verified users are
// cached for a short TTL; the token itself is checked on every call.
type Resolver struct {
	secret []byte
	users  UserLookup
	cache  *expirable.LRU[string, *models.User]
}

// NewResolver returns a Resolver. size 0 disables the cache.
func NewResolver(secret []byte, users UserLookup, size int, ttl time.Duration) *Resolver {
	r := &Resolver{secret: secret, users: users}
	if size > 0 {
		r.cache = expirable.NewLRU[string, *models.User](size, nil, ttl)
	}
	return r
}

// Resolve returns the user named by token, or common.ErrorUnauthorized
// wrapping the reason.
func (r *Resolver) Resolve(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: no token", common.ErrorUnauthorized)
	}

	userID, err := GetUserIDFromToken(token, r.secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
	}

	if r.cache != nil {
		if u, ok := r.cache.Get(userID); ok {
			return u, nil
		}
	}

	u, err := r.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: unknown user", common.ErrorUnauthorized)
		}
		return nil, fmt.Errorf("resolve user: %w", err)
	}

	if r.cache != nil {
		r.cache.Add(userID, u)
	}
	return u, nil
}

// Forget drops a cached user.
func (r *Resolver) Forget(userID string) {
	if r.cache != nil {
		r.cache.Remove(userID)
	}
}
