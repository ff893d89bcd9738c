package retailers

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	pkgerrors "github.com/crosscartapp/crosscart-backend/pkg/errors"
)

// TokenRefresher exchanges stored credentials for a fresh retailer access
// token. Implementations talk to the retailer's auth endpoint.
type TokenRefresher interface {
	Refresh(ctx context.Context, userID, retailerID string) (token string, ttl time.Duration, err error)
}

// RefresherFunc adapts a plain function to the TokenRefresher interface.
type RefresherFunc func(ctx context.Context, userID, retailerID string) (string, time.Duration, error)

// Refresh implements TokenRefresher.
func (f RefresherFunc) Refresh(ctx context.Context, userID, retailerID string) (string, time.Duration, error) {
	return f(ctx, userID, retailerID)
}

// TokenCache stores refreshed tokens between placements.
type TokenCache interface {
	GetRetailerToken(ctx context.Context, userID, retailerID string) (string, error)
	StoreRetailerToken(ctx context.Context, userID, retailerID, token string, ttl time.Duration) error
}

// TokenSource hands out retailer access tokens, refreshing through the
// configured refresher. Concurrent requests for the same (user, retailer)
// pair share a single refresh call.
type TokenSource struct {
	refresher TokenRefresher
	cache     TokenCache
	group     singleflight.Group
}

// NewTokenSource builds a token source. The cache is optional.
func NewTokenSource(refresher TokenRefresher, cache TokenCache) (*TokenSource, error) {
	if refresher == nil {
		return nil, fmt.Errorf("token refresher required")
	}
	return &TokenSource{refresher: refresher, cache: cache}, nil
}

// Token returns an access token for the user's account at the retailer.
func (s *TokenSource) Token(ctx context.Context, userID, retailerID string) (string, error) {
	if userID == "" || retailerID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "user and retailer ids required")
	}

	if s.cache != nil {
		if cached, err := s.cache.GetRetailerToken(ctx, userID, retailerID); err == nil && cached != "" {
			return cached, nil
		}
	}

	key := userID + "|" + retailerID
	token, err, _ := s.group.Do(key, func() (interface{}, error) {
		token, ttl, err := s.refresher.Refresh(ctx, userID, retailerID)
		if err != nil {
			return "", err
		}
		if s.cache != nil && ttl > 0 {
			// Cache failures are not fatal; the next call refreshes again.
			_ = s.cache.StoreRetailerToken(ctx, userID, retailerID, token, ttl)
		}
		return token, nil
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}
