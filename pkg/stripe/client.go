package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/crosscartapp/crosscart-backend/pkg/config"
	"github.com/crosscartapp/crosscart-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var errAPIKeyRequired = errors.New("stripe api key is required")

// Client holds the configured Stripe API client. The environment check at
// construction refuses a live key in test mode and vice versa, so a
// misconfigured deploy fails at boot instead of at the first capture.
type Client struct {
	api         *stripe.Client
	environment string
}

// NewClient validates the configured key against the environment and
// returns a ready client.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env, key, err := checkCredentials(cfg)
	if err != nil {
		return nil, err
	}

	stripe.Key = key
	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe client initialized (%s)", env))
	}

	return &Client{api: stripe.NewClient(key), environment: env}, nil
}

// checkCredentials normalizes the environment and verifies the key prefix
// matches it. Stripe secret keys embed the environment (sk_test_/sk_live_),
// restricted keys likewise (rk_).
func checkCredentials(cfg config.StripeConfig) (env, key string, err error) {
	env = strings.TrimSpace(strings.ToLower(cfg.Environment()))
	if env == "" {
		env = testEnv
	}
	if env != testEnv && env != liveEnv {
		return "", "", fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
	}

	key = strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return "", "", errAPIKeyRequired
	}
	for _, prefix := range []string{"sk_" + env, "rk_" + env} {
		if strings.HasPrefix(key, prefix) {
			return env, key, nil
		}
	}
	return "", "", fmt.Errorf("stripe environment %q requires a matching secret key (sk_%s/rk_%s)", env, env, env)
}

// API returns the underlying Stripe API client.
func (c *Client) API() *stripe.Client {
	if c == nil {
		return nil
	}
	return c.api
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}
