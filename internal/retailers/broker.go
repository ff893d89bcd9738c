package retailers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/crosscartapp/crosscart-backend/pkg/errors"
)

const brokerBodyReadLimit int64 = 1024

var errBrokerURLRequired = errors.New("credential broker url is required")

// HTTPBroker refreshes retailer access tokens through the credential broker
// service that holds the shopper's linked retailer accounts.
type HTTPBroker struct {
	httpClient *http.Client
	baseURL    string
	apiToken   string
}

// BrokerOption configures optional broker behavior.
type BrokerOption func(*HTTPBroker)

// WithBrokerHTTPClient overrides the default HTTP client.
func WithBrokerHTTPClient(client *http.Client) BrokerOption {
	return func(b *HTTPBroker) {
		if client != nil {
			b.httpClient = client
		}
	}
}

// NewHTTPBroker builds the broker client for the given base URL.
func NewHTTPBroker(baseURL, apiToken string, opts ...BrokerOption) (*HTTPBroker, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, errBrokerURLRequired
	}

	broker := &HTTPBroker{
		baseURL:    strings.TrimRight(trimmed, "/"),
		apiToken:   strings.TrimSpace(apiToken),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(broker)
		}
	}

	return broker, nil
}

type refreshRequest struct {
	UserID     string `json:"user_id"`
	RetailerID string `json:"retailer_id"`
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error"`
}

// Refresh exchanges the shopper's stored retailer credentials for a fresh
// access token.
func (b *HTTPBroker) Refresh(ctx context.Context, userID, retailerID string) (string, time.Duration, error) {
	if b == nil {
		return "", 0, pkgerrors.New(pkgerrors.CodeDependency, "credential broker not configured")
	}

	payload, err := json.Marshal(refreshRequest{UserID: userID, RetailerID: retailerID})
	if err != nil {
		return "", 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal refresh request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/v1/tokens/refresh", bytes.NewReader(payload))
	if err != nil {
		return "", 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build refresh request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if b.apiToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+b.apiToken)
	}

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return "", 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute refresh request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, brokerBodyReadLimit))
		return "", 0, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "token refresh failed")
	}

	var brokerResp refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&brokerResp); err != nil {
		return "", 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode refresh response")
	}
	if brokerResp.AccessToken == "" {
		if brokerResp.Error != "" {
			return "", 0, pkgerrors.New(pkgerrors.CodeDependency, "token refresh failed: "+brokerResp.Error)
		}
		return "", 0, pkgerrors.New(pkgerrors.CodeDependency, "token refresh returned no token")
	}

	ttl := time.Duration(brokerResp.ExpiresIn) * time.Second
	return brokerResp.AccessToken, ttl, nil
}
