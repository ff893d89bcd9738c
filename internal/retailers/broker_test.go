package retailers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPBrokerRefresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/tokens/refresh", r.URL.Path)
		require.Equal(t, "Bearer broker-token", r.Header.Get("Authorization"))

		var req refreshRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "user-1", req.UserID)
		assert.Equal(t, "northtrail", req.RetailerID)

		_ = json.NewEncoder(w).Encode(refreshResponse{AccessToken: "tok-456", ExpiresIn: 900})
	}))
	defer server.Close()

	broker, err := NewHTTPBroker(server.URL, "broker-token")
	require.NoError(t, err)

	token, ttl, err := broker.Refresh(context.Background(), "user-1", "northtrail")
	require.NoError(t, err)
	assert.Equal(t, "tok-456", token)
	assert.Equal(t, 15*time.Minute, ttl)
}

func TestHTTPBrokerRefreshErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	broker, err := NewHTTPBroker(server.URL, "")
	require.NoError(t, err)

	_, _, err = broker.Refresh(context.Background(), "user-1", "northtrail")
	require.Error(t, err)

	_, err = NewHTTPBroker("  ", "")
	require.Error(t, err)
}

func TestHTTPBrokerRejectsEmptyToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(refreshResponse{Error: "account not linked"})
	}))
	defer server.Close()

	broker, err := NewHTTPBroker(server.URL, "")
	require.NoError(t, err)

	_, _, err = broker.Refresh(context.Background(), "user-1", "northtrail")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account not linked")
}
