package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/crosscartapp/crosscart-backend/pkg/errors"
)

type memoryStore struct {
	data map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]string)}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key], _ = value.(string)
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("test:%s:%s", scope, id)
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func chiRequest(method, url, pattern string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, url, body)
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestRouteTTLSelection(t *testing.T) {
	ttl, ok := routeTTL(http.MethodPost, "/api/v1/checkout/sessions")
	require.True(t, ok)
	require.Equal(t, defaultIdempotencyTTL, ttl)

	for _, pattern := range []string{
		"/api/v1/checkout/sessions/{token}/place",
		"/api/admin/v1/manual-orders/{orderNumber}/place",
		"/api/admin/v1/manual-orders/{orderNumber}/fail",
	} {
		ttl, ok := routeTTL(http.MethodPost, pattern)
		require.True(t, ok, pattern)
		require.Equal(t, criticalIdempotencyTTL, ttl, pattern)
	}

	_, ok = routeTTL(http.MethodGet, "/api/v1/checkout/sessions/{token}")
	require.False(t, ok)
	_, ok = routeTTL(http.MethodPost, "/api/v1/carts/items")
	require.False(t, ok)
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	mw := Idempotency(newMemoryStore(), nil)
	var handlerCalled bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	})

	req := chiRequest(http.MethodPost, "/api/v1/checkout/sessions", "/api/v1/checkout/sessions", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.False(t, handlerCalled)
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	mw := Idempotency(newMemoryStore(), nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	const (
		pattern = "/api/v1/checkout/sessions/{token}/place"
		url     = "/api/v1/checkout/sessions/cs_abc/place"
	)

	first := chiRequest(http.MethodPost, url, pattern, strings.NewReader(`{}`))
	first.Header.Set("Idempotency-Key", "abc")
	firstResp := httptest.NewRecorder()
	mw(handler).ServeHTTP(firstResp, first)
	require.Equal(t, http.StatusAccepted, firstResp.Code)

	second := chiRequest(http.MethodPost, url, pattern, strings.NewReader(`{}`))
	second.Header.Set("Idempotency-Key", "abc")
	secondResp := httptest.NewRecorder()
	mw(handler).ServeHTTP(secondResp, second)

	require.Equal(t, http.StatusAccepted, secondResp.Code)
	require.Equal(t, "application/json", secondResp.Header().Get("Content-Type"))
	require.JSONEq(t, `{"ok":true}`, secondResp.Body.String())
	require.Equal(t, 1, calls, "handler must run once")
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	mw := Idempotency(newMemoryStore(), nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	first := chiRequest(http.MethodPost, "/api/v1/checkout/sessions", "/api/v1/checkout/sessions", strings.NewReader(`{"cart":"a"}`))
	first.Header.Set("Idempotency-Key", "xyz")
	mw(handler).ServeHTTP(httptest.NewRecorder(), first)

	second := chiRequest(http.MethodPost, "/api/v1/checkout/sessions", "/api/v1/checkout/sessions", strings.NewReader(`{"cart":"b"}`))
	second.Header.Set("Idempotency-Key", "xyz")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, second)

	require.Equal(t, http.StatusConflict, resp.Code)

	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	require.Equal(t, string(pkgerrors.CodeIdempotency), payload.Error.Code)
}

func TestIdempotencySkipsUnguardedRoutes(t *testing.T) {
	mw := Idempotency(newMemoryStore(), nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	})

	for range 2 {
		req := chiRequest(http.MethodGet, "/api/v1/checkout/sessions/cs_abc", "/api/v1/checkout/sessions/{token}", nil)
		mw(handler).ServeHTTP(httptest.NewRecorder(), req)
	}
	require.Equal(t, 2, calls)
}
