package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/crosscartapp/crosscart-backend/api/responses"
	pkgerrors "github.com/crosscartapp/crosscart-backend/pkg/errors"
	"github.com/crosscartapp/crosscart-backend/pkg/logger"
	pkgredis "github.com/crosscartapp/crosscart-backend/pkg/redis"
)

const (
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
)

type routeMatcher func(string) bool

type idempotencyRule struct {
	method  string
	matcher routeMatcher
	ttl     time.Duration
}

var idempotencyRules = []idempotencyRule{
	{method: http.MethodPost, matcher: matchExact("/api/v1/checkout/sessions"), ttl: defaultIdempotencyTTL},
	// 7d TTL: money moves on these
	{method: http.MethodPost, matcher: matchPrefixSuffix("/api/v1/checkout/sessions/", "/place"), ttl: criticalIdempotencyTTL},
	{method: http.MethodPost, matcher: matchPrefixSuffix("/api/admin/v1/manual-orders/", "/place"), ttl: criticalIdempotencyTTL},
	{method: http.MethodPost, matcher: matchPrefixSuffix("/api/admin/v1/manual-orders/", "/fail"), ttl: criticalIdempotencyTTL},
}

// storedResponse is the cached outcome of an idempotent request. The body is
// base64 so arbitrary payloads survive the JSON round trip, and the request
// hash catches key reuse with a different body.
type storedResponse struct {
	Status      int               `json:"status"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
}

// idempotencyGuard holds the middleware's collaborators for one guarded route.
type idempotencyGuard struct {
	store pkgredis.IdempotencyStore
	logg  *logger.Logger
	next  http.Handler
}

// Idempotency caches responses for the mutating checkout and manual-order
// routes, keyed by user, route, and the Idempotency-Key header. A repeated
// key replays the stored response; the same key with a different body is
// rejected.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		g := &idempotencyGuard{store: store, logg: logg, next: next}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, guarded := routeTTL(r.Method, routePattern(r))
			if !guarded || g.store == nil {
				g.next.ServeHTTP(w, r)
				return
			}
			g.serve(w, r, ttl)
		})
	}
}

func (g *idempotencyGuard) serve(w http.ResponseWriter, r *http.Request, ttl time.Duration) {
	ctx := r.Context()

	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idemKey == "" {
		responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	digest := bodyDigest(body)
	key := g.store.IdempotencyKey(requestScope(r), idemKey)

	switch prior, err := g.load(ctx, key); {
	case err != nil:
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return
	case prior != nil && prior.RequestHash != digest:
		responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
		return
	case prior != nil:
		replay(w, prior)
		return
	}

	buf := &bufferingWriter{ResponseWriter: w}
	g.next.ServeHTTP(buf, r)
	g.save(ctx, key, ttl, buf, digest)
}

func (g *idempotencyGuard) load(ctx context.Context, key string) (*storedResponse, error) {
	raw, err := g.store.Get(ctx, key)
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, err
	case raw == "":
		return nil, nil
	}

	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

func (g *idempotencyGuard) save(ctx context.Context, key string, ttl time.Duration, buf *bufferingWriter, digest string) {
	stored := storedResponse{
		Status:      buf.statusOrDefault(),
		Body:        base64.StdEncoding.EncodeToString(buf.body.Bytes()),
		RequestHash: digest,
	}
	if ct := buf.Header().Get("Content-Type"); ct != "" {
		stored.Headers = map[string]string{"Content-Type": ct}
	}

	payload, err := json.Marshal(stored)
	if err != nil {
		logError(ctx, g.logg, "marshal idempotency record", err)
		return
	}
	if _, err := g.store.SetNX(ctx, key, string(payload), ttl); err != nil {
		logError(ctx, g.logg, "persist idempotency record", err)
	}
}

func replay(w http.ResponseWriter, stored *storedResponse) {
	if ct := stored.Headers["Content-Type"]; ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(stored.Status)
	if decoded, err := base64.StdEncoding.DecodeString(stored.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

// requestScope ties the cache entry to the caller and route so two users
// sharing an Idempotency-Key value never collide.
func requestScope(r *http.Request) string {
	parts := []string{UserIDFromContext(r.Context()), r.Method, r.URL.Path}
	return strings.Join(parts, "|")
}

func bodyDigest(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// routePattern prefers the chi route pattern over the raw path so the rules
// match regardless of the token embedded in the URL.
func routePattern(r *http.Request) string {
	if r == nil {
		return ""
	}
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

func routeTTL(method, pattern string) (time.Duration, bool) {
	if pattern == "" {
		return 0, false
	}
	for _, rule := range idempotencyRules {
		if rule.method == method && rule.matcher(pattern) {
			return rule.ttl, true
		}
	}
	return 0, false
}

func matchExact(path string) routeMatcher {
	return func(pattern string) bool { return pattern == path }
}

func matchPrefixSuffix(prefix, suffix string) routeMatcher {
	return func(pattern string) bool {
		return strings.HasPrefix(pattern, prefix) && strings.HasSuffix(pattern, suffix)
	}
}

// bufferingWriter tees the response so it can be cached after the handler
// has written it to the client.
type bufferingWriter struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (b *bufferingWriter) WriteHeader(code int) {
	b.status = code
	b.ResponseWriter.WriteHeader(code)
}

func (b *bufferingWriter) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	b.body.Write(p)
	return b.ResponseWriter.Write(p)
}

func (b *bufferingWriter) statusOrDefault() int {
	if b.status == 0 {
		return http.StatusOK
	}
	return b.status
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
