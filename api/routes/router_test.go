package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	checkoutsvc "github.com/crosscartapp/crosscart-backend/internal/checkout"
	"github.com/crosscartapp/crosscart-backend/internal/orders"
	"github.com/crosscartapp/crosscart-backend/internal/remediation"
	pkgAuth "github.com/crosscartapp/crosscart-backend/pkg/auth"
	"github.com/crosscartapp/crosscart-backend/pkg/config"
	"github.com/crosscartapp/crosscart-backend/pkg/db/models"
	"github.com/crosscartapp/crosscart-backend/pkg/enums"
	"github.com/crosscartapp/crosscart-backend/pkg/pagination"
	"github.com/crosscartapp/crosscart-backend/pkg/types"
)

// routerHarness bundles a router with the config used to mint tokens for it.
type routerHarness struct {
	cfg    *config.Config
	router http.Handler
}

func newHarness() *routerHarness {
	cfg := &config.Config{
		App: config.AppConfig{Env: "test", Port: "8080"},
		JWT: config.JWTConfig{
			Secret:            "router-test-secret",
			Issuer:            "crosscart",
			ExpirationMinutes: 60,
		},
	}
	return &routerHarness{
		cfg:    cfg,
		router: NewRouter(cfg, nil, nil, prometheus.NewRegistry(), &stubCheckoutService{}, stubRemediationService{}),
	}
}

// get performs an authenticated or anonymous GET depending on role. An empty
// role sends no Authorization header.
func (h *routerHarness) get(t *testing.T, path string, role enums.MemberRole) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if role != "" {
		token, err := pkgAuth.MintAccessToken(h.cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
			UserID: uuid.New(),
			Role:   role,
			JTI:    uuid.NewString(),
		})
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	h.router.ServeHTTP(resp, req)
	return resp
}

func TestRouterOperationalEndpoints(t *testing.T) {
	h := newHarness()

	live := h.get(t, "/health/live", "")
	require.Equal(t, http.StatusOK, live.Code)
	require.Equal(t, "test", live.Header().Get("X-CrossCart-Env"))

	require.Equal(t, http.StatusOK, h.get(t, "/health/ready", "").Code)
	require.Equal(t, http.StatusOK, h.get(t, "/metrics", "").Code)
}

func TestRouterCheckoutRequiresAuth(t *testing.T) {
	h := newHarness()

	require.Equal(t, http.StatusUnauthorized, h.get(t, "/api/v1/checkout/sessions/cs_abc", "").Code)
	require.Equal(t, http.StatusOK, h.get(t, "/api/v1/checkout/sessions/cs_abc", enums.RoleShopper).Code)
}

func TestRouterAdminRequiresAdminRole(t *testing.T) {
	h := newHarness()

	require.Equal(t, http.StatusUnauthorized, h.get(t, "/api/admin/v1/manual-orders/stats", "").Code)
	require.Equal(t, http.StatusForbidden, h.get(t, "/api/admin/v1/manual-orders/stats", enums.RoleShopper).Code)
	require.Equal(t, http.StatusOK, h.get(t, "/api/admin/v1/manual-orders/stats", enums.RoleAdmin).Code)
}

// stubCheckoutService returns the same empty session for every call; the
// router tests only care about routing and middleware behavior.
type stubCheckoutService struct {
	session models.CheckoutSession
}

func (s *stubCheckoutService) Initiate(context.Context, uuid.UUID, checkoutsvc.InitiateInput) (*models.CheckoutSession, error) {
	return &s.session, nil
}

func (s *stubCheckoutService) GetSession(context.Context, uuid.UUID, string) (*models.CheckoutSession, error) {
	return &s.session, nil
}

func (s *stubCheckoutService) SessionOrders(context.Context, uuid.UUID, string) ([]models.RetailerOrder, error) {
	return nil, nil
}

func (s *stubCheckoutService) UpdateShipping(context.Context, uuid.UUID, string, types.ShippingAddress) (*models.CheckoutSession, error) {
	return &s.session, nil
}

func (s *stubCheckoutService) UpdatePayment(context.Context, uuid.UUID, string, string) (*models.CheckoutSession, error) {
	return &s.session, nil
}

func (s *stubCheckoutService) Place(context.Context, uuid.UUID, string) (*checkoutsvc.PlaceResult, error) {
	return &checkoutsvc.PlaceResult{Session: &s.session}, nil
}

type stubRemediationService struct{}

func (stubRemediationService) PendingOrders(context.Context, pagination.Params) (*orders.OrderList, error) {
	return &orders.OrderList{}, nil
}

func (stubRemediationService) Order(context.Context, string) (*models.RetailerOrder, error) {
	return &models.RetailerOrder{}, nil
}

func (stubRemediationService) Instructions(context.Context, string) (*remediation.Checklist, error) {
	return &remediation.Checklist{}, nil
}

func (stubRemediationService) MarkPlaced(context.Context, string, remediation.MarkPlacedInput) (*models.RetailerOrder, error) {
	return &models.RetailerOrder{}, nil
}

func (stubRemediationService) MarkFailed(context.Context, string, string) (*models.RetailerOrder, error) {
	return &models.RetailerOrder{}, nil
}

func (stubRemediationService) Statistics(context.Context) (*remediation.Statistics, error) {
	return &remediation.Statistics{}, nil
}
