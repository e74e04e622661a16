package routes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/assignmentpoint-backend/api/controllers"
	"github.com/angelmondragon/assignmentpoint-backend/internal/marketplace"
	"github.com/angelmondragon/assignmentpoint-backend/internal/orders"
	pkgAuth "github.com/angelmondragon/assignmentpoint-backend/pkg/auth"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/config"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/db/models"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/logger"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/metrics"
	"github.com/angelmondragon/assignmentpoint-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

// stubOrders implements only what the routed handlers under test call; anything else
// panics through the nil embedded interface.
type stubOrders struct {
	orders.Service
	created int
}

func (s *stubOrders) CreateOrder(ctx context.Context, input orders.CreateOrderInput) (*models.Order, error) {
	s.created++
	return &models.Order{ID: uuid.New(), CustomerID: input.CustomerID, TotalCents: input.TotalCents}, nil
}

func (s *stubOrders) ListByStatus(ctx context.Context, status enums.OrderStatus, params pagination.Params) (*orders.OrderList, error) {
	return &orders.OrderList{}, nil
}

func (s *stubOrders) ListAvailable(ctx context.Context, params pagination.Params) (*orders.OrderList, error) {
	return &orders.OrderList{}, nil
}

type stubMarketplace struct {
	marketplace.Service
	submitted int
}

func (s *stubMarketplace) SubmitBid(ctx context.Context, input marketplace.SubmitBidInput) (*models.Bid, error) {
	s.submitted++
	return &models.Bid{ID: uuid.New(), OrderID: input.OrderID, WriterID: input.WriterID}, nil
}

type countingLimiter struct {
	mu   sync.Mutex
	hits map[string]int64
}

func (l *countingLimiter) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hits[scope]++
	return l.hits[scope] <= limit, l.hits[scope], nil
}

func (l *countingLimiter) BidRateScope(writerID string) string {
	return "bid:" + writerID
}

type memoryIdempotencyStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (s *memoryIdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (s *memoryIdempotencyStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = fmt.Sprint(value)
	return nil
}

func (s *memoryIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key] = fmt.Sprint(value)
	return true, nil
}

func (s *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "ap:idempotency:" + scope + ":" + id
}

func (s *memoryIdempotencyStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{
			Secret:            "router-secret",
			Issuer:            "assignmentpoint-test",
			ExpirationMinutes: 10,
		},
		Marketplace: config.MarketplaceConfig{
			BidRateLimit:  2,
			BidRateWindow: time.Minute,
		},
	}
}

type testHarness struct {
	router      http.Handler
	orders      *stubOrders
	marketplace *stubMarketplace
}

func newTestRouter(cfg *config.Config, registry *prometheus.Registry) testHarness {
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
	ordersSvc := &stubOrders{}
	market := &stubMarketplace{}
	deps := Deps{
		Config:      cfg,
		Logger:      logg,
		Pingers:     map[string]controllers.Pinger{"db": stubPinger{}, "redis": stubPinger{}},
		Idempotency: &memoryIdempotencyStore{data: map[string]string{}},
		BidLimiter:  &countingLimiter{hits: map[string]int64{}},
		Orders:      ordersSvc,
		Marketplace: market,
	}
	if registry != nil {
		deps.Metrics = metrics.NewMarketplaceMetrics(registry)
		deps.Gatherer = registry
	}
	return testHarness{router: NewRouter(deps), orders: ordersSvc, marketplace: market}
}

func buildToken(t *testing.T, cfg *config.Config, role enums.Role) string {
	t.Helper()
	return buildTokenWithUserID(t, cfg, role, uuid.New())
}

func buildTokenWithUserID(t *testing.T, cfg *config.Config, role enums.Role, userID uuid.UUID) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: userID,
		Role:   role,
		JTI:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthRoutes(t *testing.T) {
	h := newTestRouter(testConfig(), nil)
	for _, path := range []string{"/health/live", "/health/ready"} {
		resp := httptest.NewRecorder()
		h.router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	h := newTestRouter(testConfig(), nil)
	resp := httptest.NewRecorder()
	h.router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/orders/available", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	h := newTestRouter(cfg, nil)

	writer := httptest.NewRequest(http.MethodGet, "/api/v1/admin/disputes", nil)
	writer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleWriter))
	resp := httptest.NewRecorder()
	h.router.ServeHTTP(resp, writer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for writer got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/v1/admin/disputes", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleAdmin))
	resp = httptest.NewRecorder()
	h.router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestAvailableFeedLimitedToWriters(t *testing.T) {
	cfg := testConfig()
	h := newTestRouter(cfg, nil)

	customer := httptest.NewRequest(http.MethodGet, "/api/v1/orders/available", nil)
	customer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleCustomer))
	resp := httptest.NewRecorder()
	h.router.ServeHTTP(resp, customer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer got %d", resp.Code)
	}

	writer := httptest.NewRequest(http.MethodGet, "/api/v1/orders/available", nil)
	writer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleWriter))
	resp = httptest.NewRecorder()
	h.router.ServeHTTP(resp, writer)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for writer got %d", resp.Code)
	}
}

func TestOrderCreateRequiresIdempotencyKey(t *testing.T) {
	cfg := testConfig()
	h := newTestRouter(cfg, nil)
	token := buildToken(t, cfg, enums.RoleCustomer)
	body := `{"title":"Essay","deadline":"2030-01-01T00:00:00Z","total_cents":4000}`

	missing := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	missing.Header.Set("Authorization", "Bearer "+token)
	missing.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	h.router.ServeHTTP(resp, missing)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without Idempotency-Key got %d", resp.Code)
	}

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", "order-1")
		resp = httptest.NewRecorder()
		h.router.ServeHTTP(resp, req)
		if resp.Code != http.StatusCreated {
			t.Fatalf("attempt %d: expected 201 got %d (%s)", i, resp.Code, resp.Body.String())
		}
	}
	if h.orders.created != 1 {
		t.Fatalf("expected replay to skip the service, created=%d", h.orders.created)
	}
}

func TestBidSubmitRateLimited(t *testing.T) {
	cfg := testConfig()
	h := newTestRouter(cfg, nil)
	token := buildToken(t, cfg, enums.RoleWriter)
	path := "/api/v1/orders/" + uuid.NewString() + "/bids"

	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		resp := httptest.NewRecorder()
		h.router.ServeHTTP(resp, req)
		last = resp.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on third bid got %d", last)
	}
	if h.marketplace.submitted != 2 {
		t.Fatalf("expected two bids through, got %d", h.marketplace.submitted)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	h := newTestRouter(testConfig(), registry)

	h.router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))

	resp := httptest.NewRecorder()
	h.router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "http_requests_total") {
		t.Fatalf("expected http_requests_total in exposition")
	}
}

func TestWebhookWithoutStripeIsUnavailable(t *testing.T) {
	h := newTestRouter(testConfig(), nil)
	resp := httptest.NewRecorder()
	h.router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader(`{}`)))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 when stripe is not wired got %d", resp.Code)
	}
}
