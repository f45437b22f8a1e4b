package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/LLTIGER/pulse-architects-sub001/internal/checkout"
	"github.com/LLTIGER/pulse-architects-sub001/internal/downloads"
	"github.com/LLTIGER/pulse-architects-sub001/internal/licenses"
	"github.com/LLTIGER/pulse-architects-sub001/internal/orders"
	pkgAuth "github.com/LLTIGER/pulse-architects-sub001/pkg/auth"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/config"
	pkgerrors "github.com/LLTIGER/pulse-architects-sub001/pkg/errors"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/pagination"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/storage/gcs"
)

const allowedOrigin = "https://plans.example.com"

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubRedis struct {
	stubPinger
	data map[string]string
}

func (s *stubRedis) Get(_ context.Context, key string) (string, error) {
	return s.data[key], nil
}

func (s *stubRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	s.data[key] = str
	return true, nil
}

func (s *stubRedis) Set(_ context.Context, key string, value any, _ time.Duration) error {
	str, _ := value.(string)
	s.data[key] = str
	return nil
}

func (s *stubRedis) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

func (s *stubRedis) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (s *stubRedis) FixedWindowAllow(context.Context, string, int64, time.Duration) (bool, int64, error) {
	return true, 1, nil
}

type stubCheckout struct{ calls int }

func (s *stubCheckout) Initiate(context.Context, *checkout.Identity, checkout.Input) (*checkout.Result, error) {
	s.calls++
	return &checkout.Result{SessionID: "cs_1", SessionURL: "https://checkout.example/cs_1", OrderID: uuid.New(), Amount: decimal.NewFromInt(50)}, nil
}

type stubDownloads struct{}

func (stubDownloads) Authorize(_ context.Context, req downloads.Request) (*downloads.Decision, error) {
	if req.UserID == nil && req.Tier != "PREVIEW" {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, string(downloads.ReasonAuthenticationRequired))
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
}

func (stubDownloads) Commit(context.Context, *downloads.Decision) error { return nil }

func (stubDownloads) Abandon(context.Context, *downloads.Decision, error) {}

type stubObjects struct{}

func (stubObjects) OpenObject(context.Context, string) (*gcs.Object, error) {
	return nil, gcs.ErrObjectNotFound
}

type stubLicenses struct{}

func (stubLicenses) List(context.Context, licenses.ListParams) (*licenses.ListResult, error) {
	return &licenses.ListResult{Items: []licenses.ListItem{}}, nil
}

type stubOrders struct{}

func (stubOrders) GetForUser(context.Context, uuid.UUID, uuid.UUID) (*orders.OrderView, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func (stubOrders) List(context.Context, uuid.UUID, pagination.Params) (*orders.OrderPage, error) {
	return &orders.OrderPage{Items: []orders.OrderView{}}, nil
}

type stubWebhook struct{}

func (stubWebhook) HandleEvent(context.Context, *stripe.Event) error { return nil }

type stubSigner struct{}

func (stubSigner) SigningSecret() string { return "whsec_test" }

func testConfig() *config.Config {
	return &config.Config{
		App:  config.AppConfig{Env: "test"},
		JWT:  config.JWTConfig{Secret: "secret", Issuer: "issuer"},
		CSRF: config.CSRFConfig{AllowedOrigins: []string{allowedOrigin}},
		RateLimit: config.RateLimitConfig{
			CheckoutWindow: time.Minute,
			CheckoutLimit:  10,
			DownloadWindow: time.Minute,
			DownloadLimit:  10,
		},
	}
}

func newTestRouter(t *testing.T) (http.Handler, *stubCheckout, *config.Config) {
	t.Helper()
	cfg := testConfig()
	co := &stubCheckout{}
	handler := NewRouter(Deps{
		Config:        cfg,
		Registry:      prometheus.NewRegistry(),
		DB:            stubPinger{},
		Redis:         &stubRedis{data: map[string]string{}},
		Objects:       stubObjects{},
		Checkout:      co,
		Downloads:     stubDownloads{},
		Licenses:      stubLicenses{},
		Orders:        stubOrders{},
		StripeClient:  stubSigner{},
		StripeWebhook: stubWebhook{},
	})
	return handler, co, cfg
}

func bearer(t *testing.T, cfg *config.Config) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), time.Hour, pkgAuth.AccessTokenPayload{UserID: uuid.New(), Email: "b@example.com"})
	require.NoError(t, err)
	return "Bearer " + token
}

func serve(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthRoutes(t *testing.T) {
	handler, _, _ := newTestRouter(t)

	rec := serve(handler, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = serve(handler, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsRoute(t *testing.T) {
	handler, _, _ := newTestRouter(t)
	rec := serve(handler, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCheckoutRoute(t *testing.T) {
	handler, co, cfg := newTestRouter(t)
	body := `{"assetId":"` + uuid.NewString() + `","licenseTier":"STANDARD"}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	rec := serve(handler, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	req.Header.Set("Authorization", bearer(t, cfg))
	req.Header.Set("Origin", "https://evil.example.net")
	rec = serve(handler, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// a foreign origin is refused before any credential is looked at
	req = httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	req.Header.Set("Origin", "https://evil.example.net")
	rec = serve(handler, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, co.calls)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	req.Header.Set("Authorization", bearer(t, cfg))
	req.Header.Set("Origin", allowedOrigin)
	rec = serve(handler, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"sessionId":"cs_1"`)
	assert.Equal(t, allowedOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, 1, co.calls)
}

func TestCheckoutPreflight(t *testing.T) {
	handler, _, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/checkout", nil)
	req.Header.Set("Origin", allowedOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")

	rec := serve(handler, req)
	assert.Equal(t, allowedOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Less(t, rec.Code, 300)
}

func TestDownloadRouteAllowsAnonymous(t *testing.T) {
	handler, _, _ := newTestRouter(t)

	rec := serve(handler, httptest.NewRequest(http.MethodGet, "/api/v1/assets/"+uuid.NewString()+"/download?tier=STANDARD", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "AuthenticationRequired")
}

func TestAuthenticatedReadRoutes(t *testing.T) {
	handler, _, cfg := newTestRouter(t)

	rec := serve(handler, httptest.NewRequest(http.MethodGet, "/api/v1/licenses", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/licenses", nil)
	req.Header.Set("Authorization", bearer(t, cfg))
	rec = serve(handler, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", bearer(t, cfg))
	rec = serve(handler, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStripeWebhookRouteRequiresSignature(t *testing.T) {
	handler, _, _ := newTestRouter(t)
	rec := serve(handler, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
