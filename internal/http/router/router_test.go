package router_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripdesk/agency-api/internal/auth"
	"github.com/tripdesk/agency-api/internal/config"
	"github.com/tripdesk/agency-api/internal/domain"
	"github.com/tripdesk/agency-api/internal/http/handler"
	"github.com/tripdesk/agency-api/internal/http/middleware"
	"github.com/tripdesk/agency-api/internal/http/router"
	"github.com/tripdesk/agency-api/internal/metrics"
	"github.com/tripdesk/agency-api/internal/repository"
	"github.com/tripdesk/agency-api/internal/service"
	"github.com/tripdesk/agency-api/internal/storage"
	"github.com/tripdesk/agency-api/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type app struct {
	db      *gorm.DB
	tokens  *auth.TokenService
	handler http.Handler
}

func newApp(t *testing.T) *app {
	t.Helper()
	db := testutil.SetupTestDB(t)
	log := zap.NewNop()

	cfg := &config.Config{
		App:     config.AppConfig{Name: "agency-api", Environment: "development"},
		Auth:    config.AuthConfig{JWTSecret: "router-test-secret-0123456789abcdef", Issuer: "agency-api-test", AccessTokenTTL: 15, RefreshTokenTTL: 60, BcryptCost: 4},
		Metrics: config.MetricsConfig{Enabled: true, Namespace: "test", Path: "/metrics"},
	}

	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	clock := service.FixedClock{At: time.Date(2025, 6, 18, 10, 0, 0, 0, time.UTC)}
	m := metrics.New(cfg.Metrics.Namespace)
	tokens := auth.NewTokenService(&cfg.Auth)
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)

	agencyRepo := repository.NewAgencyRepository(db)
	userRepo := repository.NewUserRepository(db)
	clientRepo := repository.NewClientRepository(db)
	serviceRepo := repository.NewServiceRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	resolver := service.NewAgencyStatusResolver(agencyRepo, nil, log)

	handlers := router.Handlers{
		Health:    handler.NewHealthHandler(db, nil, log),
		Auth:      handler.NewAuthHandler(service.NewAuthService(userRepo, tokens, hasher, m, clock, log), log),
		Agency:    handler.NewAgencyHandler(service.NewAgencyService(agencyRepo, resolver, files, log), 5, log),
		User:      handler.NewUserHandler(service.NewUserService(userRepo, agencyRepo, hasher, log), log),
		Client:    handler.NewClientHandler(service.NewClientService(clientRepo, clock, log), log),
		Service:   handler.NewServiceHandler(service.NewCatalogService(serviceRepo, bookingRepo, log), log),
		Booking:   handler.NewBookingHandler(service.NewBookingService(bookingRepo, clientRepo, serviceRepo, m, clock, log), log),
		Analytics: handler.NewAnalyticsHandler(service.NewAnalyticsService(bookingRepo, clock, log), log),
	}

	rt := router.NewRouter(cfg, log, m, auth.NewMiddleware(tokens, resolver, log), middleware.NewRateLimiter(&cfg.RateLimit, log), handlers)
	return &app{db: db, tokens: tokens, handler: rt.Setup()}
}

func (a *app) request(t *testing.T, user *domain.User, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		pair, err := a.tokens.Issue(user)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	}
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

func TestRouter_RequiresToken(t *testing.T) {
	a := newApp(t)

	rr := a.request(t, nil, http.MethodGet, "/api/v1/bookings", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestRouter_AgencyGate(t *testing.T) {
	a := newApp(t)
	agency := testutil.CreateAgency(t, a.db, "Al Noor Travels", domain.AgencyStatusActive)
	agent := testutil.CreateUser(t, a.db, agency, domain.RoleAgent, "agent")

	rr := a.request(t, agent, http.MethodGet, "/api/v1/bookings", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	// A token issued while active stops working once the agency is suspended
	require.NoError(t, a.db.Model(agency).Update("status", domain.AgencyStatusSuspended).Error)

	rr = a.request(t, agent, http.MethodGet, "/api/v1/bookings", "")
	require.Equal(t, http.StatusForbidden, rr.Code)
	var problem domain.APIError
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	assert.Equal(t, domain.ErrorTypeTenantGate, problem.Type)

	rr = a.request(t, agent, http.MethodGet, "/api/v1/agency/check-status", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var status domain.AgencyStatusDTO
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	assert.Equal(t, domain.AgencyStatusSuspended, status.AgencyStatus)
	assert.False(t, status.HasAccess)
}

func TestRouter_AdminRoutesNeedSuperUser(t *testing.T) {
	a := newApp(t)
	agency := testutil.CreateAgency(t, a.db, "Al Noor Travels", domain.AgencyStatusActive)
	owner := testutil.CreateUser(t, a.db, agency, domain.RoleAgencyOwner, "owner")
	root := testutil.CreateUser(t, a.db, nil, domain.RoleSuperUser, "root")

	rr := a.request(t, owner, http.MethodGet, "/api/v1/admin/agencies", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = a.request(t, root, http.MethodGet, "/api/v1/admin/agencies", "")
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestRouter_SuperUserAgencyFilter(t *testing.T) {
	a := newApp(t)
	first := testutil.CreateAgency(t, a.db, "Al Noor Travels", domain.AgencyStatusActive)
	second := testutil.CreateAgency(t, a.db, "Sky Tours", domain.AgencyStatusActive)
	owner := testutil.CreateUser(t, a.db, first, domain.RoleAgencyOwner, "owner")
	root := testutil.CreateUser(t, a.db, nil, domain.RoleSuperUser, "root")
	testutil.CreateClient(t, a.db, first, owner, "Ahmed Khan")
	testutil.CreateClient(t, a.db, second, nil, "Sara Malik")

	total := func(rr *httptest.ResponseRecorder) int64 {
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var page domain.PaginatedResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
		return page.Total
	}

	assert.Equal(t, int64(2), total(a.request(t, root, http.MethodGet, "/api/v1/clients", "")))
	assert.Equal(t, int64(1), total(a.request(t, root, http.MethodGet, "/api/v1/clients?agency_id="+second.ID.String(), "")))
	assert.Equal(t, int64(1), total(a.request(t, owner, http.MethodGet, "/api/v1/clients", "")))

	rr := a.request(t, owner, http.MethodGet, "/api/v1/clients?agency_id="+second.ID.String(), "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	a := newApp(t)

	rr := a.request(t, nil, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = a.request(t, nil, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `test_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestRouter_UnknownRoute(t *testing.T) {
	a := newApp(t)

	rr := a.request(t, nil, http.MethodGet, "/api/v2/nothing", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
