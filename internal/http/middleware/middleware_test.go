package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripdesk/agency-api/internal/auth"
	"github.com/tripdesk/agency-api/internal/config"
	"github.com/tripdesk/agency-api/internal/domain"
	"github.com/tripdesk/agency-api/internal/http/middleware"
	"github.com/tripdesk/agency-api/internal/metrics"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func withUser(r *http.Request, u *auth.UserContext) *http.Request {
	return r.WithContext(auth.WithUserContext(r.Context(), u))
}

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) domain.APIError {
	t.Helper()
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	var body domain.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAgencyScope(t *testing.T) {
	own := uuid.New()
	other := uuid.New()

	var seen *auth.AgencyFilter
	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.AgencyFilterFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := middleware.AgencyScope(zap.NewNop())(capture)

	superUser := &auth.UserContext{UserID: uuid.New(), Role: domain.RoleSuperUser}
	manager := &auth.UserContext{UserID: uuid.New(), Role: domain.RoleManager, AgencyID: &own}

	t.Run("super user filter is applied", func(t *testing.T) {
		seen = nil
		req := withUser(httptest.NewRequest(http.MethodGet, "/bookings?agency_id="+other.String(), nil), superUser)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, seen)
		assert.Equal(t, other, *seen.AgencyID)
	})

	t.Run("no parameter leaves the context alone", func(t *testing.T) {
		seen = nil
		req := withUser(httptest.NewRequest(http.MethodGet, "/bookings", nil), superUser)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Nil(t, seen)
	})

	t.Run("invalid uuid", func(t *testing.T) {
		req := withUser(httptest.NewRequest(http.MethodGet, "/bookings?agency_id=nope", nil), superUser)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, domain.ErrorTypeBadRequest, decodeProblem(t, w).Type)
	})

	t.Run("member naming own agency passes without filter", func(t *testing.T) {
		seen = nil
		req := withUser(httptest.NewRequest(http.MethodGet, "/bookings?agency_id="+own.String(), nil), manager)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Nil(t, seen)
	})

	t.Run("member naming another agency is forbidden", func(t *testing.T) {
		req := withUser(httptest.NewRequest(http.MethodGet, "/bookings?agency_id="+other.String(), nil), manager)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, domain.ErrorTypeForbidden, decodeProblem(t, w).Type)
	})
}

func TestLogging_RequestID(t *testing.T) {
	handler := middleware.Logging(zap.NewNop())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	generated := w.Header().Get("X-Request-ID")
	_, err := uuid.Parse(generated)
	assert.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "trace-123")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, "trace-123", w.Header().Get("X-Request-ID"))
}

func TestLogging_RecordsActorSetDownstream(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	agencyID := uuid.New()
	user := &auth.UserContext{UserID: uuid.New(), Username: "agent", Role: domain.RoleAgent, AgencyID: &agencyID}

	// Authentication runs inside the logging middleware and replaces the request
	authenticate := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, withUser(r, user))
		})
	}
	handler := middleware.Logging(zap.New(core))(authenticate(okHandler()))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bookings", nil))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, user.UserID.String(), fields["user_id"])
	assert.Equal(t, "agent", fields["role"])
	assert.Equal(t, agencyID.String(), fields["agency_id"])
	assert.Equal(t, "/bookings", fields["path"])
	assert.Equal(t, w.Header().Get("X-Request-ID"), fields["request_id"])
}

func TestRecovery(t *testing.T) {
	handler := middleware.Recovery(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bookings", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, domain.ErrorTypeInternal, decodeProblem(t, w).Type)
}

func TestMetrics_RoutePattern(t *testing.T) {
	m := metrics.New("test")
	r := chi.NewRouter()
	r.Use(middleware.Metrics(m))
	r.Get("/bookings/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	for _, id := range []string{"a", "b", "c"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bookings/"+id, nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	}

	assert.Equal(t, 1, promtest.CollectAndCount(m.RequestCount), "one series per route pattern")
	assert.Equal(t, float64(3), promtest.ToFloat64(m.RequestCount.WithLabelValues(http.MethodGet, "/bookings/{id}", "204")))
}

func TestMetrics_NilIsPassThrough(t *testing.T) {
	handler := middleware.Metrics(nil)(okHandler())
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSecurityHeaders(t *testing.T) {
	cfg := &config.SecurityConfig{
		EnableHSTS:                true,
		HSTSMaxAge:                31536000,
		HSTSIncludeSubdomains:     true,
		ContentSecurityPolicy:     "default-src 'none'; frame-ancestors 'none'",
		DocsContentSecurityPolicy: "default-src 'self'",
		NoStore:                   true,
		FrameOptions:              "DENY",
		ContentTypeNosniff:        true,
		ReferrerPolicy:            "strict-origin-when-cross-origin",
	}
	handler := middleware.SecurityHeaders(cfg)(okHandler())

	serve := func(path string) http.Header {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w.Header()
	}

	h := serve("/api/v1/bookings")
	assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", h.Get("X-Frame-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", h.Get("Referrer-Policy"))
	assert.Equal(t, "max-age=31536000; includeSubDomains", h.Get("Strict-Transport-Security"))
	assert.Equal(t, "default-src 'none'; frame-ancestors 'none'", h.Get("Content-Security-Policy"))
	assert.Equal(t, "no-store", h.Get("Cache-Control"))
	assert.Empty(t, h.Get("X-XSS-Protection"))
	assert.Empty(t, h.Get("Permissions-Policy"))

	h = serve("/swagger/index.html")
	assert.Equal(t, "default-src 'self'", h.Get("Content-Security-Policy"))
	assert.Empty(t, h.Get("Cache-Control"))

	h = serve("/health")
	assert.Equal(t, "default-src 'none'; frame-ancestors 'none'", h.Get("Content-Security-Policy"))
	assert.Empty(t, h.Get("Cache-Control"))
}

func TestCORS(t *testing.T) {
	base := config.CORSConfig{
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}

	preflight := func(handler http.Handler, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/bookings", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", "GET")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	t.Run("development allows any origin", func(t *testing.T) {
		cfg := base
		handler := middleware.CORS(&cfg, "development", zap.NewNop())(okHandler())
		w := preflight(handler, "http://localhost:5173")
		assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("explicit origins", func(t *testing.T) {
		cfg := base
		cfg.AllowedOrigins = []string{"https://app.tripdesk.example"}
		handler := middleware.CORS(&cfg, "production", zap.NewNop())(okHandler())

		assert.Equal(t, "https://app.tripdesk.example",
			preflight(handler, "https://app.tripdesk.example").Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, preflight(handler, "https://evil.example").Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("production without origins denies", func(t *testing.T) {
		cfg := base
		handler := middleware.CORS(&cfg, "production", zap.NewNop())(okHandler())
		assert.Empty(t, preflight(handler, "https://app.tripdesk.example").Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRateLimiter(t *testing.T) {
	newLimiter := func(cfg config.RateLimitConfig) *middleware.RateLimiter {
		return middleware.NewRateLimiter(&cfg, zap.NewNop())
	}
	hit := func(handler http.Handler, path, ip string, ctx context.Context) int {
		req := httptest.NewRequest(http.MethodGet, path, nil).WithContext(ctx)
		req.RemoteAddr = ip + ":4000"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	t.Run("disabled", func(t *testing.T) {
		handler := newLimiter(config.RateLimitConfig{RequestsPerMinute: 1}).LimitByIP(okHandler())
		for i := 0; i < 10; i++ {
			assert.Equal(t, http.StatusOK, hit(handler, "/x", "10.0.0.1", context.Background()))
		}
	})

	t.Run("by ip with problem response", func(t *testing.T) {
		rl := newLimiter(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2, RequestsPerMinuteAuth: 2})
		handler := rl.LimitByIP(okHandler())

		assert.Equal(t, http.StatusOK, hit(handler, "/x", "10.0.0.2", context.Background()))
		assert.Equal(t, http.StatusOK, hit(handler, "/x", "10.0.0.2", context.Background()))

		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "10.0.0.2:4000"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "60", w.Header().Get("Retry-After"))
		assert.Equal(t, domain.ErrorTypeRateLimited, decodeProblem(t, w).Type)

		// other clients are unaffected
		assert.Equal(t, http.StatusOK, hit(handler, "/x", "10.0.0.3", context.Background()))
	})

	t.Run("whitelists", func(t *testing.T) {
		rl := newLimiter(config.RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 1,
			WhitelistIPs:      []string{"127.0.0.1"},
			WhitelistPaths:    []string{"/health", "/docs/*"},
		})
		handler := rl.LimitByIP(okHandler())
		for i := 0; i < 5; i++ {
			assert.Equal(t, http.StatusOK, hit(handler, "/x", "127.0.0.1", context.Background()))
			assert.Equal(t, http.StatusOK, hit(handler, "/health", "10.0.0.4", context.Background()))
			assert.Equal(t, http.StatusOK, hit(handler, "/docs/index.html", "10.0.0.4", context.Background()))
		}
	})

	t.Run("authenticated requests are keyed by user", func(t *testing.T) {
		rl := newLimiter(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, RequestsPerMinuteAuth: 1})
		handler := rl.Limit(okHandler())

		agency := uuid.New()
		alice := auth.WithUserContext(context.Background(), &auth.UserContext{UserID: uuid.New(), Role: domain.RoleAgent, AgencyID: &agency})
		bob := auth.WithUserContext(context.Background(), &auth.UserContext{UserID: uuid.New(), Role: domain.RoleAgent, AgencyID: &agency})

		assert.Equal(t, http.StatusOK, hit(handler, "/x", "10.0.0.5", alice))
		assert.Equal(t, http.StatusTooManyRequests, hit(handler, "/x", "10.0.0.5", alice))
		assert.Equal(t, http.StatusOK, hit(handler, "/x", "10.0.0.5", bob))
	})

	t.Run("login attempts ignore the ip whitelist", func(t *testing.T) {
		rl := newLimiter(config.RateLimitConfig{
			Enabled:                true,
			RequestsPerMinute:      100,
			LoginAttemptsPerMinute: 2,
			WhitelistIPs:           []string{"127.0.0.1"},
		})
		handler := rl.LimitLogin(okHandler())

		assert.Equal(t, http.StatusOK, hit(handler, "/api/v1/auth/login", "127.0.0.1", context.Background()))
		assert.Equal(t, http.StatusOK, hit(handler, "/api/v1/auth/login", "127.0.0.1", context.Background()))
		assert.Equal(t, http.StatusTooManyRequests, hit(handler, "/api/v1/auth/login", "127.0.0.1", context.Background()))
	})
}
