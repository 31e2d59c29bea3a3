package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripdesk/agency-api/internal/auth"
	"github.com/tripdesk/agency-api/internal/config"
	"github.com/tripdesk/agency-api/internal/domain"
	"github.com/tripdesk/agency-api/internal/repository"
	"github.com/tripdesk/agency-api/internal/service"
	"github.com/tripdesk/agency-api/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testClock = service.FixedClock{At: time.Date(2025, 6, 18, 10, 0, 0, 0, time.UTC)}

type fixture struct {
	db      *gorm.DB
	agency  *domain.Agency
	owner   *domain.User
	agent   *domain.User
	client  *domain.Client
	service *domain.Service
	router  http.Handler
}

// setupBookings wires the booking handler onto a bare chi router. The actor
// is injected into the request context directly instead of through a token.
func setupBookings(t *testing.T) *fixture {
	db := testutil.SetupTestDB(t)
	agency := testutil.CreateAgency(t, db, "Al Noor Travels", domain.AgencyStatusActive)
	owner := testutil.CreateUser(t, db, agency, domain.RoleAgencyOwner, "owner")

	bookings := service.NewBookingService(
		repository.NewBookingRepository(db),
		repository.NewClientRepository(db),
		repository.NewServiceRepository(db),
		nil,
		testClock,
		zap.NewNop(),
	)
	h := NewBookingHandler(bookings, zap.NewNop())

	r := chi.NewRouter()
	r.Get("/bookings", h.List)
	r.Post("/bookings", h.Create)
	r.Get("/bookings/{id}", h.GetByID)
	r.Put("/bookings/{id}", h.Update)
	r.Post("/bookings/{id}/payment", h.ApplyPayment)
	r.Delete("/bookings/{id}", h.Delete)

	return &fixture{
		db:      db,
		agency:  agency,
		owner:   owner,
		agent:   testutil.CreateUser(t, db, agency, domain.RoleAgent, "agent"),
		client:  testutil.CreateClient(t, db, agency, owner, "Ahmed Khan"),
		service: testutil.CreateService(t, db, agency, "Umrah Economy", "100", "50"),
		router:  r,
	}
}

func (f *fixture) do(t *testing.T, actor *domain.User, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req = req.WithContext(testutil.ActorContext(actor))
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestBookingHandler_Create(t *testing.T) {
	f := setupBookings(t)

	rr := f.do(t, f.agent, http.MethodPost, "/bookings", map[string]interface{}{
		"clientId":      f.client.ID,
		"serviceId":     f.service.ID,
		"discount":      "10",
		"paymentMethod": "cash",
		"departureDate": "2025-07-01",
		"arrivalDate":   "2025-07-15",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	dto := decodeBody[domain.BookingDTO](t, rr)
	assert.Equal(t, "150.00", domain.FormatMoney(dto.ServicePrice.Decimal))
	assert.Equal(t, "140.00", domain.FormatMoney(dto.TotalAmount.Decimal))
	assert.Equal(t, "140.00", domain.FormatMoney(dto.RemainingAmount.Decimal))
	assert.Equal(t, domain.PaymentStatusPending, dto.PaymentStatus)
	assert.Equal(t, domain.BookingStatusPending, dto.BookingStatus)
	require.NotNil(t, dto.CreatedByID)
	assert.Equal(t, f.agent.ID, *dto.CreatedByID)
}

func TestBookingHandler_Create_DiscountAboveCeiling(t *testing.T) {
	f := setupBookings(t)

	rr := f.do(t, f.owner, http.MethodPost, "/bookings", map[string]interface{}{
		"clientId":  f.client.ID,
		"serviceId": f.service.ID,
		"discount":  "25.01",
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

	problem := decodeBody[domain.APIError](t, rr)
	assert.Equal(t, domain.ErrorTypeValidation, problem.Type)
	assert.Contains(t, problem.Errors["discount"], "25.00")
}

func TestBookingHandler_Create_ArrivalBeforeDeparture(t *testing.T) {
	f := setupBookings(t)

	rr := f.do(t, f.owner, http.MethodPost, "/bookings", map[string]interface{}{
		"clientId":      f.client.ID,
		"serviceId":     f.service.ID,
		"departureDate": "2025-07-15",
		"arrivalDate":   "2025-07-10",
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	problem := decodeBody[domain.APIError](t, rr)
	assert.Contains(t, problem.Errors, "arrivalDate")
}

func TestBookingHandler_Create_RequestValidation(t *testing.T) {
	f := setupBookings(t)

	t.Run("malformed body", func(t *testing.T) {
		rr := f.do(t, f.owner, http.MethodPost, "/bookings", `{"clientId":`)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		problem := decodeBody[domain.APIError](t, rr)
		assert.Equal(t, domain.ErrorTypeBadRequest, problem.Type)
		assert.True(t, strings.HasPrefix(problem.Detail, "Invalid request body"))
	})

	t.Run("unknown booking status", func(t *testing.T) {
		rr := f.do(t, f.owner, http.MethodPost, "/bookings", map[string]interface{}{
			"clientId":      f.client.ID,
			"serviceId":     f.service.ID,
			"bookingStatus": "cancelled",
		})
		require.Equal(t, http.StatusBadRequest, rr.Code)
		problem := decodeBody[domain.APIError](t, rr)
		assert.Contains(t, problem.Errors, "bookingStatus")
	})

	t.Run("accountant may not book", func(t *testing.T) {
		accountant := testutil.CreateUser(t, f.db, f.agency, domain.RoleAccountant, "accountant")
		rr := f.do(t, accountant, http.MethodPost, "/bookings", map[string]interface{}{
			"clientId":  f.client.ID,
			"serviceId": f.service.ID,
		})
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}

func TestBookingHandler_ApplyPayment(t *testing.T) {
	f := setupBookings(t)
	booking := testutil.CreateBooking(t, f.db, f.client, f.service, f.owner)
	path := fmt.Sprintf("/bookings/%s/payment", booking.ID)

	rr := f.do(t, f.owner, http.MethodPost, path, `{"paidAmount": 75.50, "paymentMethod": "bank transfer"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	dto := decodeBody[domain.BookingDTO](t, rr)
	assert.Equal(t, domain.PaymentStatusHalfPaid, dto.PaymentStatus)
	assert.Equal(t, "74.50", domain.FormatMoney(dto.RemainingAmount.Decimal))
	assert.Equal(t, "bank transfer", dto.PaymentMethod)
	assert.NotNil(t, dto.LastPaymentDate)

	// The amount replaces the previous total rather than adding to it
	rr = f.do(t, f.owner, http.MethodPost, path, `{"paidAmount": "150"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	dto = decodeBody[domain.BookingDTO](t, rr)
	assert.Equal(t, domain.PaymentStatusPaid, dto.PaymentStatus)
	assert.Equal(t, "0.00", domain.FormatMoney(dto.RemainingAmount.Decimal))
}

func TestBookingHandler_ApplyPayment_Invalid(t *testing.T) {
	f := setupBookings(t)
	booking := testutil.CreateBooking(t, f.db, f.client, f.service, f.owner)
	path := fmt.Sprintf("/bookings/%s/payment", booking.ID)

	tests := []struct {
		name string
		body string
	}{
		{"missing", `{}`},
		{"negative", `{"paidAmount": "-1"}`},
		{"not a number", `{"paidAmount": "abc"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(t, f.owner, http.MethodPost, path, tt.body)
			require.Equal(t, http.StatusBadRequest, rr.Code)
			problem := decodeBody[domain.APIError](t, rr)
			assert.Contains(t, problem.Errors, "paidAmount")
		})
	}
}

func TestBookingHandler_GetByID_Scope(t *testing.T) {
	f := setupBookings(t)
	booking := testutil.CreateBooking(t, f.db, f.client, f.service, f.owner)
	path := "/bookings/" + booking.ID.String()

	t.Run("owner sees agency booking", func(t *testing.T) {
		rr := f.do(t, f.owner, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("agent cannot see a booking created by someone else", func(t *testing.T) {
		rr := f.do(t, f.agent, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("other agency is forbidden", func(t *testing.T) {
		other := testutil.CreateAgency(t, f.db, "Sky Tours", domain.AgencyStatusActive)
		outsider := testutil.CreateUser(t, f.db, other, domain.RoleAgencyOwner, "outsider")
		rr := f.do(t, outsider, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		rr := f.do(t, f.owner, http.MethodGet, "/bookings/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestBookingHandler_List_Filters(t *testing.T) {
	f := setupBookings(t)
	testutil.CreateBooking(t, f.db, f.client, f.service, f.owner, testutil.WithPaid("150"))
	testutil.CreateBooking(t, f.db, f.client, f.service, f.agent)

	rr := f.do(t, f.owner, http.MethodGet, "/bookings?payment_status=PAID", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	page := decodeBody[struct {
		Data  []domain.BookingDTO `json:"data"`
		Total int64               `json:"total"`
	}](t, rr)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Data, 1)
	assert.Equal(t, domain.PaymentStatusPaid, page.Data[0].PaymentStatus)

	rr = f.do(t, f.agent, http.MethodGet, "/bookings", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	page = decodeBody[struct {
		Data  []domain.BookingDTO `json:"data"`
		Total int64               `json:"total"`
	}](t, rr)
	assert.Equal(t, int64(1), page.Total)

	rr = f.do(t, f.owner, http.MethodGet, "/bookings?booking_status=done&missing_dates=maybe", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	problem := decodeBody[domain.APIError](t, rr)
	assert.Contains(t, problem.Errors, "bookingStatus")
	assert.Contains(t, problem.Errors, "missingDates")
}

func TestBookingHandler_Delete(t *testing.T) {
	f := setupBookings(t)
	booking := testutil.CreateBooking(t, f.db, f.client, f.service, f.owner)
	path := "/bookings/" + booking.ID.String()

	rr := f.do(t, f.owner, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = f.do(t, f.owner, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		errType  string
		detailIs string
	}{
		{"field errors", domain.FieldError("discount", "too high"), http.StatusBadRequest, domain.ErrorTypeValidation, ""},
		{"agency gate", &domain.TenantGateError{Status: domain.AgencyStatusLocked, Message: "Agency is locked"}, http.StatusForbidden, domain.ErrorTypeTenantGate, "Agency is locked"},
		{"input", &service.InputError{Message: "bad range"}, http.StatusBadRequest, domain.ErrorTypeBadRequest, "bad range"},
		{"transition", fmt.Errorf("%w: confirmed to pending", service.ErrInvalidTransition), http.StatusBadRequest, domain.ErrorTypeBadRequest, ""},
		{"credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, domain.ErrorTypeUnauthorized, ""},
		{"disabled", service.ErrAccountDisabled, http.StatusForbidden, domain.ErrorTypeForbidden, ""},
		{"permission", service.ErrPermissionDenied, http.StatusForbidden, domain.ErrorTypeForbidden, ""},
		{"not found", service.ErrNotFound, http.StatusNotFound, domain.ErrorTypeNotFound, "Resource not found"},
		{"stale version", service.ErrConcurrentUpdate, http.StatusConflict, domain.ErrorTypeConflict, ""},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError, domain.ErrorTypeInternal, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handleServiceError(rr, zap.NewNop(), tt.err, "test")

			assert.Equal(t, tt.status, rr.Code)
			problem := decodeBody[domain.APIError](t, rr)
			assert.Equal(t, tt.errType, problem.Type)
			if tt.detailIs != "" {
				assert.Equal(t, tt.detailIs, problem.Detail)
			}
		})
	}

	t.Run("internal errors are not leaked", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handleServiceError(rr, zap.NewNop(), errors.New("pq: password authentication failed"), "test")
		assert.NotContains(t, rr.Body.String(), "pq:")
	})
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query      string
		page, size int
	}{
		{"", 1, 20},
		{"page=3&pageSize=50", 3, 50},
		{"page=-1&pageSize=0", 1, 20},
		{"pageSize=100000", 1, repository.MaxPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/x?"+tt.query, nil)
			page, size := parsePagination(r)
			assert.Equal(t, tt.page, page)
			assert.Equal(t, tt.size, size)
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	db := testutil.SetupTestDB(t)
	hasher := auth.NewPasswordHasher(4)
	tokens := auth.NewTokenService(&config.AuthConfig{
		JWTSecret:       "test-secret-that-is-long-enough-1234",
		Issuer:          "agency-api-test",
		AccessTokenTTL:  15,
		RefreshTokenTTL: 60,
	})
	h := NewAuthHandler(service.NewAuthService(repository.NewUserRepository(db), tokens, hasher, nil, testClock, zap.NewNop()), zap.NewNop())

	hash, err := hasher.Hash("s3cret-pass")
	require.NoError(t, err)

	active := testutil.CreateAgency(t, db, "Al Noor Travels", domain.AgencyStatusActive)
	locked := testutil.CreateAgency(t, db, "Sky Tours", domain.AgencyStatusLocked)
	for _, u := range []*domain.User{
		testutil.CreateUser(t, db, active, domain.RoleAgent, "amna"),
		testutil.CreateUser(t, db, locked, domain.RoleAgent, "bilal"),
	} {
		require.NoError(t, db.Model(u).Update("password_hash", hash).Error)
	}

	login := func(email, password string) *httptest.ResponseRecorder {
		body, _ := json.Marshal(domain.LoginRequest{Email: email, Password: password})
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body)).WithContext(context.Background())
		rr := httptest.NewRecorder()
		h.Login(rr, req)
		return rr
	}

	t.Run("success", func(t *testing.T) {
		rr := login("AMNA@example.com", "s3cret-pass")
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		resp := decodeBody[domain.TokenResponse](t, rr)
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)

		userCtx, err := tokens.ValidateToken(resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAgent, userCtx.Role)
		require.NotNil(t, userCtx.AgencyID)
		assert.Equal(t, active.ID, *userCtx.AgencyID)
	})

	t.Run("wrong password", func(t *testing.T) {
		rr := login("amna@example.com", "nope")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("locked agency", func(t *testing.T) {
		rr := login("bilal@example.com", "s3cret-pass")
		require.Equal(t, http.StatusForbidden, rr.Code)
		problem := decodeBody[domain.APIError](t, rr)
		assert.Equal(t, domain.ErrorTypeTenantGate, problem.Type)
	})

	t.Run("invalid email", func(t *testing.T) {
		rr := login("not-an-email", "s3cret-pass")
		require.Equal(t, http.StatusBadRequest, rr.Code)
		problem := decodeBody[domain.APIError](t, rr)
		assert.Contains(t, problem.Errors, "email")
	})
}

func TestHealthHandler(t *testing.T) {
	db := testutil.SetupTestDB(t)

	t.Run("live", func(t *testing.T) {
		rr := httptest.NewRecorder()
		NewHealthHandler(db, nil, zap.NewNop()).Live(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "OK", rr.Body.String())
	})

	t.Run("ready without redis", func(t *testing.T) {
		rr := httptest.NewRecorder()
		NewHealthHandler(db, nil, zap.NewNop()).Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("redis down degrades readiness", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h := NewHealthHandler(db, failingPinger{}, zap.NewNop())
		h.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "degraded")
	})
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("dial tcp: connection refused") }
