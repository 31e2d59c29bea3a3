package service_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripdesk/agency-api/internal/domain"
	"github.com/tripdesk/agency-api/internal/repository"
	"github.com/tripdesk/agency-api/internal/service"
	"github.com/tripdesk/agency-api/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newCatalogService(db *gorm.DB) *service.CatalogService {
	return service.NewCatalogService(repository.NewServiceRepository(db), repository.NewBookingRepository(db), zap.NewNop())
}

func TestCatalogService_Create(t *testing.T) {
	tn := setupTenant(t)
	svc := newCatalogService(tn.db)
	ctx := testutil.ActorContext(tn.manager)

	dto, err := svc.Create(ctx, &domain.CreateServiceRequest{
		Name:        "Hajj Premium",
		BaseCost:    money("900.00"),
		Profit:      money("300.00"),
		Destination: "Makkah",
	})
	require.NoError(t, err)
	assert.Equal(t, "1200.00", domain.FormatMoney(dto.TotalPrice.Decimal))
	assert.Equal(t, "150.00", domain.FormatMoney(dto.MaxDiscount.Decimal))
	assert.Equal(t, []string{}, dto.Includes)
	assert.Equal(t, domain.ServiceStatusActive, dto.Status)
	assert.Equal(t, tn.agency.ID, dto.AgencyID)

	_, err = svc.Create(ctx, &domain.CreateServiceRequest{Name: "Broken", BaseCost: money("-1"), Profit: money("-1")})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Base cost cannot be negative", verr.Fields["baseCost"])
	assert.Equal(t, "Profit cannot be negative", verr.Fields["profit"])

	_, err = svc.Create(ctx, &domain.CreateServiceRequest{Name: "No price"})
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 2)

	_, err = svc.Create(testutil.ActorContext(tn.agent), &domain.CreateServiceRequest{Name: "x", BaseCost: money("1"), Profit: money("1")})
	assert.ErrorIs(t, err, service.ErrPermissionDenied)
}

func TestCatalogService_AgentProjection(t *testing.T) {
	tn := setupTenant(t)
	svc := newCatalogService(tn.db)

	page, err := svc.List(testutil.ActorContext(tn.agent), repository.ServiceFilter{}, 1, 20)
	require.NoError(t, err)
	summaries, ok := page.Data.([]domain.ServiceSummaryDTO)
	require.True(t, ok, "agents get the summary projection")
	require.Len(t, summaries, 1)
	assert.Equal(t, "150.00", domain.FormatMoney(summaries[0].TotalPrice.Decimal))

	page, err = svc.List(testutil.ActorContext(tn.manager), repository.ServiceFilter{}, 1, 20)
	require.NoError(t, err)
	_, ok = page.Data.([]domain.ServiceDTO)
	assert.True(t, ok)

	detail, err := svc.GetByID(testutil.ActorContext(tn.agent), tn.service.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Visa", "Hotel"}, detail.Includes)

	_, err = svc.List(testutil.ActorContext(tn.accountant), repository.ServiceFilter{}, 1, 20)
	assert.ErrorIs(t, err, service.ErrPermissionDenied)
}

func TestCatalogService_Update(t *testing.T) {
	tn := setupTenant(t)
	svc := newCatalogService(tn.db)
	ctx := testutil.ActorContext(tn.owner)
	testutil.CreateBooking(t, tn.db, tn.client, tn.service, tn.owner, testutil.WithDiscount("20"))

	_, err := svc.Update(ctx, tn.service.ID, &domain.UpdateServiceRequest{
		Name:     "Umrah Economy",
		BaseCost: money("100"),
		Profit:   money("30"),
	})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields["profit"], "1 booking discount(s)")

	dto, err := svc.Update(ctx, tn.service.ID, &domain.UpdateServiceRequest{
		Name:     "Umrah Economy",
		BaseCost: money("110"),
		Profit:   money("40"),
		Status:   "inactive",
	})
	require.NoError(t, err)
	assert.Equal(t, "150.00", domain.FormatMoney(dto.TotalPrice.Decimal))
	assert.Equal(t, domain.ServiceStatusInactive, dto.Status)

	dto, err = svc.Activate(ctx, tn.service.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ServiceStatusActive, dto.Status)
}

func TestCatalogService_UpdateResettlesBookings(t *testing.T) {
	tn := setupTenant(t)
	catalog := newCatalogService(tn.db)
	bookings := newBookingService(tn.db)
	analytics := service.NewAnalyticsService(repository.NewBookingRepository(tn.db), testClock, zap.NewNop())
	ctx := testutil.ActorContext(tn.owner)

	full := testutil.CreateBooking(t, tn.db, tn.client, tn.service, tn.owner,
		testutil.WithPaid("150"), testutil.WithStatus(domain.BookingStatusConfirmed))
	partial := testutil.CreateBooking(t, tn.db, tn.client, tn.service, tn.owner, testutil.WithPaid("100"))

	listed := func(status domain.PaymentStatus) int64 {
		t.Helper()
		page, err := bookings.List(ctx, repository.BookingFilter{PaymentStatus: &status}, 1, 20)
		require.NoError(t, err)
		return page.Total
	}
	onboard := func(status domain.PaymentStatus) int64 {
		t.Helper()
		page, err := bookings.Onboard(ctx, repository.OnboardFilter{PaymentStatus: &status}, 1, 20)
		require.NoError(t, err)
		return page.Total
	}
	detail := func(id uuid.UUID) domain.PaymentStatus {
		t.Helper()
		dto, err := bookings.GetByID(ctx, id)
		require.NoError(t, err)
		return dto.PaymentStatus
	}

	require.Equal(t, int64(1), listed(domain.PaymentStatusPaid))
	require.Equal(t, int64(1), onboard(domain.PaymentStatusPaid))

	_, err := catalog.Update(ctx, tn.service.ID, &domain.UpdateServiceRequest{
		Name:     "Umrah Economy",
		BaseCost: money("300"),
		Profit:   money("50"),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentStatusHalfPaid, detail(full.ID))
	assert.Equal(t, domain.PaymentStatusHalfPaid, detail(partial.ID))
	assert.Zero(t, listed(domain.PaymentStatusPaid))
	assert.Equal(t, int64(2), listed(domain.PaymentStatusHalfPaid))
	assert.Zero(t, onboard(domain.PaymentStatusPaid))
	assert.Equal(t, int64(1), onboard(domain.PaymentStatusHalfPaid))

	summary, err := analytics.Summary(ctx, service.AnalyticsQuery{})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentBreakdownDTO{HalfPaid: 2}, summary.PaymentBreakdown)

	// Dropping the price settles both bookings in full
	_, err = catalog.Update(ctx, tn.service.ID, &domain.UpdateServiceRequest{
		Name:     "Umrah Economy",
		BaseCost: money("50"),
		Profit:   money("50"),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentStatusPaid, detail(full.ID))
	assert.Equal(t, domain.PaymentStatusPaid, detail(partial.ID))
	assert.Equal(t, int64(2), listed(domain.PaymentStatusPaid))
	assert.Zero(t, listed(domain.PaymentStatusHalfPaid))
	assert.Equal(t, int64(1), onboard(domain.PaymentStatusPaid))
}

func TestCatalogService_Delete(t *testing.T) {
	tn := setupTenant(t)
	svc := newCatalogService(tn.db)
	booking := testutil.CreateBooking(t, tn.db, tn.client, tn.service, tn.owner)

	other := testutil.CreateAgency(t, tn.db, "Skyline Tours", domain.AgencyStatusActive)
	outsider := testutil.CreateUser(t, tn.db, other, domain.RoleAgencyOwner, "outsider")
	assert.ErrorIs(t, svc.Delete(testutil.ActorContext(outsider), tn.service.ID), service.ErrPermissionDenied)

	require.NoError(t, svc.Delete(testutil.ActorContext(tn.owner), tn.service.ID))

	var count int64
	require.NoError(t, tn.db.Model(&domain.Booking{}).Where("id = ?", booking.ID).Count(&count).Error)
	assert.Zero(t, count, "bookings go with their service")
}
