package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripdesk/agency-api/internal/auth"
	"github.com/tripdesk/agency-api/internal/domain"
	"github.com/tripdesk/agency-api/internal/repository"
	"github.com/tripdesk/agency-api/internal/testutil"
	"gorm.io/gorm"
)

type bookingFixture struct {
	db      *gorm.DB
	agency  *domain.Agency
	other   *domain.Agency
	owner   *domain.User
	agent   *domain.User
	client  *domain.Client
	service *domain.Service
}

func setupBookingFixture(t *testing.T) *bookingFixture {
	db := testutil.SetupTestDB(t)
	agency := testutil.CreateAgency(t, db, "Al Noor Travels", domain.AgencyStatusActive)
	other := testutil.CreateAgency(t, db, "Skyline Tours", domain.AgencyStatusActive)
	owner := testutil.CreateUser(t, db, agency, domain.RoleAgencyOwner, "owner")
	agent := testutil.CreateUser(t, db, agency, domain.RoleAgent, "agent")
	client := testutil.CreateClient(t, db, agency, owner, "Ahmed Khan")
	service := testutil.CreateService(t, db, agency, "Umrah Economy", "100", "50")
	return &bookingFixture{db: db, agency: agency, other: other, owner: owner, agent: agent, client: client, service: service}
}

func boolPtr(b bool) *bool { return &b }

func TestBookingRepository_ListScope(t *testing.T) {
	f := setupBookingFixture(t)
	repo := repository.NewBookingRepository(f.db)
	ctx := context.Background()

	testutil.CreateBooking(t, f.db, f.client, f.service, f.owner)
	testutil.CreateBooking(t, f.db, f.client, f.service, f.agent)

	otherOwner := testutil.CreateUser(t, f.db, f.other, domain.RoleAgencyOwner, "other-owner")
	otherClient := testutil.CreateClient(t, f.db, f.other, otherOwner, "Sara Ali")
	otherService := testutil.CreateService(t, f.db, f.other, "Hajj Premium", "500", "200")
	testutil.CreateBooking(t, f.db, otherClient, otherService, otherOwner)

	t.Run("owner sees agency bookings only", func(t *testing.T) {
		scope := auth.ScopeFor(testutil.ActorOf(f.owner), auth.ResourceBooking)
		bookings, total, err := repo.List(ctx, scope, repository.BookingFilter{}, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, bookings, 2)
		for _, b := range bookings {
			assert.Equal(t, f.agency.ID, b.AgencyID)
			require.NotNil(t, b.Service)
			require.NotNil(t, b.Client)
		}
	})

	t.Run("agent sees own bookings only", func(t *testing.T) {
		scope := auth.ScopeFor(testutil.ActorOf(f.agent), auth.ResourceBooking)
		bookings, total, err := repo.List(ctx, scope, repository.BookingFilter{}, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, bookings, 1)
		assert.Equal(t, f.agent.ID, *bookings[0].CreatedByID)
	})

	t.Run("unrestricted scope sees every agency", func(t *testing.T) {
		_, total, err := repo.List(ctx, auth.Scope{Unrestricted: true}, repository.BookingFilter{}, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
	})

	t.Run("empty scope sees nothing", func(t *testing.T) {
		_, total, err := repo.List(ctx, auth.Scope{Empty: true}, repository.BookingFilter{}, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
	})
}

func TestBookingRepository_ListFilters(t *testing.T) {
	f := setupBookingFixture(t)
	repo := repository.NewBookingRepository(f.db)
	ctx := context.Background()
	scope := auth.ScopeFor(testutil.ActorOf(f.owner), auth.ResourceBooking)

	otherClient := testutil.CreateClient(t, f.db, f.agency, f.owner, "Bilal Raza")
	visa := testutil.CreateService(t, f.db, f.agency, "Dubai Visa", "40", "10")

	complete := testutil.CreateBooking(t, f.db, f.client, f.service, f.owner,
		testutil.WithStatus(domain.BookingStatusConfirmed),
		testutil.WithPaid("150"),
		testutil.WithDates(testutil.Date(2025, 6, 1), testutil.Date(2025, 6, 10)))
	noReturn := testutil.CreateBooking(t, f.db, otherClient, f.service, f.owner,
		testutil.WithPaid("20"),
		testutil.WithDates(testutil.Date(2025, 6, 1), nil))
	testutil.CreateBooking(t, f.db, otherClient, visa, f.owner)

	t.Run("by booking status", func(t *testing.T) {
		status := domain.BookingStatusConfirmed
		bookings, total, err := repo.List(ctx, scope, repository.BookingFilter{BookingStatus: &status}, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, complete.ID, bookings[0].ID)
	})

	t.Run("by payment status", func(t *testing.T) {
		status := domain.PaymentStatusHalfPaid
		bookings, _, err := repo.List(ctx, scope, repository.BookingFilter{PaymentStatus: &status}, 1, 20)
		require.NoError(t, err)
		require.Len(t, bookings, 1)
		assert.Equal(t, noReturn.ID, bookings[0].ID)
	})

	t.Run("missing dates", func(t *testing.T) {
		_, total, err := repo.List(ctx, scope, repository.BookingFilter{MissingDates: boolPtr(true)}, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)

		bookings, total, err := repo.List(ctx, scope, repository.BookingFilter{MissingDates: boolPtr(false)}, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, complete.ID, bookings[0].ID)
	})

	t.Run("search by client or service name", func(t *testing.T) {
		_, total, err := repo.List(ctx, scope, repository.BookingFilter{Search: "bilal"}, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)

		_, total, err = repo.List(ctx, scope, repository.BookingFilter{Search: "VISA"}, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})

	t.Run("by booking id", func(t *testing.T) {
		bookings, total, err := repo.List(ctx, scope, repository.BookingFilter{BookingID: &noReturn.ID}, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, noReturn.ID, bookings[0].ID)
	})
}

func TestBookingRepository_UpdateVersioned(t *testing.T) {
	f := setupBookingFixture(t)
	repo := repository.NewBookingRepository(f.db)
	ctx := context.Background()
	booking := testutil.CreateBooking(t, f.db, f.client, f.service, f.owner)

	t.Run("writes and advances version", func(t *testing.T) {
		err := repo.Transaction(ctx, func(tx *repository.BookingRepository) error {
			locked, err := tx.LockByID(ctx, booking.ID)
			if err != nil {
				return err
			}
			locked.PaidAmount = testutil.Dec("150")
			locked.Settle()
			return tx.UpdateVersioned(ctx, locked)
		})
		require.NoError(t, err)

		stored, err := repo.GetByID(ctx, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, stored.Version)
		assert.Equal(t, domain.PaymentStatusPaid, stored.PaymentStatus)
		assert.True(t, testutil.Dec("150").Equal(stored.PaidAmount))
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		stale, err := repo.GetByID(ctx, booking.ID)
		require.NoError(t, err)
		stale.Version = 1
		stale.Discount = testutil.Dec("10")

		err = repo.UpdateVersioned(ctx, stale)
		assert.ErrorIs(t, err, repository.ErrVersionConflict)

		stored, err := repo.GetByID(ctx, booking.ID)
		require.NoError(t, err)
		assert.True(t, stored.Discount.IsZero())
	})

	t.Run("clearing a date writes null", func(t *testing.T) {
		dated := testutil.CreateBooking(t, f.db, f.client, f.service, f.owner,
			testutil.WithDates(testutil.Date(2025, 6, 1), testutil.Date(2025, 6, 10)))
		dated.ArrivalDate = nil
		require.NoError(t, repo.UpdateVersioned(ctx, dated))

		stored, err := repo.GetByID(ctx, dated.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.ArrivalDate)
		require.NotNil(t, stored.DepartureDate)
		assert.Equal(t, "2025-06-01", stored.DepartureDate.String())
	})
}

func TestBookingRepository_DeleteCascadesNotes(t *testing.T) {
	f := setupBookingFixture(t)
	repo := repository.NewBookingRepository(f.db)
	ctx := context.Background()
	booking := testutil.CreateBooking(t, f.db, f.client, f.service, f.owner)

	require.NoError(t, repo.AddNote(ctx, &domain.BookingNote{BookingID: booking.ID, Note: "Visa submitted", CreatedByID: &f.owner.ID}))
	notes, err := repo.ListNotes(ctx, booking.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.NotNil(t, notes[0].CreatedBy)
	assert.Equal(t, "owner", notes[0].CreatedBy.Username)

	require.NoError(t, repo.Delete(ctx, booking.ID))

	var count int64
	require.NoError(t, f.db.Model(&domain.BookingNote{}).Count(&count).Error)
	assert.Zero(t, count)

	_, err = repo.GetByID(ctx, booking.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, booking.ID), gorm.ErrRecordNotFound)
}

func TestBookingRepository_DatesSummary(t *testing.T) {
	f := setupBookingFixture(t)
	repo := repository.NewBookingRepository(f.db)
	ctx := context.Background()

	testutil.CreateBooking(t, f.db, f.client, f.service, f.owner,
		testutil.WithDates(testutil.Date(2025, 6, 1), testutil.Date(2025, 6, 10)))
	testutil.CreateBooking(t, f.db, f.client, f.service, f.owner,
		testutil.WithDates(testutil.Date(2025, 6, 1), nil))
	testutil.CreateBooking(t, f.db, f.client, f.service, f.agent)

	summary, err := repo.DatesSummary(ctx, auth.ScopeFor(testutil.ActorOf(f.owner), auth.ResourceBooking))
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.MissingAny)
	assert.Equal(t, int64(2), summary.MissingArrival)
	assert.Equal(t, int64(1), summary.MissingDeparture)

	summary, err = repo.DatesSummary(ctx, auth.ScopeFor(testutil.ActorOf(f.agent), auth.ResourceBooking))
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.MissingAny)
}

func TestBookingRepository_Onboard(t *testing.T) {
	f := setupBookingFixture(t)
	repo := repository.NewBookingRepository(f.db)
	ctx := context.Background()
	scope := auth.ScopeFor(testutil.ActorOf(f.owner), auth.ResourceBooking)

	late := testutil.CreateBooking(t, f.db, f.client, f.service, f.owner,
		testutil.WithStatus(domain.BookingStatusConfirmed),
		testutil.WithDates(testutil.Date(2025, 7, 1), testutil.Date(2025, 7, 20)))
	early := testutil.CreateBooking(t, f.db, f.client, f.service, f.owner,
		testutil.WithStatus(domain.BookingStatusConfirmed),
		testutil.WithPaid("150"),
		testutil.WithDates(testutil.Date(2025, 6, 1), testutil.Date(2025, 6, 10)))
	testutil.CreateBooking(t, f.db, f.client, f.service, f.owner,
		testutil.WithDates(testutil.Date(2025, 6, 1), testutil.Date(2025, 6, 5)))

	t.Run("confirmed only ordered by return date", func(t *testing.T) {
		bookings, total, err := repo.Onboard(ctx, scope, repository.OnboardFilter{}, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, bookings, 2)
		assert.Equal(t, early.ID, bookings[0].ID)
		assert.Equal(t, late.ID, bookings[1].ID)
	})

	t.Run("date window", func(t *testing.T) {
		bookings, _, err := repo.Onboard(ctx, scope, repository.OnboardFilter{
			StartDate: testutil.Date(2025, 6, 15),
		}, 1, 20)
		require.NoError(t, err)
		require.Len(t, bookings, 1)
		assert.Equal(t, late.ID, bookings[0].ID)

		bookings, _, err = repo.Onboard(ctx, scope, repository.OnboardFilter{
			EndDate: testutil.Date(2025, 6, 30),
		}, 1, 20)
		require.NoError(t, err)
		require.Len(t, bookings, 1)
		assert.Equal(t, early.ID, bookings[0].ID)
	})

	t.Run("payment status", func(t *testing.T) {
		status := domain.PaymentStatusPaid
		bookings, _, err := repo.Onboard(ctx, scope, repository.OnboardFilter{PaymentStatus: &status}, 1, 20)
		require.NoError(t, err)
		require.Len(t, bookings, 1)
		assert.Equal(t, early.ID, bookings[0].ID)
	})
}

func TestBookingRepository_ListDepartingWithoutReturn(t *testing.T) {
	f := setupBookingFixture(t)
	repo := repository.NewBookingRepository(f.db)
	ctx := context.Background()

	due := testutil.CreateBooking(t, f.db, f.client, f.service, f.owner,
		testutil.WithStatus(domain.BookingStatusConfirmed),
		testutil.WithDates(testutil.Date(2025, 6, 3), nil))
	testutil.CreateBooking(t, f.db, f.client, f.service, f.owner,
		testutil.WithStatus(domain.BookingStatusConfirmed),
		testutil.WithDates(testutil.Date(2025, 6, 3), testutil.Date(2025, 6, 9)))
	testutil.CreateBooking(t, f.db, f.client, f.service, f.owner,
		testutil.WithStatus(domain.BookingStatusConfirmed),
		testutil.WithDates(testutil.Date(2025, 7, 3), nil))
	testutil.CreateBooking(t, f.db, f.client, f.service, f.owner,
		testutil.WithDates(testutil.Date(2025, 6, 4), nil))

	bookings, err := repo.ListDepartingWithoutReturn(ctx, domain.NewDate(2025, 6, 1), domain.NewDate(2025, 6, 8))
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, due.ID, bookings[0].ID)
}

func TestBookingRepository_ListForAnalytics(t *testing.T) {
	f := setupBookingFixture(t)
	repo := repository.NewBookingRepository(f.db)
	ctx := context.Background()
	scope := auth.ScopeFor(testutil.ActorOf(f.owner), auth.ResourceAnalytics)

	testutil.CreateBooking(t, f.db, f.client, f.service, f.owner,
		testutil.WithCreatedAt(time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)))
	inside := testutil.CreateBooking(t, f.db, f.client, f.service, f.owner,
		testutil.WithCreatedAt(time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)))

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	bookings, err := repo.ListForAnalytics(ctx, scope, &start, &end)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, inside.ID, bookings[0].ID)
	require.NotNil(t, bookings[0].Service)
	require.NotNil(t, bookings[0].CreatedBy)

	all, err := repo.ListForAnalytics(ctx, scope, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestBookingRepository_Reprice(t *testing.T) {
	f := setupBookingFixture(t)
	repo := repository.NewBookingRepository(f.db)
	ctx := context.Background()

	paid := testutil.CreateBooking(t, f.db, f.client, f.service, f.owner, testutil.WithPaid("150"))
	pending := testutil.CreateBooking(t, f.db, f.client, f.service, f.owner)
	require.Equal(t, domain.PaymentStatusPaid, paid.PaymentStatus)

	repriced := *f.service
	repriced.BaseCost = testutil.Dec("300")

	var changed int
	require.NoError(t, repo.Transaction(ctx, func(tx *repository.BookingRepository) error {
		var err error
		changed, err = tx.Reprice(ctx, &repriced)
		return err
	}))
	assert.Equal(t, 1, changed)

	var stored domain.Service
	require.NoError(t, f.db.First(&stored, "id = ?", f.service.ID).Error)
	assert.Equal(t, "350.00", domain.FormatMoney(stored.TotalPrice()))

	got, err := repo.GetByID(ctx, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusHalfPaid, got.PaymentStatus)
	assert.Equal(t, got.CurrentPaymentStatus(), got.PaymentStatus)
	assert.Equal(t, paid.Version+1, got.Version)

	got, err = repo.GetByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, got.PaymentStatus)
	assert.Equal(t, pending.Version, got.Version, "unchanged bookings keep their version")
}
