package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripdesk/agency-api/internal/domain"
	"github.com/tripdesk/agency-api/internal/repository"
	"github.com/tripdesk/agency-api/internal/service"
	"github.com/tripdesk/agency-api/internal/testutil"
	"go.uber.org/zap"
)

func TestClientService(t *testing.T) {
	tn := setupTenant(t)
	svc := service.NewClientService(repository.NewClientRepository(tn.db), testClock, zap.NewNop())
	ctx := testutil.ActorContext(tn.agent)

	created, err := svc.Create(ctx, &domain.CreateClientRequest{
		Name:           "  Fatima Zahra ",
		PhoneNumber:    "03219876543",
		PassportNumber: "AB1234567",
	})
	require.NoError(t, err)
	assert.Equal(t, "Fatima Zahra", created.Name)
	assert.Equal(t, tn.agency.ID, created.AgencyID)
	assert.Equal(t, "agent", created.CreatedByName)

	t.Run("agents see every client in the agency", func(t *testing.T) {
		page, err := svc.List(ctx, repository.ClientFilter{}, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)

		page, err = svc.List(ctx, repository.ClientFilter{Search: "AB123"}, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, int64(1), page.Total)
	})

	t.Run("notes", func(t *testing.T) {
		_, err := svc.AddNote(ctx, created.ID, &domain.AddNoteRequest{Note: ""})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)

		note, err := svc.AddNote(ctx, created.ID, &domain.AddNoteRequest{Note: "Prefers aisle seat"})
		require.NoError(t, err)
		assert.Equal(t, "2025-06-18T10:00:00Z", note.CreatedAt)

		detail, err := svc.GetByID(ctx, created.ID)
		require.NoError(t, err)
		require.Len(t, detail.Notes, 1)
		assert.Equal(t, "Prefers aisle seat", detail.Notes[0].Note)

		all, err := svc.ListAllNotes(testutil.ActorContext(tn.owner), 1, 20)
		require.NoError(t, err)
		assert.Equal(t, int64(1), all.Total)
	})

	t.Run("other agencies are forbidden", func(t *testing.T) {
		other := testutil.CreateAgency(t, tn.db, "Skyline Tours", domain.AgencyStatusActive)
		outsider := testutil.CreateUser(t, tn.db, other, domain.RoleManager, "outsider")
		_, err := svc.GetByID(testutil.ActorContext(outsider), created.ID)
		assert.ErrorIs(t, err, service.ErrPermissionDenied)
	})

	t.Run("accountants have no client access", func(t *testing.T) {
		_, err := svc.List(testutil.ActorContext(tn.accountant), repository.ClientFilter{}, 1, 20)
		assert.ErrorIs(t, err, service.ErrPermissionDenied)
	})

	t.Run("delete cascades bookings", func(t *testing.T) {
		booking := testutil.CreateBooking(t, tn.db, tn.client, tn.service, tn.agent)
		require.NoError(t, svc.Delete(ctx, tn.client.ID))

		var count int64
		require.NoError(t, tn.db.Model(&domain.Booking{}).Where("id = ?", booking.ID).Count(&count).Error)
		assert.Zero(t, count)

		_, err := svc.GetByID(ctx, tn.client.ID)
		assert.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("users without an agency are refused", func(t *testing.T) {
		floating := testutil.CreateUser(t, tn.db, nil, domain.RoleManager, "floating")
		_, err := svc.Create(testutil.ActorContext(floating), &domain.CreateClientRequest{Name: "x", PhoneNumber: "1"})
		assert.ErrorIs(t, err, service.ErrPermissionDenied)
	})
}
