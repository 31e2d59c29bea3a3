package service_test

import (
	"testing"
	"time"

	"github.com/tripdesk/agency-api/internal/domain"
	"github.com/tripdesk/agency-api/internal/repository"
	"github.com/tripdesk/agency-api/internal/service"
	"github.com/tripdesk/agency-api/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// testClock is pinned to Wednesday 2025-06-18 10:00 UTC
var testClock = service.FixedClock{At: time.Date(2025, 6, 18, 10, 0, 0, 0, time.UTC)}

type tenant struct {
	db         *gorm.DB
	agency     *domain.Agency
	owner      *domain.User
	manager    *domain.User
	agent      *domain.User
	accountant *domain.User
	client     *domain.Client
	service    *domain.Service
}

// setupTenant creates an active agency with one user per role, a client and
// a service priced 100.00 + 50.00
func setupTenant(t *testing.T) *tenant {
	db := testutil.SetupTestDB(t)
	agency := testutil.CreateAgency(t, db, "Al Noor Travels", domain.AgencyStatusActive)
	owner := testutil.CreateUser(t, db, agency, domain.RoleAgencyOwner, "owner")
	return &tenant{
		db:         db,
		agency:     agency,
		owner:      owner,
		manager:    testutil.CreateUser(t, db, agency, domain.RoleManager, "manager"),
		agent:      testutil.CreateUser(t, db, agency, domain.RoleAgent, "agent"),
		accountant: testutil.CreateUser(t, db, agency, domain.RoleAccountant, "accountant"),
		client:     testutil.CreateClient(t, db, agency, owner, "Ahmed Khan"),
		service:    testutil.CreateService(t, db, agency, "Umrah Economy", "100", "50"),
	}
}

func newBookingService(db *gorm.DB) *service.BookingService {
	return service.NewBookingService(
		repository.NewBookingRepository(db),
		repository.NewClientRepository(db),
		repository.NewServiceRepository(db),
		nil,
		testClock,
		zap.NewNop(),
	)
}

func money(s string) *domain.Money {
	m := domain.NewMoney(testutil.Dec(s))
	return &m
}

func strPtr(s string) *string { return &s }
