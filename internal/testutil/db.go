// Package testutil provides in-memory databases and fixtures for tests
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/tripdesk/agency-api/internal/auth"
	"github.com/tripdesk/agency-api/internal/database"
	"github.com/tripdesk/agency-api/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens a private in-memory SQLite database with the schema migrated
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A shared-cache memory database lives as long as one connection is open
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// Dec parses a decimal literal
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// CreateAgency creates an agency with the given status
func CreateAgency(t *testing.T, db *gorm.DB, name string, status domain.AgencyStatus) *domain.Agency {
	t.Helper()
	agency := &domain.Agency{Name: name, Status: status, Email: "info@example.com"}
	require.NoError(t, db.Create(agency).Error)
	return agency
}

// CreateUser creates an active user. PasswordHash is a placeholder unless set later.
func CreateUser(t *testing.T, db *gorm.DB, agency *domain.Agency, role domain.Role, username string) *domain.User {
	t.Helper()
	user := &domain.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		FirstName:    username,
		Role:         role,
		IsActive:     true,
	}
	if agency != nil {
		user.AgencyID = &agency.ID
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateClient creates a client in the agency, stamped with creator
func CreateClient(t *testing.T, db *gorm.DB, agency *domain.Agency, creator *domain.User, name string) *domain.Client {
	t.Helper()
	client := &domain.Client{
		AgencyID:    agency.ID,
		Name:        name,
		PhoneNumber: "03001234567",
	}
	if creator != nil {
		client.CreatedByID = &creator.ID
	}
	require.NoError(t, db.Omit("CreatedBy", "Notes").Create(client).Error)
	return client
}

// CreateService creates an active service with the given pricing
func CreateService(t *testing.T, db *gorm.DB, agency *domain.Agency, name, baseCost, profit string) *domain.Service {
	t.Helper()
	service := &domain.Service{
		AgencyID:    agency.ID,
		Name:        name,
		Includes:    domain.StringList{"Visa", "Hotel"},
		BaseCost:    Dec(baseCost),
		Profit:      Dec(profit),
		Destination: "Makkah",
		Status:      domain.ServiceStatusActive,
	}
	require.NoError(t, db.Create(service).Error)
	return service
}

// BookingOption customises a fixture booking
type BookingOption func(*domain.Booking)

func WithDiscount(d string) BookingOption {
	return func(b *domain.Booking) { b.Discount = Dec(d) }
}

func WithPaid(p string) BookingOption {
	return func(b *domain.Booking) { b.PaidAmount = Dec(p) }
}

func WithStatus(s domain.BookingStatus) BookingOption {
	return func(b *domain.Booking) { b.Status = s }
}

func WithDates(departure, arrival *domain.Date) BookingOption {
	return func(b *domain.Booking) {
		b.DepartureDate = departure
		b.ArrivalDate = arrival
	}
}

func WithCreatedAt(at time.Time) BookingOption {
	return func(b *domain.Booking) { b.CreatedAt = at.UTC() }
}

// CreateBooking inserts a booking directly, bypassing validation
func CreateBooking(t *testing.T, db *gorm.DB, client *domain.Client, service *domain.Service, creator *domain.User, opts ...BookingOption) *domain.Booking {
	t.Helper()
	booking := &domain.Booking{
		AgencyID:   client.AgencyID,
		ClientID:   client.ID,
		ServiceID:  service.ID,
		Service:    service,
		Discount:   decimal.Zero,
		Status:     domain.BookingStatusPending,
		PaidAmount: decimal.Zero,
		Version:    1,
	}
	if creator != nil {
		booking.CreatedByID = &creator.ID
	}
	for _, opt := range opts {
		opt(booking)
	}
	booking.Settle()
	require.NoError(t, db.Omit("Client", "Service", "CreatedBy", "Notes").Create(booking).Error)
	return booking
}

// Date builds a *domain.Date
func Date(y int, m time.Month, d int) *domain.Date {
	date := domain.NewDate(y, m, d)
	return &date
}

// ActorContext returns a context carrying the user as the authenticated actor
func ActorContext(user *domain.User) context.Context {
	return auth.WithUserContext(context.Background(), ActorOf(user))
}

// ActorOf builds the user context a token for user would produce
func ActorOf(user *domain.User) *auth.UserContext {
	return &auth.UserContext{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
		AgencyID: user.AgencyID,
	}
}
