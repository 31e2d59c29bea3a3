package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BaseModel contains common fields for all models
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate assigns a new ID when none is set
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Agency is a tenant. All clients, services and bookings belong to exactly one agency.
type Agency struct {
	BaseModel
	Name        string       `gorm:"type:varchar(255);not null"`
	Logo        string       `gorm:"type:varchar(500)"`
	Status      AgencyStatus `gorm:"type:varchar(20);not null;index"`
	PhoneNumber string       `gorm:"type:varchar(20);column:phone_number"`
	Email       string       `gorm:"type:varchar(255)"`
	Address     string       `gorm:"type:text"`
	Description string       `gorm:"type:text"`
}

func (Agency) TableName() string {
	return "agencies"
}

// User is a staff account. AgencyID is nil only for super users or while provisioning.
type User struct {
	BaseModel
	Username     string     `gorm:"type:varchar(150);not null;uniqueIndex"`
	Email        string     `gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash string     `gorm:"type:varchar(255);not null;column:password_hash"`
	FirstName    string     `gorm:"type:varchar(150);column:first_name"`
	LastName     string     `gorm:"type:varchar(150);column:last_name"`
	PhoneNumber  string     `gorm:"type:varchar(20);column:phone_number"`
	AgencyID     *uuid.UUID `gorm:"type:uuid;index;column:agency_id"`
	Agency       *Agency    `gorm:"foreignKey:AgencyID"`
	Role         Role       `gorm:"type:varchar(20);not null"`
	IsActive     bool       `gorm:"not null;column:is_active"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
}

// FullName returns first and last name, or the username when both are empty
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	}
	return u.Username
}

// OwnerAgencyID implements auth.OwnedRecord. Users without an agency report uuid.Nil.
func (u *User) OwnerAgencyID() uuid.UUID {
	if u.AgencyID == nil {
		return uuid.Nil
	}
	return *u.AgencyID
}

// CreatorID implements auth.OwnedRecord
func (u *User) CreatorID() *uuid.UUID { return nil }

// Client is a customer of an agency
type Client struct {
	BaseModel
	AgencyID          uuid.UUID    `gorm:"type:uuid;not null;index;column:agency_id"`
	Name              string       `gorm:"type:varchar(255);not null"`
	PhoneNumber       string       `gorm:"type:varchar(20);not null;column:phone_number"`
	AlternativeNumber string       `gorm:"type:varchar(20);column:alternative_number"`
	Email             string       `gorm:"type:varchar(255)"`
	PassportNumber    string       `gorm:"type:varchar(50);column:passport_number"`
	CNIC              string       `gorm:"type:varchar(20);column:cnic"`
	Address           string       `gorm:"type:text"`
	CreatedByID       *uuid.UUID   `gorm:"type:uuid;index;column:created_by_id"`
	CreatedBy         *User        `gorm:"foreignKey:CreatedByID;constraint:OnDelete:SET NULL"`
	Notes             []ClientNote `gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE"`
}

// OwnerAgencyID implements auth.OwnedRecord
func (c *Client) OwnerAgencyID() uuid.UUID { return c.AgencyID }

// CreatorID implements auth.OwnedRecord
func (c *Client) CreatorID() *uuid.UUID { return c.CreatedByID }

// ClientNote is an append-only note on a client
type ClientNote struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ClientID    uuid.UUID  `gorm:"type:uuid;not null;index;column:client_id"`
	Note        string     `gorm:"type:text;not null"`
	CreatedByID *uuid.UUID `gorm:"type:uuid;column:created_by_id"`
	CreatedBy   *User      `gorm:"foreignKey:CreatedByID;constraint:OnDelete:SET NULL"`
	CreatedAt   time.Time  `gorm:"not null;index"`
}

func (n *ClientNote) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// Service is a travel package sold by an agency
type Service struct {
	BaseModel
	AgencyID    uuid.UUID       `gorm:"type:uuid;not null;index;column:agency_id"`
	Name        string          `gorm:"type:varchar(255);not null;column:service_name"`
	Includes    StringList      `gorm:"type:text;column:service_include"`
	BaseCost    decimal.Decimal `gorm:"type:decimal(10,2);not null;column:base_cost"`
	Profit      decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Duration    string          `gorm:"type:varchar(100)"`
	Destination string          `gorm:"type:varchar(255);index"`
	Status      ServiceStatus   `gorm:"type:varchar(20);not null;index"`
}

// TotalPrice is always derived from base cost and profit
func (s *Service) TotalPrice() decimal.Decimal {
	return s.BaseCost.Add(s.Profit)
}

// OwnerAgencyID implements auth.OwnedRecord
func (s *Service) OwnerAgencyID() uuid.UUID { return s.AgencyID }

// CreatorID implements auth.OwnedRecord
func (s *Service) CreatorID() *uuid.UUID { return nil }

// Booking is the aggregate root for a client's purchase of a service
type Booking struct {
	BaseModel
	AgencyID  uuid.UUID       `gorm:"type:uuid;not null;index;column:agency_id"`
	ClientID  uuid.UUID       `gorm:"type:uuid;not null;index;column:client_id"`
	Client    *Client         `gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE"`
	ServiceID uuid.UUID       `gorm:"type:uuid;not null;index;column:service_id"`
	Service   *Service        `gorm:"foreignKey:ServiceID;constraint:OnDelete:CASCADE"`
	Discount  decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Status    BookingStatus   `gorm:"type:varchar(20);not null;index;column:booking_status"`

	PaidAmount decimal.Decimal `gorm:"type:decimal(10,2);not null;column:paid_amount"`
	// PaymentStatus is a materialised copy of CurrentPaymentStatus kept for
	// filtering. Booking writes call Settle; repricing a service resettles its
	// bookings through BookingRepository.Reprice.
	PaymentStatus   PaymentStatus `gorm:"type:varchar(20);not null;index;column:payment_status"`
	PaymentMethod   string        `gorm:"type:varchar(100);column:payment_method"`
	LastPaymentDate *time.Time    `gorm:"column:last_payment_date"`

	DepartureDate *Date `gorm:"column:departure_date;index"`
	ArrivalDate   *Date `gorm:"column:arrival_date;index"`

	CreatedByID *uuid.UUID    `gorm:"type:uuid;index;column:created_by_id"`
	CreatedBy   *User         `gorm:"foreignKey:CreatedByID;constraint:OnDelete:SET NULL"`
	Version     int           `gorm:"not null"`
	Notes       []BookingNote `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE"`
}

// OwnerAgencyID implements auth.OwnedRecord
func (b *Booking) OwnerAgencyID() uuid.UUID { return b.AgencyID }

// CreatorID implements auth.OwnedRecord
func (b *Booking) CreatorID() *uuid.UUID { return b.CreatedByID }

// TotalAmount is the service total price minus the booking discount.
// Service must be loaded.
func (b *Booking) TotalAmount() decimal.Decimal {
	return b.Service.TotalPrice().Sub(b.Discount)
}

// RemainingAmount is the total amount minus what has been paid
func (b *Booking) RemainingAmount() decimal.Decimal {
	return b.TotalAmount().Sub(b.PaidAmount)
}

// CurrentPaymentStatus derives the payment status from source fields,
// ignoring whatever is stored in PaymentStatus.
func (b *Booking) CurrentPaymentStatus() PaymentStatus {
	return DerivePaymentStatus(b.PaidAmount, b.TotalAmount())
}

// Settle recomputes the materialised payment status. Call before every write.
func (b *Booking) Settle() {
	b.PaymentStatus = b.CurrentPaymentStatus()
}

// MissingDates reports whether either travel date is absent
func (b *Booking) MissingDates() bool {
	return b.DepartureDate == nil || b.ArrivalDate == nil
}

// BookingNote is an append-only note on a booking
type BookingNote struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	BookingID   uuid.UUID  `gorm:"type:uuid;not null;index;column:booking_id"`
	Note        string     `gorm:"type:text;not null"`
	CreatedByID *uuid.UUID `gorm:"type:uuid;column:created_by_id"`
	CreatedBy   *User      `gorm:"foreignKey:CreatedByID;constraint:OnDelete:SET NULL"`
	CreatedAt   time.Time  `gorm:"not null;index"`
}

func (n *BookingNote) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
