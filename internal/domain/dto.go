package domain

import (
	"encoding/json"

	"github.com/google/uuid"
)

// DTOs for API requests and responses. Timestamps are ISO 8601 strings,
// money fields are fixed two-place decimal strings.

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// PaginatedResponse wraps a page of results
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// ============================================================================
// Auth
// ============================================================================

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type TokenResponse struct {
	AccessToken  string  `json:"accessToken"`
	RefreshToken string  `json:"refreshToken"`
	TokenType    string  `json:"tokenType"`
	ExpiresIn    int64   `json:"expiresIn"`
	User         UserDTO `json:"user"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=128"`
}

type UpdateProfileRequest struct {
	FirstName   string `json:"firstName" validate:"max=150"`
	LastName    string `json:"lastName" validate:"max=150"`
	PhoneNumber string `json:"phoneNumber" validate:"max=20"`
}

// AgencyStatusDTO is the account health check returned to a logged-in user
type AgencyStatusDTO struct {
	AgencyID      *uuid.UUID   `json:"agencyId"`
	AgencyName    string       `json:"agencyName,omitempty"`
	AgencyStatus  AgencyStatus `json:"agencyStatus"`
	StatusDisplay string       `json:"statusDisplay,omitempty"`
	HasAccess     bool         `json:"hasAccess"`
	Message       string       `json:"message,omitempty"`
}

// ============================================================================
// Agency
// ============================================================================

type AgencyDTO struct {
	ID           uuid.UUID    `json:"id"`
	Name         string       `json:"name"`
	Logo         string       `json:"logo,omitempty"`
	Status       AgencyStatus `json:"status"`
	PhoneNumber  string       `json:"phoneNumber,omitempty"`
	Email        string       `json:"email,omitempty"`
	Address      string       `json:"address,omitempty"`
	Description  string       `json:"description,omitempty"`
	UserCount    int64        `json:"userCount"`
	BookingCount int64        `json:"bookingCount"`
	CreatedAt    string       `json:"createdAt"`
	UpdatedAt    string       `json:"updatedAt"`
}

// AgencyPublicDTO is the subset of agency data any member may read
type AgencyPublicDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Logo        string    `json:"logo,omitempty"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	Email       string    `json:"email,omitempty"`
	Address     string    `json:"address,omitempty"`
}

type CreateAgencyRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Status      string `json:"status" validate:"omitempty,oneof=active inactive suspended locked pending"`
	PhoneNumber string `json:"phoneNumber" validate:"max=20"`
	Email       string `json:"email" validate:"omitempty,email"`
	Address     string `json:"address"`
	Description string `json:"description"`
}

type UpdateAgencyRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	PhoneNumber string `json:"phoneNumber" validate:"max=20"`
	Email       string `json:"email" validate:"omitempty,email"`
	Address     string `json:"address"`
	Description string `json:"description"`
}

type UpdateAgencyStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive suspended locked pending"`
}

// ============================================================================
// Users
// ============================================================================

type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	FirstName   string     `json:"firstName,omitempty"`
	LastName    string     `json:"lastName,omitempty"`
	FullName    string     `json:"fullName"`
	PhoneNumber string     `json:"phoneNumber,omitempty"`
	AgencyID    *uuid.UUID `json:"agencyId,omitempty"`
	AgencyName  string     `json:"agencyName,omitempty"`
	Role        Role       `json:"role"`
	IsActive    bool       `json:"isActive"`
	LastLoginAt *string    `json:"lastLoginAt,omitempty"`
	CreatedAt   string     `json:"createdAt"`
}

type CreateUserRequest struct {
	Username    string `json:"username" validate:"required,max=150"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=128"`
	FirstName   string `json:"firstName" validate:"max=150"`
	LastName    string `json:"lastName" validate:"max=150"`
	PhoneNumber string `json:"phoneNumber" validate:"max=20"`
	Role        string `json:"role" validate:"omitempty,oneof=super_user agency_owner manager agent accountant"`
	// AgencyID is honoured only when a super user creates the account
	AgencyID *uuid.UUID `json:"agencyId"`
}

type UpdateUserRequest struct {
	Email       string `json:"email" validate:"required,email"`
	FirstName   string `json:"firstName" validate:"max=150"`
	LastName    string `json:"lastName" validate:"max=150"`
	PhoneNumber string `json:"phoneNumber" validate:"max=20"`
	Role        string `json:"role" validate:"omitempty,oneof=super_user agency_owner manager agent accountant"`
}

// ============================================================================
// Clients
// ============================================================================

type ClientDTO struct {
	ID                uuid.UUID  `json:"id"`
	AgencyID          uuid.UUID  `json:"agencyId"`
	Name              string     `json:"name"`
	PhoneNumber       string     `json:"phoneNumber"`
	AlternativeNumber string     `json:"alternativeNumber,omitempty"`
	Email             string     `json:"email,omitempty"`
	PassportNumber    string     `json:"passportNumber,omitempty"`
	CNIC              string     `json:"cnic,omitempty"`
	Address           string     `json:"address,omitempty"`
	CreatedByID       *uuid.UUID `json:"createdById,omitempty"`
	CreatedByName     string     `json:"createdByName,omitempty"`
	Notes             []NoteDTO  `json:"notes,omitempty"`
	CreatedAt         string     `json:"createdAt"`
	UpdatedAt         string     `json:"updatedAt"`
}

type CreateClientRequest struct {
	Name              string `json:"name" validate:"required,max=255"`
	PhoneNumber       string `json:"phoneNumber" validate:"required,max=20"`
	AlternativeNumber string `json:"alternativeNumber" validate:"max=20"`
	Email             string `json:"email" validate:"omitempty,email"`
	PassportNumber    string `json:"passportNumber" validate:"max=50"`
	CNIC              string `json:"cnic" validate:"max=20"`
	Address           string `json:"address"`
}

type UpdateClientRequest = CreateClientRequest

// NoteDTO is an append-only note on a client or booking
type NoteDTO struct {
	ID            uuid.UUID  `json:"id"`
	ClientID      *uuid.UUID `json:"clientId,omitempty"`
	BookingID     *uuid.UUID `json:"bookingId,omitempty"`
	Note          string     `json:"note"`
	CreatedByID   *uuid.UUID `json:"createdById,omitempty"`
	CreatedByName string     `json:"createdByName,omitempty"`
	CreatedAt     string     `json:"createdAt"`
}

type AddNoteRequest struct {
	Note string `json:"note"`
}

// ============================================================================
// Services
// ============================================================================

type ServiceDTO struct {
	ID          uuid.UUID     `json:"id"`
	AgencyID    uuid.UUID     `json:"agencyId"`
	Name        string        `json:"serviceName"`
	Includes    []string      `json:"serviceInclude"`
	BaseCost    Money         `json:"baseCost"`
	Profit      Money         `json:"profit"`
	TotalPrice  Money         `json:"totalPrice"`
	MaxDiscount Money         `json:"maxDiscount"`
	Duration    string        `json:"duration,omitempty"`
	Destination string        `json:"destination,omitempty"`
	Status      ServiceStatus `json:"status"`
	CreatedAt   string        `json:"createdAt"`
	UpdatedAt   string        `json:"updatedAt"`
}

// ServiceSummaryDTO is the list projection shown to agents
type ServiceSummaryDTO struct {
	ID          uuid.UUID     `json:"id"`
	Name        string        `json:"serviceName"`
	BaseCost    Money         `json:"baseCost"`
	Profit      Money         `json:"profit"`
	TotalPrice  Money         `json:"totalPrice"`
	Duration    string        `json:"duration,omitempty"`
	Destination string        `json:"destination,omitempty"`
	Status      ServiceStatus `json:"status"`
}

type CreateServiceRequest struct {
	Name        string   `json:"serviceName" validate:"required,max=255"`
	Includes    []string `json:"serviceInclude"`
	BaseCost    *Money   `json:"baseCost" validate:"required"`
	Profit      *Money   `json:"profit" validate:"required"`
	Duration    string   `json:"duration" validate:"max=100"`
	Destination string   `json:"destination" validate:"max=255"`
	Status      string   `json:"status" validate:"omitempty,oneof=active inactive"`
}

type UpdateServiceRequest = CreateServiceRequest

// ============================================================================
// Bookings
// ============================================================================

type BookingDTO struct {
	ID              uuid.UUID     `json:"id"`
	AgencyID        *uuid.UUID    `json:"agencyId,omitempty"`
	ClientID        uuid.UUID     `json:"clientId"`
	ClientName      string        `json:"clientName,omitempty"`
	ServiceID       uuid.UUID     `json:"serviceId"`
	ServiceName     string        `json:"serviceName,omitempty"`
	ServicePrice    Money         `json:"servicePrice"`
	Discount        Money         `json:"discount"`
	TotalAmount     Money         `json:"totalAmount"`
	PaidAmount      Money         `json:"paidAmount"`
	RemainingAmount Money         `json:"remainingAmount"`
	BookingStatus   BookingStatus `json:"bookingStatus"`
	PaymentStatus   PaymentStatus `json:"paymentStatus"`
	PaymentMethod   string        `json:"paymentMethod,omitempty"`
	LastPaymentDate *string       `json:"lastPaymentDate,omitempty"`
	DepartureDate   *Date         `json:"departureDate"`
	ArrivalDate     *Date         `json:"arrivalDate"`
	CreatedByID     *uuid.UUID    `json:"createdById,omitempty"`
	CreatedByName   string        `json:"createdByName,omitempty"`
	Notes           []NoteDTO     `json:"notes,omitempty"`
	Version         int           `json:"version"`
	CreatedAt       string        `json:"createdAt"`
	UpdatedAt       string        `json:"updatedAt"`
}

type CreateBookingRequest struct {
	ClientID      uuid.UUID `json:"clientId" validate:"required"`
	ServiceID     uuid.UUID `json:"serviceId" validate:"required"`
	Discount      *Money    `json:"discount"`
	BookingStatus string    `json:"bookingStatus" validate:"omitempty,oneof=pending confirmed rejected"`
	PaidAmount    *Money    `json:"paidAmount"`
	PaymentMethod string    `json:"paymentMethod" validate:"max=100"`
	DepartureDate *Date     `json:"departureDate"`
	ArrivalDate   *Date     `json:"arrivalDate"`
}

// UpdateBookingRequest changes booking terms. Absent fields are left as they
// are; a date sent as null is cleared. Paid amount is changed only through
// the payment endpoint.
type UpdateBookingRequest struct {
	Discount      *Money       `json:"discount"`
	BookingStatus *string      `json:"bookingStatus" validate:"omitempty,oneof=pending confirmed rejected"`
	PaymentMethod *string      `json:"paymentMethod" validate:"omitempty,max=100"`
	DepartureDate OptionalDate `json:"departureDate"`
	ArrivalDate   OptionalDate `json:"arrivalDate"`
}

// ApplyPaymentRequest keeps the raw amount so both strings and numbers are
// parsed without passing through float64
type ApplyPaymentRequest struct {
	PaidAmount    json.RawMessage `json:"paidAmount" swaggertype:"string"`
	PaymentMethod *string         `json:"paymentMethod"`
}

type DatesSummaryDTO struct {
	MissingAny       int64 `json:"missingAny"`
	MissingArrival   int64 `json:"missingArrival"`
	MissingDeparture int64 `json:"missingDeparture"`
}

// ============================================================================
// Analytics
// ============================================================================

type AnalyticsDTO struct {
	Range                  string              `json:"range"`
	StartDate              *string             `json:"startDate,omitempty"`
	EndDate                *string             `json:"endDate,omitempty"`
	TotalSales             Money               `json:"totalSales"`
	TotalReceived          Money               `json:"totalReceived"`
	TotalRemaining         Money               `json:"totalRemaining"`
	TotalProfit            Money               `json:"totalProfit"`
	PaymentBreakdown       PaymentBreakdownDTO `json:"paymentBreakdown"`
	BookingStatusBreakdown StatusBreakdownDTO  `json:"bookingStatusBreakdown"`
	AgentBookingsTracker   []AgentBookingsDTO  `json:"agentBookingsTracker"`
	AgentCustomersTracker  []AgentCustomersDTO `json:"agentCustomersTracker"`
	TotalBookings          int64               `json:"totalBookings"`
	TotalCustomers         int64               `json:"totalCustomers"`
}

type PaymentBreakdownDTO struct {
	Paid     int64 `json:"paid"`
	HalfPaid int64 `json:"halfPaid"`
	Pending  int64 `json:"pending"`
}

type StatusBreakdownDTO struct {
	Pending   int64 `json:"pending"`
	Confirmed int64 `json:"confirmed"`
	Rejected  int64 `json:"rejected"`
}

type AgentBookingsDTO struct {
	Username string `json:"username"`
	Count    int64  `json:"count"`
}

type AgentCustomersDTO struct {
	Username      string `json:"username"`
	UniqueClients int64  `json:"uniqueClients"`
}
