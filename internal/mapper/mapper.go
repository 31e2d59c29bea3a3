package mapper

import (
	"time"

	"github.com/tripdesk/agency-api/internal/domain"
)

// timestampLayout is used for every timestamp in API responses
const timestampLayout = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func userName(u *domain.User) string {
	if u == nil {
		return ""
	}
	return u.Username
}

// ToAgencyDTO converts Agency to AgencyDTO
func ToAgencyDTO(agency *domain.Agency, userCount, bookingCount int64) domain.AgencyDTO {
	return domain.AgencyDTO{
		ID:           agency.ID,
		Name:         agency.Name,
		Logo:         agency.Logo,
		Status:       agency.Status,
		PhoneNumber:  agency.PhoneNumber,
		Email:        agency.Email,
		Address:      agency.Address,
		Description:  agency.Description,
		UserCount:    userCount,
		BookingCount: bookingCount,
		CreatedAt:    formatTime(agency.CreatedAt),
		UpdatedAt:    formatTime(agency.UpdatedAt),
	}
}

// ToAgencyPublicDTO converts Agency to the member-visible subset
func ToAgencyPublicDTO(agency *domain.Agency) domain.AgencyPublicDTO {
	return domain.AgencyPublicDTO{
		ID:          agency.ID,
		Name:        agency.Name,
		Logo:        agency.Logo,
		PhoneNumber: agency.PhoneNumber,
		Email:       agency.Email,
		Address:     agency.Address,
	}
}

// ToUserDTO converts User to UserDTO
func ToUserDTO(user *domain.User) domain.UserDTO {
	dto := domain.UserDTO{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		FullName:    user.FullName(),
		PhoneNumber: user.PhoneNumber,
		AgencyID:    user.AgencyID,
		Role:        user.Role,
		IsActive:    user.IsActive,
		LastLoginAt: formatTimePtr(user.LastLoginAt),
		CreatedAt:   formatTime(user.CreatedAt),
	}
	if user.Agency != nil {
		dto.AgencyName = user.Agency.Name
	}
	return dto
}

// ToClientDTO converts Client to ClientDTO, including notes when loaded
func ToClientDTO(client *domain.Client) domain.ClientDTO {
	dto := domain.ClientDTO{
		ID:                client.ID,
		AgencyID:          client.AgencyID,
		Name:              client.Name,
		PhoneNumber:       client.PhoneNumber,
		AlternativeNumber: client.AlternativeNumber,
		Email:             client.Email,
		PassportNumber:    client.PassportNumber,
		CNIC:              client.CNIC,
		Address:           client.Address,
		CreatedByID:       client.CreatedByID,
		CreatedByName:     userName(client.CreatedBy),
		CreatedAt:         formatTime(client.CreatedAt),
		UpdatedAt:         formatTime(client.UpdatedAt),
	}
	for i := range client.Notes {
		dto.Notes = append(dto.Notes, ToClientNoteDTO(&client.Notes[i]))
	}
	return dto
}

// ToClientNoteDTO converts ClientNote to NoteDTO
func ToClientNoteDTO(note *domain.ClientNote) domain.NoteDTO {
	clientID := note.ClientID
	return domain.NoteDTO{
		ID:            note.ID,
		ClientID:      &clientID,
		Note:          note.Note,
		CreatedByID:   note.CreatedByID,
		CreatedByName: userName(note.CreatedBy),
		CreatedAt:     formatTime(note.CreatedAt),
	}
}

// ToBookingNoteDTO converts BookingNote to NoteDTO
func ToBookingNoteDTO(note *domain.BookingNote) domain.NoteDTO {
	bookingID := note.BookingID
	return domain.NoteDTO{
		ID:            note.ID,
		BookingID:     &bookingID,
		Note:          note.Note,
		CreatedByID:   note.CreatedByID,
		CreatedByName: userName(note.CreatedBy),
		CreatedAt:     formatTime(note.CreatedAt),
	}
}

// ToServiceDTO converts Service to the full ServiceDTO
func ToServiceDTO(service *domain.Service) domain.ServiceDTO {
	includes := []string(service.Includes)
	if includes == nil {
		includes = []string{}
	}
	return domain.ServiceDTO{
		ID:          service.ID,
		AgencyID:    service.AgencyID,
		Name:        service.Name,
		Includes:    includes,
		BaseCost:    domain.NewMoney(service.BaseCost),
		Profit:      domain.NewMoney(service.Profit),
		TotalPrice:  domain.NewMoney(service.TotalPrice()),
		MaxDiscount: domain.NewMoney(domain.MaxDiscount(service)),
		Duration:    service.Duration,
		Destination: service.Destination,
		Status:      service.Status,
		CreatedAt:   formatTime(service.CreatedAt),
		UpdatedAt:   formatTime(service.UpdatedAt),
	}
}

// ToServiceSummaryDTO converts Service to the list projection without includes
func ToServiceSummaryDTO(service *domain.Service) domain.ServiceSummaryDTO {
	return domain.ServiceSummaryDTO{
		ID:          service.ID,
		Name:        service.Name,
		BaseCost:    domain.NewMoney(service.BaseCost),
		Profit:      domain.NewMoney(service.Profit),
		TotalPrice:  domain.NewMoney(service.TotalPrice()),
		Duration:    service.Duration,
		Destination: service.Destination,
		Status:      service.Status,
	}
}

// ToBookingDTO converts Booking to BookingDTO. Service must be loaded.
// The agent projection leaves out agency, creator and notes.
func ToBookingDTO(booking *domain.Booking, agentView bool) domain.BookingDTO {
	dto := domain.BookingDTO{
		ID:              booking.ID,
		ClientID:        booking.ClientID,
		ServiceID:       booking.ServiceID,
		ServiceName:     booking.Service.Name,
		ServicePrice:    domain.NewMoney(booking.Service.TotalPrice()),
		Discount:        domain.NewMoney(booking.Discount),
		TotalAmount:     domain.NewMoney(booking.TotalAmount()),
		PaidAmount:      domain.NewMoney(booking.PaidAmount),
		RemainingAmount: domain.NewMoney(booking.RemainingAmount()),
		BookingStatus:   booking.Status,
		PaymentStatus:   booking.CurrentPaymentStatus(),
		PaymentMethod:   booking.PaymentMethod,
		LastPaymentDate: formatTimePtr(booking.LastPaymentDate),
		DepartureDate:   booking.DepartureDate,
		ArrivalDate:     booking.ArrivalDate,
		Version:         booking.Version,
		CreatedAt:       formatTime(booking.CreatedAt),
		UpdatedAt:       formatTime(booking.UpdatedAt),
	}
	if booking.Client != nil {
		dto.ClientName = booking.Client.Name
	}
	if agentView {
		return dto
	}

	agencyID := booking.AgencyID
	dto.AgencyID = &agencyID
	dto.CreatedByID = booking.CreatedByID
	dto.CreatedByName = userName(booking.CreatedBy)
	for i := range booking.Notes {
		dto.Notes = append(dto.Notes, ToBookingNoteDTO(&booking.Notes[i]))
	}
	return dto
}
