package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/now"
	"github.com/shopspring/decimal"
	"github.com/tripdesk/agency-api/internal/auth"
	"github.com/tripdesk/agency-api/internal/domain"
	"github.com/tripdesk/agency-api/internal/repository"
	"go.uber.org/zap"
)

// Analytics ranges
const (
	RangeLifetime  = "lifetime"
	RangeThisWeek  = "this_week"
	RangeThisMonth = "this_month"
	RangeLastMonth = "last_month"
	RangeCustom    = "custom"
)

// AnalyticsQuery selects the reporting window
type AnalyticsQuery struct {
	Range     string
	StartDate string
	EndDate   string
}

// window is a half-open [start, end) interval in the reporting location
type window struct {
	start, end *time.Time
}

type AnalyticsService struct {
	bookingRepo *repository.BookingRepository
	clock       Clock
	logger      *zap.Logger
}

func NewAnalyticsService(bookingRepo *repository.BookingRepository, clock Clock, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{
		bookingRepo: bookingRepo,
		clock:       clock,
		logger:      logger,
	}
}

// resolveWindow turns a query into calendar bounds. Week windows start on Monday.
func (s *AnalyticsService) resolveWindow(q AnalyticsQuery) (string, window, error) {
	loc := s.clock.Location()
	cfg := &now.Config{WeekStartDay: time.Monday, TimeLocation: loc}
	today := cfg.With(s.clock.Now().In(loc))

	bounds := func(start, end time.Time) window {
		return window{start: &start, end: &end}
	}

	rangeName := strings.ToLower(strings.TrimSpace(q.Range))
	switch rangeName {
	case "", RangeLifetime:
		return RangeLifetime, window{}, nil
	case RangeThisWeek:
		start := today.BeginningOfWeek()
		return rangeName, bounds(start, start.AddDate(0, 0, 7)), nil
	case RangeThisMonth:
		return rangeName, bounds(today.BeginningOfMonth(), today.BeginningOfDay().AddDate(0, 0, 1)), nil
	case RangeLastMonth:
		thisMonth := today.BeginningOfMonth()
		return rangeName, bounds(cfg.With(thisMonth.AddDate(0, 0, -1)).BeginningOfMonth(), thisMonth), nil
	case RangeCustom:
		verr := domain.NewValidationError()
		if q.StartDate == "" {
			verr.Add("startDate", "start_date is required for a custom range")
		}
		if q.EndDate == "" {
			verr.Add("endDate", "end_date is required for a custom range")
		}
		if verr.OrNil() != nil {
			return "", window{}, verr
		}
		start, err := domain.ParseDate(q.StartDate)
		if err != nil {
			return "", window{}, domain.FieldError("startDate", err.Error())
		}
		end, err := domain.ParseDate(q.EndDate)
		if err != nil {
			return "", window{}, domain.FieldError("endDate", err.Error())
		}
		if end.Before(start) {
			return "", window{}, domain.FieldError("endDate", "end_date must not be before start_date")
		}
		from := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
		to := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
		return rangeName, bounds(from, to), nil
	}
	return "", window{}, domain.FieldError("range", fmt.Sprintf("unknown range %q", q.Range))
}

// Summary aggregates sales, payments and agent activity over the window.
// Agents only see bookings they created.
func (s *AnalyticsService) Summary(ctx context.Context, q AnalyticsQuery) (*domain.AnalyticsDTO, error) {
	actor, err := requirePermission(ctx, auth.ResourceAnalytics, auth.ActionRead)
	if err != nil {
		return nil, err
	}

	rangeName, win, err := s.resolveWindow(q)
	if err != nil {
		return nil, err
	}

	bookings, err := s.bookingRepo.ListForAnalytics(ctx, auth.ScopeForContext(ctx, actor, auth.ResourceAnalytics), win.start, win.end)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings for analytics: %w", err)
	}

	dto := summarize(bookings)
	dto.Range = rangeName
	if win.start != nil {
		first := domain.DateOf(*win.start).String()
		last := domain.DateOf(win.end.AddDate(0, 0, -1)).String()
		dto.StartDate = &first
		dto.EndDate = &last
	}
	return dto, nil
}

func summarize(bookings []domain.Booking) *domain.AnalyticsDTO {
	sales, received, profit := decimal.Zero, decimal.Zero, decimal.Zero
	var payments domain.PaymentBreakdownDTO
	var statuses domain.StatusBreakdownDTO

	agentBookings := map[string]int64{}
	agentClients := map[string]map[uuid.UUID]struct{}{}
	clients := map[uuid.UUID]struct{}{}

	for i := range bookings {
		b := &bookings[i]
		sales = sales.Add(b.TotalAmount())
		received = received.Add(b.PaidAmount)
		profit = profit.Add(b.Service.Profit)

		switch b.CurrentPaymentStatus() {
		case domain.PaymentStatusPaid:
			payments.Paid++
		case domain.PaymentStatusHalfPaid:
			payments.HalfPaid++
		case domain.PaymentStatusPending:
			payments.Pending++
		}

		switch b.Status {
		case domain.BookingStatusPending:
			statuses.Pending++
		case domain.BookingStatusConfirmed:
			statuses.Confirmed++
		case domain.BookingStatusRejected:
			statuses.Rejected++
		}

		username := ""
		if b.CreatedBy != nil {
			username = b.CreatedBy.Username
		}
		agentBookings[username]++
		if agentClients[username] == nil {
			agentClients[username] = map[uuid.UUID]struct{}{}
		}
		agentClients[username][b.ClientID] = struct{}{}
		clients[b.ClientID] = struct{}{}
	}

	bookingsTracker := make([]domain.AgentBookingsDTO, 0, len(agentBookings))
	for username, count := range agentBookings {
		bookingsTracker = append(bookingsTracker, domain.AgentBookingsDTO{Username: username, Count: count})
	}
	sort.Slice(bookingsTracker, func(i, j int) bool {
		if bookingsTracker[i].Count != bookingsTracker[j].Count {
			return bookingsTracker[i].Count > bookingsTracker[j].Count
		}
		return bookingsTracker[i].Username < bookingsTracker[j].Username
	})

	customersTracker := make([]domain.AgentCustomersDTO, 0, len(agentClients))
	for username, set := range agentClients {
		customersTracker = append(customersTracker, domain.AgentCustomersDTO{Username: username, UniqueClients: int64(len(set))})
	}
	sort.Slice(customersTracker, func(i, j int) bool {
		if customersTracker[i].UniqueClients != customersTracker[j].UniqueClients {
			return customersTracker[i].UniqueClients > customersTracker[j].UniqueClients
		}
		return customersTracker[i].Username < customersTracker[j].Username
	})

	return &domain.AnalyticsDTO{
		TotalSales:             domain.NewMoney(sales),
		TotalReceived:          domain.NewMoney(received),
		TotalRemaining:         domain.NewMoney(sales.Sub(received)),
		TotalProfit:            domain.NewMoney(profit),
		PaymentBreakdown:       payments,
		BookingStatusBreakdown: statuses,
		AgentBookingsTracker:   bookingsTracker,
		AgentCustomersTracker:  customersTracker,
		TotalBookings:          int64(len(bookings)),
		TotalCustomers:         int64(len(clients)),
	}
}
