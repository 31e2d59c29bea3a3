package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tripdesk/agency-api/internal/domain"
	"github.com/tripdesk/agency-api/internal/metrics"
	"go.uber.org/zap"
)

// TravelDatesReminderJobName is the scheduler name of the missing return date reminder
const TravelDatesReminderJobName = "travel_dates_reminder"

const defaultReminderDays = 7

// DepartureSource lists confirmed bookings departing in a date range with no
// return date. Implemented by repository.BookingRepository.
type DepartureSource interface {
	ListDepartingWithoutReturn(ctx context.Context, from, to domain.Date) ([]domain.Booking, error)
}

// TravelDatesReminderJob reports, per agency, confirmed bookings about to
// depart without a return date
type TravelDatesReminderJob struct {
	bookings DepartureSource
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
	days     int
	timeout  time.Duration
}

func NewTravelDatesReminderJob(bookings DepartureSource, m *metrics.Metrics, logger *zap.Logger, now func() time.Time, days int, timeout time.Duration) *TravelDatesReminderJob {
	if days <= 0 {
		days = defaultReminderDays
	}
	if now == nil {
		now = time.Now
	}
	return &TravelDatesReminderJob{
		bookings: bookings,
		metrics:  m,
		logger:   logger,
		now:      now,
		days:     days,
		timeout:  timeout,
	}
}

// Check counts bookings departing between today and today+days, inclusive,
// that have no return date
func (j *TravelDatesReminderJob) Check(ctx context.Context) (map[uuid.UUID]int, error) {
	today := domain.DateOf(j.now())
	bookings, err := j.bookings.ListDepartingWithoutReturn(ctx, today, today.AddDays(j.days))
	if err != nil {
		return nil, fmt.Errorf("failed to list departures: %w", err)
	}

	counts := make(map[uuid.UUID]int)
	for i := range bookings {
		counts[bookings[i].AgencyID]++
	}
	return counts, nil
}

// Run is the scheduled entry point
func (j *TravelDatesReminderJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	counts, err := j.Check(ctx)
	if err != nil {
		j.logger.Error("travel dates reminder failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	gauge := make(map[string]int, len(counts))
	for agencyID, n := range counts {
		gauge[agencyID.String()] = n
		j.logger.Warn("confirmed bookings departing without a return date",
			zap.String("agency_id", agencyID.String()),
			zap.Int("bookings", n),
			zap.Int("within_days", j.days))
	}
	j.metrics.SetMissingReturnDates(gauge)

	j.logger.Info("travel dates reminder completed",
		zap.Int("agencies", len(counts)),
		zap.Duration("duration", time.Since(start)))
}

// RegisterTravelDatesReminderJob adds the reminder to the scheduler
func RegisterTravelDatesReminderJob(scheduler *Scheduler, bookings DepartureSource, m *metrics.Metrics, logger *zap.Logger, now func() time.Time, cronExpr string, days int) error {
	job := NewTravelDatesReminderJob(bookings, m, logger, now, days, 2*time.Minute)
	return scheduler.AddJob(TravelDatesReminderJobName, cronExpr, job.Run)
}
