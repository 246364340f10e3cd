package timeoff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medora/clinic-scheduling/internal/schedule"
)

var (
	ErrInvalidRange     = errors.New("time-off start date is after end date")
	ErrIntervalNotFound = errors.New("time-off interval not found")
)

// Interval is a doctor-declared date range during which no slots are
// available. Both ends are inclusive calendar dates. Intervals are never
// removed; cancellation sets a flag so history stays queryable.
type Interval struct {
	Key       uuid.UUID
	DoctorID  uuid.UUID
	StartDate time.Time
	EndDate   time.Time
	Reason    string
	Cancelled bool
	CreatedAt time.Time
}

// Contains reports whether the interval blocks the given date. Cancelled
// intervals block nothing.
func (iv Interval) Contains(date time.Time) bool {
	if iv.Cancelled {
		return false
	}
	d := schedule.DateOnly(date)
	return !d.Before(schedule.DateOnly(iv.StartDate)) && !d.After(schedule.DateOnly(iv.EndDate))
}

// Blocked reports whether any interval in the set blocks the given date.
// Overlapping intervals act as a union of blocked dates.
func Blocked(intervals []Interval, date time.Time) bool {
	for _, iv := range intervals {
		if iv.Contains(date) {
			return true
		}
	}
	return false
}

// Repository persists time-off intervals for doctors.
type Repository interface {
	InsertInterval(ctx context.Context, iv Interval) error
	// MarkCancelled flips the cancelled flag. It returns ErrIntervalNotFound
	// only when no interval with the key exists for the doctor; cancelling
	// an already-cancelled interval succeeds.
	MarkCancelled(ctx context.Context, doctorID, key uuid.UUID) error
	// ListByDoctor returns all intervals, cancelled included, ordered by
	// start date descending.
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Interval, error)
}

// Registry is the add/cancel/list/blocked contract in front of interval
// storage.
type Registry struct {
	repo Repository
}

func NewRegistry(repo Repository) *Registry {
	return &Registry{repo: repo}
}

// AddInterval records a new exception and returns its key. Overlap with
// existing intervals is permitted.
func (r *Registry) AddInterval(ctx context.Context, doctorID uuid.UUID, startDate, endDate time.Time, reason string) (uuid.UUID, error) {
	start := schedule.DateOnly(startDate)
	end := schedule.DateOnly(endDate)
	if start.After(end) {
		return uuid.Nil, fmt.Errorf("%w: %s > %s", ErrInvalidRange, start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	iv := Interval{
		Key:       uuid.New(),
		DoctorID:  doctorID,
		StartDate: start,
		EndDate:   end,
		Reason:    reason,
	}
	if err := r.repo.InsertInterval(ctx, iv); err != nil {
		return uuid.Nil, fmt.Errorf("insert time-off interval: %w", err)
	}
	return iv.Key, nil
}

// CancelInterval soft-cancels the interval with the given key. Cancelling an
// already-cancelled interval is an idempotent success.
func (r *Registry) CancelInterval(ctx context.Context, doctorID, key uuid.UUID) error {
	if err := r.repo.MarkCancelled(ctx, doctorID, key); err != nil {
		if errors.Is(err, ErrIntervalNotFound) {
			return err
		}
		return fmt.Errorf("cancel time-off interval: %w", err)
	}
	return nil
}

// ListIntervals returns the doctor's full time-off history, most recent
// start date first. Active/expired/cancelled classification is left to the
// caller.
func (r *Registry) ListIntervals(ctx context.Context, doctorID uuid.UUID) ([]Interval, error) {
	intervals, err := r.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list time-off intervals: %w", err)
	}
	return intervals, nil
}

// IsBlocked reports whether the date falls inside any non-cancelled interval
// for the doctor.
func (r *Registry) IsBlocked(ctx context.Context, doctorID uuid.UUID, date time.Time) (bool, error) {
	intervals, err := r.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return false, fmt.Errorf("list time-off intervals: %w", err)
	}
	return Blocked(intervals, date), nil
}
