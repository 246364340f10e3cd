package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidWindow = errors.New("working window start must be before end")
)

// Window is one day's working hours. Start is inclusive, End exclusive.
type Window struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

func (w Window) Validate() error {
	if w.Start >= w.End {
		return fmt.Errorf("%w: %s >= %s", ErrInvalidWindow, w.Start, w.End)
	}
	return nil
}

// WeeklySchedule is a doctor's recurring working-hours template. A weekday
// with no entry means the doctor does not work that day.
type WeeklySchedule map[time.Weekday]Window

func (ws WeeklySchedule) Validate() error {
	for day, w := range ws {
		if err := w.Validate(); err != nil {
			return fmt.Errorf("%s: %w", day, err)
		}
	}
	return nil
}

// WindowFor returns the working window for the given weekday, if any.
func (ws WeeklySchedule) WindowFor(day time.Weekday) (Window, bool) {
	w, ok := ws[day]
	return w, ok
}

// Repository persists weekly schedules. A doctor with no stored rows has an
// empty schedule, not an error.
type Repository interface {
	GetWeeklySchedule(ctx context.Context, doctorID uuid.UUID) (WeeklySchedule, error)
	SetWeeklySchedule(ctx context.Context, doctorID uuid.UUID, ws WeeklySchedule) error
}

// Store is the validation and access contract in front of schedule storage.
type Store struct {
	repo Repository
}

func NewStore(repo Repository) *Store {
	return &Store{repo: repo}
}

func (s *Store) GetSchedule(ctx context.Context, doctorID uuid.UUID) (WeeklySchedule, error) {
	ws, err := s.repo.GetWeeklySchedule(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("load weekly schedule: %w", err)
	}
	return ws, nil
}

// SetSchedule replaces the doctor's entire weekly template. Any invalid day
// entry rejects the whole update.
func (s *Store) SetSchedule(ctx context.Context, doctorID uuid.UUID, ws WeeklySchedule) error {
	if err := ws.Validate(); err != nil {
		return err
	}
	if err := s.repo.SetWeeklySchedule(ctx, doctorID, ws); err != nil {
		return fmt.Errorf("store weekly schedule: %w", err)
	}
	return nil
}
