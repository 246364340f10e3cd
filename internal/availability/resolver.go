package availability

import (
	"time"

	"github.com/medora/clinic-scheduling/internal/schedule"
	"github.com/medora/clinic-scheduling/internal/timeoff"
)

type SlotState string

const (
	SlotOpen  SlotState = "open"
	SlotTaken SlotState = "taken"
	SlotPast  SlotState = "past"
)

// Slot is a derived candidate appointment window. It is recomputed on every
// query and never persisted.
type Slot struct {
	Start schedule.TimeOfDay `json:"start"`
	End   schedule.TimeOfDay `json:"end"`
	State SlotState          `json:"state"`
}

// Resolver turns a doctor's weekly template, time-off history and reserved
// start times into the bookable slots for one calendar date. It is pure: the
// same inputs always produce the same sequence. The reserved starts it is
// given may be stale by booking time; the classification is advisory and the
// booking path re-checks under a lock.
type Resolver struct {
	slotDuration time.Duration
	horizonDays  int
	now          func() time.Time
}

// NewResolver builds a resolver. now may be nil, in which case time.Now is
// used; tests inject a fixed clock.
func NewResolver(slotDuration time.Duration, horizonDays int, now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{
		slotDuration: slotDuration,
		horizonDays:  horizonDays,
		now:          now,
	}
}

// Resolve returns the date's candidate slots in chronological order, each
// classified open, taken or past. The sequence is empty when the date is
// outside the booking horizon, the doctor does not work that weekday, or an
// active time-off interval blocks the date.
func (r *Resolver) Resolve(ws schedule.WeeklySchedule, intervals []timeoff.Interval, date time.Time, reserved []schedule.TimeOfDay) []Slot {
	now := r.now()
	today := schedule.DateOnly(now)
	day := schedule.DateOnly(date)

	if day.Before(today) || day.After(today.AddDate(0, 0, r.horizonDays)) {
		return nil
	}

	window, ok := ws.WindowFor(day.Weekday())
	if !ok {
		return nil
	}

	if timeoff.Blocked(intervals, day) {
		return nil
	}

	step := schedule.TimeOfDay(r.slotDuration / time.Minute)
	if step <= 0 {
		return nil
	}

	reservedSet := make(map[schedule.TimeOfDay]struct{}, len(reserved))
	for _, s := range reserved {
		reservedSet[s] = struct{}{}
	}

	var slots []Slot
	// A slot that would extend past the window end is dropped, not
	// truncated.
	for start := window.Start; start+step <= window.End; start += step {
		slot := Slot{Start: start, End: start + step, State: SlotOpen}

		if _, taken := reservedSet[start]; taken {
			slot.State = SlotTaken
		} else if day.Equal(today) && !start.At(day).After(now) {
			slot.State = SlotPast
		}

		slots = append(slots, slot)
	}

	return slots
}

// HorizonDays exposes the configured booking horizon.
func (r *Resolver) HorizonDays() int { return r.horizonDays }

// SlotDuration exposes the configured slot length.
func (r *Resolver) SlotDuration() time.Duration { return r.slotDuration }
