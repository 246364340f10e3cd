package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medora/clinic-scheduling/internal/availability"
	redisclient "github.com/medora/clinic-scheduling/internal/redis"
	"github.com/medora/clinic-scheduling/internal/schedule"
	"github.com/medora/clinic-scheduling/internal/timeoff"
)

const (
	EventAppointmentRequested = "APPOINTMENT_REQUESTED"
	EventAppointmentBooked    = "APPOINTMENT_BOOKED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
)

var (
	ErrSlotNotOpen       = errors.New("slot is not open for booking")
	ErrSlotAlreadyBooked = errors.New("slot already has an active appointment")
	ErrSlotBeingBooked   = errors.New("slot is currently being booked, please retry")
)

type Service struct {
	repo      Repository
	schedules *schedule.Store
	timeOff   *timeoff.Registry
	resolver  *availability.Resolver
	cache     *availability.Cache
	locker    redisclient.Locker
	log       zerolog.Logger
	now       func() time.Time
}

// NewService wires the booking engine. cache may be nil when availability
// caching is disabled.
func NewService(repo Repository, schedules *schedule.Store, timeOff *timeoff.Registry, resolver *availability.Resolver, cache *availability.Cache, locker redisclient.Locker, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		schedules: schedules,
		timeOff:   timeOff,
		resolver:  resolver,
		cache:     cache,
		locker:    locker,
		log:       log,
		now:       time.Now,
	}
}

// SetClock replaces the service clock, for deterministic tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Availability resolves the doctor's slots for one date. The open
// classification is a prediction; CreateAppointment re-validates under a
// lock before committing.
func (s *Service) Availability(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]availability.Slot, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	day := schedule.DateOnly(date)
	// Today's resolution depends on the current time, so only future days
	// are cache candidates.
	cacheable := day.After(schedule.DateOnly(s.now()))

	if cacheable {
		if slots, ok := s.cache.Get(doctorID, day); ok {
			return slots, nil
		}
	}

	ws, err := s.schedules.GetSchedule(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	intervals, err := s.timeOff.ListIntervals(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	reserved, err := s.repo.ListReservedStarts(ctx, doctorID, day)
	if err != nil {
		return nil, fmt.Errorf("list reserved starts: %w", err)
	}

	slots := s.resolver.Resolve(ws, intervals, day, reserved)

	if cacheable {
		s.cache.Store(doctorID, day, slots)
	}

	return slots, nil
}

// SetSchedule replaces the doctor's weekly template. Every cached day for
// the doctor is dropped: a shrunk window would otherwise keep resolving
// slots that no longer exist.
func (s *Service) SetSchedule(ctx context.Context, doctorID uuid.UUID, ws schedule.WeeklySchedule) error {
	if err := s.schedules.SetSchedule(ctx, doctorID, ws); err != nil {
		return err
	}
	s.cache.InvalidateDoctor(doctorID)
	return nil
}

// AddTimeOff records a blocking interval and drops the doctor's cached
// availability, so slots inside the interval stop resolving open before
// the cache would have evicted them.
func (s *Service) AddTimeOff(ctx context.Context, doctorID uuid.UUID, startDate, endDate time.Time, reason string) (uuid.UUID, error) {
	key, err := s.timeOff.AddInterval(ctx, doctorID, startDate, endDate, reason)
	if err != nil {
		return uuid.Nil, err
	}
	s.cache.InvalidateDoctor(doctorID)
	return key, nil
}

// CancelTimeOff lifts an interval and drops the doctor's cached
// availability, so the freed days resolve open again immediately.
func (s *Service) CancelTimeOff(ctx context.Context, doctorID, key uuid.UUID) error {
	if err := s.timeOff.CancelInterval(ctx, doctorID, key); err != nil {
		return err
	}
	s.cache.InvalidateDoctor(doctorID)
	return nil
}

// CreateAppointment reserves a slot for a patient. The requested start must
// resolve as open; the commit happens under a distributed lock with a
// conflict re-check, so concurrent requests for the same triple yield
// exactly one appointment. Depending on the doctor's approval flow the
// appointment lands in pending or directly in booked.
func (s *Service) CreateAppointment(ctx context.Context, doctorID, patientID uuid.UUID, date time.Time, start schedule.TimeOfDay, notes string) (*Appointment, error) {
	if _, err := s.repo.GetPatientByID(ctx, patientID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	doctor, err := s.repo.GetDoctorByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	day := schedule.DateOnly(date)

	slots, err := s.Availability(ctx, doctorID, day)
	if err != nil {
		return nil, err
	}

	var target *availability.Slot
	for i := range slots {
		if slots[i].Start == start {
			target = &slots[i]
			break
		}
	}
	if target == nil || target.State != availability.SlotOpen {
		return nil, ErrSlotNotOpen
	}

	status := StatusBooked
	eventType := EventAppointmentBooked
	if doctor.RequiresApproval {
		status = StatusPending
		eventType = EventAppointmentRequested
	}

	var created *Appointment

	err = s.locker.WithReservationLock(ctx, doctorID, day, start, func(lockCtx context.Context) error {
		// Inside the critical section re-check for an active appointment
		// holding this triple.
		existing, err := s.repo.GetActiveAppointmentAt(lockCtx, doctorID, day, start)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check active appointment: %w", err)
		}
		if existing != nil {
			return ErrSlotAlreadyBooked
		}

		appt, err := s.repo.CreateAppointment(lockCtx, Appointment{
			ID:         uuid.New(),
			DoctorID:   doctorID,
			PatientID:  patientID,
			Date:       day,
			Start:      start,
			End:        target.End,
			Status:     status,
			Notes:      notes,
			PriceCents: doctor.FeeCents,
		})
		if err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}

		created = appt

		s.logEvent(lockCtx, appt.ID, eventType, map[string]any{
			"doctor_id":  doctorID.String(),
			"patient_id": patientID.String(),
			"date":       day.Format("2006-01-02"),
			"start":      start.String(),
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	s.cache.Invalidate(doctorID, day)

	return created, nil
}

// ApproveAppointment promotes a pending appointment to booked. The slot is
// re-validated under the reservation lock not to have been taken by another
// booking in the meantime.
func (s *Service) ApproveAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if err := CheckTransition(appt.Status, StatusBooked); err != nil {
		return nil, err
	}

	var updated *Appointment

	err = s.locker.WithReservationLock(ctx, appt.DoctorID, appt.Date, appt.Start, func(lockCtx context.Context) error {
		occupant, err := s.repo.GetActiveAppointmentAt(lockCtx, appt.DoctorID, appt.Date, appt.Start)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check active appointment: %w", err)
		}
		if occupant != nil && occupant.ID != appt.ID {
			return ErrSlotAlreadyBooked
		}

		updated, err = s.repo.UpdateAppointmentStatus(lockCtx, appt.ID, StatusPending, StatusBooked)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				// The appointment changed under us between load and update.
				return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, StatusBooked)
			}
			return fmt.Errorf("approve appointment: %w", err)
		}

		s.logEvent(lockCtx, updated.ID, EventAppointmentBooked, map[string]any{
			"approved": true,
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	s.cache.Invalidate(appt.DoctorID, appt.Date)

	return updated, nil
}

// CancelAppointment moves a pending or booked appointment to cancelled. The
// slot becomes bookable again immediately.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if err := CheckTransition(appt.Status, StatusCancelled); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, appt.Status, StatusCancelled)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, StatusCancelled)
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventAppointmentCancelled, map[string]any{
		"from":   string(appt.Status),
		"reason": reason,
	})

	s.cache.Invalidate(appt.DoctorID, appt.Date)

	return updated, nil
}

// CompleteAppointment moves a booked appointment to completed with its
// report attached atomically. A report missing diagnosis or treatment
// rejects the whole transition and leaves the status unchanged.
func (s *Service) CompleteAppointment(ctx context.Context, id uuid.UUID, report CompletionReport) (*Appointment, error) {
	if err := ValidateReport(report); err != nil {
		return nil, err
	}

	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if err := CheckTransition(appt.Status, StatusCompleted); err != nil {
		return nil, err
	}

	updated, err := s.repo.CompleteAppointment(ctx, appt.ID, report)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, StatusCompleted)
		}
		return nil, fmt.Errorf("complete appointment: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventAppointmentCompleted, map[string]any{
		"diagnosis": report.Diagnosis,
	})

	return updated, nil
}

// SweepStalePending cancels pending appointments whose start has passed
// without approval. Intended to be called by the worker periodically.
func (s *Service) SweepStalePending(ctx context.Context) error {
	staleCandidates, err := s.repo.FindStalePending(ctx, s.now())
	if err != nil {
		return fmt.Errorf("find stale pending appointments: %w", err)
	}

	for _, appt := range staleCandidates {
		_, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, StatusPending, StatusCancelled)
		if err != nil {
			if !errors.Is(err, ErrAppointmentNotFound) {
				s.log.Error().Err(err).Str("appointment_id", appt.ID.String()).Msg("failed to sweep stale pending appointment")
			}
			continue
		}
		s.logEvent(ctx, appt.ID, EventAppointmentCancelled, map[string]any{
			"from":   string(StatusPending),
			"reason": "stale_pending_sweep",
		})
		s.cache.Invalidate(appt.DoctorID, appt.Date)
	}

	return nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Error().Err(err).
			Str("event_type", eventType).
			Str("appointment_id", appointmentID.String()).
			Msg("failed to insert event log")
	}
}

// GetAppointment retrieves a fully hydrated appointment by ID.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Detail, error) {
	detail, err := s.repo.GetAppointmentDetail(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return detail, nil
}

// ListAppointmentsByPatient retrieves appointments for a specific patient.
func (s *Service) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Detail, error) {
	if limit <= 0 {
		limit = 20 // default
	}
	if limit > 100 {
		limit = 100 // max
	}
	if offset < 0 {
		offset = 0
	}

	appointments, err := s.repo.ListAppointmentsByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	return appointments, nil
}

// ListAppointmentsByDoctorDate retrieves a doctor's appointments for one
// calendar date.
func (s *Service) ListAppointmentsByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Detail, error) {
	appointments, err := s.repo.ListAppointmentsByDoctorDate(ctx, doctorID, schedule.DateOnly(date))
	if err != nil {
		return nil, fmt.Errorf("list appointments by doctor and date: %w", err)
	}
	return appointments, nil
}
