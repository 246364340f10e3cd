package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/medora/clinic-scheduling/internal/schedule"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// GetActiveAppointmentAt is the conflict check: it finds the pending or
	// booked appointment occupying the (doctor, date, start) triple, if any.
	GetActiveAppointmentAt(ctx context.Context, doctorID uuid.UUID, date time.Time, start schedule.TimeOfDay) (*Appointment, error)

	// ListReservedStarts returns start times held by pending or booked
	// appointments for the doctor on the date.
	ListReservedStarts(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]schedule.TimeOfDay, error)

	CreateAppointment(ctx context.Context, appt Appointment) (*Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)
	// CompleteAppointment transitions booked→completed and attaches the
	// report in one statement, all or nothing.
	CompleteAppointment(ctx context.Context, id uuid.UUID, report CompletionReport) (*Appointment, error)

	GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*Detail, error)
	ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Detail, error)
	ListAppointmentsByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Detail, error)

	// Sweep worker
	FindStalePending(ctx context.Context, now time.Time) ([]Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
