package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medora/clinic-scheduling/internal/schedule"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var email *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p.Email = email
	return &p, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var specialty *string

	err := row.Scan(
		&d.ID,
		&d.Name,
		&specialty,
		&d.RequiresApproval,
		&d.FeeCents,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	d.Specialty = specialty
	return &d, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var startMinute, endMinute int
	var diagnosis, treatment, reportNotes *string

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.PatientID,
		&a.Date,
		&startMinute,
		&endMinute,
		&a.Status,
		&a.Notes,
		&a.PriceCents,
		&diagnosis,
		&treatment,
		&reportNotes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Start = schedule.TimeOfDay(startMinute)
	a.End = schedule.TimeOfDay(endMinute)

	if diagnosis != nil && treatment != nil {
		report := CompletionReport{
			Diagnosis: *diagnosis,
			Treatment: *treatment,
		}
		if reportNotes != nil {
			report.Notes = *reportNotes
		}
		a.Report = &report
	}

	return &a, nil
}

const appointmentColumns = `
	id, doctor_id, patient_id, date, start_minute, end_minute, status, notes,
	price_cents, report_diagnosis, report_treatment, report_notes, created_at, updated_at
`

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, requires_approval, fee_cents, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetActiveAppointmentAt(ctx context.Context, doctorID uuid.UUID, date time.Time, start schedule.TimeOfDay) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND date = $2
		  AND start_minute = $3
		  AND status IN ('pending', 'booked')
	`, doctorID, date, int(start))
	return scanAppointment(row)
}

func (r *PgRepository) ListReservedStarts(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]schedule.TimeOfDay, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT start_minute
		FROM appointments
		WHERE doctor_id = $1
		  AND date = $2
		  AND status IN ('pending', 'booked')
		ORDER BY start_minute
	`, doctorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var starts []schedule.TimeOfDay
	for rows.Next() {
		var minute int
		if err := rows.Scan(&minute); err != nil {
			return nil, err
		}
		starts = append(starts, schedule.TimeOfDay(minute))
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return starts, nil
}

func (r *PgRepository) CreateAppointment(ctx context.Context, appt Appointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, doctor_id, patient_id, date, start_minute, end_minute, status, notes, price_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		RETURNING `+appointmentColumns+`
	`, appt.ID, appt.DoctorID, appt.PatientID, appt.Date, int(appt.Start), int(appt.End), appt.Status, appt.Notes, appt.PriceCents)

	return scanAppointment(row)
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)

	return scanAppointment(row)
}

func (r *PgRepository) CompleteAppointment(ctx context.Context, id uuid.UUID, report CompletionReport) (*Appointment, error) {
	var reportNotes *string
	if report.Notes != "" {
		reportNotes = &report.Notes
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'completed',
		    report_diagnosis = $2,
		    report_treatment = $3,
		    report_notes = $4,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'booked'
		RETURNING `+appointmentColumns+`
	`, id, report.Diagnosis, report.Treatment, reportNotes)

	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	appt, err := r.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patient, err := r.GetPatientByID(ctx, appt.PatientID)
	if err != nil {
		return nil, err
	}

	doctor, err := r.GetDoctorByID(ctx, appt.DoctorID)
	if err != nil {
		return nil, err
	}

	return &Detail{
		Appointment: *appt,
		Patient:     patient,
		Doctor:      doctor,
	}, nil
}

func (r *PgRepository) listDetails(ctx context.Context, query string, args ...any) ([]Detail, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Detail
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, Detail{Appointment: *appt})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		patient, err := r.GetPatientByID(ctx, result[i].PatientID)
		if err != nil {
			return nil, err
		}
		doctor, err := r.GetDoctorByID(ctx, result[i].DoctorID)
		if err != nil {
			return nil, err
		}
		result[i].Patient = patient
		result[i].Doctor = doctor
	}

	return result, nil
}

func (r *PgRepository) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Detail, error) {
	return r.listDetails(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY date DESC, start_minute DESC
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
}

func (r *PgRepository) ListAppointmentsByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Detail, error) {
	return r.listDetails(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND date = $2
		ORDER BY start_minute
	`, doctorID, date)
}

func (r *PgRepository) FindStalePending(ctx context.Context, now time.Time) ([]Appointment, error) {
	day := schedule.DateOnly(now)
	minute := now.Hour()*60 + now.Minute()

	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'pending'
		  AND (date < $1 OR (date = $1 AND start_minute < $2))
	`, day, minute)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
