package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/medora/clinic-scheduling/internal/appointment"
	"github.com/medora/clinic-scheduling/internal/availability"
	"github.com/medora/clinic-scheduling/internal/schedule"
	"github.com/medora/clinic-scheduling/internal/timeoff"
)

type CreateAppointmentRequest struct {
	DoctorID  string `json:"doctor_id"`
	PatientID string `json:"patient_id"`
	Date      string `json:"date"`
	Start     string `json:"start"`
	Notes     string `json:"notes,omitempty"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason,omitempty"`
}

type AppointmentResponse struct {
	ID         uuid.UUID                     `json:"id"`
	DoctorID   uuid.UUID                     `json:"doctor_id"`
	PatientID  uuid.UUID                     `json:"patient_id"`
	Date       string                        `json:"date"`
	Start      schedule.TimeOfDay            `json:"start"`
	End        schedule.TimeOfDay            `json:"end"`
	Status     string                        `json:"status"`
	Notes      string                        `json:"notes,omitempty"`
	PriceCents int                           `json:"price_cents"`
	Report     *appointment.CompletionReport `json:"report,omitempty"`
}

func toAppointmentResponse(appt *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:         appt.ID,
		DoctorID:   appt.DoctorID,
		PatientID:  appt.PatientID,
		Date:       appt.Date.Format("2006-01-02"),
		Start:      appt.Start,
		End:        appt.End,
		Status:     string(appt.Status),
		Notes:      appt.Notes,
		PriceCents: appt.PriceCents,
		Report:     appt.Report,
	}
}

type AvailabilityResponse struct {
	DoctorID uuid.UUID           `json:"doctor_id"`
	Date     string              `json:"date"`
	Slots    []availability.Slot `json:"slots"`
}

type TimeOffRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason,omitempty"`
}

type TimeOffResponse struct {
	Key       uuid.UUID `json:"key"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	Reason    string    `json:"reason,omitempty"`
	Cancelled bool      `json:"cancelled"`
}

func toTimeOffResponse(iv timeoff.Interval) TimeOffResponse {
	return TimeOffResponse{
		Key:       iv.Key,
		StartDate: iv.StartDate.Format("2006-01-02"),
		EndDate:   iv.EndDate.Format("2006-01-02"),
		Reason:    iv.Reason,
		Cancelled: iv.Cancelled,
	}
}

// WeeklySchedulePayload is the wire shape of a weekly template, keyed by
// lowercase weekday name. Absent days mean the doctor does not work then.
type WeeklySchedulePayload map[string]schedule.Window

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func (p WeeklySchedulePayload) toDomain() (schedule.WeeklySchedule, bool) {
	ws := make(schedule.WeeklySchedule, len(p))
	for name, window := range p {
		day, ok := weekdayNames[name]
		if !ok {
			return nil, false
		}
		ws[day] = window
	}
	return ws, true
}

func toSchedulePayload(ws schedule.WeeklySchedule) WeeklySchedulePayload {
	payload := make(WeeklySchedulePayload, len(ws))
	for name, day := range weekdayNames {
		if window, ok := ws[day]; ok {
			payload[name] = window
		}
	}
	return payload
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
