package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/medora/clinic-scheduling/internal/schedule"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusBooked    Status = "booked"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Doctor struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	// RequiresApproval selects the creation flow: when set, patient
	// bookings land in pending until the doctor approves them.
	RequiresApproval bool
	FeeCents         int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CompletionReport is attached when an appointment is completed. Diagnosis
// and Treatment are mandatory; Notes is free-form.
type CompletionReport struct {
	Diagnosis string `json:"diagnosis"`
	Treatment string `json:"treatment"`
	Notes     string `json:"notes,omitempty"`
}

type Appointment struct {
	ID         uuid.UUID
	DoctorID   uuid.UUID
	PatientID  uuid.UUID
	Date       time.Time
	Start      schedule.TimeOfDay
	End        schedule.TimeOfDay
	Status     Status
	Notes      string
	PriceCents int
	Report     *CompletionReport
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

type Detail struct {
	Appointment
	Patient *Patient
	Doctor  *Doctor
}
