package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrSlotNotFound        = errors.New("time slot not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotAlreadyBooked   = errors.New("time slot is already booked")
)

// AppointmentQuery scopes a listing to one principal and optional filters.
// Page is 1-indexed.
type AppointmentQuery struct {
	Role      Role
	ProfileID uuid.UUID
	Status    *AppointmentStatus
	Date      *time.Time
	Page      int
	PageSize  int
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)

	GetSlotByID(ctx context.Context, id uuid.UUID) (*TimeSlot, error)
	ListSlotsByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]TimeSlot, error)

	// ClaimSlotAndCreateAppointment claims the slot and inserts the
	// appointment as one transaction. The claim is conditional on the slot
	// being unbooked; ErrSlotAlreadyBooked is returned when it is not, and
	// nothing is written.
	ClaimSlotAndCreateAppointment(ctx context.Context, appt *Appointment) error

	// ReleaseSlot frees a slot and clears its appointment reference.
	// Releasing an already-free slot is a no-op.
	ReleaseSlot(ctx context.Context, slotID uuid.UUID) error

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error)
	ListAppointments(ctx context.Context, q AppointmentQuery) ([]AppointmentDetail, int, error)

	// UpdateAppointmentStatus is a compare-and-swap on status: the update
	// applies only while the appointment is still in `from`. A lost race
	// surfaces as ErrAppointmentNotFound.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)

	ConfirmAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)
	CancelAppointmentAndReleaseSlot(ctx context.Context, id uuid.UUID, from AppointmentStatus, reason string) (*Appointment, error)
	StartConsultation(ctx context.Context, id uuid.UUID, meetingLink string, startedAt time.Time) (*Appointment, error)

	// Reminder worker
	FindUpcomingConfirmed(ctx context.Context, from, to time.Time) ([]AppointmentDetail, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) error
}
