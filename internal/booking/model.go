package booking

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusPending    AppointmentStatus = "pending"
	StatusConfirmed  AppointmentStatus = "confirmed"
	StatusCancelled  AppointmentStatus = "cancelled"
	StatusInProgress AppointmentStatus = "in_progress"
	StatusCompleted  AppointmentStatus = "completed"
)

// ValidStatus reports whether s is one of the known appointment statuses.
func ValidStatus(s AppointmentStatus) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

type DoctorStatus string

const (
	DoctorPending  DoctorStatus = "pending"
	DoctorApproved DoctorStatus = "approved"
	DoctorRejected DoctorStatus = "rejected"
)

type ConsultationType string

const (
	ConsultationVideo ConsultationType = "video"
	ConsultationChat  ConsultationType = "chat"
)

type Patient struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Doctor struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Name            string
	Email           string
	Specialty       *string
	Status          DoctorStatus
	ConsultationFee int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TimeSlot is a bookable (doctor, date, time window) unit. StartTime and
// EndTime are wall-clock strings in "15:04" form; Date carries the day.
type TimeSlot struct {
	ID            uuid.UUID
	DoctorID      uuid.UUID
	Date          time.Time
	StartTime     string
	EndTime       string
	IsBooked      bool
	AppointmentID *uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FileRef is an opaque reference to a stored medical report.
type FileRef struct {
	FileName   string
	FileKey    string
	UploadedAt time.Time
}

// Appointment snapshots the slot's date and time window at creation time so
// later slot edits cannot retroactively change a booked appointment.
type Appointment struct {
	ID                    uuid.UUID
	PatientID             uuid.UUID
	DoctorID              uuid.UUID
	TimeSlotID            uuid.UUID
	Date                  time.Time
	StartTime             string
	EndTime               string
	Reason                string
	ConsultationType      ConsultationType
	Status                AppointmentStatus
	PaymentAmount         int64
	MedicalReport         *FileRef
	ChatEnabled           bool
	MeetingLink           *string
	ConsultationStartedAt *time.Time
	CancellationReason    *string
	ReminderSentAt        *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// AppointmentDetail is an appointment hydrated with the profiles it
// references, for API responses and notifications.
type AppointmentDetail struct {
	Appointment
	Patient *Patient
	Doctor  *Doctor
}

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// Principal is the authenticated actor attempting an operation. ProfileID is
// the patient or doctor profile id, not the user id; admins carry none.
type Principal struct {
	UserID    uuid.UUID
	ProfileID uuid.UUID
	Role      Role
}
