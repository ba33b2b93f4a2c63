package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/medconnect/booking-server/internal/chat"
	"github.com/medconnect/booking-server/internal/notify"
	redisclient "github.com/medconnect/booking-server/internal/redis"
)

const (
	// DefaultRejectionReason is used when a doctor declines a request
	// without giving one.
	DefaultRejectionReason = "Doctor is not available"

	chatSeedMessage = "Your appointment has been confirmed. You can now chat with your doctor."

	dateLayout = "2006-01-02"
)

var (
	ErrDoctorNotApproved  = errors.New("doctor is not approved for consultations")
	ErrSlotDoctorMismatch = errors.New("time slot does not belong to the selected doctor")
	ErrSlotBeingBooked    = errors.New("time slot is currently being booked, please retry")
	ErrForbidden          = errors.New("not authorized for this appointment")
	ErrInvalidTransition  = errors.New("appointment status does not allow this operation")
	ErrInvalidStatus      = errors.New("unsupported appointment status")
	ErrReportNotFound     = errors.New("medical report not found")
)

type Service struct {
	repo     Repository
	locker   redisclient.Locker
	chats    chat.Store
	notifier notify.Notifier
	meetings MeetingLinker
}

func NewService(repo Repository, locker redisclient.Locker, chats chat.Store, notifier notify.Notifier, meetings MeetingLinker) *Service {
	return &Service{
		repo:     repo,
		locker:   locker,
		chats:    chats,
		notifier: notifier,
		meetings: meetings,
	}
}

type CreateAppointmentInput struct {
	PatientID        uuid.UUID
	DoctorID         uuid.UUID
	SlotID           uuid.UUID
	Reason           string
	ConsultationType ConsultationType
	MedicalReport    *FileRef
}

// Create reserves a slot for a patient and opens a pending appointment.
// The slot claim and the appointment insert commit as one unit: a slot can
// never end up booked without a live appointment behind it, nor the reverse.
// Concurrent requests for the same slot are serialized with a per-slot lock,
// and the claim itself is conditional, so losing a race is a conflict, not a
// double booking.
func (s *Service) Create(ctx context.Context, in CreateAppointmentInput) (*AppointmentDetail, error) {
	patient, err := s.repo.GetPatientByID(ctx, in.PatientID)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	doctor, err := s.repo.GetDoctorByID(ctx, in.DoctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	if doctor.Status != DoctorApproved {
		return nil, ErrDoctorNotApproved
	}

	slot, err := s.repo.GetSlotByID(ctx, in.SlotID)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load slot: %w", err)
	}
	if slot.DoctorID != doctor.ID {
		return nil, ErrSlotDoctorMismatch
	}
	if slot.IsBooked {
		return nil, ErrSlotAlreadyBooked
	}

	consultationType := in.ConsultationType
	if consultationType == "" {
		consultationType = ConsultationVideo
	}

	appt := &Appointment{
		ID:               uuid.New(),
		PatientID:        patient.ID,
		DoctorID:         doctor.ID,
		TimeSlotID:       slot.ID,
		Date:             slot.Date,
		StartTime:        slot.StartTime,
		EndTime:          slot.EndTime,
		Reason:           in.Reason,
		ConsultationType: consultationType,
		Status:           StatusPending,
		PaymentAmount:    doctor.ConsultationFee,
		MedicalReport:    in.MedicalReport,
	}

	err = s.locker.WithSlotLock(ctx, slot.ID, func(lockCtx context.Context) error {
		return s.repo.ClaimSlotAndCreateAppointment(lockCtx, appt)
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		if errors.Is(err, ErrSlotAlreadyBooked) || errors.Is(err, ErrSlotNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("claim slot and create appointment: %w", err)
	}

	detail := &AppointmentDetail{Appointment: *appt, Patient: patient, Doctor: doctor}

	if err := s.notifier.NotifyNewAppointment(ctx, notify.NewAppointment{
		DoctorEmail: doctor.Email,
		DoctorName:  doctor.Name,
		PatientName: patient.Name,
		Date:        appt.Date.Format(dateLayout),
		Time:        appt.StartTime + " - " + appt.EndTime,
		Reason:      appt.Reason,
		HasReport:   appt.MedicalReport != nil,
	}); err != nil {
		log.Printf("failed to notify doctor of new appointment %s: %v", appt.ID, err)
	}

	return detail, nil
}

// UpdateStatus is the doctor-driven transition: confirm, reject (cancelled)
// or complete. In-progress is reachable only through StartConsultation, which
// also mints the meeting link.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, actor Principal, newStatus AppointmentStatus, rejectionReason string) (*Appointment, error) {
	if !ValidStatus(newStatus) || newStatus == StatusPending || newStatus == StatusInProgress {
		return nil, ErrInvalidStatus
	}

	detail, err := s.repo.GetAppointmentDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransitionStatus(actor, &detail.Appointment) {
		return nil, ErrForbidden
	}
	if !ValidTransition(detail.Status, newStatus) {
		return nil, ErrInvalidTransition
	}

	switch newStatus {
	case StatusConfirmed:
		return s.confirm(ctx, detail)
	case StatusCancelled:
		return s.reject(ctx, detail, rejectionReason)
	case StatusCompleted:
		updated, err := s.repo.UpdateAppointmentStatus(ctx, id, StatusInProgress, StatusCompleted)
		if err != nil {
			return nil, s.transitionErr(err)
		}
		return updated, nil
	}
	return nil, ErrInvalidStatus
}

func (s *Service) confirm(ctx context.Context, detail *AppointmentDetail) (*Appointment, error) {
	updated, err := s.repo.ConfirmAppointment(ctx, detail.ID)
	if err != nil {
		return nil, s.transitionErr(err)
	}

	// Chat and notification are side effects of an already-committed
	// transition; their failure must not undo it.
	participants := []uuid.UUID{detail.Doctor.UserID, detail.Patient.UserID}
	if _, err := s.chats.CreateChat(ctx, detail.ID, participants, detail.Doctor.UserID, chatSeedMessage); err != nil {
		log.Printf("failed to create chat for appointment %s: %v", detail.ID, err)
	}

	if err := s.notifier.NotifyConfirmation(ctx, notify.Confirmation{
		PatientEmail:     detail.Patient.Email,
		PatientName:      detail.Patient.Name,
		DoctorName:       detail.Doctor.Name,
		Date:             detail.Date.Format(dateLayout),
		Time:             detail.StartTime + " - " + detail.EndTime,
		ConsultationType: string(detail.ConsultationType),
	}); err != nil {
		log.Printf("failed to notify patient of confirmation %s: %v", detail.ID, err)
	}

	return updated, nil
}

func (s *Service) reject(ctx context.Context, detail *AppointmentDetail, reason string) (*Appointment, error) {
	if reason == "" {
		reason = DefaultRejectionReason
	}

	updated, err := s.repo.CancelAppointmentAndReleaseSlot(ctx, detail.ID, detail.Status, reason)
	if err != nil {
		return nil, s.transitionErr(err)
	}

	if err := s.notifier.NotifyRejection(ctx, notify.Rejection{
		PatientEmail: detail.Patient.Email,
		PatientName:  detail.Patient.Name,
		DoctorName:   detail.Doctor.Name,
		Date:         detail.Date.Format(dateLayout),
		Time:         detail.StartTime + " - " + detail.EndTime,
		Reason:       reason,
	}); err != nil {
		log.Printf("failed to notify patient of rejection %s: %v", detail.ID, err)
	}

	return updated, nil
}

// StartConsultation moves a confirmed appointment to in_progress, mints the
// meeting link and stamps the start time.
func (s *Service) StartConsultation(ctx context.Context, id uuid.UUID, actor Principal) (*Appointment, error) {
	detail, err := s.repo.GetAppointmentDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransitionStatus(actor, &detail.Appointment) {
		return nil, ErrForbidden
	}
	if detail.Status != StatusConfirmed {
		return nil, ErrInvalidTransition
	}

	meetingLink := s.meetings.Link(detail.ID)

	updated, err := s.repo.StartConsultation(ctx, id, meetingLink, time.Now().UTC())
	if err != nil {
		return nil, s.transitionErr(err)
	}

	content := "Video consultation started! Join here: " + meetingLink
	if err := s.chats.AppendSystemMessage(ctx, detail.ID, detail.Doctor.UserID, content, chat.MessageTypeMeetingLink); err != nil {
		log.Printf("failed to append meeting link to chat for appointment %s: %v", detail.ID, err)
	}

	if err := s.notifier.NotifyConsultationStarted(ctx, notify.ConsultationStarted{
		PatientEmail: detail.Patient.Email,
		PatientName:  detail.Patient.Name,
		DoctorName:   detail.Doctor.Name,
		MeetingLink:  meetingLink,
	}); err != nil {
		log.Printf("failed to notify patient of consultation start %s: %v", detail.ID, err)
	}

	return updated, nil
}

// Cancel is the patient-driven path; only pending requests can be withdrawn.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actor Principal) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanCancel(actor, appt) {
		return nil, ErrForbidden
	}
	if appt.Status != StatusPending {
		return nil, ErrInvalidTransition
	}

	updated, err := s.repo.CancelAppointmentAndReleaseSlot(ctx, id, StatusPending, "Cancelled by patient")
	if err != nil {
		return nil, s.transitionErr(err)
	}
	return updated, nil
}

// Get returns an appointment with its profiles and, when chat is enabled,
// the conversation thread.
func (s *Service) Get(ctx context.Context, id uuid.UUID, actor Principal) (*AppointmentDetail, *chat.Chat, error) {
	detail, err := s.repo.GetAppointmentDetail(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !CanReadAppointment(actor, &detail.Appointment) {
		return nil, nil, ErrForbidden
	}

	var thread *chat.Chat
	if detail.ChatEnabled {
		thread, err = s.chats.FindByAppointment(ctx, detail.ID)
		if err != nil && !errors.Is(err, chat.ErrChatNotFound) {
			return nil, nil, fmt.Errorf("load chat: %w", err)
		}
	}

	return detail, thread, nil
}

// List returns the principal's appointments, newest day first, then latest
// slot first within a day.
func (s *Service) List(ctx context.Context, actor Principal, q AppointmentQuery) ([]AppointmentDetail, int, error) {
	q.Role = actor.Role
	q.ProfileID = actor.ProfileID
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = 10
	}
	if q.PageSize > 100 {
		q.PageSize = 100
	}
	return s.repo.ListAppointments(ctx, q)
}

// GetReport returns the file reference of the appointment's medical report.
func (s *Service) GetReport(ctx context.Context, id uuid.UUID, actor Principal) (*FileRef, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanDownloadReport(actor, appt) {
		return nil, ErrForbidden
	}
	if appt.MedicalReport == nil {
		return nil, ErrReportNotFound
	}
	return appt.MedicalReport, nil
}

// ListDoctorSlots returns a doctor's slots inside [from, to].
func (s *Service) ListDoctorSlots(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]TimeSlot, error) {
	if _, err := s.repo.GetDoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}
	return s.repo.ListSlotsByDoctor(ctx, doctorID, from, to)
}

// SendUpcomingReminders is called periodically by the reminder worker. Each
// appointment is handled independently: a failed notification is logged and
// the appointment stays unmarked for the next run.
func (s *Service) SendUpcomingReminders(ctx context.Context, window time.Duration) error {
	now := time.Now().UTC()
	upcoming, err := s.repo.FindUpcomingConfirmed(ctx, now, now.Add(window))
	if err != nil {
		return fmt.Errorf("find upcoming confirmed appointments: %w", err)
	}

	for _, detail := range upcoming {
		err := s.notifier.NotifyUpcomingConsultation(ctx, notify.UpcomingConsultation{
			PatientEmail: detail.Patient.Email,
			PatientName:  detail.Patient.Name,
			DoctorName:   detail.Doctor.Name,
			Date:         detail.Date.Format(dateLayout),
			Time:         detail.StartTime + " - " + detail.EndTime,
		})
		if err != nil {
			log.Printf("failed to send reminder for appointment %s: %v", detail.ID, err)
			continue
		}
		if err := s.repo.MarkReminderSent(ctx, detail.ID, now); err != nil {
			log.Printf("failed to mark reminder sent for appointment %s: %v", detail.ID, err)
		}
	}

	return nil
}

// transitionErr translates a lost status CAS into an invalid-transition
// error: the appointment was loaded a moment ago, so a missing row means a
// concurrent actor moved it first.
func (s *Service) transitionErr(err error) error {
	if errors.Is(err, ErrAppointmentNotFound) {
		return ErrInvalidTransition
	}
	return err
}
