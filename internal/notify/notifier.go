package notify

import (
	"context"
	"fmt"
)

// Notifier is the outbound notification port. Callers treat every method as
// best-effort: an error means the message did not go out, never that the
// triggering state change failed.
type Notifier interface {
	NotifyNewAppointment(ctx context.Context, n NewAppointment) error
	NotifyConfirmation(ctx context.Context, n Confirmation) error
	NotifyRejection(ctx context.Context, n Rejection) error
	NotifyConsultationStarted(ctx context.Context, n ConsultationStarted) error
	NotifyUpcomingConsultation(ctx context.Context, n UpcomingConsultation) error
}

type NewAppointment struct {
	DoctorEmail string
	DoctorName  string
	PatientName string
	Date        string
	Time        string
	Reason      string
	HasReport   bool
}

type Confirmation struct {
	PatientEmail     string
	PatientName      string
	DoctorName       string
	Date             string
	Time             string
	ConsultationType string
}

type Rejection struct {
	PatientEmail string
	PatientName  string
	DoctorName   string
	Date         string
	Time         string
	Reason       string
}

type ConsultationStarted struct {
	PatientEmail string
	PatientName  string
	DoctorName   string
	MeetingLink  string
}

type UpcomingConsultation struct {
	PatientEmail string
	PatientName  string
	DoctorName   string
	Date         string
	Time         string
}

// EmailNotifier renders each notification to a plain-text message and hands
// it to a delivery provider.
type EmailNotifier struct {
	provider Provider
}

func NewEmailNotifier(provider Provider) *EmailNotifier {
	return &EmailNotifier{provider: provider}
}

func (e *EmailNotifier) NotifyNewAppointment(ctx context.Context, n NewAppointment) error {
	report := "no medical report attached"
	if n.HasReport {
		report = "a medical report is attached"
	}
	msg := fmt.Sprintf(
		"Dear Dr. %s, %s requested an appointment on %s (%s). Reason: %s (%s). Please confirm or reject it.",
		n.DoctorName, n.PatientName, n.Date, n.Time, n.Reason, report,
	)
	return e.provider.Send(ctx, n.DoctorEmail, "New appointment request", msg)
}

func (e *EmailNotifier) NotifyConfirmation(ctx context.Context, n Confirmation) error {
	msg := fmt.Sprintf(
		"Dear %s, your %s appointment with Dr. %s on %s (%s) has been confirmed.",
		n.PatientName, n.ConsultationType, n.DoctorName, n.Date, n.Time,
	)
	return e.provider.Send(ctx, n.PatientEmail, "Appointment confirmed", msg)
}

func (e *EmailNotifier) NotifyRejection(ctx context.Context, n Rejection) error {
	msg := fmt.Sprintf(
		"Dear %s, your appointment with Dr. %s on %s (%s) was declined. Reason: %s",
		n.PatientName, n.DoctorName, n.Date, n.Time, n.Reason,
	)
	return e.provider.Send(ctx, n.PatientEmail, "Appointment declined", msg)
}

func (e *EmailNotifier) NotifyConsultationStarted(ctx context.Context, n ConsultationStarted) error {
	msg := fmt.Sprintf(
		"Dear %s, Dr. %s has started your video consultation. Join here: %s",
		n.PatientName, n.DoctorName, n.MeetingLink,
	)
	return e.provider.Send(ctx, n.PatientEmail, "Consultation started", msg)
}

func (e *EmailNotifier) NotifyUpcomingConsultation(ctx context.Context, n UpcomingConsultation) error {
	msg := fmt.Sprintf(
		"Dear %s, a reminder that your appointment with Dr. %s is on %s (%s).",
		n.PatientName, n.DoctorName, n.Date, n.Time,
	)
	return e.provider.Send(ctx, n.PatientEmail, "Upcoming appointment", msg)
}
