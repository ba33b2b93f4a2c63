package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/medconnect/booking-server/internal/booking"
	"github.com/medconnect/booking-server/internal/chat"
)

type CreateAppointmentRequest struct {
	DoctorID         string `json:"doctor_id"`
	TimeSlotID       string `json:"time_slot_id"`
	Reason           string `json:"reason"`
	ConsultationType string `json:"consultation_type"`
}

type UpdateStatusRequest struct {
	Status          string `json:"status"`
	RejectionReason string `json:"rejection_reason,omitempty"`
}

type PersonResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

type FileRefResponse struct {
	FileName   string    `json:"file_name"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type MessageResponse struct {
	ID          uuid.UUID `json:"id"`
	SenderID    uuid.UUID `json:"sender_id"`
	Content     string    `json:"content"`
	MessageType string    `json:"message_type"`
	CreatedAt   time.Time `json:"created_at"`
}

type ChatResponse struct {
	ID           uuid.UUID         `json:"id"`
	Participants []uuid.UUID       `json:"participants"`
	Messages     []MessageResponse `json:"messages"`
}

type AppointmentResponse struct {
	ID                    uuid.UUID        `json:"id"`
	PatientID             uuid.UUID        `json:"patient_id"`
	DoctorID              uuid.UUID        `json:"doctor_id"`
	TimeSlotID            uuid.UUID        `json:"time_slot_id"`
	Date                  string           `json:"date"`
	StartTime             string           `json:"start_time"`
	EndTime               string           `json:"end_time"`
	Reason                string           `json:"reason"`
	ConsultationType      string           `json:"consultation_type"`
	Status                string           `json:"status"`
	PaymentAmount         int64            `json:"payment_amount"`
	ChatEnabled           bool             `json:"chat_enabled"`
	MeetingLink           *string          `json:"meeting_link,omitempty"`
	ConsultationStartedAt *time.Time       `json:"consultation_started_at,omitempty"`
	CancellationReason    *string          `json:"cancellation_reason,omitempty"`
	MedicalReport         *FileRefResponse `json:"medical_report,omitempty"`
	Patient               *PersonResponse  `json:"patient,omitempty"`
	Doctor                *PersonResponse  `json:"doctor,omitempty"`
	Chat                  *ChatResponse    `json:"chat,omitempty"`
}

type ListAppointmentsResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
	Page         int                   `json:"page"`
	Pages        int                   `json:"pages"`
}

type SlotResponse struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	Date      string    `json:"date"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	IsBooked  bool      `json:"is_booked"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	resp := AppointmentResponse{
		ID:                    a.ID,
		PatientID:             a.PatientID,
		DoctorID:              a.DoctorID,
		TimeSlotID:            a.TimeSlotID,
		Date:                  a.Date.Format("2006-01-02"),
		StartTime:             a.StartTime,
		EndTime:               a.EndTime,
		Reason:                a.Reason,
		ConsultationType:      string(a.ConsultationType),
		Status:                string(a.Status),
		PaymentAmount:         a.PaymentAmount,
		ChatEnabled:           a.ChatEnabled,
		MeetingLink:           a.MeetingLink,
		ConsultationStartedAt: a.ConsultationStartedAt,
		CancellationReason:    a.CancellationReason,
	}
	if a.MedicalReport != nil {
		resp.MedicalReport = &FileRefResponse{
			FileName:   a.MedicalReport.FileName,
			UploadedAt: a.MedicalReport.UploadedAt,
		}
	}
	return resp
}

func toDetailResponse(d *booking.AppointmentDetail) AppointmentResponse {
	resp := toAppointmentResponse(&d.Appointment)
	if d.Patient != nil {
		resp.Patient = &PersonResponse{ID: d.Patient.ID, Name: d.Patient.Name, Email: d.Patient.Email}
	}
	if d.Doctor != nil {
		resp.Doctor = &PersonResponse{ID: d.Doctor.ID, Name: d.Doctor.Name, Email: d.Doctor.Email}
	}
	return resp
}

func toChatResponse(c *chat.Chat) *ChatResponse {
	if c == nil {
		return nil
	}
	resp := &ChatResponse{
		ID:           c.ID,
		Participants: c.Participants,
		Messages:     make([]MessageResponse, 0, len(c.Messages)),
	}
	for _, m := range c.Messages {
		resp.Messages = append(resp.Messages, MessageResponse{
			ID:          m.ID,
			SenderID:    m.SenderID,
			Content:     m.Content,
			MessageType: m.MessageType,
			CreatedAt:   m.CreatedAt,
		})
	}
	return resp
}

func toSlotResponse(s booking.TimeSlot) SlotResponse {
	return SlotResponse{
		ID:        s.ID,
		DoctorID:  s.DoctorID,
		Date:      s.Date.Format("2006-01-02"),
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		IsBooked:  s.IsBooked,
	}
}
