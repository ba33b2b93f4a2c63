package chat

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	MessageTypeSystem      = "system"
	MessageTypeMeetingLink = "meeting-link"
)

var ErrChatNotFound = errors.New("chat not found")

type Message struct {
	ID          uuid.UUID
	ChatID      uuid.UUID
	SenderID    uuid.UUID
	Content     string
	MessageType string
	CreatedAt   time.Time
}

// Chat is the conversation thread unlocked when an appointment is confirmed.
// Participants are user ids (doctor first, patient second).
type Chat struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	Participants  []uuid.UUID
	Messages      []Message
	CreatedAt     time.Time
}

// Store contains the DB interactions for chats and their messages.
type Store interface {
	CreateChat(ctx context.Context, appointmentID uuid.UUID, participants []uuid.UUID, senderID uuid.UUID, seedMessage string) (*Chat, error)
	AppendSystemMessage(ctx context.Context, appointmentID, senderID uuid.UUID, content, messageType string) error
	FindByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Chat, error)
}
