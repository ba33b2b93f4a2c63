package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) CreateChat(ctx context.Context, appointmentID uuid.UUID, participants []uuid.UUID, senderID uuid.UUID, seedMessage string) (*Chat, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin chat tx: %w", err)
	}
	defer tx.Rollback(ctx)

	id := uuid.New()

	var c Chat
	// ON CONFLICT keeps chat creation idempotent per appointment: a repeated
	// confirm cannot produce a second thread.
	row := tx.QueryRow(ctx, `
		INSERT INTO chats (id, appointment_id, participants, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (appointment_id) DO UPDATE SET appointment_id = EXCLUDED.appointment_id
		RETURNING id, appointment_id, participants, created_at
	`, id, appointmentID, participants)
	if err := row.Scan(&c.ID, &c.AppointmentID, &c.Participants, &c.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert chat: %w", err)
	}

	if c.ID == id {
		_, err = tx.Exec(ctx, `
			INSERT INTO chat_messages (id, chat_id, sender_id, content, message_type, created_at)
			VALUES ($1, $2, $3, $4, $5, now())
		`, uuid.New(), c.ID, senderID, seedMessage, MessageTypeSystem)
		if err != nil {
			return nil, fmt.Errorf("insert seed message: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit chat tx: %w", err)
	}

	return &c, nil
}

func (s *PgStore) AppendSystemMessage(ctx context.Context, appointmentID, senderID uuid.UUID, content, messageType string) error {
	var chatID uuid.UUID
	err := s.pool.QueryRow(ctx, `
		SELECT id FROM chats WHERE appointment_id = $1
	`, appointmentID).Scan(&chatID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrChatNotFound
		}
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO chat_messages (id, chat_id, sender_id, content, message_type, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
	`, uuid.New(), chatID, senderID, content, messageType)
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}

	return nil
}

func (s *PgStore) FindByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Chat, error) {
	var c Chat
	err := s.pool.QueryRow(ctx, `
		SELECT id, appointment_id, participants, created_at
		FROM chats
		WHERE appointment_id = $1
	`, appointmentID).Scan(&c.ID, &c.AppointmentID, &c.Participants, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, chat_id, sender_id, content, message_type, created_at
		FROM chat_messages
		WHERE chat_id = $1
		ORDER BY created_at ASC
	`, c.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Content, &m.MessageType, &m.CreatedAt); err != nil {
			return nil, err
		}
		c.Messages = append(c.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &c, nil
}
