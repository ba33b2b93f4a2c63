package booking

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// MeetingLinker derives the video-call location for an appointment. The link
// is a pure function of the appointment id and the configured base URL, so
// every caller (service, chat message, notification) agrees on it.
type MeetingLinker struct {
	baseURL string
}

func NewMeetingLinker(baseURL string) MeetingLinker {
	return MeetingLinker{baseURL: strings.TrimRight(baseURL, "/")}
}

func (m MeetingLinker) Link(appointmentID uuid.UUID) string {
	return fmt.Sprintf("%s/video-call/%s", m.baseURL, appointmentID)
}
