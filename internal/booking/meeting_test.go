package booking

import (
	"testing"

	"github.com/google/uuid"
)

func TestMeetingLinker(t *testing.T) {
	id := uuid.MustParse("6e8bc430-9c3a-11d9-9669-0800200c9a66")

	tests := []struct {
		name    string
		baseURL string
		want    string
	}{
		{"plain base", "http://localhost:3000", "http://localhost:3000/video-call/6e8bc430-9c3a-11d9-9669-0800200c9a66"},
		{"trailing slash trimmed", "https://app.example.com/", "https://app.example.com/video-call/6e8bc430-9c3a-11d9-9669-0800200c9a66"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewMeetingLinker(tt.baseURL).Link(id); got != tt.want {
				t.Errorf("Link() = %q, want %q", got, tt.want)
			}
		})
	}
}
