package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"
)

// Provider delivers one rendered message to one recipient.
type Provider interface {
	Send(ctx context.Context, recipient, subject, message string) error
}

// NewProvider picks a delivery provider by kind. Unknown kinds fall back to
// logging so a misconfigured deployment keeps booking instead of failing.
func NewProvider(kind, webhookURL, webhookToken string) Provider {
	switch kind {
	case "webhook":
		if webhookURL == "" {
			return LogProvider{}
		}
		return WebhookProvider{URL: webhookURL, Token: webhookToken}
	default:
		return LogProvider{}
	}
}

type LogProvider struct{}

func (LogProvider) Send(ctx context.Context, recipient, subject, message string) error {
	log.Printf("notify %s subject=%q: %s", recipient, subject, message)
	return nil
}

// WebhookProvider POSTs the message to an external mailer endpoint.
type WebhookProvider struct {
	URL   string
	Token string
}

func (p WebhookProvider) Send(ctx context.Context, recipient, subject, message string) error {
	payload := map[string]string{
		"recipient": recipient,
		"subject":   subject,
		"message":   message,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.Token)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return errors.New("notification webhook rejected request")
	}
	return nil
}
