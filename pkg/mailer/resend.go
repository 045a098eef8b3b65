package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/studyassist/studyassist-backend/pkg/config"
)

const resendEndpoint = "https://api.resend.com/emails"

// Message is a single transactional email.
type Message struct {
	To      []string `json:"to"`
	From    string   `json:"from"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

// ResendClient delivers email through the Resend HTTP API.
type ResendClient struct {
	endpoint   string
	apiKey     string
	from       string
	httpClient *http.Client
}

// NewResendClient builds the mailer from configuration.
func NewResendClient(cfg config.ResendConfig) (*ResendClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	from := cfg.From
	if from == "" {
		from = "StudyAssist <onboarding@resend.dev>"
	}
	return &ResendClient{
		endpoint:   resendEndpoint,
		apiKey:     cfg.APIKey,
		from:       from,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// WithEndpoint overrides the API endpoint, used by tests.
func (c *ResendClient) WithEndpoint(endpoint string) *ResendClient {
	c.endpoint = endpoint
	return c
}

// Send posts the message to the Resend API.
func (c *ResendClient) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("recipient is required")
	}
	if msg.From == "" {
		msg.From = c.from
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("resend returned status %d", resp.StatusCode)
	}
	return nil
}
