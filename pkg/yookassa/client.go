package yookassa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/studyassist/studyassist-backend/pkg/config"
)

const defaultBaseURL = "https://api.yookassa.ru/v3"

// Client talks to the YooKassa payments API using shop credentials.
type Client struct {
	baseURL    string
	shopID     string
	secretKey  string
	httpClient *http.Client
}

// NewClient builds a gateway client from configuration.
func NewClient(cfg config.YooKassaConfig) (*Client, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("yookassa shop id and secret key are required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    defaultBaseURL,
		shopID:     cfg.ShopID,
		secretKey:  cfg.SecretKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// WithBaseURL overrides the API endpoint, used by tests.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

// CreatePayment registers a payment with the gateway. Every call sends a
// fresh Idempotence-Key so a retried request never collides with a prior
// attempt at the gateway.
func (c *Client) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*Payment, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal payment request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build payment request: %w", err)
	}
	httpReq.SetBasicAuth(c.shopID, c.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotence-Key", uuid.NewString())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send payment request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read payment response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr APIError
		if jsonErr := json.Unmarshal(payload, &apiErr); jsonErr == nil && apiErr.Description != "" {
			return nil, fmt.Errorf("yookassa %d: %s (%s)", resp.StatusCode, apiErr.Description, apiErr.Code)
		}
		return nil, fmt.Errorf("yookassa returned status %d", resp.StatusCode)
	}

	var payment Payment
	if err := json.Unmarshal(payload, &payment); err != nil {
		return nil, fmt.Errorf("decode payment response: %w", err)
	}
	if payment.ID == "" {
		return nil, fmt.Errorf("yookassa response missing payment id")
	}
	return &payment, nil
}

// GetPayment fetches the current state of a payment.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	if paymentID == "" {
		return nil, fmt.Errorf("payment id is required")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/payments/"+paymentID, nil)
	if err != nil {
		return nil, fmt.Errorf("build payment lookup: %w", err)
	}
	httpReq.SetBasicAuth(c.shopID, c.secretKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send payment lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yookassa returned status %d", resp.StatusCode)
	}

	var payment Payment
	if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
		return nil, fmt.Errorf("decode payment: %w", err)
	}
	return &payment, nil
}
