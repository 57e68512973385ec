// Package payment wraps the external payment provider. The provider's
// response gates the paid-state transition of reservation orders; its
// failures are returned as-is and never retried here.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Client struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

func New(baseURL, secretKey string) *Client {
	return &Client{
		baseURL:   baseURL,
		secretKey: secretKey,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

type ConfirmInput struct {
	PaymentKey string `json:"paymentKey"`
	OrderID    string `json:"orderId"`
	Amount     int64  `json:"amount"`
}

type ConfirmResult struct {
	Status     string `json:"status"`
	OrderID    string `json:"orderId"`
	ApprovedAt string `json:"approvedAt"`
}

// ProviderError carries the provider's own status, code, and message.
// Callers surface these verbatim; swallowing or rewording them hides
// the reason a confirmation failed.
type ProviderError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("payment provider %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("payment provider status %d", e.StatusCode)
}

// Confirm settles a payment with the provider. A non-2xx response is
// returned verbatim as an error; the caller decides how much of it to
// expose.
func (c *Client) Confirm(ctx context.Context, input ConfirmInput) (ConfirmResult, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return ConfirmResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/payments/confirm", bytes.NewReader(body))
	if err != nil {
		return ConfirmResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.secretKey, "")

	resp, err := c.client.Do(req)
	if err != nil {
		return ConfirmResult{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ConfirmResult{}, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		provErr := &ProviderError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(raw, provErr)
		return ConfirmResult{}, provErr
	}

	var result ConfirmResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return ConfirmResult{}, err
	}
	return result, nil
}
