// Package whatsapp sends and receives messages through the Meta WhatsApp
// Cloud API using each tenant's own access token.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/emprendigo/platform/pkg/logging"
)

var whatsappTracer = otel.Tracer("emprendigo.internal.whatsapp")

var ErrSendFailed = errors.New("whatsapp: send failed")

// Client is a thin Cloud API client. Credentials are passed per call because
// every tenant brings its own phone number and token.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewClient builds a client against the given Graph API base URL
// (https://graph.facebook.com/v21.0 in production, a test server in tests).
func NewClient(baseURL string, timeout time.Duration, logger *logging.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Component("whatsapp"),
	}
}

// SendText delivers a text message from the tenant's number. It returns the
// provider message id for threading into the conversation log.
func (c *Client) SendText(ctx context.Context, accessToken, phoneNumberID, to, body string) (string, error) {
	ctx, span := whatsappTracer.Start(ctx, "whatsapp.send_text")
	defer span.End()
	span.SetAttributes(attribute.String("phone_number_id", phoneNumberID))

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]any{"body": body},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("whatsapp: marshal payload: %w", err)
	}

	endpoint := c.baseURL + "/" + url.PathEscape(phoneNumberID) + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("whatsapp: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 16<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("cloud api send failed",
			"status", resp.StatusCode, "phone_number_id", phoneNumberID, "body", string(respBody))
		return "", fmt.Errorf("%w: status %d", ErrSendFailed, resp.StatusCode)
	}

	var parsed struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(respBody, &parsed); err == nil && len(parsed.Messages) > 0 {
		return parsed.Messages[0].ID, nil
	}
	return "", nil
}

// ValidateToken checks an access token against the Graph API. A token the
// API refuses is (false, nil); transport failures surface as errors.
func (c *Client) ValidateToken(ctx context.Context, accessToken string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/me", nil)
	if err != nil {
		return false, fmt.Errorf("whatsapp: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("whatsapp: validate token: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden ||
		resp.StatusCode == http.StatusBadRequest:
		return false, nil
	default:
		return false, fmt.Errorf("whatsapp: validate token: status %d", resp.StatusCode)
	}
}
