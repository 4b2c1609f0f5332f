// Package calcom talks to the Cal.com v1 REST API with per-tenant API keys.
package calcom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/emprendigo/platform/pkg/logging"
)

var calcomTracer = otel.Tracer("emprendigo.internal.calcom")

// ErrorKind separates unreachable-provider failures from requests the
// provider understood and refused.
type ErrorKind string

const (
	KindConnection ErrorKind = "connection"
	KindRejected   ErrorKind = "rejected"
)

// APIError is a failed Cal.com call.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("calcom: %s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("calcom: %s: %s", e.Kind, e.Message)
}

// Booking creation defaults for the Colombian market the platform serves.
const (
	defaultTimeZone = "America/Bogota"
	defaultLanguage = "es"
)

// Client is a thin Cal.com v1 API client. API keys are passed per call
// because every tenant brings its own.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewClient builds a client against the given base URL
// (https://api.cal.com/v1 in production, a test server in tests).
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
		logger:     logger.Component("calcom"),
	}
}

// ValidateKey checks an API key by fetching the key owner's profile.
// It returns the username Cal.com reports for the key.
func (c *Client) ValidateKey(ctx context.Context, apiKey string) (string, error) {
	ctx, span := calcomTracer.Start(ctx, "calcom.validate_key")
	defer span.End()

	body, err := c.do(ctx, http.MethodGet, "/me", apiKey, nil)
	if err != nil {
		return "", err
	}

	var parsed struct {
		User struct {
			Username string `json:"username"`
		} `json:"user"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &APIError{Kind: KindConnection, Message: "unexpected /me response shape"}
	}
	return parsed.User.Username, nil
}

// BookingRequest creates an event on the tenant's calendar.
type BookingRequest struct {
	EventTypeID  int
	Start        time.Time
	End          time.Time
	AttendeeName string
	Email        string
	Phone        string
	Notes        string
}

// BookingResult is the created event's identity on Cal.com.
type BookingResult struct {
	ID  string
	UID string
}

// CreateBooking creates a booking on Cal.com.
func (c *Client) CreateBooking(ctx context.Context, apiKey string, req BookingRequest) (*BookingResult, error) {
	ctx, span := calcomTracer.Start(ctx, "calcom.create_booking")
	defer span.End()
	span.SetAttributes(attribute.Int("event_type_id", req.EventTypeID))

	payload := map[string]any{
		"eventTypeId": req.EventTypeID,
		"start":       req.Start.UTC().Format(time.RFC3339),
		"end":         req.End.UTC().Format(time.RFC3339),
		"responses": map[string]any{
			"name":  req.AttendeeName,
			"email": req.Email,
			"phone": req.Phone,
		},
		"timeZone": defaultTimeZone,
		"language": defaultLanguage,
		"metadata": map[string]any{},
	}
	if req.Notes != "" {
		payload["description"] = req.Notes
	}

	body, err := c.do(ctx, http.MethodPost, "/bookings", apiKey, payload)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		ID  json.Number `json:"id"`
		UID string      `json:"uid"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &APIError{Kind: KindConnection, Message: "unexpected booking response shape"}
	}
	c.logger.Info("calcom booking created", "booking_uid", parsed.UID)
	return &BookingResult{ID: parsed.ID.String(), UID: parsed.UID}, nil
}

// CancelBooking removes a booking on Cal.com, sending the cancellation reason
// in the request body. Cancelling an already-gone booking returns a rejected
// error the callers treat as best effort.
func (c *Client) CancelBooking(ctx context.Context, apiKey, bookingUID, reason string) error {
	ctx, span := calcomTracer.Start(ctx, "calcom.cancel_booking")
	defer span.End()

	payload := map[string]any{"reason": reason}
	_, err := c.do(ctx, http.MethodDelete, "/bookings/"+url.PathEscape(bookingUID)+"/cancel", apiKey, payload)
	return err
}

func (c *Client) do(ctx context.Context, method, path, apiKey string, payload any) ([]byte, error) {
	endpoint := c.baseURL + path + "?apiKey=" + url.QueryEscape(apiKey)

	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("calcom: marshal payload: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("calcom: build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Kind: KindConnection, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	if resp.StatusCode >= 500 {
		apiErr.Kind = KindConnection
	} else {
		apiErr.Kind = KindRejected
	}
	return nil, apiErr
}
