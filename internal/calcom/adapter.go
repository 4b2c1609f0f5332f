package calcom

import (
	"context"
	"errors"

	"github.com/emprendigo/platform/internal/bookings"
)

// Adapter adapts the Cal.com client to the interfaces the rest of the
// platform programs against.
type Adapter struct {
	client *Client
}

// NewAdapter wraps a client.
func NewAdapter(client *Client) *Adapter {
	return &Adapter{client: client}
}

var _ bookings.SchedulingProvider = (*Adapter)(nil)

// CreateEvent mirrors an approved booking onto the tenant's calendar.
func (a *Adapter) CreateEvent(ctx context.Context, req bookings.EventRequest) (*bookings.ExternalEvent, error) {
	result, err := a.client.CreateBooking(ctx, req.APIKey, BookingRequest{
		EventTypeID:  req.EventTypeID,
		Start:        req.Start,
		End:          req.End,
		AttendeeName: req.CustomerName,
		Email:        req.Email,
		Phone:        req.Phone,
		Notes:        req.Notes,
	})
	if err != nil {
		return nil, err
	}
	return &bookings.ExternalEvent{ID: result.ID, UID: result.UID}, nil
}

// CancelEvent removes the mirrored event, forwarding the cancellation reason.
func (a *Adapter) CancelEvent(ctx context.Context, apiKey, uid, reason string) error {
	return a.client.CancelBooking(ctx, apiKey, uid, reason)
}

// ValidateKey reports whether an API key belongs to a live Cal.com account.
// A rejected key is (false, nil); only transport failures surface as errors.
func (a *Adapter) ValidateKey(ctx context.Context, apiKey string) (bool, error) {
	_, err := a.client.ValidateKey(ctx, apiKey)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Kind == KindRejected {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Username returns the account username behind an API key, used to fill the
// tenant's scheduling profile at connect time.
func (a *Adapter) Username(ctx context.Context, apiKey string) (string, error) {
	return a.client.ValidateKey(ctx, apiKey)
}
