package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/emprendigo/platform/internal/bookings"
	"github.com/emprendigo/platform/internal/observability/metrics"
	"github.com/emprendigo/platform/pkg/logging"
)

var paymentTracer = otel.Tracer("emprendigo.internal.payments")

var (
	ErrAlreadyPaid  = errors.New("payments: booking is already paid")
	ErrMissingProof = errors.New("payments: transaction_id is required")
)

// Proof is the customer-submitted evidence of a manual transfer, stored
// verbatim on the booking row.
type Proof struct {
	TransactionID string    `json:"transaction_id"`
	Method        string    `json:"method,omitempty"`
	Amount        float64   `json:"amount,omitempty"`
	ImageURL      string    `json:"image_url,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	UploadedAt    time.Time `json:"uploaded_at"`
}

// BookingStore is the slice of the booking repository the payment track needs.
type BookingStore interface {
	GetForTenant(ctx context.Context, tenantID, bookingID uuid.UUID) (*bookings.Booking, error)
	SetPaymentProof(ctx context.Context, tenantID, bookingID uuid.UUID, proof json.RawMessage) (*bookings.Booking, error)
	SetPaymentStatus(ctx context.Context, tenantID, bookingID uuid.UUID, status bookings.PaymentStatus, reason string) (*bookings.Booking, error)
}

// Service runs manual payment verification. It only ever moves the payment
// track; the booking lifecycle status is the engine's to change.
type Service struct {
	store   BookingStore
	metrics *metrics.PaymentMetrics
	logger  *logging.Logger
}

// NewService wires the payment verification service. metrics may be nil in tests.
func NewService(store BookingStore, m *metrics.PaymentMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, metrics: m, logger: logger.Component("payments")}
}

// UploadProof attaches transfer evidence and moves the payment track to
// PENDING_VERIFICATION. A booking already marked PAID refuses new proof.
func (s *Service) UploadProof(ctx context.Context, tenantID, bookingID uuid.UUID, proof *Proof) (*bookings.Booking, error) {
	ctx, span := paymentTracer.Start(ctx, "payments.upload_proof")
	defer span.End()

	proof.Method = strings.TrimSpace(strings.ToLower(proof.Method))
	proof.TransactionID = strings.TrimSpace(proof.TransactionID)
	if proof.TransactionID == "" {
		return nil, ErrMissingProof
	}
	if proof.UploadedAt.IsZero() {
		proof.UploadedAt = time.Now().UTC()
	}

	booking, err := s.store.GetForTenant(ctx, tenantID, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.PaymentStatus == bookings.PaymentPaid {
		return nil, ErrAlreadyPaid
	}

	raw, err := json.Marshal(proof)
	if err != nil {
		return nil, fmt.Errorf("payments: encode proof: %w", err)
	}

	updated, err := s.store.SetPaymentProof(ctx, tenantID, bookingID, raw)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveProof()
	s.logger.Info("payment proof uploaded",
		"tenant_id", tenantID, "booking_id", bookingID, "method", proof.Method)
	return updated, nil
}

// Verify resolves the payment track whatever its current state: verified goes
// to PAID, otherwise REJECTED with the reason recorded. A mistaken rejection
// can be corrected by verifying again without a fresh proof upload. Neither
// outcome alters the booking status.
func (s *Service) Verify(ctx context.Context, tenantID, bookingID uuid.UUID, approved bool, reason string) (*bookings.Booking, error) {
	ctx, span := paymentTracer.Start(ctx, "payments.verify")
	defer span.End()

	booking, err := s.store.GetForTenant(ctx, tenantID, bookingID)
	if err != nil {
		return nil, err
	}
	if approved && booking.PaymentStatus == bookings.PaymentPaid {
		return booking, nil
	}

	if approved {
		updated, err := s.store.SetPaymentStatus(ctx, tenantID, bookingID, bookings.PaymentPaid, "")
		if err != nil {
			return nil, err
		}
		s.metrics.ObserveVerification("paid")
		s.logger.Info("payment verified", "tenant_id", tenantID, "booking_id", bookingID)
		return updated, nil
	}

	if strings.TrimSpace(reason) == "" {
		reason = "proof could not be verified"
	}
	updated, err := s.store.SetPaymentStatus(ctx, tenantID, bookingID, bookings.PaymentRejected,
		"Payment Rejected: "+reason)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveVerification("rejected")
	s.logger.Info("payment rejected", "tenant_id", tenantID, "booking_id", bookingID, "reason", reason)
	return updated, nil
}
