package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/emprendigo/platform/internal/customers"
	"github.com/emprendigo/platform/internal/observability/metrics"
	"github.com/emprendigo/platform/internal/services"
	"github.com/emprendigo/platform/internal/tenants"
	"github.com/emprendigo/platform/pkg/logging"
)

var bookingTracer = otel.Tracer("emprendigo.internal.bookings")

// EventRequest is what the scheduling provider needs to mirror a booking.
type EventRequest struct {
	APIKey       string
	Username     string
	EventTypeID  int
	Start        time.Time
	End          time.Time
	CustomerName string
	Email        string
	Phone        string
	Notes        string
}

// ExternalEvent identifies the mirrored event on the provider side.
type ExternalEvent struct {
	ID  string
	UID string
}

// SchedulingProvider mirrors approved bookings onto an external calendar.
type SchedulingProvider interface {
	CreateEvent(ctx context.Context, req EventRequest) (*ExternalEvent, error)
	CancelEvent(ctx context.Context, apiKey, uid, reason string) error
}

// Store is the persistence surface the engine drives.
type Store interface {
	CreateInSlot(ctx context.Context, p insertParams) (*Booking, error)
	GetForTenant(ctx context.Context, tenantID, bookingID uuid.UUID) (*Booking, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, status Status, limit, offset int) ([]*Booking, error)
	SetApproved(ctx context.Context, tenantID, bookingID uuid.UUID, externalID, externalUID string) (*Booking, error)
	SetStatus(ctx context.Context, tenantID, bookingID uuid.UUID, status Status, reason string) (*Booking, error)
}

// Catalog resolves services for the price snapshot.
type Catalog interface {
	GetForTenant(ctx context.Context, tenantID, serviceID uuid.UUID) (*services.Service, error)
}

// CustomerDirectory resolves the customer attached to a booking.
type CustomerDirectory interface {
	GetForTenant(ctx context.Context, tenantID, customerID uuid.UUID) (*customers.Customer, error)
}

// TenantDirectory resolves scheduling credentials at approval time.
type TenantDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*tenants.Tenant, error)
}

// Service runs the booking lifecycle.
type Service struct {
	store     Store
	catalog   Catalog
	customers CustomerDirectory
	tenants   TenantDirectory
	scheduler SchedulingProvider
	metrics   *metrics.BookingMetrics
	logger    *logging.Logger
}

// NewService wires the booking engine. metrics may be nil in tests.
func NewService(store Store, catalog Catalog, customerDir CustomerDirectory, tenantDir TenantDirectory, scheduler SchedulingProvider, m *metrics.BookingMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:     store,
		catalog:   catalog,
		customers: customerDir,
		tenants:   tenantDir,
		scheduler: scheduler,
		metrics:   m,
		logger:    logger.Component("bookings"),
	}
}

// Create makes a PENDING_APPROVAL booking. The end time and price come from
// the catalog at this moment and are frozen on the row.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, req *CreateRequest) (*Booking, error) {
	ctx, span := bookingTracer.Start(ctx, "bookings.create")
	defer span.End()
	span.SetAttributes(attribute.String("tenant_id", tenantID.String()))

	if !req.StartTime.After(time.Now()) {
		return nil, ErrInvalidTimeRange
	}
	source := req.Source
	switch source {
	case SourceWeb, SourceWhatsApp, SourceManual:
	case "":
		source = SourceWeb
	default:
		return nil, fmt.Errorf("bookings: unknown source %q", req.Source)
	}

	svc, err := s.catalog.GetForTenant(ctx, tenantID, req.ServiceID)
	if err != nil {
		if errors.Is(err, services.ErrServiceNotFound) {
			return nil, ErrInvalidService
		}
		return nil, err
	}
	if !svc.IsActive {
		return nil, ErrInvalidService
	}

	if _, err := s.customers.GetForTenant(ctx, tenantID, req.CustomerID); err != nil {
		if errors.Is(err, customers.ErrCustomerNotFound) {
			return nil, ErrInvalidCustomer
		}
		return nil, err
	}

	booking, err := s.store.CreateInSlot(ctx, insertParams{
		TenantID:      tenantID,
		CustomerID:    req.CustomerID,
		ServiceID:     req.ServiceID,
		Source:        source,
		StartTime:     req.StartTime,
		EndTime:       req.StartTime.Add(time.Duration(svc.DurationMinutes) * time.Minute),
		PriceAmount:   svc.PriceAmount,
		PriceCurrency: svc.PriceCurrency,
		EventTypeID:   svc.CalComEventTypeID,
		CustomerNotes: req.CustomerNotes,
	})
	if err != nil {
		if errors.Is(err, ErrSlotConflict) {
			s.metrics.ObserveConflict()
		}
		return nil, err
	}
	s.metrics.ObserveCreated(string(booking.Source))

	s.logger.Info("booking created",
		"tenant_id", tenantID, "booking_id", booking.ID,
		"service_id", booking.ServiceID, "start_time", booking.StartTime, "source", booking.Source)
	return booking, nil
}

// Get fetches a booking scoped to the tenant.
func (s *Service) Get(ctx context.Context, tenantID, bookingID uuid.UUID) (*Booking, error) {
	return s.store.GetForTenant(ctx, tenantID, bookingID)
}

// List returns tenant bookings, optionally filtered by status.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, status Status, limit, offset int) ([]*Booking, error) {
	return s.store.ListByTenant(ctx, tenantID, status, limit, offset)
}

// Approve confirms a pending booking and mirrors it to the scheduling
// provider. Approving an already-approved booking is a no-op that makes no
// provider call. If the provider call fails the booking stays
// PENDING_APPROVAL; there is no half-approved state.
func (s *Service) Approve(ctx context.Context, tenantID, bookingID uuid.UUID) (*Booking, error) {
	ctx, span := bookingTracer.Start(ctx, "bookings.approve")
	defer span.End()
	span.SetAttributes(attribute.String("booking_id", bookingID.String()))

	booking, err := s.store.GetForTenant(ctx, tenantID, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status == StatusApproved {
		return booking, nil
	}
	if booking.Status != StatusPendingApproval {
		return nil, fmt.Errorf("%w: cannot approve from %s", ErrInvalidTransition, booking.Status)
	}

	var externalID, externalUID string
	eventTypeID := 0
	if booking.CalComEventTypeID != nil {
		eventTypeID = *booking.CalComEventTypeID
	}
	if eventTypeID != 0 {
		tenant, err := s.tenants.GetByID(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		if !tenant.CalComConnected() {
			return nil, ErrNotConnected
		}

		customer, err := s.customers.GetForTenant(ctx, tenantID, booking.CustomerID)
		if err != nil {
			return nil, err
		}

		event, err := s.scheduler.CreateEvent(ctx, EventRequest{
			APIKey:       tenant.CalComAPIKey,
			Username:     tenant.CalComUsername,
			EventTypeID:  eventTypeID,
			Start:        booking.StartTime,
			End:          booking.EndTime,
			CustomerName: customer.FullName(),
			Email:        customer.Email,
			Phone:        customer.Phone,
			Notes:        booking.CustomerNotes,
		})
		if err != nil {
			s.logger.Error("scheduling provider rejected approval",
				"error", err, "tenant_id", tenantID, "booking_id", bookingID)
			return nil, fmt.Errorf("%w: %v", ErrSchedulingOffline, err)
		}
		externalID, externalUID = event.ID, event.UID
	}

	approved, err := s.store.SetApproved(ctx, tenantID, bookingID, externalID, externalUID)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveDecision("approved")
	s.logger.Info("booking approved", "tenant_id", tenantID, "booking_id", bookingID, "external_uid", externalUID)
	return approved, nil
}

// Reject turns the booking down from whatever state it is in, storing the
// reason. No provider interaction. Rejecting twice is a no-op.
func (s *Service) Reject(ctx context.Context, tenantID, bookingID uuid.UUID, reason string) (*Booking, error) {
	booking, err := s.store.GetForTenant(ctx, tenantID, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status == StatusRejected {
		return booking, nil
	}

	rejected, err := s.store.SetStatus(ctx, tenantID, bookingID, StatusRejected, reason)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveDecision("rejected")
	s.logger.Info("booking rejected", "tenant_id", tenantID, "booking_id", bookingID, "reason", reason)
	return rejected, nil
}

// Cancel releases a booking's slot and stores the reason. The remote event
// delete is best effort: a provider failure is logged and the local
// cancellation proceeds anyway.
func (s *Service) Cancel(ctx context.Context, tenantID, bookingID uuid.UUID, reason string) (*Booking, error) {
	ctx, span := bookingTracer.Start(ctx, "bookings.cancel")
	defer span.End()

	if reason == "" {
		reason = "Host cancelled"
	}

	booking, err := s.store.GetForTenant(ctx, tenantID, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status == StatusCancelled {
		return booking, nil
	}
	if booking.Status == StatusRejected || booking.Status == StatusCompleted {
		return nil, fmt.Errorf("%w: cannot cancel from %s", ErrInvalidTransition, booking.Status)
	}

	if booking.CalComBookingUID != "" {
		tenant, err := s.tenants.GetByID(ctx, tenantID)
		if err == nil && tenant.CalComConnected() {
			if err := s.scheduler.CancelEvent(ctx, tenant.CalComAPIKey, booking.CalComBookingUID, reason); err != nil {
				s.logger.Warn("remote event cancellation failed, cancelling locally anyway",
					"error", err, "tenant_id", tenantID, "booking_id", bookingID,
					"external_uid", booking.CalComBookingUID)
			}
		}
	}

	cancelled, err := s.store.SetStatus(ctx, tenantID, bookingID, StatusCancelled, reason)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveDecision("cancelled")
	s.logger.Info("booking cancelled", "tenant_id", tenantID, "booking_id", bookingID, "reason", reason)
	return cancelled, nil
}

// Complete marks an approved booking as done.
func (s *Service) Complete(ctx context.Context, tenantID, bookingID uuid.UUID) (*Booking, error) {
	booking, err := s.store.GetForTenant(ctx, tenantID, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status == StatusCompleted {
		return booking, nil
	}
	if booking.Status != StatusApproved {
		return nil, fmt.Errorf("%w: cannot complete from %s", ErrInvalidTransition, booking.Status)
	}
	return s.store.SetStatus(ctx, tenantID, bookingID, StatusCompleted, "")
}
