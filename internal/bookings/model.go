package bookings

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status is the booking lifecycle state.
type Status string

const (
	StatusPendingApproval Status = "PENDING_APPROVAL"
	StatusApproved        Status = "APPROVED"
	StatusRejected        Status = "REJECTED"
	StatusCancelled       Status = "CANCELLED"
	StatusCompleted       Status = "COMPLETED"
)

// PaymentStatus tracks the payment track of a booking, independent of Status.
type PaymentStatus string

const (
	PaymentPending             PaymentStatus = "PENDING"
	PaymentPendingVerification PaymentStatus = "PENDING_VERIFICATION"
	PaymentPaid                PaymentStatus = "PAID"
	PaymentRejected            PaymentStatus = "REJECTED"
	PaymentRefunded            PaymentStatus = "REFUNDED"
)

// Source says where the booking entered the system.
type Source string

const (
	SourceWeb      Source = "WEB"
	SourceWhatsApp Source = "WHATSAPP"
	SourceManual   Source = "MANUAL"
)

// Booking carries a price snapshot taken at creation; later catalog edits do
// not change what the customer was quoted.
type Booking struct {
	ID                uuid.UUID       `json:"id"`
	TenantID          uuid.UUID       `json:"tenant_id"`
	CustomerID        uuid.UUID       `json:"customer_id"`
	ServiceID         uuid.UUID       `json:"service_id"`
	Status            Status          `json:"status"`
	Source            Source          `json:"source"`
	StartTime         time.Time       `json:"start_time"`
	EndTime           time.Time       `json:"end_time"`
	CalComBookingID   string          `json:"calcom_booking_id,omitempty"`
	CalComBookingUID  string          `json:"calcom_booking_uid,omitempty"`
	CalComEventTypeID *int            `json:"calcom_event_type_id,omitempty"`
	PaymentStatus     PaymentStatus   `json:"payment_status"`
	PaymentProof      json.RawMessage `json:"payment_proof,omitempty"`
	PriceAmount       float64         `json:"price_amount"`
	PriceCurrency     string          `json:"price_currency"`
	CustomerNotes     string          `json:"customer_notes,omitempty"`
	RejectionReason   string          `json:"rejection_reason,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Active reports whether the booking occupies its time slot.
func (b *Booking) Active() bool {
	return b.Status != StatusCancelled && b.Status != StatusRejected
}

// CreateRequest creates a booking in PENDING_APPROVAL.
type CreateRequest struct {
	CustomerID    uuid.UUID `json:"customer_id"`
	ServiceID     uuid.UUID `json:"service_id"`
	StartTime     time.Time `json:"start_time"`
	Source        Source    `json:"source"`
	CustomerNotes string    `json:"customer_notes"`
}

// RejectRequest carries the owner's rejection reason.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// CancelRequest carries the optional cancellation reason.
type CancelRequest struct {
	Reason string `json:"reason"`
}
