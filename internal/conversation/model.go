package conversation

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrConversationNotFound = errors.New("conversation: conversation not found")
	ErrBusy                 = errors.New("conversation: another turn is in progress")
)

// Direction of a message relative to the business.
const (
	DirectionInbound  = "INBOUND"
	DirectionOutbound = "OUTBOUND"
)

// Conversation is one customer's WhatsApp thread with a tenant.
type Conversation struct {
	ID            uuid.UUID `json:"id"`
	TenantID      uuid.UUID `json:"tenant_id"`
	CustomerID    uuid.UUID `json:"customer_id"`
	Status        string    `json:"status"`
	UnreadCount   int       `json:"unread_count"`
	LastMessageAt time.Time `json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Message is one entry in a conversation's transcript.
type Message struct {
	ID                uuid.UUID       `json:"id"`
	ConversationID    uuid.UUID       `json:"conversation_id"`
	Direction         string          `json:"direction"`
	MessageType       string          `json:"message_type"`
	Content           string          `json:"content"`
	Metadata          json.RawMessage `json:"metadata,omitempty"`
	WhatsAppMessageID string          `json:"whatsapp_message_id,omitempty"`
	Status            string          `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Agent intents.
const (
	IntentInfo    = "INFO"
	IntentBooking = "BOOKING"
	IntentUnknown = "UNKNOWN"
)

// Booking collection steps the agent walks a customer through.
const (
	StepCollectingService = "COLLECTING_SERVICE"
	StepCollectingTime    = "COLLECTING_TIME"
	StepConfirmation      = "CONFIRMATION"
)

// AgentState is the per-conversation checkpoint the agent resumes from on
// the next inbound message. Merging is per field: a turn that extracts a new
// value overwrites, a turn that extracts nothing keeps what was there.
type AgentState struct {
	Intent      string `json:"intent"`
	Step        string `json:"step,omitempty"`
	ServiceName string `json:"service_name,omitempty"`
	TimeSlot    string `json:"time_slot,omitempty"`
	Notes       string `json:"notes,omitempty"`
	// RequiresPayment is set at confirmation when the matched service has a
	// nonzero price; free services confirm without payment instructions.
	RequiresPayment bool      `json:"requires_payment,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Merge folds freshly extracted fields into the state, new value wins per field.
func (s *AgentState) Merge(extracted AgentState) {
	if extracted.Intent != "" && extracted.Intent != IntentUnknown {
		s.Intent = extracted.Intent
	}
	if extracted.ServiceName != "" {
		s.ServiceName = extracted.ServiceName
	}
	if extracted.TimeSlot != "" {
		s.TimeSlot = extracted.TimeSlot
	}
	if extracted.Notes != "" {
		s.Notes = extracted.Notes
	}
	s.UpdatedAt = time.Now().UTC()
}
