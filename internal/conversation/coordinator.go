package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/emprendigo/platform/internal/customers"
	"github.com/emprendigo/platform/internal/tenants"
	"github.com/emprendigo/platform/internal/whatsapp"
	"github.com/emprendigo/platform/pkg/logging"
)

var coordinatorTracer = otel.Tracer("emprendigo.internal.conversation.coordinator")

var inboundMessagesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "emprendigo",
		Subsystem: "conversation",
		Name:      "inbound_messages_total",
		Help:      "Inbound WhatsApp messages by processing outcome",
	},
	[]string{"outcome"}, // processed, unknown_tenant, busy, error
)

var agentTurnSeconds = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "emprendigo",
		Subsystem: "conversation",
		Name:      "agent_turn_seconds",
		Help:      "Duration of full agent turns including the reply send",
		Buckets:   []float64{0.5, 1, 2, 3, 5, 8, 13, 21, 34},
	},
)

func init() {
	prometheus.MustRegister(inboundMessagesTotal)
	prometheus.MustRegister(agentTurnSeconds)
}

// TenantResolver routes an inbound message to the tenant owning the number.
type TenantResolver interface {
	GetByWhatsAppNumberID(ctx context.Context, phoneNumberID string) (*tenants.Tenant, error)
}

// CustomerDirectory registers the sender on first contact.
type CustomerDirectory interface {
	UpsertByPhone(ctx context.Context, tenantID uuid.UUID, req *customers.UpsertRequest) (*customers.Customer, error)
}

// ReplySender delivers the agent's reply back over WhatsApp.
type ReplySender interface {
	SendText(ctx context.Context, accessToken, phoneNumberID, to, body string) (string, error)
}

// TranscriptStore is the persistence surface the coordinator drives.
type TranscriptStore interface {
	Ensure(ctx context.Context, tenantID, customerID uuid.UUID) (*Conversation, error)
	AppendMessage(ctx context.Context, conversationID uuid.UUID, direction, messageType, content string, metadata json.RawMessage, whatsappMessageID string) (*Message, error)
	RecentHistory(ctx context.Context, conversationID uuid.UUID, limit int) ([]*Message, error)
}

// Checkpoints is the agent state surface the coordinator drives.
type Checkpoints interface {
	Load(ctx context.Context, conversationID uuid.UUID) (AgentState, error)
	Save(ctx context.Context, conversationID uuid.UUID, state AgentState) error
	Clear(ctx context.Context, conversationID uuid.UUID) error
}

// Responder runs one agent turn.
type Responder interface {
	Respond(ctx context.Context, in TurnInput, state AgentState) (TurnResult, error)
}

// Coordinator owns the inbound pipeline: route to tenant, register the
// customer, log the message, run the agent under the per-conversation lock,
// and send the reply.
type Coordinator struct {
	tenants   TenantResolver
	customers CustomerDirectory
	store     TranscriptStore
	states    Checkpoints
	locker    Locker
	agent     Responder
	sender    ReplySender
	turnLimit time.Duration
	logger    *logging.Logger
}

// NewCoordinator wires the inbound pipeline.
func NewCoordinator(
	tenantResolver TenantResolver,
	customerDir CustomerDirectory,
	store TranscriptStore,
	states Checkpoints,
	locker Locker,
	agent Responder,
	sender ReplySender,
	turnLimit time.Duration,
	logger *logging.Logger,
) *Coordinator {
	if turnLimit <= 0 {
		turnLimit = 45 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Coordinator{
		tenants:   tenantResolver,
		customers: customerDir,
		store:     store,
		states:    states,
		locker:    locker,
		agent:     agent,
		sender:    sender,
		turnLimit: turnLimit,
		logger:    logger.Component("coordinator"),
	}
}

// ProcessInbound handles one message lifted from a webhook delivery. Errors
// are logged and swallowed by the webhook handler; Meta only needs a 200.
func (c *Coordinator) ProcessInbound(ctx context.Context, msg whatsapp.InboundMessage) error {
	ctx, span := coordinatorTracer.Start(ctx, "conversation.process_inbound")
	defer span.End()
	span.SetAttributes(attribute.String("phone_number_id", msg.PhoneNumberID))

	start := time.Now()

	tenant, err := c.tenants.GetByWhatsAppNumberID(ctx, msg.PhoneNumberID)
	if err != nil {
		if errors.Is(err, tenants.ErrTenantNotFound) {
			inboundMessagesTotal.WithLabelValues("unknown_tenant").Inc()
			c.logger.Warn("inbound message for unknown number", "phone_number_id", msg.PhoneNumberID)
			return nil
		}
		inboundMessagesTotal.WithLabelValues("error").Inc()
		return err
	}

	name := strings.TrimSpace(msg.ContactName)
	if name == "" {
		name = msg.From
	}
	customer, err := c.customers.UpsertByPhone(ctx, tenant.ID, &customers.UpsertRequest{
		FirstName:     name,
		Phone:         msg.From,
		WhatsAppOptIn: true,
		Source:        "whatsapp",
	})
	if err != nil {
		inboundMessagesTotal.WithLabelValues("error").Inc()
		return err
	}

	conv, err := c.store.Ensure(ctx, tenant.ID, customer.ID)
	if err != nil {
		inboundMessagesTotal.WithLabelValues("error").Inc()
		return err
	}

	if _, err := c.store.AppendMessage(ctx, conv.ID, DirectionInbound, msg.Type, msg.Body, nil, msg.MessageID); err != nil {
		inboundMessagesTotal.WithLabelValues("error").Inc()
		return err
	}

	err = c.locker.WithConversationLock(ctx, conv.ID, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, c.turnLimit)
		defer cancel()
		return c.runTurn(ctx, tenant, conv, msg)
	})
	if err != nil {
		if errors.Is(err, ErrBusy) {
			inboundMessagesTotal.WithLabelValues("busy").Inc()
			c.logger.Warn("conversation busy, message logged without reply",
				"conversation_id", conv.ID, "tenant_id", tenant.ID)
			return nil
		}
		inboundMessagesTotal.WithLabelValues("error").Inc()
		return err
	}

	inboundMessagesTotal.WithLabelValues("processed").Inc()
	agentTurnSeconds.Observe(time.Since(start).Seconds())
	return nil
}

func (c *Coordinator) runTurn(ctx context.Context, tenant *tenants.Tenant, conv *Conversation, msg whatsapp.InboundMessage) error {
	state, err := c.states.Load(ctx, conv.ID)
	if err != nil {
		return err
	}

	history, err := c.store.RecentHistory(ctx, conv.ID, maxHistoryMessages)
	if err != nil {
		return err
	}
	// The inbound message was already appended; keep it out of the history so
	// the agent sees it exactly once.
	if n := len(history); n > 0 && history[n-1].WhatsAppMessageID == msg.MessageID {
		history = history[:n-1]
	}

	result, err := c.agent.Respond(ctx, TurnInput{
		Tenant:         tenant,
		ConversationID: conv.ID,
		History:        history,
		Inbound:        msg.Body,
	}, state)
	if err != nil {
		return err
	}

	if result.Done {
		if err := c.states.Clear(ctx, conv.ID); err != nil {
			c.logger.Warn("failed to clear agent state", "error", err, "conversation_id", conv.ID)
		}
	} else if err := c.states.Save(ctx, conv.ID, result.State); err != nil {
		c.logger.Warn("failed to save agent state", "error", err, "conversation_id", conv.ID)
	}

	if strings.TrimSpace(result.Reply) == "" {
		return nil
	}

	// The reply send is best effort: the transcript keeps the agent's answer
	// even when the provider drops it.
	sentID, sendErr := c.sender.SendText(ctx, tenant.WhatsAppAccessToken, tenant.WhatsAppPhoneNumberID, msg.From, result.Reply)
	if sendErr != nil {
		c.logger.Error("failed to send reply", "error", sendErr,
			"tenant_id", tenant.ID, "conversation_id", conv.ID)
	}
	if _, err := c.store.AppendMessage(ctx, conv.ID, DirectionOutbound, "text", result.Reply, nil, sentID); err != nil {
		return err
	}
	return nil
}
