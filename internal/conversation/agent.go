package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/emprendigo/platform/internal/llm"
	"github.com/emprendigo/platform/internal/services"
	"github.com/emprendigo/platform/internal/tenants"
	"github.com/emprendigo/platform/pkg/logging"
)

var agentTracer = otel.Tracer("emprendigo.internal.conversation.agent")

const maxHistoryMessages = 20

const extractionPrompt = `Eres el clasificador de un asistente de WhatsApp para un negocio.
Analiza el mensaje del cliente y responde SOLO con un objeto JSON, sin texto adicional:
{"intent": "INFO" | "BOOKING" | "UNKNOWN", "service_name": "...", "time_slot": "...", "notes": "..."}

- "intent" es BOOKING si el cliente quiere agendar, reservar o preguntar disponibilidad.
- "intent" es INFO si pregunta por servicios, precios, duración u otra información del negocio.
- "intent" es UNKNOWN si no puedes determinarlo.
- "service_name" es el servicio mencionado, tal como aparece en el catálogo si es posible; vacío si no menciona ninguno.
- "time_slot" es la fecha u hora deseada en las palabras del cliente; vacío si no menciona ninguna.
- "notes" es cualquier detalle adicional relevante; vacío si no hay.`

// ServiceCatalog is the slice of the catalog the agent reads.
type ServiceCatalog interface {
	ListByTenant(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]*services.Service, error)
	FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*services.Service, error)
}

// Agent runs one conversational turn: classify the inbound message, update
// the collected booking fields, and produce the next reply.
type Agent struct {
	llm     llm.Client
	catalog ServiceCatalog
	logger  *logging.Logger
}

// NewAgent wires the conversational agent.
func NewAgent(llmClient llm.Client, catalog ServiceCatalog, logger *logging.Logger) *Agent {
	if logger == nil {
		logger = logging.Default()
	}
	return &Agent{llm: llmClient, catalog: catalog, logger: logger.Component("agent")}
}

// TurnInput is everything one turn needs.
type TurnInput struct {
	Tenant         *tenants.Tenant
	ConversationID uuid.UUID
	History        []*Message
	Inbound        string
}

// TurnResult is the agent's reply plus the state to checkpoint.
type TurnResult struct {
	Reply string
	State AgentState
	// Done means the booking flow reached confirmation; the checkpoint is
	// cleared so the next message starts fresh.
	Done bool
}

// Respond runs one turn against the saved state.
func (a *Agent) Respond(ctx context.Context, in TurnInput, state AgentState) (TurnResult, error) {
	ctx, span := agentTracer.Start(ctx, "conversation.agent.respond")
	defer span.End()
	span.SetAttributes(attribute.String("conversation_id", in.ConversationID.String()))

	extracted := a.extract(ctx, in)
	state.Merge(extracted)
	span.SetAttributes(attribute.String("intent", state.Intent))

	switch state.Intent {
	case IntentBooking:
		return a.bookingTurn(ctx, in, state)
	case IntentInfo:
		reply, err := a.infoReply(ctx, in)
		if err != nil {
			return TurnResult{}, err
		}
		return TurnResult{Reply: reply, State: state}, nil
	default:
		reply := fmt.Sprintf("¡Hola! Soy el asistente de %s. Puedo darte información sobre nuestros servicios o ayudarte a agendar una cita. ¿Qué necesitas?", in.Tenant.BusinessName)
		return TurnResult{Reply: reply, State: state}, nil
	}
}

// extract classifies intent and lifts booking fields out of the message. A
// failed or malformed completion degrades to an empty extraction rather than
// failing the turn.
func (a *Agent) extract(ctx context.Context, in TurnInput) AgentState {
	resp, err := a.llm.Complete(ctx, llm.Request{
		System:      []string{extractionPrompt},
		Messages:    append(historyToChat(in.History), llm.ChatMessage{Role: llm.ChatRoleUser, Content: in.Inbound}),
		MaxTokens:   256,
		Temperature: 0,
	})
	if err != nil {
		a.logger.Warn("extraction completion failed", "error", err, "conversation_id", in.ConversationID)
		return AgentState{}
	}

	var parsed struct {
		Intent      string `json:"intent"`
		ServiceName string `json:"service_name"`
		TimeSlot    string `json:"time_slot"`
		Notes       string `json:"notes"`
	}
	if err := json.Unmarshal([]byte(stripCodeFences(resp.Text)), &parsed); err != nil {
		a.logger.Warn("extraction returned non-JSON", "conversation_id", in.ConversationID, "text", resp.Text)
		return AgentState{}
	}

	intent := strings.ToUpper(strings.TrimSpace(parsed.Intent))
	switch intent {
	case IntentInfo, IntentBooking:
	default:
		intent = IntentUnknown
	}
	return AgentState{
		Intent:      intent,
		ServiceName: strings.TrimSpace(parsed.ServiceName),
		TimeSlot:    strings.TrimSpace(parsed.TimeSlot),
		Notes:       strings.TrimSpace(parsed.Notes),
	}
}

// bookingTurn walks the collection steps. Service first, then time, then a
// confirmation summary. Confirmation never creates the booking itself; the
// owner approves from the dashboard.
func (a *Agent) bookingTurn(ctx context.Context, in TurnInput, state AgentState) (TurnResult, error) {
	tenantID := in.Tenant.ID

	var matched *services.Service
	if state.ServiceName != "" {
		svc, err := a.catalog.FindByName(ctx, tenantID, state.ServiceName)
		if err == nil {
			matched = svc
			state.ServiceName = svc.Name
		}
	}

	if matched == nil {
		state.Step = StepCollectingService
		names, err := a.serviceNames(ctx, tenantID)
		if err != nil {
			return TurnResult{}, err
		}
		reply := "¡Con gusto te ayudo a agendar! ¿Qué servicio te interesa?"
		if len(names) > 0 {
			reply += " Ofrecemos: " + strings.Join(names, ", ") + "."
		}
		return TurnResult{Reply: reply, State: state}, nil
	}

	if state.TimeSlot == "" {
		state.Step = StepCollectingTime
		reply := fmt.Sprintf("Perfecto, %s (%d min, %s %s). ¿Qué día y hora te gustaría?",
			matched.Name, matched.DurationMinutes, formatPrice(matched.PriceAmount), matched.PriceCurrency)
		return TurnResult{Reply: reply, State: state}, nil
	}

	state.Step = StepConfirmation
	state.RequiresPayment = matched.PriceAmount > 0
	reply := fmt.Sprintf("¡Listo! Registré tu solicitud de %s para %s. El negocio confirmará tu cita pronto por este mismo chat.",
		matched.Name, state.TimeSlot)
	if state.RequiresPayment {
		if payment := paymentInstructions(in.Tenant, matched); payment != "" {
			reply += " " + payment
		}
	}
	return TurnResult{Reply: reply, State: state, Done: true}, nil
}

// infoReply answers questions grounded on the tenant's catalog.
func (a *Agent) infoReply(ctx context.Context, in TurnInput) (string, error) {
	list, err := a.catalog.ListByTenant(ctx, in.Tenant.ID, true)
	if err != nil {
		return "", err
	}

	var catalog strings.Builder
	for _, svc := range list {
		fmt.Fprintf(&catalog, "- %s: %d minutos, %s %s", svc.Name, svc.DurationMinutes, formatPrice(svc.PriceAmount), svc.PriceCurrency)
		if svc.Description != "" {
			catalog.WriteString(". " + svc.Description)
		}
		catalog.WriteString("\n")
	}

	system := fmt.Sprintf(`Eres el asistente de WhatsApp de %s. Responde en español, en tono cercano y breve (máximo 3 frases), sin formato markdown.
Usa SOLO la información del catálogo para precios y duraciones. Si no sabes algo, dilo y ofrece que el negocio responderá directamente.

Catálogo:
%s`, in.Tenant.BusinessName, catalog.String())

	resp, err := a.llm.Complete(ctx, llm.Request{
		System:      []string{system},
		Messages:    append(historyToChat(in.History), llm.ChatMessage{Role: llm.ChatRoleUser, Content: in.Inbound}),
		MaxTokens:   512,
		Temperature: 0.4,
	})
	if err != nil {
		return "", fmt.Errorf("conversation: info completion: %w", err)
	}
	return resp.Text, nil
}

func (a *Agent) serviceNames(ctx context.Context, tenantID uuid.UUID) ([]string, error) {
	list, err := a.catalog.ListByTenant(ctx, tenantID, true)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(list))
	for _, svc := range list {
		names = append(names, svc.Name)
	}
	return names, nil
}

// paymentInstructions tells the customer how to pay when the tenant has a
// transfer account configured. No account, no mention of payment.
func paymentInstructions(tenant *tenants.Tenant, svc *services.Service) string {
	var methods []string
	if tenant.NequiNumber != "" {
		methods = append(methods, "Nequi "+tenant.NequiNumber)
	}
	if tenant.DaviviplataNumber != "" {
		methods = append(methods, "Daviplata "+tenant.DaviviplataNumber)
	}
	if len(methods) == 0 {
		return ""
	}
	return fmt.Sprintf("Para confirmar, puedes transferir %s %s a %s y enviar el comprobante por este chat.",
		formatPrice(svc.PriceAmount), svc.PriceCurrency, strings.Join(methods, " o "))
}

func historyToChat(history []*Message) []llm.ChatMessage {
	if len(history) > maxHistoryMessages {
		history = history[len(history)-maxHistoryMessages:]
	}
	out := make([]llm.ChatMessage, 0, len(history))
	for _, msg := range history {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		role := llm.ChatRoleUser
		if msg.Direction == DirectionOutbound {
			role = llm.ChatRoleAssistant
		}
		out = append(out, llm.ChatMessage{Role: role, Content: msg.Content})
	}
	return out
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func formatPrice(amount float64) string {
	if amount == float64(int64(amount)) {
		return fmt.Sprintf("$%d", int64(amount))
	}
	return fmt.Sprintf("$%.2f", amount)
}
