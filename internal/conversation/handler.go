package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/emprendigo/platform/internal/customers"
	"github.com/emprendigo/platform/internal/tenancy"
	"github.com/emprendigo/platform/internal/tenants"
	"github.com/emprendigo/platform/internal/whatsapp"
	"github.com/emprendigo/platform/pkg/logging"
)

// TenantLookup fetches credentials for manual sends.
type TenantLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*tenants.Tenant, error)
}

// CustomerLookup resolves the destination number for manual sends.
type CustomerLookup interface {
	GetForTenant(ctx context.Context, tenantID, customerID uuid.UUID) (*customers.Customer, error)
}

// Handler serves the webhook endpoints and the owner's inbox.
type Handler struct {
	store       *Store
	coordinator *Coordinator
	tenants     TenantLookup
	customers   CustomerLookup
	sender      ReplySender
	verifyToken string
	logger      *logging.Logger
}

// NewHandler creates the conversation handler.
func NewHandler(store *Store, coordinator *Coordinator, tenantLookup TenantLookup, customerLookup CustomerLookup, sender ReplySender, verifyToken string, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		store:       store,
		coordinator: coordinator,
		tenants:     tenantLookup,
		customers:   customerLookup,
		sender:      sender,
		verifyToken: verifyToken,
		logger:      logger.Component("conversation_http"),
	}
}

// VerifyWebhook handles Meta's GET handshake when the webhook is registered.
func (h *Handler) VerifyWebhook(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") == "subscribe" && q.Get("hub.verify_token") == h.verifyToken {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(q.Get("hub.challenge")))
		return
	}
	http.Error(w, "verification failed", http.StatusForbidden)
}

// ReceiveWebhook handles POST deliveries. It always answers 200: Meta
// retries non-2xx responses, and retrying a payload the platform cannot
// parse would never succeed.
func (h *Handler) ReceiveWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	for _, msg := range whatsapp.ParseInbound(payload) {
		if err := h.coordinator.ProcessInbound(r.Context(), msg); err != nil {
			h.logger.Error("inbound processing failed",
				"error", err, "phone_number_id", msg.PhoneNumberID)
		}
	}
	w.WriteHeader(http.StatusOK)
}

// List handles GET /whatsapp/conversations.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenancy.TenantIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing tenant context", http.StatusUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	list, err := h.store.ListByTenant(r.Context(), tenantID, limit, offset)
	if err != nil {
		h.logger.Error("failed to list conversations", "error", err, "tenant_id", tenantID)
		http.Error(w, "failed to list conversations", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*Conversation{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Messages handles GET /whatsapp/conversations/{id}/messages. Opening the
// thread resets its unread counter.
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	tenantID, conversationID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	conv, err := h.store.GetForTenant(r.Context(), tenantID, conversationID)
	if err != nil {
		h.writeError(w, err, tenantID)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	messages, err := h.store.ListMessages(r.Context(), conv.ID, limit)
	if err != nil {
		h.writeError(w, err, tenantID)
		return
	}
	if messages == nil {
		messages = []*Message{}
	}

	if err := h.store.MarkRead(r.Context(), tenantID, conv.ID); err != nil {
		h.logger.Warn("failed to reset unread count", "error", err, "conversation_id", conv.ID)
	}
	writeJSON(w, http.StatusOK, messages)
}

// SendRequest is a manual message from the owner's inbox.
type SendRequest struct {
	Content string `json:"content"`
}

// Send handles POST /whatsapp/conversations/{id}/messages: the owner replying by hand.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	tenantID, conversationID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		http.Error(w, "content is required", http.StatusBadRequest)
		return
	}

	conv, err := h.store.GetForTenant(r.Context(), tenantID, conversationID)
	if err != nil {
		h.writeError(w, err, tenantID)
		return
	}

	tenant, err := h.tenants.GetByID(r.Context(), tenantID)
	if err != nil {
		h.writeError(w, err, tenantID)
		return
	}
	if !tenant.WhatsAppConnected() {
		http.Error(w, "whatsapp is not connected", http.StatusBadRequest)
		return
	}

	customer, err := h.customers.GetForTenant(r.Context(), tenantID, conv.CustomerID)
	if err != nil {
		h.writeError(w, err, tenantID)
		return
	}

	sentID, err := h.sender.SendText(r.Context(), tenant.WhatsAppAccessToken, tenant.WhatsAppPhoneNumberID, customer.Phone, req.Content)
	if err != nil {
		h.logger.Error("manual send failed", "error", err, "conversation_id", conv.ID)
		http.Error(w, "failed to send message", http.StatusBadGateway)
		return
	}

	msg, err := h.store.AppendMessage(r.Context(), conv.ID, DirectionOutbound, "text", req.Content, nil, sentID)
	if err != nil {
		h.writeError(w, err, tenantID)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *Handler) pathIDs(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	tenantID, ok := tenancy.TenantIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing tenant context", http.StatusUnauthorized)
		return uuid.Nil, uuid.Nil, false
	}
	conversationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid conversation id", http.StatusBadRequest)
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, conversationID, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error, tenantID uuid.UUID) {
	switch {
	case errors.Is(err, ErrConversationNotFound), errors.Is(err, tenants.ErrTenantNotFound),
		errors.Is(err, customers.ErrCustomerNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		h.logger.Error("conversation operation failed", "error", err, "tenant_id", tenantID)
		http.Error(w, "conversation operation failed", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
