package conversation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emprendigo/platform/internal/customers"
	"github.com/emprendigo/platform/internal/tenancy"
	"github.com/emprendigo/platform/internal/tenants"
)

func webhookHandler() *Handler {
	return NewHandler(nil, nil, nil, nil, nil, "verify-secret", nil)
}

func TestVerifyWebhookHandshake(t *testing.T) {
	h := webhookHandler()

	req := httptest.NewRequest(http.MethodGet,
		"/whatsapp/webhook?hub.mode=subscribe&hub.verify_token=verify-secret&hub.challenge=12345", nil)
	rec := httptest.NewRecorder()
	h.VerifyWebhook(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "12345", rec.Body.String())
}

func TestVerifyWebhookWrongToken(t *testing.T) {
	h := webhookHandler()

	req := httptest.NewRequest(http.MethodGet,
		"/whatsapp/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	rec := httptest.NewRecorder()
	h.VerifyWebhook(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// Meta retries non-2xx deliveries, so unparseable payloads are acknowledged
// and dropped rather than bounced.
func TestReceiveWebhookAcknowledgesMalformedPayload(t *testing.T) {
	h := webhookHandler()

	bodies := []string{
		"not json at all",
		`{"object":"whatsapp_business_account"}`,
		`{"object":"whatsapp_business_account","entry":[{}]}`,
	}
	for _, body := range bodies {
		req := httptest.NewRequest(http.MethodPost, "/whatsapp/webhook", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.ReceiveWebhook(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, body)
	}
}

type fakeTenantLookup struct {
	tenant *tenants.Tenant
}

func (f *fakeTenantLookup) GetByID(_ context.Context, id uuid.UUID) (*tenants.Tenant, error) {
	if f.tenant == nil || f.tenant.ID != id {
		return nil, tenants.ErrTenantNotFound
	}
	return f.tenant, nil
}

type fakeCustomerLookup struct {
	customer *customers.Customer
}

func (f *fakeCustomerLookup) GetForTenant(_ context.Context, tenantID, customerID uuid.UUID) (*customers.Customer, error) {
	if f.customer == nil || f.customer.ID != customerID || f.customer.TenantID != tenantID {
		return nil, customers.ErrCustomerNotFound
	}
	return f.customer, nil
}

type recordingSender struct {
	to   string
	body string
}

func (r *recordingSender) SendText(_ context.Context, _, _, to, body string) (string, error) {
	r.to = to
	r.body = body
	return "wamid.manual", nil
}

func TestSendResolvesCustomerThroughDirectory(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	tenantID := uuid.New()
	customerID := uuid.New()
	conversationID := uuid.New()
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM conversations").
		WithArgs(conversationID, tenantID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "tenant_id", "customer_id", "status", "unread_count",
			"last_message_at", "created_at", "updated_at",
		}).AddRow(conversationID, tenantID, customerID, "ACTIVE", 0, now, now, now))
	mock.ExpectQuery("INSERT INTO messages").
		WithArgs(pgxmock.AnyArg(), conversationID, DirectionOutbound, "text", "Nos vemos mañana", pgxmock.AnyArg(), "wamid.manual").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "conversation_id", "direction", "message_type", "content",
			"metadata_json", "whatsapp_message_id", "status", "created_at",
		}).AddRow(uuid.New(), conversationID, DirectionOutbound, "text", "Nos vemos mañana", nil, "wamid.manual", "sent", now))
	mock.ExpectExec("UPDATE conversations").
		WithArgs(conversationID, 0).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	sender := &recordingSender{}
	h := NewHandler(
		NewStore(mock),
		nil,
		&fakeTenantLookup{tenant: &tenants.Tenant{
			ID: tenantID, WhatsAppAccessToken: "token", WhatsAppPhoneNumberID: "pn-123",
		}},
		&fakeCustomerLookup{customer: &customers.Customer{
			ID: customerID, TenantID: tenantID, FirstName: "Laura", Phone: "573001112233",
		}},
		sender, "verify-secret", nil)

	r := chi.NewRouter()
	r.Post("/whatsapp/conversations/{id}/messages", h.Send)

	req := httptest.NewRequest(http.MethodPost,
		"/whatsapp/conversations/"+conversationID.String()+"/messages",
		strings.NewReader(`{"content":"Nos vemos mañana"}`))
	req = req.WithContext(tenancy.WithTenantID(req.Context(), tenantID))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "573001112233", sender.to)
	assert.Equal(t, "Nos vemos mañana", sender.body)
	require.NoError(t, mock.ExpectationsWereMet())
}
