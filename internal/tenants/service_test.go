package tenants

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScheduling struct {
	valid    bool
	username string
	err      error
}

func (f *fakeScheduling) ValidateKey(context.Context, string) (bool, error) {
	return f.valid, f.err
}

func (f *fakeScheduling) Username(context.Context, string) (string, error) {
	return f.username, f.err
}

type fakeMessaging struct {
	valid bool
	err   error
}

func (f *fakeMessaging) ValidateToken(context.Context, string) (bool, error) {
	return f.valid, f.err
}

func tenantRow(id uuid.UUID) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows([]string{
		"id", "slug", "business_name", "description", "email", "phone",
		"whatsapp_phone_number", "whatsapp_phone_number_id", "whatsapp_access_token", "whatsapp_waba_id",
		"calcom_api_key", "calcom_username", "nequi_number", "daviviplata_number",
		"brand_settings", "status", "created_at", "updated_at",
	}).AddRow(
		id, "salon-aurora", "Salón Aurora", "", "aurora@example.com", "",
		"", "", "", "",
		"cal_live_key", "aurora", "", "",
		nil, "active", now, now,
	)
}

func TestConnectCalComValidatesBeforePersisting(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	tenantID := uuid.New()
	mock.ExpectExec("UPDATE tenants SET calcom_api_key").
		WithArgs(tenantID, "cal_live_key", "aurora").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery("SELECT (.+) FROM tenants WHERE id").
		WithArgs(tenantID).
		WillReturnRows(tenantRow(tenantID))

	svc := NewService(NewRepository(mock), &fakeScheduling{valid: true, username: "aurora"}, &fakeMessaging{}, nil)
	tenant, err := svc.ConnectCalCom(context.Background(), tenantID, CalComConnection{APIKey: " cal_live_key "})
	require.NoError(t, err)

	// The account username is filled from the provider when not supplied.
	assert.Equal(t, "aurora", tenant.CalComUsername)
	assert.True(t, tenant.CalComConnected())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectCalComRejectedKeyNeverPersisted(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	svc := NewService(NewRepository(mock), &fakeScheduling{valid: false}, &fakeMessaging{}, nil)
	_, err = svc.ConnectCalCom(context.Background(), uuid.New(), CalComConnection{APIKey: "dead_key"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectCalComMissingKey(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	svc := NewService(NewRepository(mock), &fakeScheduling{valid: true}, &fakeMessaging{}, nil)
	_, err = svc.ConnectCalCom(context.Background(), uuid.New(), CalComConnection{APIKey: "   "})
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestConnectWhatsAppRequiresAllFields(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	svc := NewService(NewRepository(mock), &fakeScheduling{}, &fakeMessaging{valid: true}, nil)
	_, err = svc.ConnectWhatsApp(context.Background(), uuid.New(), WhatsAppConnection{
		PhoneNumber: "573001112233",
		AccessToken: "token",
	})
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestConnectWhatsAppRejectedToken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	svc := NewService(NewRepository(mock), &fakeScheduling{}, &fakeMessaging{valid: false}, nil)
	_, err = svc.ConnectWhatsApp(context.Background(), uuid.New(), WhatsAppConnection{
		PhoneNumber:   "573001112233",
		PhoneNumberID: "pn-123",
		AccessToken:   "dead-token",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	require.NoError(t, mock.ExpectationsWereMet())
}
