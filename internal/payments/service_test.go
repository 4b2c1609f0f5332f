package payments

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emprendigo/platform/internal/bookings"
)

type fakeBookingStore struct {
	booking *bookings.Booking
}

func (f *fakeBookingStore) GetForTenant(_ context.Context, tenantID, bookingID uuid.UUID) (*bookings.Booking, error) {
	if f.booking == nil || f.booking.ID != bookingID || f.booking.TenantID != tenantID {
		return nil, bookings.ErrBookingNotFound
	}
	return f.booking, nil
}

func (f *fakeBookingStore) SetPaymentProof(_ context.Context, _, _ uuid.UUID, proof json.RawMessage) (*bookings.Booking, error) {
	f.booking.PaymentProof = proof
	f.booking.PaymentStatus = bookings.PaymentPendingVerification
	return f.booking, nil
}

func (f *fakeBookingStore) SetPaymentStatus(_ context.Context, _, _ uuid.UUID, status bookings.PaymentStatus, reason string) (*bookings.Booking, error) {
	f.booking.PaymentStatus = status
	if reason != "" {
		f.booking.RejectionReason = reason
	}
	return f.booking, nil
}

func newPaymentFixture() (*Service, *fakeBookingStore, uuid.UUID, uuid.UUID) {
	tenantID := uuid.New()
	bookingID := uuid.New()
	store := &fakeBookingStore{booking: &bookings.Booking{
		ID:            bookingID,
		TenantID:      tenantID,
		Status:        bookings.StatusPendingApproval,
		PaymentStatus: bookings.PaymentPending,
	}}
	return NewService(store, nil, nil), store, tenantID, bookingID
}

func TestUploadProofMovesToPendingVerification(t *testing.T) {
	svc, store, tenantID, bookingID := newPaymentFixture()

	updated, err := svc.UploadProof(context.Background(), tenantID, bookingID, &Proof{
		TransactionID: "NQ-20260830-001",
		Method:        "Nequi",
		Amount:        35000,
	})
	require.NoError(t, err)
	assert.Equal(t, bookings.PaymentPendingVerification, updated.PaymentStatus)

	var stored Proof
	require.NoError(t, json.Unmarshal(store.booking.PaymentProof, &stored))
	assert.Equal(t, "nequi", stored.Method)
	assert.Equal(t, "NQ-20260830-001", stored.TransactionID)
	assert.False(t, stored.UploadedAt.IsZero())
}

func TestUploadProofRefusedWhenPaid(t *testing.T) {
	svc, store, tenantID, bookingID := newPaymentFixture()
	store.booking.PaymentStatus = bookings.PaymentPaid

	_, err := svc.UploadProof(context.Background(), tenantID, bookingID, &Proof{
		TransactionID: "ref", Method: "nequi",
	})
	assert.ErrorIs(t, err, ErrAlreadyPaid)
}

func TestUploadProofRequiresTransactionID(t *testing.T) {
	svc, _, tenantID, bookingID := newPaymentFixture()

	_, err := svc.UploadProof(context.Background(), tenantID, bookingID, &Proof{Method: "nequi"})
	assert.ErrorIs(t, err, ErrMissingProof)
}

func TestVerifyApprovedMarksPaidWithoutTouchingStatus(t *testing.T) {
	svc, store, tenantID, bookingID := newPaymentFixture()
	store.booking.PaymentStatus = bookings.PaymentPendingVerification

	updated, err := svc.Verify(context.Background(), tenantID, bookingID, true, "")
	require.NoError(t, err)
	assert.Equal(t, bookings.PaymentPaid, updated.PaymentStatus)
	assert.Equal(t, bookings.StatusPendingApproval, updated.Status)
}

func TestVerifyRejectedRecordsReason(t *testing.T) {
	svc, store, tenantID, bookingID := newPaymentFixture()
	store.booking.PaymentStatus = bookings.PaymentPendingVerification

	updated, err := svc.Verify(context.Background(), tenantID, bookingID, false, "el monto no coincide")
	require.NoError(t, err)
	assert.Equal(t, bookings.PaymentRejected, updated.PaymentStatus)
	assert.Equal(t, "Payment Rejected: el monto no coincide", updated.RejectionReason)
	assert.Equal(t, bookings.StatusPendingApproval, updated.Status)
}

func TestVerifyCorrectsMistakenRejection(t *testing.T) {
	svc, store, tenantID, bookingID := newPaymentFixture()
	store.booking.PaymentStatus = bookings.PaymentRejected

	updated, err := svc.Verify(context.Background(), tenantID, bookingID, true, "")
	require.NoError(t, err)
	assert.Equal(t, bookings.PaymentPaid, updated.PaymentStatus)
}

func TestVerifyAlreadyPaidIsNoOp(t *testing.T) {
	svc, store, tenantID, bookingID := newPaymentFixture()
	store.booking.PaymentStatus = bookings.PaymentPaid

	updated, err := svc.Verify(context.Background(), tenantID, bookingID, true, "")
	require.NoError(t, err)
	assert.Equal(t, bookings.PaymentPaid, updated.PaymentStatus)
}
