package bookings

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bookingRowColumns = []string{
	"id", "tenant_id", "customer_id", "service_id", "status", "source",
	"start_time", "end_time", "calcom_booking_id", "calcom_booking_uid",
	"calcom_event_type_id", "payment_status", "payment_proof", "price_amount",
	"price_currency", "customer_notes", "rejection_reason", "created_at", "updated_at",
}

func bookingRow(id uuid.UUID, p insertParams) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows(bookingRowColumns).AddRow(
		id, p.TenantID, p.CustomerID, p.ServiceID, StatusPendingApproval, p.Source,
		p.StartTime, p.EndTime, "", "",
		p.EventTypeID, PaymentPending, nil, p.PriceAmount,
		p.PriceCurrency, p.CustomerNotes, "", now, now,
	)
}

func insertFixture() insertParams {
	start := time.Now().Add(24 * time.Hour).Truncate(time.Minute)
	return insertParams{
		TenantID:      uuid.New(),
		CustomerID:    uuid.New(),
		ServiceID:     uuid.New(),
		Source:        SourceWeb,
		StartTime:     start,
		EndTime:       start.Add(45 * time.Minute),
		PriceAmount:   35000,
		PriceCurrency: "COP",
	}
}

func TestCreateInSlotInsertsWhenFree(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	p := insertFixture()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM bookings").
		WithArgs(p.TenantID, p.StartTime, p.EndTime).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("INSERT INTO bookings").
		WithArgs(pgxmock.AnyArg(), p.TenantID, p.CustomerID, p.ServiceID, StatusPendingApproval, p.Source,
			p.StartTime, p.EndTime, p.EventTypeID, PaymentPending,
			p.PriceAmount, p.PriceCurrency, p.CustomerNotes).
		WillReturnRows(bookingRow(uuid.New(), p))
	mock.ExpectCommit()
	mock.ExpectRollback()

	repo := NewRepository(mock)
	booking, err := repo.CreateInSlot(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingApproval, booking.Status)
	assert.Equal(t, PaymentPending, booking.PaymentStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateInSlotRefusesOccupiedSlot(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	p := insertFixture()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM bookings").
		WithArgs(p.TenantID, p.StartTime, p.EndTime).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	mock.ExpectRollback()

	repo := NewRepository(mock)
	_, err = repo.CreateInSlot(context.Background(), p)
	assert.ErrorIs(t, err, ErrSlotConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateInSlotMapsExclusionViolation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	p := insertFixture()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM bookings").
		WithArgs(p.TenantID, p.StartTime, p.EndTime).
		WillReturnError(pgx.ErrNoRows)
	// A racing insert that slipped past the check trips the range constraint.
	mock.ExpectQuery("INSERT INTO bookings").
		WithArgs(pgxmock.AnyArg(), p.TenantID, p.CustomerID, p.ServiceID, StatusPendingApproval, p.Source,
			p.StartTime, p.EndTime, p.EventTypeID, PaymentPending,
			p.PriceAmount, p.PriceCurrency, p.CustomerNotes).
		WillReturnError(&pgconn.PgError{Code: "23P01", ConstraintName: "bookings_no_overlap"})
	mock.ExpectRollback()

	repo := NewRepository(mock)
	_, err = repo.CreateInSlot(context.Background(), p)
	assert.ErrorIs(t, err, ErrSlotConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetForTenantMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	tenantID := uuid.New()
	bookingID := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id").
		WithArgs(bookingID, tenantID).
		WillReturnError(pgx.ErrNoRows)

	repo := NewRepository(mock)
	_, err = repo.GetForTenant(context.Background(), tenantID, bookingID)
	assert.ErrorIs(t, err, ErrBookingNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
