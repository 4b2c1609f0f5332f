package bookings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the pool surface the repository needs; pgxmock satisfies it in tests.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository stores bookings and owns the no-overlap slot check.
type Repository struct {
	pool PgxPool
}

// NewRepository initializes a repo backed by pgxpool.
func NewRepository(pool PgxPool) *Repository {
	if pool == nil {
		panic("bookings: pgx pool required")
	}
	return &Repository{pool: pool}
}

const bookingColumns = `id, tenant_id, customer_id, service_id, status, source,
	start_time, end_time, COALESCE(calcom_booking_id, ''), COALESCE(calcom_booking_uid, ''),
	calcom_event_type_id, payment_status, payment_proof, price_amount, price_currency,
	COALESCE(customer_notes, ''), COALESCE(rejection_reason, ''), created_at, updated_at`

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	err := row.Scan(
		&b.ID, &b.TenantID, &b.CustomerID, &b.ServiceID, &b.Status, &b.Source,
		&b.StartTime, &b.EndTime, &b.CalComBookingID, &b.CalComBookingUID,
		&b.CalComEventTypeID, &b.PaymentStatus, &b.PaymentProof, &b.PriceAmount,
		&b.PriceCurrency, &b.CustomerNotes, &b.RejectionReason, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("bookings: scan: %w", err)
	}
	return &b, nil
}

// insertParams is the row the service hands over after resolving the price
// snapshot and end time from the catalog.
type insertParams struct {
	TenantID      uuid.UUID
	CustomerID    uuid.UUID
	ServiceID     uuid.UUID
	Source        Source
	StartTime     time.Time
	EndTime       time.Time
	PriceAmount   float64
	PriceCurrency string
	EventTypeID   *int
	CustomerNotes string
}

// CreateInSlot inserts a booking after checking the slot inside one
// transaction. A racing insert that slips between check and insert trips the
// exclusion constraint, which maps to the same ErrSlotConflict.
func (r *Repository) CreateInSlot(ctx context.Context, p insertParams) (*Booking, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("bookings: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var existing uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT id FROM bookings
		WHERE tenant_id = $1
		  AND status NOT IN ('CANCELLED', 'REJECTED')
		  AND tstzrange(start_time, end_time) && tstzrange($2, $3)
		LIMIT 1
		FOR UPDATE`, p.TenantID, p.StartTime, p.EndTime).Scan(&existing)
	if err == nil {
		return nil, ErrSlotConflict
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("bookings: conflict check: %w", err)
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO bookings (id, tenant_id, customer_id, service_id, status, source,
			start_time, end_time, calcom_event_type_id, payment_status,
			price_amount, price_currency, customer_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NULLIF($13, ''))
		RETURNING `+bookingColumns,
		uuid.New(), p.TenantID, p.CustomerID, p.ServiceID, StatusPendingApproval, p.Source,
		p.StartTime, p.EndTime, p.EventTypeID, PaymentPending,
		p.PriceAmount, p.PriceCurrency, p.CustomerNotes)

	booking, err := scanBooking(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && (pgErr.Code == "23P01" || pgErr.Code == "23505") {
			return nil, ErrSlotConflict
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("bookings: commit: %w", err)
	}
	return booking, nil
}

// GetForTenant fetches a booking scoped to the tenant.
func (r *Repository) GetForTenant(ctx context.Context, tenantID, bookingID uuid.UUID) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 AND tenant_id = $2`, bookingID, tenantID)
	return scanBooking(row)
}

// ListByTenant returns bookings newest start first, optionally filtered by status.
func (r *Repository) ListByTenant(ctx context.Context, tenantID uuid.UUID, status Status, limit, offset int) ([]*Booking, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE tenant_id = $1`
	args := []any{tenantID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += fmt.Sprintf(` ORDER BY start_time DESC LIMIT %d OFFSET %d`, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("bookings: list: %w", err)
	}
	defer rows.Close()

	var out []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// SetApproved marks a booking APPROVED and records the external event refs in
// the same statement, so there is no window where the status is flipped
// without the refs.
func (r *Repository) SetApproved(ctx context.Context, tenantID, bookingID uuid.UUID, externalID, externalUID string) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE bookings SET
			status = $3,
			calcom_booking_id = NULLIF($4, ''),
			calcom_booking_uid = NULLIF($5, ''),
			updated_at = now()
		WHERE id = $1 AND tenant_id = $2
		RETURNING `+bookingColumns,
		bookingID, tenantID, StatusApproved, externalID, externalUID)
	return scanBooking(row)
}

// SetStatus updates the lifecycle status, storing a rejection reason when given.
func (r *Repository) SetStatus(ctx context.Context, tenantID, bookingID uuid.UUID, status Status, reason string) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE bookings SET
			status = $3,
			rejection_reason = COALESCE(NULLIF($4, ''), rejection_reason),
			updated_at = now()
		WHERE id = $1 AND tenant_id = $2
		RETURNING `+bookingColumns,
		bookingID, tenantID, status, reason)
	return scanBooking(row)
}

// SetPaymentProof stores the uploaded proof and moves the payment track to
// PENDING_VERIFICATION.
func (r *Repository) SetPaymentProof(ctx context.Context, tenantID, bookingID uuid.UUID, proof json.RawMessage) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE bookings SET
			payment_proof = $3,
			payment_status = $4,
			updated_at = now()
		WHERE id = $1 AND tenant_id = $2
		RETURNING `+bookingColumns,
		bookingID, tenantID, proof, PaymentPendingVerification)
	return scanBooking(row)
}

// SetPaymentStatus updates the payment track only; booking status is untouched.
func (r *Repository) SetPaymentStatus(ctx context.Context, tenantID, bookingID uuid.UUID, status PaymentStatus, reason string) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE bookings SET
			payment_status = $3,
			rejection_reason = COALESCE(NULLIF($4, ''), rejection_reason),
			updated_at = now()
		WHERE id = $1 AND tenant_id = $2
		RETURNING `+bookingColumns,
		bookingID, tenantID, status, reason)
	return scanBooking(row)
}
