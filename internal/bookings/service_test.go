package bookings

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emprendigo/platform/internal/customers"
	"github.com/emprendigo/platform/internal/services"
	"github.com/emprendigo/platform/internal/tenants"
)

type fakeStore struct {
	bookings map[uuid.UUID]*Booking
	conflict bool
	inserted *insertParams
}

func newFakeStore() *fakeStore {
	return &fakeStore{bookings: map[uuid.UUID]*Booking{}}
}

func (f *fakeStore) CreateInSlot(_ context.Context, p insertParams) (*Booking, error) {
	if f.conflict {
		return nil, ErrSlotConflict
	}
	f.inserted = &p
	b := &Booking{
		ID:                uuid.New(),
		TenantID:          p.TenantID,
		CustomerID:        p.CustomerID,
		ServiceID:         p.ServiceID,
		Status:            StatusPendingApproval,
		Source:            p.Source,
		StartTime:         p.StartTime,
		EndTime:           p.EndTime,
		CalComEventTypeID: p.EventTypeID,
		PaymentStatus:     PaymentPending,
		PriceAmount:       p.PriceAmount,
		PriceCurrency:     p.PriceCurrency,
		CustomerNotes:     p.CustomerNotes,
	}
	f.bookings[b.ID] = b
	return b, nil
}

func (f *fakeStore) GetForTenant(_ context.Context, tenantID, bookingID uuid.UUID) (*Booking, error) {
	b, ok := f.bookings[bookingID]
	if !ok || b.TenantID != tenantID {
		return nil, ErrBookingNotFound
	}
	return b, nil
}

func (f *fakeStore) ListByTenant(_ context.Context, tenantID uuid.UUID, status Status, _, _ int) ([]*Booking, error) {
	var out []*Booking
	for _, b := range f.bookings {
		if b.TenantID == tenantID && (status == "" || b.Status == status) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) SetApproved(_ context.Context, tenantID, bookingID uuid.UUID, externalID, externalUID string) (*Booking, error) {
	b, err := f.GetForTenant(context.Background(), tenantID, bookingID)
	if err != nil {
		return nil, err
	}
	b.Status = StatusApproved
	b.CalComBookingID = externalID
	b.CalComBookingUID = externalUID
	return b, nil
}

func (f *fakeStore) SetStatus(_ context.Context, tenantID, bookingID uuid.UUID, status Status, reason string) (*Booking, error) {
	b, err := f.GetForTenant(context.Background(), tenantID, bookingID)
	if err != nil {
		return nil, err
	}
	b.Status = status
	if reason != "" {
		b.RejectionReason = reason
	}
	return b, nil
}

type fakeCatalog struct {
	services map[uuid.UUID]*services.Service
}

func (f *fakeCatalog) GetForTenant(_ context.Context, tenantID, serviceID uuid.UUID) (*services.Service, error) {
	svc, ok := f.services[serviceID]
	if !ok || svc.TenantID != tenantID {
		return nil, services.ErrServiceNotFound
	}
	return svc, nil
}

type fakeCustomers struct {
	customers map[uuid.UUID]*customers.Customer
}

func (f *fakeCustomers) GetForTenant(_ context.Context, tenantID, customerID uuid.UUID) (*customers.Customer, error) {
	c, ok := f.customers[customerID]
	if !ok || c.TenantID != tenantID {
		return nil, customers.ErrCustomerNotFound
	}
	return c, nil
}

type fakeTenants struct {
	tenant *tenants.Tenant
}

func (f *fakeTenants) GetByID(_ context.Context, id uuid.UUID) (*tenants.Tenant, error) {
	if f.tenant == nil || f.tenant.ID != id {
		return nil, tenants.ErrTenantNotFound
	}
	return f.tenant, nil
}

type fakeScheduler struct {
	createCalls  int
	cancelCalls  int
	createErr    error
	cancelErr    error
	lastReq      EventRequest
	cancelReason string
}

func (f *fakeScheduler) CreateEvent(_ context.Context, req EventRequest) (*ExternalEvent, error) {
	f.createCalls++
	f.lastReq = req
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &ExternalEvent{ID: "1001", UID: "uid-1001"}, nil
}

func (f *fakeScheduler) CancelEvent(_ context.Context, _, _, reason string) error {
	f.cancelCalls++
	f.cancelReason = reason
	return f.cancelErr
}

type engine struct {
	svc       *Service
	store     *fakeStore
	scheduler *fakeScheduler
	tenantID  uuid.UUID
	serviceID uuid.UUID
	customer  uuid.UUID
}

func newEngine(t *testing.T) *engine {
	t.Helper()

	tenantID := uuid.New()
	serviceID := uuid.New()
	customerID := uuid.New()
	eventTypeID := 42

	store := newFakeStore()
	scheduler := &fakeScheduler{}
	catalog := &fakeCatalog{services: map[uuid.UUID]*services.Service{
		serviceID: {
			ID: serviceID, TenantID: tenantID, Name: "Corte de cabello",
			DurationMinutes: 45, PriceAmount: 35000, PriceCurrency: "COP",
			CalComEventTypeID: &eventTypeID, IsActive: true,
		},
	}}
	customerDir := &fakeCustomers{customers: map[uuid.UUID]*customers.Customer{
		customerID: {ID: customerID, TenantID: tenantID, FirstName: "Laura", Phone: "+573001112233", Email: "laura@example.com"},
	}}
	tenantDir := &fakeTenants{tenant: &tenants.Tenant{
		ID: tenantID, BusinessName: "Salon Aurora",
		CalComAPIKey: "cal_live_key", CalComUsername: "salon-aurora",
	}}

	return &engine{
		svc:       NewService(store, catalog, customerDir, tenantDir, scheduler, nil, nil),
		store:     store,
		scheduler: scheduler,
		tenantID:  tenantID,
		serviceID: serviceID,
		customer:  customerID,
	}
}

func (e *engine) createBooking(t *testing.T) *Booking {
	t.Helper()
	booking, err := e.svc.Create(context.Background(), e.tenantID, &CreateRequest{
		CustomerID: e.customer,
		ServiceID:  e.serviceID,
		StartTime:  time.Now().Add(48 * time.Hour),
	})
	require.NoError(t, err)
	return booking
}

func TestCreateSnapshotsPriceAndDuration(t *testing.T) {
	e := newEngine(t)

	start := time.Now().Add(24 * time.Hour)
	booking, err := e.svc.Create(context.Background(), e.tenantID, &CreateRequest{
		CustomerID: e.customer,
		ServiceID:  e.serviceID,
		StartTime:  start,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPendingApproval, booking.Status)
	assert.Equal(t, PaymentPending, booking.PaymentStatus)
	assert.Equal(t, SourceWeb, booking.Source)
	assert.Equal(t, 35000.0, booking.PriceAmount)
	assert.Equal(t, "COP", booking.PriceCurrency)
	assert.Equal(t, start.Add(45*time.Minute), booking.EndTime)
}

func TestCreateRejectsPastStart(t *testing.T) {
	e := newEngine(t)

	_, err := e.svc.Create(context.Background(), e.tenantID, &CreateRequest{
		CustomerID: e.customer,
		ServiceID:  e.serviceID,
		StartTime:  time.Now().Add(-time.Hour),
	})
	assert.ErrorIs(t, err, ErrInvalidTimeRange)
}

func TestCreateRejectsForeignService(t *testing.T) {
	e := newEngine(t)

	// Same service id requested under a different tenant must not resolve.
	_, err := e.svc.Create(context.Background(), uuid.New(), &CreateRequest{
		CustomerID: e.customer,
		ServiceID:  e.serviceID,
		StartTime:  time.Now().Add(24 * time.Hour),
	})
	assert.ErrorIs(t, err, ErrInvalidService)
}

func TestCreateSurfacesSlotConflict(t *testing.T) {
	e := newEngine(t)
	e.store.conflict = true

	_, err := e.svc.Create(context.Background(), e.tenantID, &CreateRequest{
		CustomerID: e.customer,
		ServiceID:  e.serviceID,
		StartTime:  time.Now().Add(24 * time.Hour),
	})
	assert.ErrorIs(t, err, ErrSlotConflict)
}

func TestApproveCreatesRemoteEventOnce(t *testing.T) {
	e := newEngine(t)
	booking := e.createBooking(t)

	approved, err := e.svc.Approve(context.Background(), e.tenantID, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)
	assert.Equal(t, "uid-1001", approved.CalComBookingUID)
	assert.Equal(t, 1, e.scheduler.createCalls)
	assert.Equal(t, 42, e.scheduler.lastReq.EventTypeID)
	assert.Equal(t, "Laura", e.scheduler.lastReq.CustomerName)

	// Second approval is a no-op with zero extra provider calls.
	again, err := e.svc.Approve(context.Background(), e.tenantID, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, again.Status)
	assert.Equal(t, 1, e.scheduler.createCalls)
}

func TestApproveProviderFailureLeavesBookingPending(t *testing.T) {
	e := newEngine(t)
	booking := e.createBooking(t)
	e.scheduler.createErr = assert.AnError

	_, err := e.svc.Approve(context.Background(), e.tenantID, booking.ID)
	assert.ErrorIs(t, err, ErrSchedulingOffline)

	stored, err := e.store.GetForTenant(context.Background(), e.tenantID, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingApproval, stored.Status)
	assert.Empty(t, stored.CalComBookingUID)
}

func TestApproveRequiresSchedulingConnection(t *testing.T) {
	e := newEngine(t)
	booking := e.createBooking(t)

	e.svc.tenants.(*fakeTenants).tenant.CalComAPIKey = ""

	_, err := e.svc.Approve(context.Background(), e.tenantID, booking.ID)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestRejectStoresReason(t *testing.T) {
	e := newEngine(t)
	booking := e.createBooking(t)

	rejected, err := e.svc.Reject(context.Background(), e.tenantID, booking.ID, "fuera de horario")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	assert.Equal(t, "fuera de horario", rejected.RejectionReason)

	// Rejecting again is a no-op.
	again, err := e.svc.Reject(context.Background(), e.tenantID, booking.ID, "otra razon")
	require.NoError(t, err)
	assert.Equal(t, "fuera de horario", again.RejectionReason)

	// A rejected booking cannot be approved.
	_, err = e.svc.Approve(context.Background(), e.tenantID, booking.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRejectFromAnyStatus(t *testing.T) {
	e := newEngine(t)
	booking := e.createBooking(t)

	_, err := e.svc.Approve(context.Background(), e.tenantID, booking.ID)
	require.NoError(t, err)

	rejected, err := e.svc.Reject(context.Background(), e.tenantID, booking.ID, "no puedo atender")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	assert.Equal(t, "no puedo atender", rejected.RejectionReason)
	// Rejection never talks to the provider.
	assert.Zero(t, e.scheduler.cancelCalls)
}

func TestCancelIsBestEffortOnProvider(t *testing.T) {
	e := newEngine(t)
	booking := e.createBooking(t)

	_, err := e.svc.Approve(context.Background(), e.tenantID, booking.ID)
	require.NoError(t, err)

	e.scheduler.cancelErr = assert.AnError
	cancelled, err := e.svc.Cancel(context.Background(), e.tenantID, booking.ID, "cliente no asistirá")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, "cliente no asistirá", cancelled.RejectionReason)
	assert.Equal(t, 1, e.scheduler.cancelCalls)
	assert.Equal(t, "cliente no asistirá", e.scheduler.cancelReason)
}

func TestCancelDefaultsReason(t *testing.T) {
	e := newEngine(t)
	booking := e.createBooking(t)

	_, err := e.svc.Approve(context.Background(), e.tenantID, booking.ID)
	require.NoError(t, err)

	cancelled, err := e.svc.Cancel(context.Background(), e.tenantID, booking.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "Host cancelled", cancelled.RejectionReason)
	assert.Equal(t, "Host cancelled", e.scheduler.cancelReason)
}

func TestCancelPendingSkipsProvider(t *testing.T) {
	e := newEngine(t)
	booking := e.createBooking(t)

	cancelled, err := e.svc.Cancel(context.Background(), e.tenantID, booking.ID, "")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Zero(t, e.scheduler.cancelCalls)
}

func TestCompleteRequiresApproved(t *testing.T) {
	e := newEngine(t)
	booking := e.createBooking(t)

	_, err := e.svc.Complete(context.Background(), e.tenantID, booking.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = e.svc.Approve(context.Background(), e.tenantID, booking.ID)
	require.NoError(t, err)

	completed, err := e.svc.Complete(context.Background(), e.tenantID, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)
}

func TestGetScopedToTenant(t *testing.T) {
	e := newEngine(t)
	booking := e.createBooking(t)

	_, err := e.svc.Get(context.Background(), uuid.New(), booking.ID)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}
