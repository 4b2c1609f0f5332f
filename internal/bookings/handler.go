package bookings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/emprendigo/platform/internal/tenancy"
	"github.com/emprendigo/platform/pkg/logging"
)

// Handler exposes the booking lifecycle over HTTP.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

// NewHandler creates a bookings handler.
func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger.Component("bookings_http")}
}

// Create handles POST /bookings.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenancy.TenantIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing tenant context", http.StatusUnauthorized)
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	booking, err := h.svc.Create(r.Context(), tenantID, &req)
	if err != nil {
		h.writeError(w, err, tenantID)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

// List handles GET /bookings.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenancy.TenantIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing tenant context", http.StatusUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	status := Status(r.URL.Query().Get("status"))

	list, err := h.svc.List(r.Context(), tenantID, status, limit, offset)
	if err != nil {
		h.writeError(w, err, tenantID)
		return
	}
	if list == nil {
		list = []*Booking{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Get handles GET /bookings/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	h.withBooking(w, r, h.svc.Get)
}

// Approve handles POST /bookings/{id}/approve.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.withBooking(w, r, h.svc.Approve)
}

// Reject handles POST /bookings/{id}/reject.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	tenantID, bookingID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	var req RejectRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	booking, err := h.svc.Reject(r.Context(), tenantID, bookingID, req.Reason)
	if err != nil {
		h.writeError(w, err, tenantID)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// Cancel handles POST /bookings/{id}/cancel. The reason is optional; absent,
// the stored reason defaults to "Host cancelled".
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	tenantID, bookingID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	var req CancelRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	booking, err := h.svc.Cancel(r.Context(), tenantID, bookingID, req.Reason)
	if err != nil {
		h.writeError(w, err, tenantID)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// Complete handles POST /bookings/{id}/complete.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	h.withBooking(w, r, h.svc.Complete)
}

type bookingOp func(ctx context.Context, tenantID, bookingID uuid.UUID) (*Booking, error)

func (h *Handler) withBooking(w http.ResponseWriter, r *http.Request, op bookingOp) {
	tenantID, bookingID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}
	booking, err := op(r.Context(), tenantID, bookingID)
	if err != nil {
		h.writeError(w, err, tenantID)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *Handler) pathIDs(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	tenantID, ok := tenancy.TenantIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing tenant context", http.StatusUnauthorized)
		return uuid.Nil, uuid.Nil, false
	}
	bookingID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid booking id", http.StatusBadRequest)
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, bookingID, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error, tenantID uuid.UUID) {
	switch {
	case errors.Is(err, ErrBookingNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrSlotConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrInvalidService), errors.Is(err, ErrInvalidCustomer),
		errors.Is(err, ErrInvalidTimeRange), errors.Is(err, ErrNotConnected):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrSchedulingOffline):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		h.logger.Error("booking operation failed", "error", err, "tenant_id", tenantID)
		http.Error(w, "booking operation failed", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
