package payments

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/emprendigo/platform/internal/bookings"
	"github.com/emprendigo/platform/internal/tenancy"
	"github.com/emprendigo/platform/pkg/logging"
)

// Handler exposes the payment track over HTTP.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

// NewHandler creates a payments handler.
func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger.Component("payments_http")}
}

// UploadProof handles POST /payments/{booking_id}/proof.
func (h *Handler) UploadProof(w http.ResponseWriter, r *http.Request) {
	tenantID, bookingID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	var proof Proof
	if err := json.NewDecoder(r.Body).Decode(&proof); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	booking, err := h.svc.UploadProof(r.Context(), tenantID, bookingID, &proof)
	if err != nil {
		h.writeError(w, err, tenantID)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// VerifyRequest is the owner's verdict on an uploaded proof.
type VerifyRequest struct {
	Verified        bool   `json:"verified"`
	RejectionReason string `json:"rejection_reason"`
}

// Verify handles POST /payments/{booking_id}/verify.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	tenantID, bookingID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	booking, err := h.svc.Verify(r.Context(), tenantID, bookingID, req.Verified, req.RejectionReason)
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
	bookingID, err := uuid.Parse(chi.URLParam(r, "booking_id"))
	if err != nil {
		http.Error(w, "invalid booking id", http.StatusBadRequest)
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, bookingID, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error, tenantID uuid.UUID) {
	switch {
	case errors.Is(err, bookings.ErrBookingNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrAlreadyPaid):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrMissingProof):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("payment operation failed", "error", err, "tenant_id", tenantID)
		http.Error(w, "payment operation failed", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
