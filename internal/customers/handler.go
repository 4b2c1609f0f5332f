package customers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/emprendigo/platform/internal/tenancy"
	"github.com/emprendigo/platform/pkg/logging"
)

// Handler serves the tenant customer directory.
type Handler struct {
	repo   *Repository
	logger *logging.Logger
}

// NewHandler creates a customers handler.
func NewHandler(repo *Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger.Component("customers")}
}

// List handles GET /customers.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenancy.TenantIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing tenant context", http.StatusUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	list, err := h.repo.ListByTenant(r.Context(), tenantID, limit, offset)
	if err != nil {
		h.logger.Error("failed to list customers", "error", err, "tenant_id", tenantID)
		http.Error(w, "failed to list customers", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*Customer{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Upsert handles POST /customers. Creating twice with the same phone
// refreshes the existing record instead of failing.
func (h *Handler) Upsert(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenancy.TenantIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing tenant context", http.StatusUnauthorized)
		return
	}

	var req UpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	customer, err := h.repo.UpsertByPhone(r.Context(), tenantID, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidPhone), errors.Is(err, ErrInvalidName):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.Error("failed to upsert customer", "error", err, "tenant_id", tenantID)
			http.Error(w, "failed to save customer", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

// Get handles GET /customers/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenancy.TenantIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing tenant context", http.StatusUnauthorized)
		return
	}
	customerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid customer id", http.StatusBadRequest)
		return
	}

	customer, err := h.repo.GetForTenant(r.Context(), tenantID, customerID)
	if err != nil {
		if errors.Is(err, ErrCustomerNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.logger.Error("failed to fetch customer", "error", err, "tenant_id", tenantID)
		http.Error(w, "failed to fetch customer", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
