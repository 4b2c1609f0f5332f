package services

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/emprendigo/platform/internal/tenancy"
	"github.com/emprendigo/platform/pkg/logging"
)

// Handler serves tenant-scoped catalog CRUD.
type Handler struct {
	repo   *Repository
	logger *logging.Logger
}

// NewHandler creates a services handler.
func NewHandler(repo *Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger.Component("services")}
}

// List handles GET /services.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenancy.TenantIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing tenant context", http.StatusUnauthorized)
		return
	}
	activeOnly := r.URL.Query().Get("active") == "true"

	list, err := h.repo.ListByTenant(r.Context(), tenantID, activeOnly)
	if err != nil {
		h.logger.Error("failed to list services", "error", err, "tenant_id", tenantID)
		http.Error(w, "failed to list services", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*Service{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Create handles POST /services.
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

	svc, err := h.repo.Create(r.Context(), tenantID, &req)
	if err != nil {
		h.writeError(w, err, tenantID)
		return
	}

	h.logger.Info("service created", "tenant_id", tenantID, "service_id", svc.ID, "name", svc.Name)
	writeJSON(w, http.StatusCreated, svc)
}

// Update handles PATCH /services/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenancy.TenantIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing tenant context", http.StatusUnauthorized)
		return
	}
	serviceID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid service id", http.StatusBadRequest)
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	svc, err := h.repo.Update(r.Context(), tenantID, serviceID, &req)
	if err != nil {
		h.writeError(w, err, tenantID)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

// Delete handles DELETE /services/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenancy.TenantIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing tenant context", http.StatusUnauthorized)
		return
	}
	serviceID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid service id", http.StatusBadRequest)
		return
	}

	if err := h.repo.Delete(r.Context(), tenantID, serviceID); err != nil {
		h.writeError(w, err, tenantID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, err error, tenantID uuid.UUID) {
	switch {
	case errors.Is(err, ErrServiceNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrNameTaken):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrInvalidName), errors.Is(err, ErrInvalidDuration), errors.Is(err, ErrInvalidPrice):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("catalog operation failed", "error", err, "tenant_id", tenantID)
		http.Error(w, "catalog operation failed", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
