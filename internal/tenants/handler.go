package tenants

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/emprendigo/platform/internal/tenancy"
	"github.com/emprendigo/platform/pkg/logging"
)

// Handler serves the tenant profile and connection endpoints.
type Handler struct {
	repo    *Repository
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a tenants handler.
func NewHandler(repo *Repository, service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, service: service, logger: logger.Component("tenants")}
}

// GetBySlug handles GET /tenants/by-slug/{slug} (public profile).
func (h *Handler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	tenant, err := h.repo.GetBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			http.Error(w, "tenant not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load tenant", "error", err, "slug", slug)
		http.Error(w, "failed to load tenant", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, PublicProfile{
		Slug:          tenant.Slug,
		BusinessName:  tenant.BusinessName,
		Description:   tenant.Description,
		BrandSettings: tenant.BrandSettings,
	})
}

// GetMe handles GET /tenants/me.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenancy.TenantIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing tenant context", http.StatusUnauthorized)
		return
	}
	tenant, err := h.repo.GetByID(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("failed to load tenant", "error", err, "tenant_id", tenantID)
		http.Error(w, "failed to load tenant", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

// UpdateMe handles PATCH /tenants/me.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenancy.TenantIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing tenant context", http.StatusUnauthorized)
		return
	}

	var upd ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	tenant, err := h.repo.UpdateProfile(r.Context(), tenantID, upd)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			http.Error(w, "tenant not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to update tenant", "error", err, "tenant_id", tenantID)
		http.Error(w, "failed to update tenant", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

// ConnectCalCom handles POST /tenants/calcom-connection.
func (h *Handler) ConnectCalCom(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenancy.TenantIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing tenant context", http.StatusUnauthorized)
		return
	}

	var conn CalComConnection
	if err := json.NewDecoder(r.Body).Decode(&conn); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	tenant, err := h.service.ConnectCalCom(r.Context(), tenantID, conn)
	if err != nil {
		h.writeConnectionError(w, err, tenantID)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

// ConnectWhatsApp handles POST /tenants/whatsapp-connection.
func (h *Handler) ConnectWhatsApp(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenancy.TenantIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing tenant context", http.StatusUnauthorized)
		return
	}

	var conn WhatsAppConnection
	if err := json.NewDecoder(r.Body).Decode(&conn); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	tenant, err := h.service.ConnectWhatsApp(r.Context(), tenantID, conn)
	if err != nil {
		h.writeConnectionError(w, err, tenantID)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

func (h *Handler) writeConnectionError(w http.ResponseWriter, err error, tenantID any) {
	switch {
	case errors.Is(err, ErrMissingField), errors.Is(err, ErrInvalidCredentials):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrTenantNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		h.logger.Error("connection flow failed", "error", err, "tenant_id", tenantID)
		http.Error(w, "provider validation failed", http.StatusBadGateway)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
