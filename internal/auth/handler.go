package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/emprendigo/platform/internal/tenants"
	"github.com/emprendigo/platform/pkg/logging"
)

// Handler serves registration and login.
type Handler struct {
	users   *Repository
	tenants *tenants.Repository
	signer  *TokenSigner
	logger  *logging.Logger
}

// NewHandler creates an auth handler.
func NewHandler(users *Repository, tenantRepo *tenants.Repository, signer *TokenSigner, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{users: users, tenants: tenantRepo, signer: signer, logger: logger.Component("auth")}
}

// RegisterRequest is the POST /auth/register body.
type RegisterRequest struct {
	Slug         string `json:"slug"`
	BusinessName string `json:"business_name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
}

// TokenResponse is the issued-credential payload.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (req *RegisterRequest) validate() error {
	req.Slug = strings.ToLower(strings.TrimSpace(req.Slug))
	req.BusinessName = strings.TrimSpace(req.BusinessName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Slug == "" || req.BusinessName == "" || req.Email == "" {
		return errors.New("slug, business_name and email are required")
	}
	if len(req.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}

// Register handles POST /auth/register: creates the tenant plus its owner login.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tenant := &tenants.Tenant{
		Slug:         req.Slug,
		BusinessName: req.BusinessName,
		Email:        req.Email,
	}
	if err := h.tenants.Create(r.Context(), tenant); err != nil {
		if errors.Is(err, tenants.ErrSlugTaken) || errors.Is(err, tenants.ErrEmailTaken) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to create tenant", "error", err, "slug", req.Slug)
		http.Error(w, "registration failed", http.StatusInternalServerError)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("failed to hash password", "error", err)
		http.Error(w, "registration failed", http.StatusInternalServerError)
		return
	}

	user := &User{
		TenantID:       tenant.ID,
		Email:          req.Email,
		HashedPassword: string(hash),
		Role:           "owner",
		IsActive:       true,
	}
	if err := h.users.Create(r.Context(), user); err != nil {
		h.logger.Error("failed to create user", "error", err, "tenant_id", tenant.ID)
		http.Error(w, "registration failed", http.StatusInternalServerError)
		return
	}

	token, err := h.signer.Sign(user.ID, tenant.ID)
	if err != nil {
		h.logger.Error("failed to sign token", "error", err)
		http.Error(w, "registration failed", http.StatusInternalServerError)
		return
	}

	h.logger.Info("tenant registered", "tenant_id", tenant.ID, "slug", tenant.Slug)
	writeJSON(w, http.StatusCreated, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// LoginRequest is the POST /auth/login body; username carries the email.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.users.GetByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Username)))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			http.Error(w, "incorrect email or password", http.StatusUnauthorized)
			return
		}
		h.logger.Error("failed to load user", "error", err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}
	if !user.IsActive {
		http.Error(w, "incorrect email or password", http.StatusUnauthorized)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)) != nil {
		http.Error(w, "incorrect email or password", http.StatusUnauthorized)
		return
	}

	token, err := h.signer.Sign(user.ID, user.TenantID)
	if err != nil {
		h.logger.Error("failed to sign token", "error", err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	if err := h.users.TouchLastLogin(r.Context(), user.ID); err != nil {
		h.logger.Warn("failed to record login time", "error", err, "user_id", user.ID)
	}

	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
