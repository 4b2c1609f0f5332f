package tenants

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/emprendigo/platform/pkg/logging"
)

// SchedulingCredentialValidator checks a scheduling provider API key before it is persisted.
type SchedulingCredentialValidator interface {
	ValidateKey(ctx context.Context, apiKey string) (bool, error)
	Username(ctx context.Context, apiKey string) (string, error)
}

// MessagingCredentialValidator checks a messaging provider access token before it is persisted.
type MessagingCredentialValidator interface {
	ValidateToken(ctx context.Context, accessToken string) (bool, error)
}

// Service owns the tenant connection flows. Credentials are validated
// against the live provider before they are written, so a tenant can
// never end up "connected" with a key that was dead on arrival.
type Service struct {
	repo       *Repository
	scheduling SchedulingCredentialValidator
	messaging  MessagingCredentialValidator
	logger     *logging.Logger
}

// NewService constructs a tenants service.
func NewService(repo *Repository, scheduling SchedulingCredentialValidator, messaging MessagingCredentialValidator, logger *logging.Logger) *Service {
	if repo == nil {
		panic("tenants: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, scheduling: scheduling, messaging: messaging, logger: logger.Component("tenants")}
}

// ConnectCalCom validates and stores scheduling provider credentials.
func (s *Service) ConnectCalCom(ctx context.Context, tenantID uuid.UUID, conn CalComConnection) (*Tenant, error) {
	conn.APIKey = strings.TrimSpace(conn.APIKey)
	conn.Username = strings.TrimSpace(conn.Username)
	if conn.APIKey == "" {
		return nil, ErrMissingField
	}

	ok, err := s.scheduling.ValidateKey(ctx, conn.APIKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if conn.Username == "" {
		if name, err := s.scheduling.Username(ctx, conn.APIKey); err == nil {
			conn.Username = name
		}
	}

	if err := s.repo.SaveCalComConnection(ctx, tenantID, conn); err != nil {
		return nil, err
	}
	s.logger.Info("calcom connected", "tenant_id", tenantID, "username", conn.Username)
	return s.repo.GetByID(ctx, tenantID)
}

// ConnectWhatsApp validates and stores messaging provider credentials.
func (s *Service) ConnectWhatsApp(ctx context.Context, tenantID uuid.UUID, conn WhatsAppConnection) (*Tenant, error) {
	conn.PhoneNumber = strings.TrimSpace(conn.PhoneNumber)
	conn.PhoneNumberID = strings.TrimSpace(conn.PhoneNumberID)
	conn.AccessToken = strings.TrimSpace(conn.AccessToken)
	conn.WABAID = strings.TrimSpace(conn.WABAID)
	if conn.PhoneNumber == "" || conn.PhoneNumberID == "" || conn.AccessToken == "" {
		return nil, ErrMissingField
	}

	ok, err := s.messaging.ValidateToken(ctx, conn.AccessToken)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if err := s.repo.SaveWhatsAppConnection(ctx, tenantID, conn); err != nil {
		return nil, err
	}
	s.logger.Info("whatsapp connected", "tenant_id", tenantID, "phone_number_id", conn.PhoneNumberID)
	return s.repo.GetByID(ctx, tenantID)
}
