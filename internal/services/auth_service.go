package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/models"
)

type AuthStore interface {
	FindAdminByEmail(ctx context.Context, email string) (*models.Admin, error)
	// CreateAdmin stores the organization and its first admin together;
	// on any error neither is kept.
	CreateAdmin(ctx context.Context, org *models.Organization, admin *models.Admin) error
}

// maxPasswordBytes is the bcrypt input limit.
const maxPasswordBytes = 72

type TokenSigner func(adminID, orgID, email string, ttl time.Duration) (string, error)

type RegisterRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8,max=72"`
	Organization string `json:"organization" validate:"required,max=100"`
	Timezone     string `json:"timezone"`
}

type AuthResult struct {
	Token          string `json:"token"`
	AdminID        string `json:"admin_id"`
	OrganizationID string `json:"organization_id"`
	InviteCode     string `json:"invite_code,omitempty"`
}

// AuthService registers administrators together with their organization.
type AuthService struct {
	store     AuthStore
	periods   *PeriodService
	validate  *validator.Validate
	now       func() time.Time
	idGen     func(prefix string, n int) string
	signToken TokenSigner
	tokenTTL  time.Duration
}

func NewAuthService(store AuthStore, periods *PeriodService, signer TokenSigner) *AuthService {
	return &AuthService{
		store:     store,
		periods:   periods,
		validate:  validator.New(),
		now:       func() time.Time { return time.Now().UTC() },
		idGen:     func(prefix string, n int) string { return prefix + shortID(n) },
		signToken: signer,
		tokenTTL:  30 * 24 * time.Hour,
	}
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Organization = strings.TrimSpace(req.Organization)
	req.Timezone = strings.TrimSpace(req.Timezone)
	if err := s.validate.Struct(req); err != nil {
		return nil, NewInvalidError("email, password (8+ chars) and organization required")
	}
	if req.Timezone == "" {
		req.Timezone = s.periods.DefaultTimezone()
	}
	if !s.periods.Supported(req.Timezone) {
		return nil, NewInvalidError("unsupported timezone " + req.Timezone)
	}
	if len(req.Password) > maxPasswordBytes {
		return nil, NewInvalidError("password must be at most 72 bytes")
	}
	existing, err := s.store.FindAdminByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, NewConflictError("email exists")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := s.now()
	org := &models.Organization{
		ID:         s.idGen("o", 7),
		Name:       req.Organization,
		InviteCode: NormalizeInviteCode(shortID(6)),
		Timezone:   req.Timezone,
		CreatedAt:  now,
	}
	admin := &models.Admin{ID: s.idGen("a", 7), Email: req.Email, PassHash: hash, OrganizationID: org.ID, CreatedAt: now}
	if err := s.store.CreateAdmin(ctx, org, admin); err != nil {
		return nil, err
	}
	if s.signToken == nil {
		return nil, NewInvalidError("token signer not configured")
	}
	token, err := s.signToken(admin.ID, org.ID, admin.Email, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, AdminID: admin.ID, OrganizationID: org.ID, InviteCode: org.InviteCode}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(password) == "" {
		return nil, NewInvalidError("email/password required")
	}
	a, err := s.store.FindAdminByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, NewUnauthorizedError("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword(a.PassHash, []byte(password)); err != nil {
		return nil, NewUnauthorizedError("invalid credentials")
	}
	if s.signToken == nil {
		return nil, NewInvalidError("token signer not configured")
	}
	token, err := s.signToken(a.ID, a.OrganizationID, a.Email, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, AdminID: a.ID, OrganizationID: a.OrganizationID}, nil
}

func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}
