package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/models"
)

type RegistrationStore interface {
	GetUserByChatID(ctx context.Context, chatID int64) (*models.User, error)
	AddUser(ctx context.Context, u *models.User) error
	UpdateUser(ctx context.Context, u *models.User) error
	FindOrganizationByInvite(ctx context.Context, code string) (*models.Organization, error)
	// CompleteRegistration writes the registration fields of u and credits
	// bonus points in one transaction, returning the new balance.
	CompleteRegistration(ctx context.Context, u *models.User, bonus int) (int, error)
}

// SkipInvite lets a user finish registration without an organization.
const SkipInvite = "skip"

// RegistrationService drives the name -> invite code registration steps.
type RegistrationService struct {
	store RegistrationStore
	now   func() time.Time
	idGen func() string
}

func NewRegistrationService(store RegistrationStore) *RegistrationService {
	return &RegistrationService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: uuid.NewString,
	}
}

// Start returns the user for chatID, creating one at the first step if the
// chat is new. created reports whether a user was created.
func (s *RegistrationService) Start(ctx context.Context, chatID int64) (user *models.User, created bool, err error) {
	existing, err := s.store.GetUserByChatID(ctx, chatID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	u := &models.User{
		ID:        s.idGen(),
		ChatID:    chatID,
		Step:      models.StepAwaitingName,
		CreatedAt: s.now(),
	}
	if err := s.store.AddUser(ctx, u); err != nil {
		return nil, false, err
	}
	return u, true, nil
}

func (s *RegistrationService) UserByChat(ctx context.Context, chatID int64) (*models.User, error) {
	u, err := s.store.GetUserByChatID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *RegistrationService) SubmitName(ctx context.Context, chatID int64, name string) (*models.User, error) {
	u, err := s.UserByChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if u.Step != models.StepAwaitingName {
		return nil, NewInvalidError("name not expected at step " + u.Step)
	}
	name = strings.Join(strings.Fields(name), " ")
	if n := utf8.RuneCountInString(name); n < 2 || n > 64 {
		return nil, NewInvalidError("name must be 2-64 characters")
	}
	u.Name = name
	u.Step = models.StepAwaitingInvite
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// SubmitInvite joins the organization behind code and finishes registration.
// The returned organization is nil when the user skipped the step.
func (s *RegistrationService) SubmitInvite(ctx context.Context, chatID int64, code string) (*models.User, *models.Organization, error) {
	u, err := s.UserByChat(ctx, chatID)
	if err != nil {
		return nil, nil, err
	}
	if u.Step != models.StepAwaitingInvite {
		return nil, nil, NewInvalidError("invite code not expected at step " + u.Step)
	}
	code = NormalizeInviteCode(code)
	if code == "" {
		return nil, nil, NewInvalidError("invite code required")
	}
	var org *models.Organization
	if !strings.EqualFold(code, SkipInvite) {
		org, err = s.store.FindOrganizationByInvite(ctx, code)
		if err != nil {
			return nil, nil, err
		}
		if org == nil {
			return nil, nil, NewNotFoundError("invite code not found")
		}
		u.OrganizationID = org.ID
	}
	bonus := 0
	if !u.WelcomeBonus {
		bonus = WelcomeBonusPoints
	}
	u.Step = models.StepRegistered
	u.WelcomeBonus = true
	balance, err := s.store.CompleteRegistration(ctx, u, bonus)
	if err != nil {
		return nil, nil, err
	}
	u.Points = balance
	return u, org, nil
}

// NormalizeInviteCode trims and upper-cases a user-typed invite code.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
