package services

import (
	"context"
	"strings"
	"time"

	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/models"
)

type OrganizationStore interface {
	GetOrganization(ctx context.Context, id string) (*models.Organization, error)
	UpdateOrganizationTimezone(ctx context.Context, id, timezone string) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	ListOrganizationUsers(ctx context.Context, orgID string) ([]*models.User, error)
}

// OrganizationService backs the administrator operations on an organization.
type OrganizationService struct {
	store   OrganizationStore
	periods *PeriodService
}

func NewOrganizationService(store OrganizationStore, periods *PeriodService) *OrganizationService {
	return &OrganizationService{store: store, periods: periods}
}

func (s *OrganizationService) Get(ctx context.Context, orgID string) (*models.Organization, error) {
	if orgID == "" {
		return nil, NewForbiddenError("unauthorized")
	}
	org, err := s.store.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, NewNotFoundError("organization not found")
	}
	return org, nil
}

// SetTimezone changes the organization's zone. Only supported ids are
// accepted here; resolution elsewhere still tolerates bad stored values.
func (s *OrganizationService) SetTimezone(ctx context.Context, orgID, timezone string) (*models.Organization, error) {
	org, err := s.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}
	timezone = strings.TrimSpace(timezone)
	if !s.periods.Supported(timezone) {
		return nil, NewInvalidError("unsupported timezone " + timezone)
	}
	if err := s.store.UpdateOrganizationTimezone(ctx, orgID, timezone); err != nil {
		return nil, err
	}
	org.Timezone = timezone
	return org, nil
}

func (s *OrganizationService) Members(ctx context.Context, orgID string) ([]*models.User, error) {
	if _, err := s.Get(ctx, orgID); err != nil {
		return nil, err
	}
	return s.store.ListOrganizationUsers(ctx, orgID)
}

// UserAvailability reports a member's survey availability at now.
func (s *OrganizationService) UserAvailability(ctx context.Context, orgID, userID string, now time.Time) (*Availability, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	if u.OrganizationID != orgID {
		return nil, NewForbiddenError("user belongs to another organization")
	}
	return s.periods.IsAvailable(ctx, userID, now)
}
