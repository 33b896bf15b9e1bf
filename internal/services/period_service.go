package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/models"
)

// PeriodStore is the read side of persistence the resolver depends on.
type PeriodStore interface {
	// GetUserOrganization returns "" for a user without an organization and
	// ErrUserNotFound for an unknown user.
	GetUserOrganization(ctx context.Context, userID string) (string, error)
	// GetOrganizationTimezone returns "" when the organization or its timezone is unknown.
	GetOrganizationTimezone(ctx context.Context, orgID string) (string, error)
	FindCompletions(ctx context.Context, userID string, period models.WindowTag, localDate string) ([]*models.SurveyRecord, error)
}

// PeriodConfig carries the per-process fallbacks of the resolver.
type PeriodConfig struct {
	DefaultTimezone       string
	SupportedTimezones    []string
	DefaultOrganizationID string
}

const (
	ReasonOutsideHours     = "outside survey hours"
	ReasonAlreadyCompleted = "already completed"
)

// Availability is the answer to "can this user take the survey now".
type Availability struct {
	Available  bool             `json:"available"`
	Window     models.WindowTag `json:"window"`
	Reason     string           `json:"reason,omitempty"`
	LocalDate  string           `json:"local_date"`
	Timezone   string           `json:"timezone"`
	NextWindow string           `json:"next_window"`
}

// Outcome labels the check for metrics: "available", "outside_hours" or
// "already_completed".
func (a *Availability) Outcome() string {
	switch {
	case a.Available:
		return "available"
	case a.Reason == ReasonAlreadyCompleted:
		return "already_completed"
	default:
		return "outside_hours"
	}
}

// DayProgress reports which windows were completed on one organization-local day.
type DayProgress struct {
	LocalDate string
	Timezone  string
	Current   models.WindowTag
	Completed map[models.WindowTag]bool
}

func (p *DayProgress) CompletedCount() int {
	n := 0
	for _, done := range p.Completed {
		if done {
			n++
		}
	}
	return n
}

type PeriodService struct {
	store        PeriodStore
	zones        *zoneTable
	defaultOrgID string
}

func NewPeriodService(store PeriodStore, cfg PeriodConfig) *PeriodService {
	return &PeriodService{
		store:        store,
		zones:        newZoneTable(cfg.DefaultTimezone, cfg.SupportedTimezones),
		defaultOrgID: strings.TrimSpace(cfg.DefaultOrganizationID),
	}
}

// Location resolves a timezone id, substituting the default zone for
// unknown or unsupported ids.
func (s *PeriodService) Location(timezoneID string) *time.Location {
	return s.zones.location(timezoneID)
}

func (s *PeriodService) DefaultTimezone() string { return s.zones.def.String() }

// SupportedTimezones lists the accepted ids, default first.
func (s *PeriodService) SupportedTimezones() []string {
	return append([]string(nil), s.zones.ordered...)
}

func (s *PeriodService) Supported(timezoneID string) bool {
	_, ok := s.zones.zones[strings.TrimSpace(timezoneID)]
	return ok
}

// ResolveWindow classifies instant in the organization-local time of timezoneID.
func (s *PeriodService) ResolveWindow(timezoneID string, instant time.Time) models.WindowTag {
	return ClassifyLocal(instant.In(s.Location(timezoneID)))
}

// LocalDate returns the organization-local calendar date of instant.
func (s *PeriodService) LocalDate(timezoneID string, instant time.Time) string {
	return instant.In(s.Location(timezoneID)).Format(LocalDateLayout)
}

// UserTimezone resolves the timezone id governing userID. Users without an
// organization use the default organization, then the default zone.
func (s *PeriodService) UserTimezone(ctx context.Context, userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", ErrUserNotFound
	}
	orgID, err := s.store.GetUserOrganization(ctx, userID)
	if err != nil {
		return "", err
	}
	if orgID == "" {
		orgID = s.defaultOrgID
	}
	if orgID == "" {
		return s.DefaultTimezone(), nil
	}
	tz, err := s.store.GetOrganizationTimezone(ctx, orgID)
	if err != nil {
		return "", fmt.Errorf("organization %s timezone: %w", orgID, err)
	}
	return s.Location(tz).String(), nil
}

func (s *PeriodService) ResolveWindowForUser(ctx context.Context, userID string, now time.Time) (models.WindowTag, error) {
	tz, err := s.UserTimezone(ctx, userID)
	if err != nil {
		return models.WindowNone, err
	}
	return s.ResolveWindow(tz, now), nil
}

func (s *PeriodService) IsAvailable(ctx context.Context, userID string, now time.Time) (*Availability, error) {
	tz, err := s.UserTimezone(ctx, userID)
	if err != nil {
		return nil, err
	}
	window := s.ResolveWindow(tz, now)
	av := &Availability{
		Window:     window,
		LocalDate:  s.LocalDate(tz, now),
		Timezone:   tz,
		NextWindow: NextWindow(window),
	}
	if !window.Active() {
		av.Reason = ReasonOutsideHours
		return av, nil
	}
	records, err := s.store.FindCompletions(ctx, userID, window, av.LocalDate)
	if err != nil {
		return nil, fmt.Errorf("find completions: %w", err)
	}
	if len(records) > 0 {
		av.Reason = ReasonAlreadyCompleted
		return av, nil
	}
	av.Available = true
	return av, nil
}

func (s *PeriodService) DayProgress(ctx context.Context, userID string, now time.Time) (*DayProgress, error) {
	tz, err := s.UserTimezone(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := &DayProgress{
		LocalDate: s.LocalDate(tz, now),
		Timezone:  tz,
		Current:   s.ResolveWindow(tz, now),
		Completed: map[models.WindowTag]bool{},
	}
	for _, w := range models.ActiveWindows {
		records, err := s.store.FindCompletions(ctx, userID, w, p.LocalDate)
		if err != nil {
			return nil, fmt.Errorf("find %s completions: %w", w, err)
		}
		p.Completed[w] = len(records) > 0
	}
	return p, nil
}
