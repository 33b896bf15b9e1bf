package api

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/models"
	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/services"
)

// MemoryStore keeps everything in process memory. It backs the "memory"
// driver and the HTTP and bot tests.
type MemoryStore struct {
	mu           sync.RWMutex
	orgs         map[string]*models.Organization
	adminsByMail map[string]*models.Admin
	users        map[string]*models.User
	usersByChat  map[int64]string
	records      []*models.SurveyRecord
	challenges   map[string]*models.Challenge
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orgs:         map[string]*models.Organization{},
		adminsByMail: map[string]*models.Admin{},
		users:        map[string]*models.User{},
		usersByChat:  map[int64]string{},
		records:      []*models.SurveyRecord{},
		challenges:   map[string]*models.Challenge{},
	}
}

// organizations

func (s *MemoryStore) AddOrganization(ctx context.Context, o *models.Organization) error {
	if o == nil {
		return services.NewInvalidError("organization required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[o.ID]; ok {
		return services.NewConflictError("organization already exists")
	}
	cp := *o
	s.orgs[o.ID] = &cp
	return nil
}

func (s *MemoryStore) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orgs[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (s *MemoryStore) FindOrganizationByInvite(ctx context.Context, code string) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.orgs {
		if strings.EqualFold(o.InviteCode, code) {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) GetOrganizationTimezone(ctx context.Context, orgID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if o, ok := s.orgs[orgID]; ok {
		return o.Timezone, nil
	}
	return "", nil
}

func (s *MemoryStore) UpdateOrganizationTimezone(ctx context.Context, id, timezone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orgs[id]
	if !ok {
		return services.NewNotFoundError("organization not found")
	}
	o.Timezone = timezone
	return nil
}

// admins

// CreateAdmin stores org and its first admin under one lock.
func (s *MemoryStore) CreateAdmin(ctx context.Context, org *models.Organization, a *models.Admin) error {
	if org == nil || a == nil {
		return services.NewInvalidError("organization and admin required")
	}
	key := strings.ToLower(a.Email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.adminsByMail[key]; ok {
		return services.NewConflictError("email exists")
	}
	if _, ok := s.orgs[org.ID]; ok {
		return services.NewConflictError("organization already exists")
	}
	o := *org
	s.orgs[org.ID] = &o
	cp := *a
	s.adminsByMail[key] = &cp
	return nil
}

func (s *MemoryStore) FindAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.adminsByMail[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

// users

func (s *MemoryStore) AddUser(ctx context.Context, u *models.User) error {
	if u == nil {
		return services.NewInvalidError("user required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return services.NewConflictError("user already exists")
	}
	if _, ok := s.usersByChat[u.ChatID]; ok {
		return services.NewConflictError("chat already registered")
	}
	cp := *u
	s.users[u.ID] = &cp
	s.usersByChat[u.ChatID] = u.ID
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) GetUserByChatID(ctx context.Context, chatID int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usersByChat[chatID]
	if !ok {
		return nil, nil
	}
	cp := *s.users[id]
	return &cp, nil
}

// UpdateUser keeps the stored balance; points only move through AddPoints
// and the completion methods.
func (s *MemoryStore) UpdateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.users[u.ID]
	if !ok {
		return services.ErrUserNotFound
	}
	cur.Name = u.Name
	cur.OrganizationID = u.OrganizationID
	cur.Step = u.Step
	cur.WelcomeBonus = u.WelcomeBonus
	return nil
}

func (s *MemoryStore) CompleteRegistration(ctx context.Context, u *models.User, bonus int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.users[u.ID]
	if !ok {
		return 0, services.ErrUserNotFound
	}
	cur.Name = u.Name
	cur.OrganizationID = u.OrganizationID
	cur.Step = u.Step
	cur.WelcomeBonus = u.WelcomeBonus
	cur.Points += bonus
	return cur.Points, nil
}

func (s *MemoryStore) GetUserOrganization(ctx context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return "", services.ErrUserNotFound
	}
	return u.OrganizationID, nil
}

func (s *MemoryStore) AddPoints(ctx context.Context, userID string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return 0, services.ErrUserNotFound
	}
	u.Points += delta
	return u.Points, nil
}

// ListOrganizationUsers returns the members of orgID ordered by name.
func (s *MemoryStore) ListOrganizationUsers(ctx context.Context, orgID string) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.User{}
	for _, u := range s.users {
		if u.OrganizationID == orgID {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// survey records

func (s *MemoryStore) FindCompletions(ctx context.Context, userID string, period models.WindowTag, localDate string) ([]*models.SurveyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.SurveyRecord
	for _, r := range s.records {
		if r.UserID == userID && r.Period == period && r.LocalDate == localDate {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) RecordCompletion(ctx context.Context, rec *models.SurveyRecord) (string, error) {
	if rec == nil {
		return "", services.NewInvalidError("record required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[rec.UserID]
	if !ok {
		return "", services.ErrUserNotFound
	}
	for _, r := range s.records {
		if r.UserID == rec.UserID && r.Period == rec.Period && r.LocalDate == rec.LocalDate {
			return "", services.ErrAlreadyCompleted
		}
	}
	cp := *rec
	s.records = append(s.records, &cp)
	u.Points += rec.Points
	return rec.ID, nil
}

// ListOrganizationRecords returns the records of orgID's members whose local
// date falls in [fromDate, toDate]. Empty bounds are open.
func (s *MemoryStore) ListOrganizationRecords(ctx context.Context, orgID, fromDate, toDate string) ([]*models.SurveyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.SurveyRecord{}
	for _, r := range s.records {
		u, ok := s.users[r.UserID]
		if !ok || u.OrganizationID != orgID {
			continue
		}
		if (fromDate != "" && r.LocalDate < fromDate) || (toDate != "" && r.LocalDate > toDate) {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LocalDate != out[j].LocalDate {
			return out[i].LocalDate < out[j].LocalDate
		}
		if !out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].RecordedAt.Before(out[j].RecordedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// challenges

func (s *MemoryStore) AddChallenge(ctx context.Context, c *models.Challenge) error {
	if c == nil {
		return services.NewInvalidError("challenge required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.challenges[c.ID] = &cp
	return nil
}

func (s *MemoryStore) GetChallenge(ctx context.Context, id string) (*models.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.challenges[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) ListChallenges(ctx context.Context, userID string) ([]*models.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.Challenge{}
	for _, c := range s.challenges {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) UpdateChallengeStatus(ctx context.Context, id string, status models.ChallengeStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[id]
	if !ok {
		return services.NewNotFoundError("challenge not found")
	}
	c.Status = status
	c.UpdatedAt = at
	return nil
}

func (s *MemoryStore) CompleteChallenge(ctx context.Context, id string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[id]
	if !ok {
		return 0, services.NewNotFoundError("challenge not found")
	}
	if c.Status != models.ChallengeActive {
		return 0, services.NewConflictError("challenge is not active")
	}
	u, ok := s.users[c.UserID]
	if !ok {
		return 0, services.ErrUserNotFound
	}
	c.Status = models.ChallengeCompleted
	c.UpdatedAt = at
	u.Points += c.Reward
	return u.Points, nil
}
