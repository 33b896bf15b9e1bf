package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/models"
)

// stubStore is an in-memory collaborator shared by the service tests.
type stubStore struct {
	orgs       map[string]*models.Organization
	admins     map[string]*models.Admin
	users      map[string]*models.User
	records    []*models.SurveyRecord
	challenges map[string]*models.Challenge

	writes      int
	findErr     error
	createErr   error
	completeErr error
}

func newStubStore() *stubStore {
	return &stubStore{
		orgs:       map[string]*models.Organization{},
		admins:     map[string]*models.Admin{},
		users:      map[string]*models.User{},
		challenges: map[string]*models.Challenge{},
	}
}

func (s *stubStore) GetUserOrganization(ctx context.Context, userID string) (string, error) {
	u, ok := s.users[userID]
	if !ok {
		return "", ErrUserNotFound
	}
	return u.OrganizationID, nil
}

func (s *stubStore) GetOrganizationTimezone(ctx context.Context, orgID string) (string, error) {
	if o, ok := s.orgs[orgID]; ok {
		return o.Timezone, nil
	}
	return "", nil
}

func (s *stubStore) FindCompletions(ctx context.Context, userID string, period models.WindowTag, localDate string) ([]*models.SurveyRecord, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	var out []*models.SurveyRecord
	for _, r := range s.records {
		if r.UserID == userID && r.Period == period && r.LocalDate == localDate {
			copy := *r
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (s *stubStore) RecordCompletion(ctx context.Context, rec *models.SurveyRecord) (string, error) {
	for _, r := range s.records {
		if r.UserID == rec.UserID && r.Period == rec.Period && r.LocalDate == rec.LocalDate {
			return "", ErrAlreadyCompleted
		}
	}
	u, ok := s.users[rec.UserID]
	if !ok {
		return "", ErrUserNotFound
	}
	s.writes++
	copy := *rec
	s.records = append(s.records, &copy)
	u.Points += rec.Points
	return rec.ID, nil
}

func (s *stubStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, nil
}

func (s *stubStore) GetUserByChatID(ctx context.Context, chatID int64) (*models.User, error) {
	for _, u := range s.users {
		if u.ChatID == chatID {
			copy := *u
			return &copy, nil
		}
	}
	return nil, nil
}

func (s *stubStore) AddUser(ctx context.Context, u *models.User) error {
	if _, ok := s.users[u.ID]; ok {
		return errors.New("duplicate user")
	}
	s.writes++
	copy := *u
	s.users[u.ID] = &copy
	return nil
}

func (s *stubStore) UpdateUser(ctx context.Context, u *models.User) error {
	cur, ok := s.users[u.ID]
	if !ok {
		return ErrUserNotFound
	}
	s.writes++
	points := cur.Points
	copy := *u
	copy.Points = points
	s.users[u.ID] = &copy
	return nil
}

func (s *stubStore) ListOrganizationUsers(ctx context.Context, orgID string) ([]*models.User, error) {
	var out []*models.User
	for _, u := range s.users {
		if u.OrganizationID == orgID {
			copy := *u
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (s *stubStore) CompleteRegistration(ctx context.Context, u *models.User, bonus int) (int, error) {
	cur, ok := s.users[u.ID]
	if !ok {
		return 0, ErrUserNotFound
	}
	if s.completeErr != nil {
		return 0, s.completeErr
	}
	s.writes++
	copy := *u
	copy.Points = cur.Points + bonus
	s.users[u.ID] = &copy
	return copy.Points, nil
}

func (s *stubStore) FindOrganizationByInvite(ctx context.Context, code string) (*models.Organization, error) {
	for _, o := range s.orgs {
		if strings.EqualFold(o.InviteCode, code) {
			copy := *o
			return &copy, nil
		}
	}
	return nil, nil
}

func (s *stubStore) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	if o, ok := s.orgs[id]; ok {
		copy := *o
		return &copy, nil
	}
	return nil, nil
}

func (s *stubStore) UpdateOrganizationTimezone(ctx context.Context, id, timezone string) error {
	o, ok := s.orgs[id]
	if !ok {
		return NewNotFoundError("organization not found")
	}
	s.writes++
	o.Timezone = timezone
	return nil
}

func (s *stubStore) FindAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	if a, ok := s.admins[email]; ok {
		copy := *a
		return &copy, nil
	}
	return nil, nil
}

func (s *stubStore) CreateAdmin(ctx context.Context, org *models.Organization, a *models.Admin) error {
	if s.createErr != nil {
		return s.createErr
	}
	if _, ok := s.admins[a.Email]; ok {
		return NewConflictError("email exists")
	}
	s.writes++
	o := *org
	s.orgs[org.ID] = &o
	copy := *a
	s.admins[a.Email] = &copy
	return nil
}

func (s *stubStore) AddChallenge(ctx context.Context, c *models.Challenge) error {
	s.writes++
	copy := *c
	s.challenges[c.ID] = &copy
	return nil
}

func (s *stubStore) GetChallenge(ctx context.Context, id string) (*models.Challenge, error) {
	if c, ok := s.challenges[id]; ok {
		copy := *c
		return &copy, nil
	}
	return nil, nil
}

func (s *stubStore) ListChallenges(ctx context.Context, userID string) ([]*models.Challenge, error) {
	var out []*models.Challenge
	for _, c := range s.challenges {
		if c.UserID == userID {
			copy := *c
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (s *stubStore) UpdateChallengeStatus(ctx context.Context, id string, status models.ChallengeStatus, at time.Time) error {
	c, ok := s.challenges[id]
	if !ok {
		return NewNotFoundError("challenge not found")
	}
	s.writes++
	c.Status = status
	c.UpdatedAt = at
	return nil
}

func (s *stubStore) CompleteChallenge(ctx context.Context, id string, at time.Time) (int, error) {
	c, ok := s.challenges[id]
	if !ok {
		return 0, NewNotFoundError("challenge not found")
	}
	u, ok := s.users[c.UserID]
	if !ok {
		return 0, ErrUserNotFound
	}
	s.writes++
	c.Status = models.ChallengeCompleted
	c.UpdatedAt = at
	u.Points += c.Reward
	return u.Points, nil
}

func (s *stubStore) addRegisteredUser(id, orgID string) *models.User {
	u := &models.User{ID: id, ChatID: int64(len(s.users) + 100), Name: "User " + id, OrganizationID: orgID, Step: models.StepRegistered}
	s.users[id] = u
	return u
}

func (s *stubStore) ListOrganizationRecords(ctx context.Context, orgID, fromDate, toDate string) ([]*models.SurveyRecord, error) {
	var out []*models.SurveyRecord
	for _, r := range s.records {
		u, ok := s.users[r.UserID]
		if !ok || u.OrganizationID != orgID {
			continue
		}
		if (fromDate != "" && r.LocalDate < fromDate) || (toDate != "" && r.LocalDate > toDate) {
			continue
		}
		copy := *r
		out = append(out, &copy)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LocalDate != out[j].LocalDate {
			return out[i].LocalDate < out[j].LocalDate
		}
		return out[i].RecordedAt.Before(out[j].RecordedAt)
	})
	return out, nil
}
