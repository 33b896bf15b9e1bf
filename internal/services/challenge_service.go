package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/models"
)

type ChallengeStore interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	AddChallenge(ctx context.Context, c *models.Challenge) error
	GetChallenge(ctx context.Context, id string) (*models.Challenge, error)
	ListChallenges(ctx context.Context, userID string) ([]*models.Challenge, error)
	UpdateChallengeStatus(ctx context.Context, id string, status models.ChallengeStatus, at time.Time) error
	// CompleteChallenge marks the challenge completed and credits its reward
	// in one transaction. It returns the user's new balance.
	CompleteChallenge(ctx context.Context, id string, at time.Time) (int, error)
}

type CatalogEntry struct {
	Text   string
	Reward int
}

// DefaultChallengeCatalog is the proposal pool, offered in order.
var DefaultChallengeCatalog = []CatalogEntry{
	{Text: "Go to bed before 23:00 tonight", Reward: 20},
	{Text: "Take a 15-minute walk outside", Reward: 15},
	{Text: "Drink 8 glasses of water today", Reward: 15},
	{Text: "Spend one hour without your phone", Reward: 25},
	{Text: "Do a 10-minute stretching session", Reward: 15},
	{Text: "Have lunch away from your desk", Reward: 15},
	{Text: "Write down three things that went well today", Reward: 20},
	{Text: "Do 30 minutes of cardio", Reward: 30},
}

const (
	MaxActiveChallenges   = 3
	CustomChallengeReward = 10
)

type ChallengeService struct {
	store   ChallengeStore
	catalog []CatalogEntry
	now     func() time.Time
	idGen   func() string
}

func NewChallengeService(store ChallengeStore) *ChallengeService {
	return &ChallengeService{
		store:   store,
		catalog: DefaultChallengeCatalog,
		now:     func() time.Time { return time.Now().UTC() },
		idGen:   func() string { return shortID(10) },
	}
}

func (s *ChallengeService) List(ctx context.Context, userID string) ([]*models.Challenge, error) {
	if _, err := s.registeredUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.ListChallenges(ctx, userID)
}

// Propose offers the next catalog challenge the user has never been offered,
// declined ones included. An outstanding proposal is returned instead of
// creating a second one.
func (s *ChallengeService) Propose(ctx context.Context, userID string) (*models.Challenge, error) {
	if _, err := s.registeredUser(ctx, userID); err != nil {
		return nil, err
	}
	list, err := s.store.ListChallenges(ctx, userID)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	for _, c := range list {
		if c.Status == models.ChallengeProposed {
			return c, nil
		}
		seen[c.Text] = true
	}
	if countActive(list) >= MaxActiveChallenges {
		return nil, NewConflictError("too many active challenges")
	}
	for _, entry := range s.catalog {
		if seen[entry.Text] {
			continue
		}
		now := s.now()
		c := &models.Challenge{
			ID:        s.idGen(),
			UserID:    userID,
			Text:      entry.Text,
			Reward:    entry.Reward,
			Status:    models.ChallengeProposed,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.store.AddChallenge(ctx, c); err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, NewNotFoundError("no new challenges available")
}

func (s *ChallengeService) Accept(ctx context.Context, userID, id string) (*models.Challenge, error) {
	c, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if c.Status != models.ChallengeProposed {
		return nil, NewInvalidError("only proposed challenges can be accepted")
	}
	list, err := s.store.ListChallenges(ctx, userID)
	if err != nil {
		return nil, err
	}
	if countActive(list) >= MaxActiveChallenges {
		return nil, NewConflictError("too many active challenges")
	}
	now := s.now()
	if err := s.store.UpdateChallengeStatus(ctx, id, models.ChallengeActive, now); err != nil {
		return nil, err
	}
	c.Status = models.ChallengeActive
	c.UpdatedAt = now
	return c, nil
}

// Decline closes a proposed challenge. The row is kept so Propose moves on
// to the next catalog entry.
func (s *ChallengeService) Decline(ctx context.Context, userID, id string) error {
	c, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	if c.Status != models.ChallengeProposed {
		return NewInvalidError("only proposed challenges can be declined")
	}
	return s.store.UpdateChallengeStatus(ctx, id, models.ChallengeDeclined, s.now())
}

// Complete finishes an active challenge and returns it with the new balance.
func (s *ChallengeService) Complete(ctx context.Context, userID, id string) (*models.Challenge, int, error) {
	c, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, 0, err
	}
	if c.Status != models.ChallengeActive {
		return nil, 0, NewInvalidError("only active challenges can be completed")
	}
	now := s.now()
	balance, err := s.store.CompleteChallenge(ctx, id, now)
	if err != nil {
		return nil, 0, err
	}
	c.Status = models.ChallengeCompleted
	c.UpdatedAt = now
	return c, balance, nil
}

func (s *ChallengeService) Fail(ctx context.Context, userID, id string) (*models.Challenge, error) {
	c, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if c.Status != models.ChallengeActive {
		return nil, NewInvalidError("only active challenges can fail")
	}
	now := s.now()
	if err := s.store.UpdateChallengeStatus(ctx, id, models.ChallengeFailed, now); err != nil {
		return nil, err
	}
	c.Status = models.ChallengeFailed
	c.UpdatedAt = now
	return c, nil
}

// CreateCustom stores a self-authored challenge, active immediately.
func (s *ChallengeService) CreateCustom(ctx context.Context, userID, text string) (*models.Challenge, error) {
	if _, err := s.registeredUser(ctx, userID); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n < 3 || n > 200 {
		return nil, NewInvalidError("challenge text must be 3-200 characters")
	}
	list, err := s.store.ListChallenges(ctx, userID)
	if err != nil {
		return nil, err
	}
	if countActive(list) >= MaxActiveChallenges {
		return nil, NewConflictError("too many active challenges")
	}
	now := s.now()
	c := &models.Challenge{
		ID:        s.idGen(),
		UserID:    userID,
		Text:      text,
		Reward:    CustomChallengeReward,
		Status:    models.ChallengeActive,
		Custom:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.AddChallenge(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ChallengeService) registeredUser(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	if !u.Registered() {
		return nil, ErrNotRegistered
	}
	return u, nil
}

func (s *ChallengeService) owned(ctx context.Context, userID, id string) (*models.Challenge, error) {
	c, err := s.store.GetChallenge(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil || c.UserID != userID {
		return nil, NewNotFoundError("challenge not found")
	}
	return c, nil
}

func countActive(list []*models.Challenge) int {
	n := 0
	for _, c := range list {
		if c.Status == models.ChallengeActive {
			n++
		}
	}
	return n
}

func shortID(n int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
}
