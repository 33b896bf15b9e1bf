package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/models"
)

// SurveyStore abstracts persistence operations required by SurveyService.
type SurveyStore interface {
	PeriodStore
	GetUser(ctx context.Context, id string) (*models.User, error)
	// RecordCompletion inserts rec and credits rec.Points to the user in one
	// transaction. A second record for the same user, period and local date
	// fails with ErrAlreadyCompleted.
	RecordCompletion(ctx context.Context, rec *models.SurveyRecord) (string, error)
}

// SurveyAnswers are the four self-reported metrics of one survey.
type SurveyAnswers struct {
	SleepQuality int         `validate:"min=1,max=10"`
	Energy       int         `validate:"min=1,max=10"`
	Readiness    int         `validate:"min=1,max=10"`
	Mood         models.Mood `validate:"required,oneof=great good neutral tired stressed"`
}

type SurveyResult struct {
	Record        *models.SurveyRecord
	PointsAwarded int
	FullDay       bool
	Balance       int
	Level         int
	NextWindow    string
}

const DefaultSurveyPoints = 10

type SurveyService struct {
	store    SurveyStore
	periods  *PeriodService
	validate *validator.Validate
	points   int
	now      func() time.Time
	idGen    func() string
}

func NewSurveyService(store SurveyStore, periods *PeriodService, pointsPerSurvey int) *SurveyService {
	if pointsPerSurvey <= 0 {
		pointsPerSurvey = DefaultSurveyPoints
	}
	return &SurveyService{
		store:    store,
		periods:  periods,
		validate: validator.New(),
		points:   pointsPerSurvey,
		now:      func() time.Time { return time.Now().UTC() },
		idGen:    uuid.NewString,
	}
}

// SetClock replaces the time source used to resolve the submit window.
func (s *SurveyService) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// ValidateAnswers checks metric bounds and the mood label.
func (s *SurveyService) ValidateAnswers(ans SurveyAnswers) error {
	if err := s.validate.Struct(ans); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			return NewInvalidError("invalid answers: " + strings.Join(fields, ", "))
		}
		return NewInvalidError(err.Error())
	}
	return nil
}

// Submit records a completed survey for the window open right now. The
// window and local day are resolved at submit time, not when the survey started.
func (s *SurveyService) Submit(ctx context.Context, userID string, ans SurveyAnswers) (*SurveyResult, error) {
	if s.store == nil {
		return nil, errors.New("survey service store is nil")
	}
	if err := s.ValidateAnswers(ans); err != nil {
		return nil, err
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if !user.Registered() {
		return nil, ErrNotRegistered
	}

	now := s.now()
	av, err := s.periods.IsAvailable(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if !av.Window.Active() {
		return nil, ErrOutsideSurveyHours
	}
	if !av.Available {
		return nil, ErrAlreadyCompleted
	}

	progress, err := s.periods.DayProgress(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	fullDay := progress.CompletedCount() == len(models.ActiveWindows)-1

	rec := &models.SurveyRecord{
		ID:           s.idGen(),
		UserID:       userID,
		Period:       av.Window,
		LocalDate:    av.LocalDate,
		SleepQuality: ans.SleepQuality,
		Energy:       ans.Energy,
		Readiness:    ans.Readiness,
		Mood:         ans.Mood,
		Points:       s.points,
		RecordedAt:   now.UTC(),
	}
	if fullDay {
		rec.Points += FullDayBonusPoints
	}
	id, err := s.store.RecordCompletion(ctx, rec)
	if err != nil {
		if errors.Is(err, ErrAlreadyCompleted) {
			return nil, ErrAlreadyCompleted
		}
		return nil, fmt.Errorf("record completion: %w", err)
	}
	if id != "" {
		rec.ID = id
	}

	balance := user.Points + rec.Points
	if fresh, err := s.store.GetUser(ctx, userID); err == nil && fresh != nil {
		balance = fresh.Points
	}
	return &SurveyResult{
		Record:        rec,
		PointsAwarded: rec.Points,
		FullDay:       fullDay,
		Balance:       balance,
		Level:         LevelForPoints(balance),
		NextWindow:    NextWindow(av.Window),
	}, nil
}
