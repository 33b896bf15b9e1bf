package models

import "time"

// Organization groups users under one timezone. Timezone may be empty or
// unsupported; the period resolver substitutes the configured default.
type Organization struct {
	ID         string
	Name       string
	InviteCode string
	Timezone   string
	CreatedAt  time.Time
}

// Admin manages a single organization through the admin API.
type Admin struct {
	ID             string
	Email          string
	PassHash       []byte
	OrganizationID string
	CreatedAt      time.Time
}

// Registration steps stored on User.Step.
const (
	StepAwaitingName   = "awaiting_name"
	StepAwaitingInvite = "awaiting_invite"
	StepRegistered     = "registered"
)

// User is a bot participant identified by their Telegram chat.
type User struct {
	ID             string
	ChatID         int64
	Name           string
	OrganizationID string // empty while registering or when no invite was used
	Step           string
	Points         int
	WelcomeBonus   bool
	CreatedAt      time.Time
}

func (u *User) Registered() bool { return u != nil && u.Step == StepRegistered }

type Mood string

const (
	MoodGreat    Mood = "great"
	MoodGood     Mood = "good"
	MoodNeutral  Mood = "neutral"
	MoodTired    Mood = "tired"
	MoodStressed Mood = "stressed"
)

// Moods lists the accepted mood labels in display order.
var Moods = []Mood{MoodGreat, MoodGood, MoodNeutral, MoodTired, MoodStressed}

// SurveyRecord is one completed wellness survey. LocalDate is the
// organization-local calendar date (YYYY-MM-DD) of RecordedAt.
type SurveyRecord struct {
	ID           string
	UserID       string
	Period       WindowTag
	LocalDate    string
	SleepQuality int
	Energy       int
	Readiness    int
	Mood         Mood
	Points       int
	RecordedAt   time.Time
}

type ChallengeStatus string

const (
	ChallengeProposed  ChallengeStatus = "proposed"
	ChallengeActive    ChallengeStatus = "active"
	ChallengeCompleted ChallengeStatus = "completed"
	ChallengeFailed    ChallengeStatus = "failed"
	ChallengeDeclined  ChallengeStatus = "declined"
)

type Challenge struct {
	ID        string
	UserID    string
	Text      string
	Reward    int
	Status    ChallengeStatus
	Custom    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
