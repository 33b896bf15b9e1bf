package bot

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/api"
	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/models"
	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/services"
	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/utils"
)

type fakeSender struct {
	mu        sync.Mutex
	messages  []tgbotapi.MessageConfig
	callbacks []tgbotapi.CallbackConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.messages = append(f.messages, m)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cb, ok := c.(tgbotapi.CallbackConfig); ok {
		f.callbacks = append(f.callbacks, cb)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func (f *fakeSender) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.messages, "no message sent")
	return f.messages[len(f.messages)-1]
}

type botEnv struct {
	h      *Handler
	sender *fakeSender
	store  *api.MemoryStore
	now    time.Time
}

func newBotEnv(t *testing.T, now time.Time, opts Options) *botEnv {
	t.Helper()
	store := api.NewMemoryStore()
	require.NoError(t, store.AddOrganization(context.Background(), &models.Organization{
		ID: "o1", Name: "Acme", InviteCode: "ACME42", Timezone: "UTC", CreatedAt: now,
	}))
	env := &botEnv{sender: &fakeSender{}, store: store, now: now}
	clock := func() time.Time { return env.now }

	periods := services.NewPeriodService(store, services.PeriodConfig{
		DefaultTimezone:    "UTC",
		SupportedTimezones: []string{"UTC", "Europe/Moscow"},
	})
	surveys := services.NewSurveyService(store, periods, services.DefaultSurveyPoints)
	surveys.SetClock(clock)

	if opts.Log == nil {
		quiet := logrus.New()
		quiet.SetOutput(io.Discard)
		opts.Log = logrus.NewEntry(quiet)
	}
	if opts.RatePerSecond == 0 {
		opts.RatePerSecond, opts.RateBurst = 1000, 1000
	}
	env.h = NewHandler(env.sender, Services{
		Registration: services.NewRegistrationService(store),
		Surveys:      surveys,
		Periods:      periods,
		Challenges:   services.NewChallengeService(store),
	}, opts)
	env.h.now = clock
	return env
}

func (e *botEnv) text(chatID int64, text string) {
	e.textAs(chatID, "en", text)
}

func (e *botEnv) textAs(chatID int64, lang, text string) {
	msg := &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: chatID},
		From: &tgbotapi.User{ID: chatID, LanguageCode: lang},
		Text: text,
	}
	if strings.HasPrefix(text, "/") {
		cmd := strings.Fields(text)[0]
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	e.h.HandleUpdate(context.Background(), tgbotapi.Update{Message: msg})
}

func (e *botEnv) press(chatID int64, data string) {
	e.h.HandleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: chatID, LanguageCode: "en"},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}},
		Data:    data,
	}})
}

func (e *botEnv) register(t *testing.T, chatID int64) *models.User {
	t.Helper()
	e.text(chatID, "/start")
	e.text(chatID, "Anna")
	e.text(chatID, "acme42")
	u, err := e.store.GetUserByChatID(context.Background(), chatID)
	require.NoError(t, err)
	require.True(t, u.Registered())
	return u
}

func TestRegistrationFlow(t *testing.T) {
	env := newBotEnv(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), Options{})

	env.text(1, "/start")
	assert.Equal(t, utils.T("en", "start.welcome"), env.sender.last(t).Text)

	env.text(1, "A")
	assert.Equal(t, utils.T("en", "reg.name_invalid"), env.sender.last(t).Text)

	env.text(1, "  Anna  ")
	assert.Equal(t, utils.Tf("en", "reg.ask_invite", "Anna"), env.sender.last(t).Text)

	env.text(1, "NOPE")
	assert.Equal(t, utils.T("en", "reg.invite_unknown"), env.sender.last(t).Text)

	env.text(1, "acme42")
	assert.Equal(t, utils.Tf("en", "reg.done_org", "Acme", services.WelcomeBonusPoints), env.sender.last(t).Text)

	u, err := env.store.GetUserByChatID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "o1", u.OrganizationID)
	assert.Equal(t, services.WelcomeBonusPoints, u.Points)

	env.text(1, "/start")
	assert.Equal(t, utils.Tf("en", "start.back", "Anna"), env.sender.last(t).Text)
}

func TestRegistrationSkipInvite(t *testing.T) {
	env := newBotEnv(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), Options{})
	env.text(2, "/start")
	env.text(2, "Boris")
	env.text(2, "skip")
	assert.Equal(t, utils.Tf("en", "reg.done_solo", services.WelcomeBonusPoints), env.sender.last(t).Text)
}

func TestCommandsRequireRegistration(t *testing.T) {
	env := newBotEnv(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), Options{})
	for _, cmd := range []string{"/survey", "/status", "/points", "/challenges", "/newchallenge"} {
		env.text(5, cmd)
		assert.Equal(t, utils.T("en", "reg.required"), env.sender.last(t).Text, cmd)
	}
	env.text(5, "hello")
	assert.Equal(t, utils.T("en", "reg.required"), env.sender.last(t).Text)
}

func TestSurveyFlow(t *testing.T) {
	env := newBotEnv(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), Options{})
	env.register(t, 1)

	env.text(1, "/survey")
	first := env.sender.last(t)
	assert.Equal(t, utils.T("en", "survey.q_sleep"), first.Text)
	kb, ok := first.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, kb.InlineKeyboard, 2)
	require.Len(t, kb.InlineKeyboard[0], 5)
	assert.Equal(t, "s:sleep:1", *kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "s:sleep:10", *kb.InlineKeyboard[1][4].CallbackData)

	// Out-of-order answers are ignored.
	before := env.sender.count()
	env.press(1, "s:energy:5")
	assert.Equal(t, before, env.sender.count())

	env.press(1, "s:sleep:7")
	assert.Equal(t, utils.T("en", "survey.q_energy"), env.sender.last(t).Text)
	env.press(1, "s:energy:8")
	assert.Equal(t, utils.T("en", "survey.q_readiness"), env.sender.last(t).Text)
	env.press(1, "s:readiness:6")
	mood := env.sender.last(t)
	assert.Equal(t, utils.T("en", "survey.q_mood"), mood.Text)
	moodKB, ok := mood.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Len(t, moodKB.InlineKeyboard, len(models.Moods))

	env.press(1, "s:mood:great")
	assert.Equal(t, "Thanks! +10 points. Balance: 30 (level 1). Next: afternoon at 12:00.", env.sender.last(t).Text)

	env.text(1, "/survey")
	assert.Equal(t, "You already completed the morning survey. Next: afternoon at 12:00.", env.sender.last(t).Text)

	env.text(1, "/status")
	assert.Equal(t, "Today, 2025-03-10 (UTC):\nmorning: done\nafternoon: not done\nevening: not done\nNext: afternoon at 12:00.",
		env.sender.last(t).Text)

	env.text(1, "/points")
	assert.Equal(t, "Points: 30. Level 1. 20 points to the next level.", env.sender.last(t).Text)
	assert.NotEmpty(t, env.sender.callbacks)
}

func TestSurveyFullDayBonus(t *testing.T) {
	env := newBotEnv(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), Options{})
	env.register(t, 1)
	answer := func() {
		env.text(1, "/survey")
		env.press(1, "s:sleep:7")
		env.press(1, "s:energy:7")
		env.press(1, "s:readiness:7")
		env.press(1, "s:mood:good")
	}
	answer()
	env.now = time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC)
	answer()
	env.now = time.Date(2025, 3, 10, 19, 0, 0, 0, time.UTC)
	answer()

	last := env.sender.last(t).Text
	assert.Contains(t, last, "+25 points")
	assert.Contains(t, last, utils.T("en", "survey.full_day"))
}

func TestSurveyOutsideHours(t *testing.T) {
	env := newBotEnv(t, time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC), Options{})
	env.register(t, 1)

	env.text(1, "/survey")
	assert.Equal(t, "Surveys are closed right now. Next: the next window at 06:00.", env.sender.last(t).Text)
}

func TestSurveyClosesWhileAnswering(t *testing.T) {
	env := newBotEnv(t, time.Date(2025, 3, 10, 21, 58, 0, 0, time.UTC), Options{})
	env.register(t, 1)

	env.text(1, "/survey")
	env.press(1, "s:sleep:7")
	env.press(1, "s:energy:7")
	env.press(1, "s:readiness:7")
	env.now = time.Date(2025, 3, 10, 22, 0, 0, 0, time.UTC)
	env.press(1, "s:mood:good")
	assert.Equal(t, "Surveys are closed right now. Next: the next window at 06:00.", env.sender.last(t).Text)

	recs, err := env.store.FindCompletions(context.Background(), env.mustUserID(t, 1), models.WindowEvening, "2025-03-10")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestSurveyAnswerWithoutSession(t *testing.T) {
	env := newBotEnv(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), Options{})
	env.register(t, 1)
	env.press(1, "s:sleep:5")
	assert.Equal(t, utils.T("en", "survey.expired"), env.sender.last(t).Text)

	env.text(1, "/survey")
	env.text(1, "/cancel")
	assert.Equal(t, utils.T("en", "cancel.done"), env.sender.last(t).Text)
	env.press(1, "s:sleep:5")
	assert.Equal(t, utils.T("en", "survey.expired"), env.sender.last(t).Text)
}

func (e *botEnv) mustUserID(t *testing.T, chatID int64) string {
	t.Helper()
	u, err := e.store.GetUserByChatID(context.Background(), chatID)
	require.NoError(t, err)
	require.NotNil(t, u)
	return u.ID
}

func TestChallengeFlow(t *testing.T) {
	ctx := context.Background()
	env := newBotEnv(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), Options{})
	env.register(t, 1)
	userID := env.mustUserID(t, 1)

	env.text(1, "/challenges")
	assert.Equal(t, utils.T("en", "challenges.empty"), env.sender.last(t).Text)

	entry := services.DefaultChallengeCatalog[0]
	env.text(1, "/newchallenge")
	proposal := env.sender.last(t)
	assert.Equal(t, utils.Tf("en", "challenge.proposal", entry.Text, entry.Reward), proposal.Text)

	list, err := env.store.ListChallenges(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	id := list[0].ID

	kb, ok := proposal.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, "c:accept:"+id, *kb.InlineKeyboard[0][0].CallbackData)

	env.press(1, "c:accept:"+id)
	assert.Equal(t, utils.Tf("en", "challenge.accepted", entry.Text), env.sender.last(t).Text)

	env.press(1, "c:complete:"+id)
	balance := services.WelcomeBonusPoints + entry.Reward
	assert.Equal(t, utils.Tf("en", "challenge.completed", entry.Reward, balance), env.sender.last(t).Text)

	env.press(1, "c:decline:"+id)
	assert.Equal(t, utils.T("en", "challenge.invalid"), env.sender.last(t).Text)

	env.text(1, "/challenges")
	listing := env.sender.last(t)
	assert.Equal(t, "Your challenges:\n1. "+entry.Text+" (+20) - completed", listing.Text)

	env.press(1, "c:custom:")
	assert.Equal(t, utils.T("en", "challenge.custom_ask"), env.sender.last(t).Text)
	env.text(1, "ab")
	assert.Equal(t, utils.T("en", "challenge.custom_ask"), env.sender.last(t).Text)
	env.text(1, "Read 10 pages")
	assert.Equal(t, utils.Tf("en", "challenge.custom_added", "Read 10 pages"), env.sender.last(t).Text)

	list, err = env.store.ListChallenges(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	var custom *models.Challenge
	for _, c := range list {
		if c.Custom {
			custom = c
		}
	}
	require.NotNil(t, custom)
	assert.Equal(t, models.ChallengeActive, custom.Status)
	assert.Equal(t, services.CustomChallengeReward, custom.Reward)

	// The prompt is consumed; plain text is no longer a challenge.
	env.text(1, "another one")
	assert.Equal(t, utils.T("en", "unknown"), env.sender.last(t).Text)
}

func TestChallengeDeclineOffersNextEntry(t *testing.T) {
	ctx := context.Background()
	env := newBotEnv(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), Options{})
	env.register(t, 1)
	userID := env.mustUserID(t, 1)

	for i := 0; i < 2; i++ {
		entry := services.DefaultChallengeCatalog[i]
		env.text(1, "/newchallenge")
		require.Equal(t, utils.Tf("en", "challenge.proposal", entry.Text, entry.Reward), env.sender.last(t).Text)

		list, err := env.store.ListChallenges(ctx, userID)
		require.NoError(t, err)
		var proposed *models.Challenge
		for _, c := range list {
			if c.Status == models.ChallengeProposed {
				proposed = c
			}
		}
		require.NotNil(t, proposed)
		env.press(1, "c:decline:"+proposed.ID)
		assert.Equal(t, utils.T("en", "challenge.declined"), env.sender.last(t).Text)
	}

	env.text(1, "/challenges")
	assert.Equal(t, utils.T("en", "challenges.empty"), env.sender.last(t).Text)
}

func TestRateLimitDropsFlood(t *testing.T) {
	env := newBotEnv(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), Options{RatePerSecond: 0.0001, RateBurst: 1})
	env.text(9, "/help")
	env.text(9, "/help")
	env.text(9, "/help")
	require.Equal(t, 2, env.sender.count())
	assert.Equal(t, utils.T("en", "error.slow_down"), env.sender.last(t).Text)
}

func TestLocaleFromLanguageCode(t *testing.T) {
	env := newBotEnv(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), Options{})
	env.textAs(3, "ru-RU", "/help")
	assert.Equal(t, utils.T("ru", "help"), env.sender.last(t).Text)
	env.textAs(3, "de", "/help")
	assert.Equal(t, utils.T("en", "help"), env.sender.last(t).Text)
	env.textAs(3, "en", "/dance")
	assert.Equal(t, utils.T("en", "unknown"), env.sender.last(t).Text)
}

func TestRunStops(t *testing.T) {
	env := newBotEnv(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), Options{})
	updates := make(chan tgbotapi.Update, 1)
	updates <- tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: 4},
		Text:     "/help",
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Length: 5}},
	}}
	close(updates)
	require.NoError(t, env.h.Run(context.Background(), updates))
	assert.Equal(t, 1, env.sender.count())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, env.h.Run(ctx, make(chan tgbotapi.Update)), context.Canceled)
}
