package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/metrics"
	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/models"
	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/services"
	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/utils"
)

// Sender is the part of *tgbotapi.BotAPI the handler uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Services struct {
	Registration *services.RegistrationService
	Surveys      *services.SurveyService
	Periods      *services.PeriodService
	Challenges   *services.ChallengeService
}

type Options struct {
	RatePerSecond float64
	RateBurst     int
	Metrics       *metrics.Metrics
	Log           *logrus.Entry
}

const (
	stepSurvey          = "survey"
	stepCustomChallenge = "custom_challenge"
)

// session is the in-flight conversation of one chat. Registration progress
// is persisted on the user; only the survey answers and the custom
// challenge prompt live here.
type session struct {
	step    string
	next    string
	answers services.SurveyAnswers
}

// Handler turns Telegram updates into service calls.
type Handler struct {
	sender  Sender
	svc     Services
	limiter *chatLimiter
	metrics *metrics.Metrics
	log     *logrus.Entry
	now     func() time.Time

	mu       sync.Mutex
	sessions map[int64]*session
}

func NewHandler(sender Sender, svc Services, opts Options) *Handler {
	log := opts.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Handler{
		sender:   sender,
		svc:      svc,
		limiter:  newChatLimiter(opts.RatePerSecond, opts.RateBurst),
		metrics:  opts.Metrics,
		log:      log.WithField("component", "bot"),
		now:      func() time.Time { return time.Now().UTC() },
		sessions: map[int64]*session{},
	}
}

// Run handles updates one at a time until ctx is done or updates is closed.
func (h *Handler) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			h.HandleUpdate(ctx, u)
		}
	}
}

func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		kind := "message"
		if update.Message.IsCommand() {
			kind = "command"
		}
		h.metrics.BotUpdate(kind)
		h.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		h.metrics.BotUpdate("callback")
		h.handleCallback(ctx, update.CallbackQuery)
	default:
		h.metrics.BotUpdate("other")
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID
	loc := localeOf(msg.From)
	if !h.allow(chatID, loc) {
		return
	}
	if msg.IsCommand() {
		h.handleCommand(ctx, chatID, loc, msg.Command())
		return
	}
	h.handleText(ctx, chatID, loc, msg.Text)
}

func (h *Handler) handleCommand(ctx context.Context, chatID int64, loc, cmd string) {
	switch cmd {
	case "start":
		h.cmdStart(ctx, chatID, loc)
	case "help":
		h.reply(chatID, utils.T(loc, "help"))
	case "cancel":
		h.clearSession(chatID)
		h.reply(chatID, utils.T(loc, "cancel.done"))
	case "survey":
		h.cmdSurvey(ctx, chatID, loc)
	case "status":
		h.cmdStatus(ctx, chatID, loc)
	case "points":
		h.cmdPoints(ctx, chatID, loc)
	case "challenges":
		h.cmdChallenges(ctx, chatID, loc)
	case "newchallenge":
		h.cmdNewChallenge(ctx, chatID, loc)
	default:
		h.reply(chatID, utils.T(loc, "unknown"))
	}
}

// handleText feeds free text to whichever step is waiting for it.
func (h *Handler) handleText(ctx context.Context, chatID int64, loc, text string) {
	if s := h.session(chatID); s != nil && s.step == stepCustomChallenge {
		h.submitCustomChallenge(ctx, chatID, loc, text)
		return
	}
	u, err := h.svc.Registration.UserByChat(ctx, chatID)
	if errors.Is(err, services.ErrUserNotFound) {
		h.reply(chatID, utils.T(loc, "reg.required"))
		return
	}
	if err != nil {
		h.fail(chatID, loc, "load user", err)
		return
	}
	switch u.Step {
	case models.StepAwaitingName:
		h.submitName(ctx, chatID, loc, text)
	case models.StepAwaitingInvite:
		h.submitInvite(ctx, chatID, loc, text)
	default:
		h.reply(chatID, utils.T(loc, "unknown"))
	}
}

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if q.Message == nil || q.Message.Chat == nil {
		h.answer(q)
		return
	}
	chatID := q.Message.Chat.ID
	loc := localeOf(q.From)
	if !h.allow(chatID, loc) {
		h.answer(q)
		return
	}
	h.answer(q)
	parts := strings.SplitN(q.Data, ":", 3)
	if len(parts) != 3 {
		return
	}
	switch parts[0] {
	case "s":
		h.onSurveyAnswer(ctx, chatID, loc, parts[1], parts[2])
	case "c":
		h.onChallengeAction(ctx, chatID, loc, parts[1], parts[2])
	}
}

func (h *Handler) allow(chatID int64, loc string) bool {
	ok, warn := h.limiter.Allow(chatID)
	if ok {
		return true
	}
	h.log.WithField("chat_id", chatID).Debug("update dropped by rate limit")
	if warn {
		h.reply(chatID, utils.T(loc, "error.slow_down"))
	}
	return false
}

// registeredUser loads the chat's user and tells the chat to register when
// it has not finished yet.
func (h *Handler) registeredUser(ctx context.Context, chatID int64, loc string) (*models.User, bool) {
	u, err := h.svc.Registration.UserByChat(ctx, chatID)
	if err != nil && !errors.Is(err, services.ErrUserNotFound) {
		h.fail(chatID, loc, "load user", err)
		return nil, false
	}
	if !u.Registered() {
		h.reply(chatID, utils.T(loc, "reg.required"))
		return nil, false
	}
	return u, true
}

// sessions

func (h *Handler) session(chatID int64) *session {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[chatID]
	if !ok {
		return nil
	}
	cp := *s
	return &cp
}

func (h *Handler) setSession(chatID int64, s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[chatID] = s
}

func (h *Handler) clearSession(chatID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, chatID)
}

// recordAnswer stores a survey answer if field is the question currently
// asked, and returns the updated session.
func (h *Handler) recordAnswer(chatID int64, field, value string) (session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[chatID]
	if !ok || s.step != stepSurvey || s.next != field {
		return session{}, false
	}
	if field == fieldMood {
		s.answers.Mood = models.Mood(value)
	} else {
		n, err := strconv.Atoi(value)
		if err != nil {
			return session{}, false
		}
		switch field {
		case fieldSleep:
			s.answers.SleepQuality = n
		case fieldEnergy:
			s.answers.Energy = n
		case fieldReadiness:
			s.answers.Readiness = n
		}
	}
	s.next = nextField(field)
	return *s, true
}

// output

func (h *Handler) reply(chatID int64, text string) {
	h.send(tgbotapi.NewMessage(chatID, text))
}

func (h *Handler) send(msg tgbotapi.MessageConfig) {
	if _, err := h.sender.Send(msg); err != nil {
		h.log.WithError(err).WithField("chat_id", msg.ChatID).Warn("send message failed")
	}
}

func (h *Handler) answer(q *tgbotapi.CallbackQuery) {
	if _, err := h.sender.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		h.log.WithError(err).WithField("callback_id", q.ID).Warn("answer callback failed")
	}
}

func (h *Handler) fail(chatID int64, loc, op string, err error) {
	h.log.WithError(err).WithFields(logrus.Fields{
		"chat_id": chatID,
		"op":      op,
	}).Error("bot operation failed")
	h.reply(chatID, utils.T(loc, "error.generic"))
}

func localeOf(u *tgbotapi.User) string {
	code := ""
	if u != nil {
		code = u.LanguageCode
	}
	return utils.DetermineLocale(code, utils.Locales, utils.Locales[0])
}

func errCode(err error) services.ErrorCode {
	if se, ok := services.AsServiceError(err); ok {
		return se.Code
	}
	return ""
}

func windowName(loc string, w models.WindowTag) string {
	return utils.T(loc, "window."+w.String())
}

// nextWindowText prefers a translated phrase and falls back to the
// resolver's English description.
func nextWindowText(loc string, w models.WindowTag) string {
	key := "next." + w.String()
	if utils.Has(loc, key) {
		return utils.T(loc, key)
	}
	return services.NextWindow(w)
}
