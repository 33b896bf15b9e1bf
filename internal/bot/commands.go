package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/models"
	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/services"
	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/utils"
)

// registration

func (h *Handler) cmdStart(ctx context.Context, chatID int64, loc string) {
	h.clearSession(chatID)
	u, created, err := h.svc.Registration.Start(ctx, chatID)
	if err != nil {
		h.fail(chatID, loc, "start", err)
		return
	}
	switch {
	case created || u.Step == models.StepAwaitingName:
		h.reply(chatID, utils.T(loc, "start.welcome"))
	case u.Step == models.StepAwaitingInvite:
		h.reply(chatID, utils.Tf(loc, "reg.ask_invite", u.Name))
	default:
		h.reply(chatID, utils.Tf(loc, "start.back", u.Name))
	}
}

func (h *Handler) submitName(ctx context.Context, chatID int64, loc, text string) {
	u, err := h.svc.Registration.SubmitName(ctx, chatID, text)
	if err != nil {
		if errCode(err) == services.ErrorInvalid {
			h.reply(chatID, utils.T(loc, "reg.name_invalid"))
			return
		}
		h.fail(chatID, loc, "submit name", err)
		return
	}
	h.reply(chatID, utils.Tf(loc, "reg.ask_invite", u.Name))
}

func (h *Handler) submitInvite(ctx context.Context, chatID int64, loc, text string) {
	_, org, err := h.svc.Registration.SubmitInvite(ctx, chatID, text)
	if err != nil {
		switch errCode(err) {
		case services.ErrorInvalid, services.ErrorNotFound:
			h.reply(chatID, utils.T(loc, "reg.invite_unknown"))
		default:
			h.fail(chatID, loc, "submit invite", err)
		}
		return
	}
	if org != nil {
		h.reply(chatID, utils.Tf(loc, "reg.done_org", org.Name, services.WelcomeBonusPoints))
		return
	}
	h.reply(chatID, utils.Tf(loc, "reg.done_solo", services.WelcomeBonusPoints))
}

// survey

func (h *Handler) cmdSurvey(ctx context.Context, chatID int64, loc string) {
	u, ok := h.registeredUser(ctx, chatID, loc)
	if !ok {
		return
	}
	h.clearSession(chatID)
	av, err := h.svc.Periods.IsAvailable(ctx, u.ID, h.now())
	if err != nil {
		h.fail(chatID, loc, "availability", err)
		return
	}
	h.metrics.AvailabilityChecked(av.Outcome())
	if !av.Available {
		if av.Reason == services.ReasonAlreadyCompleted {
			h.reply(chatID, utils.Tf(loc, "survey.completed", windowName(loc, av.Window), nextWindowText(loc, av.Window)))
			return
		}
		h.reply(chatID, utils.Tf(loc, "survey.outside", nextWindowText(loc, av.Window)))
		return
	}
	h.setSession(chatID, &session{step: stepSurvey, next: fieldSleep})
	h.ask(chatID, loc, fieldSleep)
}

func (h *Handler) onSurveyAnswer(ctx context.Context, chatID int64, loc, field, value string) {
	if s := h.session(chatID); s == nil || s.step != stepSurvey {
		h.reply(chatID, utils.T(loc, "survey.expired"))
		return
	}
	s, ok := h.recordAnswer(chatID, field, value)
	if !ok {
		// a button from an earlier question
		return
	}
	if s.next != "" {
		h.ask(chatID, loc, s.next)
		return
	}
	h.clearSession(chatID)
	h.submitSurvey(ctx, chatID, loc, s.answers)
}

func (h *Handler) submitSurvey(ctx context.Context, chatID int64, loc string, answers services.SurveyAnswers) {
	u, ok := h.registeredUser(ctx, chatID, loc)
	if !ok {
		return
	}
	res, err := h.svc.Surveys.Submit(ctx, u.ID, answers)
	switch {
	case errors.Is(err, services.ErrOutsideSurveyHours):
		h.reply(chatID, utils.Tf(loc, "survey.outside", nextWindowText(loc, models.WindowNone)))
		return
	case errors.Is(err, services.ErrAlreadyCompleted):
		w, werr := h.svc.Periods.ResolveWindowForUser(ctx, u.ID, h.now())
		if werr != nil {
			h.fail(chatID, loc, "resolve window", werr)
			return
		}
		h.reply(chatID, utils.Tf(loc, "survey.completed", windowName(loc, w), nextWindowText(loc, w)))
		return
	case errCode(err) == services.ErrorInvalid:
		h.reply(chatID, utils.T(loc, "survey.expired"))
		return
	case err != nil:
		h.fail(chatID, loc, "submit survey", err)
		return
	}
	h.metrics.SurveyCompleted(res.Record.Period.String())
	h.log.WithFields(logrus.Fields{
		"user_id": u.ID,
		"window":  res.Record.Period.String(),
		"points":  res.PointsAwarded,
	}).Info("survey recorded")

	text := utils.Tf(loc, "survey.saved", res.PointsAwarded, res.Balance, res.Level, nextWindowText(loc, res.Record.Period))
	if res.FullDay {
		text += "\n" + utils.T(loc, "survey.full_day")
	}
	h.reply(chatID, text)
}

func (h *Handler) ask(chatID int64, loc, field string) {
	msg := tgbotapi.NewMessage(chatID, utils.T(loc, surveyQuestions[field]))
	if field == fieldMood {
		msg.ReplyMarkup = moodKeyboard(loc)
	} else {
		msg.ReplyMarkup = scaleKeyboard(field)
	}
	h.send(msg)
}

// status and points

func (h *Handler) cmdStatus(ctx context.Context, chatID int64, loc string) {
	u, ok := h.registeredUser(ctx, chatID, loc)
	if !ok {
		return
	}
	p, err := h.svc.Periods.DayProgress(ctx, u.ID, h.now())
	if err != nil {
		h.fail(chatID, loc, "day progress", err)
		return
	}
	var b strings.Builder
	b.WriteString(utils.Tf(loc, "status.header", p.LocalDate, p.Timezone))
	for _, w := range models.ActiveWindows {
		state := "status.pending"
		switch {
		case p.Completed[w]:
			state = "status.done"
		case w == p.Current:
			state = "status.open"
		}
		fmt.Fprintf(&b, "\n%s: %s", windowName(loc, w), utils.T(loc, state))
	}
	b.WriteString("\n" + utils.Tf(loc, "status.next", nextWindowText(loc, p.Current)))
	h.reply(chatID, b.String())
}

func (h *Handler) cmdPoints(ctx context.Context, chatID int64, loc string) {
	u, ok := h.registeredUser(ctx, chatID, loc)
	if !ok {
		return
	}
	level := services.LevelForPoints(u.Points)
	if rest := services.PointsToNextLevel(u.Points); rest > 0 {
		h.reply(chatID, utils.Tf(loc, "points.summary", u.Points, level, rest))
		return
	}
	h.reply(chatID, utils.Tf(loc, "points.max", u.Points, level))
}

// challenges

func (h *Handler) cmdChallenges(ctx context.Context, chatID int64, loc string) {
	u, ok := h.registeredUser(ctx, chatID, loc)
	if !ok {
		return
	}
	list, err := h.svc.Challenges.List(ctx, u.ID)
	if err != nil {
		h.fail(chatID, loc, "list challenges", err)
		return
	}
	shown := list[:0]
	for _, c := range list {
		if c.Status != models.ChallengeDeclined {
			shown = append(shown, c)
		}
	}
	list = shown
	if len(list) == 0 {
		h.reply(chatID, utils.T(loc, "challenges.empty"))
		return
	}
	var b strings.Builder
	b.WriteString(utils.T(loc, "challenges.header"))
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, c := range list {
		n := i + 1
		fmt.Fprintf(&b, "\n%d. %s (+%d) - %s", n, c.Text, c.Reward, utils.T(loc, "status."+string(c.Status)))
		switch c.Status {
		case models.ChallengeProposed:
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				challengeButton(loc, "btn.accept", n, actionAccept, c.ID),
				challengeButton(loc, "btn.decline", n, actionDecline, c.ID),
			))
		case models.ChallengeActive:
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				challengeButton(loc, "btn.complete", n, actionComplete, c.ID),
				challengeButton(loc, "btn.fail", n, actionFail, c.ID),
			))
		}
	}
	rows = append(rows, customRow(loc))
	msg := tgbotapi.NewMessage(chatID, b.String())
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	h.send(msg)
}

func (h *Handler) cmdNewChallenge(ctx context.Context, chatID int64, loc string) {
	u, ok := h.registeredUser(ctx, chatID, loc)
	if !ok {
		return
	}
	c, err := h.svc.Challenges.Propose(ctx, u.ID)
	if err != nil {
		switch errCode(err) {
		case services.ErrorConflict:
			h.reply(chatID, utils.T(loc, "challenge.limit"))
		case services.ErrorNotFound:
			msg := tgbotapi.NewMessage(chatID, utils.T(loc, "challenge.none_left"))
			msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(customRow(loc))
			h.send(msg)
		default:
			h.fail(chatID, loc, "propose challenge", err)
		}
		return
	}
	msg := tgbotapi.NewMessage(chatID, utils.Tf(loc, "challenge.proposal", c.Text, c.Reward))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(utils.T(loc, "btn.accept"), challengeData(actionAccept, c.ID)),
			tgbotapi.NewInlineKeyboardButtonData(utils.T(loc, "btn.decline"), challengeData(actionDecline, c.ID)),
		),
		customRow(loc),
	)
	h.send(msg)
}

func (h *Handler) onChallengeAction(ctx context.Context, chatID int64, loc, action, id string) {
	u, ok := h.registeredUser(ctx, chatID, loc)
	if !ok {
		return
	}
	var (
		text string
		err  error
	)
	switch action {
	case actionAccept:
		var c *models.Challenge
		if c, err = h.svc.Challenges.Accept(ctx, u.ID, id); err == nil {
			text = utils.Tf(loc, "challenge.accepted", c.Text)
		}
	case actionDecline:
		if err = h.svc.Challenges.Decline(ctx, u.ID, id); err == nil {
			text = utils.T(loc, "challenge.declined")
		}
	case actionComplete:
		var (
			c       *models.Challenge
			balance int
		)
		if c, balance, err = h.svc.Challenges.Complete(ctx, u.ID, id); err == nil {
			text = utils.Tf(loc, "challenge.completed", c.Reward, balance)
		}
	case actionFail:
		if _, err = h.svc.Challenges.Fail(ctx, u.ID, id); err == nil {
			text = utils.T(loc, "challenge.failed")
		}
	case actionCustom:
		h.setSession(chatID, &session{step: stepCustomChallenge})
		text = utils.T(loc, "challenge.custom_ask")
	default:
		return
	}
	if err != nil {
		switch errCode(err) {
		case services.ErrorInvalid, services.ErrorNotFound:
			text = utils.T(loc, "challenge.invalid")
		case services.ErrorConflict:
			text = utils.T(loc, "challenge.limit")
		default:
			h.fail(chatID, loc, "challenge "+action, err)
			return
		}
	}
	h.reply(chatID, text)
}

func (h *Handler) submitCustomChallenge(ctx context.Context, chatID int64, loc, text string) {
	u, ok := h.registeredUser(ctx, chatID, loc)
	if !ok {
		h.clearSession(chatID)
		return
	}
	c, err := h.svc.Challenges.CreateCustom(ctx, u.ID, text)
	if err != nil {
		switch errCode(err) {
		case services.ErrorInvalid:
			// keep waiting for a valid description
			h.reply(chatID, utils.T(loc, "challenge.custom_ask"))
		case services.ErrorConflict:
			h.clearSession(chatID)
			h.reply(chatID, utils.T(loc, "challenge.limit"))
		default:
			h.clearSession(chatID)
			h.fail(chatID, loc, "custom challenge", err)
		}
		return
	}
	h.clearSession(chatID)
	h.reply(chatID, utils.Tf(loc, "challenge.custom_added", c.Text))
}
