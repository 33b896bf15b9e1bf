package bot

import (
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/models"
	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/utils"
)

// Callback data is "s:<field>:<value>" for survey answers and
// "c:<action>:<challenge id>" for challenge buttons.

const (
	fieldSleep     = "sleep"
	fieldEnergy    = "energy"
	fieldReadiness = "readiness"
	fieldMood      = "mood"
)

var surveyOrder = []string{fieldSleep, fieldEnergy, fieldReadiness, fieldMood}

var surveyQuestions = map[string]string{
	fieldSleep:     "survey.q_sleep",
	fieldEnergy:    "survey.q_energy",
	fieldReadiness: "survey.q_readiness",
	fieldMood:      "survey.q_mood",
}

// nextField returns the question after field, or "" after the last one.
func nextField(field string) string {
	for i, f := range surveyOrder {
		if f == field && i+1 < len(surveyOrder) {
			return surveyOrder[i+1]
		}
	}
	return ""
}

const (
	actionAccept   = "accept"
	actionDecline  = "decline"
	actionComplete = "complete"
	actionFail     = "fail"
	actionCustom   = "custom"
)

func surveyData(field, value string) string { return "s:" + field + ":" + value }

func challengeData(action, id string) string { return "c:" + action + ":" + id }

// scaleKeyboard lays out 1-10 in two rows of five.
func scaleKeyboard(field string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, 2)
	for start := 1; start <= 10; start += 5 {
		row := make([]tgbotapi.InlineKeyboardButton, 0, 5)
		for n := start; n < start+5; n++ {
			v := strconv.Itoa(n)
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(v, surveyData(field, v)))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func moodKeyboard(loc string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(models.Moods))
	for _, m := range models.Moods {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(utils.T(loc, "mood."+string(m)), surveyData(fieldMood, string(m))),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func challengeButton(loc, labelKey string, n int, action, id string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s #%d", utils.T(loc, labelKey), n), challengeData(action, id))
}

func customRow(loc string) []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(utils.T(loc, "btn.custom"), challengeData(actionCustom, "")),
	)
}
