package utils

import "fmt"

// Bot message catalog. Keys missing in a locale fall back to English.

var translations = map[string]map[string]string{
	"en": {
		"start.welcome":          "Welcome! What is your name?",
		"start.back":             "Welcome back, %s!",
		"reg.name_invalid":       "Please send a name between 2 and 64 characters.",
		"reg.ask_invite":         "Nice to meet you, %s! Send your team invite code, or \"skip\".",
		"reg.invite_unknown":     "Unknown invite code. Try again or send \"skip\".",
		"reg.done_org":           "You joined %s. Welcome bonus: +%d points!",
		"reg.done_solo":          "Registration complete. Welcome bonus: +%d points!",
		"reg.done":               "Registration complete.",
		"reg.required":           "Please finish registration first: /start",
		"survey.outside":         "Surveys are closed right now. Next: %s.",
		"survey.completed":       "You already completed the %s survey. Next: %s.",
		"survey.q_sleep":         "How well did you sleep? (1-10)",
		"survey.q_energy":        "How is your energy? (1-10)",
		"survey.q_readiness":     "How ready are you for the day? (1-10)",
		"survey.q_mood":          "How is your mood?",
		"survey.saved":           "Thanks! +%d points. Balance: %d (level %d). Next: %s.",
		"survey.full_day":        "All three surveys done today, bonus included!",
		"survey.expired":         "That survey is no longer open. Start again with /survey.",
		"status.header":          "Today, %s (%s):",
		"status.done":            "done",
		"status.open":            "open now",
		"status.pending":         "not done",
		"status.next":            "Next: %s.",
		"points.summary":         "Points: %d. Level %d. %d points to the next level.",
		"points.max":             "Points: %d. Level %d, the top level.",
		"challenges.empty":       "No challenges yet. Try /newchallenge.",
		"challenges.header":      "Your challenges:",
		"challenge.proposal":     "New challenge: %s (+%d points)",
		"challenge.accepted":     "Challenge accepted: %s",
		"challenge.declined":     "Challenge declined.",
		"challenge.completed":    "Challenge completed! +%d points. Balance: %d.",
		"challenge.failed":       "Challenge marked as failed.",
		"challenge.custom_ask":   "Describe your challenge (3-200 characters).",
		"challenge.custom_added": "Custom challenge added: %s",
		"challenge.limit":        "You already have the maximum number of active challenges.",
		"challenge.none_left":    "No new challenges left. Write your own!",
		"challenge.invalid":      "That challenge can't be changed anymore.",
		"cancel.done":            "Cancelled.",
		"error.generic":          "Something went wrong, please try again later.",
		"error.slow_down":        "Too many messages, please slow down.",
		"unknown":                "Unknown command. See /help.",
		"help": "/survey - take the survey for the current window\n" +
			"/status - today's survey progress\n" +
			"/points - points and level\n" +
			"/challenges - your challenges\n" +
			"/newchallenge - get a new challenge\n" +
			"/cancel - cancel the current step",
		"btn.accept":       "Accept",
		"btn.decline":      "Decline",
		"btn.complete":     "Done",
		"btn.fail":         "Failed",
		"btn.custom":       "Write my own",
		"mood.great":       "Great",
		"mood.good":        "Good",
		"mood.neutral":     "Neutral",
		"mood.tired":       "Tired",
		"mood.stressed":    "Stressed",
		"window.morning":   "morning",
		"window.afternoon": "afternoon",
		"window.evening":   "evening",
		"window.none":      "night",
		"status.proposed":  "proposed",
		"status.active":    "active",
		"status.completed": "completed",
		"status.failed":    "failed",
	},
	"ru": {
		"start.welcome":          "Добро пожаловать! Как вас зовут?",
		"start.back":             "С возвращением, %s!",
		"reg.name_invalid":       "Имя должно быть от 2 до 64 символов.",
		"reg.ask_invite":         "Приятно познакомиться, %s! Отправьте код приглашения команды или \"skip\".",
		"reg.invite_unknown":     "Код не найден. Попробуйте ещё раз или отправьте \"skip\".",
		"reg.done_org":           "Вы в команде %s. Приветственный бонус: +%d баллов!",
		"reg.done_solo":          "Регистрация завершена. Приветственный бонус: +%d баллов!",
		"reg.done":               "Регистрация завершена.",
		"reg.required":           "Сначала завершите регистрацию: /start",
		"survey.outside":         "Сейчас опросы закрыты. Следующий: %s.",
		"survey.completed":       "Опрос (%s) уже пройден. Следующий: %s.",
		"survey.q_sleep":         "Как вы спали? (1-10)",
		"survey.q_energy":        "Уровень энергии? (1-10)",
		"survey.q_readiness":     "Готовность к дню? (1-10)",
		"survey.q_mood":          "Какое настроение?",
		"survey.saved":           "Спасибо! +%d баллов. Баланс: %d (уровень %d). Следующий: %s.",
		"survey.full_day":        "Все три опроса за день пройдены, бонус начислен!",
		"survey.expired":         "Этот опрос уже закрыт. Начните заново: /survey.",
		"status.header":          "Сегодня, %s (%s):",
		"status.done":            "пройден",
		"status.open":            "открыт сейчас",
		"status.pending":         "не пройден",
		"status.next":            "Следующий: %s.",
		"points.summary":         "Баллы: %d. Уровень %d. До следующего уровня: %d.",
		"points.max":             "Баллы: %d. Уровень %d, максимальный.",
		"challenges.empty":       "Челленджей пока нет. Попробуйте /newchallenge.",
		"challenges.header":      "Ваши челленджи:",
		"challenge.proposal":     "Новый челлендж: %s (+%d баллов)",
		"challenge.accepted":     "Челлендж принят: %s",
		"challenge.declined":     "Челлендж отклонён.",
		"challenge.completed":    "Челлендж выполнен! +%d баллов. Баланс: %d.",
		"challenge.failed":       "Челлендж не выполнен.",
		"challenge.custom_ask":   "Опишите свой челлендж (3-200 символов).",
		"challenge.custom_added": "Свой челлендж добавлен: %s",
		"challenge.limit":        "У вас уже максимум активных челленджей.",
		"challenge.none_left":    "Новых челленджей нет. Придумайте свой!",
		"challenge.invalid":      "Этот челлендж уже нельзя изменить.",
		"cancel.done":            "Отменено.",
		"error.generic":          "Что-то пошло не так, попробуйте позже.",
		"error.slow_down":        "Слишком много сообщений, помедленнее.",
		"unknown":                "Неизвестная команда. См. /help.",
		"help": "/survey - пройти опрос текущего окна\n" +
			"/status - прогресс за сегодня\n" +
			"/points - баллы и уровень\n" +
			"/challenges - ваши челленджи\n" +
			"/newchallenge - новый челлендж\n" +
			"/cancel - отменить текущий шаг",
		"btn.accept":       "Принять",
		"btn.decline":      "Отклонить",
		"btn.complete":     "Выполнено",
		"btn.fail":         "Не вышло",
		"btn.custom":       "Свой вариант",
		"mood.great":       "Отлично",
		"mood.good":        "Хорошо",
		"mood.neutral":     "Нормально",
		"mood.tired":       "Устал(а)",
		"mood.stressed":    "Стресс",
		"window.morning":   "утренний",
		"window.afternoon": "дневной",
		"window.evening":   "вечерний",
		"window.none":      "ночь",
		"next.morning":     "дневной в 12:00",
		"next.afternoon":   "вечерний в 18:00",
		"next.evening":     "завтра утренний в 06:00",
		"next.none":        "следующее окно в 06:00",
		"status.proposed":  "предложен",
		"status.active":    "активен",
		"status.completed": "выполнен",
		"status.failed":    "провален",
	},
}

// Locales lists the catalog languages, default first.
var Locales = []string{"en", "ru"}

// T returns the translated string for key in locale; falls back to English.
func T(locale, key string) string {
	if m, ok := translations[locale]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if v, ok := translations["en"][key]; ok {
		return v
	}
	return key
}

// Has reports whether locale defines key itself, without the English fallback.
func Has(locale, key string) bool {
	_, ok := translations[locale][key]
	return ok
}

// Tf formats the translation of key with args.
func Tf(locale, key string, args ...any) string {
	return fmt.Sprintf(T(locale, key), args...)
}
