package main

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/api"
	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/bot"
	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/config"
	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/metrics"
	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/services"
)

// runBot long-polls Telegram until ctx is cancelled.
func runBot(ctx context.Context, cfg *config.Config, store api.Store, periods *services.PeriodService, m *metrics.Metrics, log *logrus.Entry) error {
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("telegram auth: %w", err)
	}
	log.WithField("username", botAPI.Self.UserName).Info("telegram bot authorized")

	h := bot.NewHandler(botAPI, bot.Services{
		Registration: services.NewRegistrationService(store),
		Surveys:      services.NewSurveyService(store, periods, cfg.SurveyPoints),
		Periods:      periods,
		Challenges:   services.NewChallengeService(store),
	}, bot.Options{
		RatePerSecond: cfg.RatePerSecond,
		RateBurst:     cfg.RateBurst,
		Metrics:       m,
		Log:           log,
	})

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "callback_query"}
	updates := botAPI.GetUpdatesChan(u)
	defer botAPI.StopReceivingUpdates()
	return h.Run(ctx, updates)
}
