package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/api"
	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/config"
	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/logger"
	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/metrics"
	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/middleware"
	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := logger.New("teambot", cfg.LogLevel)
	if cfg.DevSecret() {
		log.Warn("BOT_JWT_SECRET not set, using the development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	store, closeStore, err := openStore(ctx, cfg, m, log)
	if err != nil {
		log.WithError(err).Fatal("open store")
	}
	defer closeStore()

	periods := services.NewPeriodService(store, services.PeriodConfig{
		DefaultTimezone:       cfg.DefaultTimezone,
		SupportedTimezones:    cfg.SupportedTimezones,
		DefaultOrganizationID: cfg.DefaultOrganization,
	})
	authn, err := middleware.NewAuthenticator(cfg.JWTSecret)
	if err != nil {
		log.WithError(err).Fatal("authenticator")
	}
	router := api.NewRouter(api.RouterDeps{
		Store:         store,
		Periods:       periods,
		Authenticator: authn,
		Metrics:       m,
		Log:           log,
	})
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router.Handler(cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		log.WithField("addr", cfg.Addr).Info("admin API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if cfg.BotEnabled() {
		go func() {
			if err := runBot(ctx, cfg, store, periods, m, log); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- err
			}
		}()
	} else {
		log.Warn("BOT_TELEGRAM_TOKEN not set, Telegram bot disabled")
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		log.WithError(err).Error("component failed, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
}
