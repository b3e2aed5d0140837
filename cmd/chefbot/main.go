package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"philcali.me/chefbot/internal/app"
	"philcali.me/chefbot/internal/config"
	"philcali.me/chefbot/internal/logger"
	"philcali.me/chefbot/internal/metrics"
	"philcali.me/chefbot/internal/telegram"
)

const pollTimeoutSeconds = 60

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	return server
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Init("chefbot", cfg.IsDevelopment(), cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to assemble application")
	}

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to create Telegram bot")
	}
	api.Debug = cfg.Telegram.Debug
	logger.Logger.Info().Str("username", api.Self.UserName).Msg("authorized on Telegram")

	metricsServer := serveMetrics(cfg.Metrics.Addr)
	go application.Sessions.Run(ctx, cfg.Session.SweepInterval)

	bot := telegram.NewBot(api, application.Controller)
	bot.Poll(ctx, api, pollTimeoutSeconds)

	logger.Logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Warn().Err(err).Msg("failed to stop metrics server")
	}
	if err := application.Close(shutdownCtx); err != nil {
		logger.Logger.Warn().Err(err).Msg("failed to close application")
	}
}
