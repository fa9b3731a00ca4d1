// Package main wires the scheduling bot together: configuration, logging,
// tracing, storage, the Telegram surface, the lifecycle services, the
// scheduler, and the ops HTTP server, then runs until SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"sessionbot/internal/config"
	"sessionbot/internal/httpapi"
	"sessionbot/internal/observability"
	"sessionbot/internal/repo"
	"sessionbot/internal/scheduler"
	"sessionbot/internal/services"
	"sessionbot/internal/settings"
	"sessionbot/internal/telegram"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath, cfg.OTEL.Enabled)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("opening database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	store := settings.NewStore(db)
	if err := store.Seed(ctx); err != nil {
		log.Fatal().Err(err).Msg("seeding settings failed")
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram authorization failed")
	}
	log.Info().Str("bot", api.Self.UserName).Msg("authorized with telegram")

	surface := telegram.NewSurface(api, cfg.DMRateRPS, cfg.DMRateBurst)
	polls := &services.PollService{DB: db, Settings: store, Surface: surface}
	reminders := &services.ReminderService{DB: db, Settings: store, Surface: surface}
	users := &services.UserSettingsService{DB: db}

	bot := &telegram.Bot{
		API:     api,
		Surface: surface,
		Polls:   polls,
		Commands: &telegram.Commands{
			Cfg:       cfg,
			Polls:     polls,
			Reminders: reminders,
			Users:     users,
			Settings:  store,
		},
	}

	sched := scheduler.New(polls, reminders, store, cfg.SweepInterval)
	sched.Start()

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	httpapi.RegisterRoutes(router, db, polls, cfg)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("ops server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("ops server failed")
			stop()
		}
	}()

	bot.Run(ctx)

	// Shutdown: the update loop has returned, stop the scheduler and drain
	// the ops server.
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sched.Stop(sctx)
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn().Err(err).Msg("ops server shutdown")
	}
	log.Info().Msg("bye")
}

// setupLogging configures the global zerolog logger from the config.
func setupLogging(cfg config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
