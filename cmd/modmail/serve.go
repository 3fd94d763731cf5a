package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/modmail/internal/bot"
	"github.com/edgard/modmail/internal/bot/handlers"
	"github.com/edgard/modmail/internal/bot/tasks"
	"github.com/edgard/modmail/internal/config"
	"github.com/edgard/modmail/internal/database"
	"github.com/edgard/modmail/internal/logger"
	"github.com/edgard/modmail/internal/relay"
	"github.com/edgard/modmail/internal/server"
	"github.com/edgard/modmail/internal/telegram"
)

// pollGrace keeps the HTTP client alive a little longer than a long poll.
const pollGrace = 10 * time.Second

// serve initializes every component, runs until ctx is cancelled and shuts
// down gracefully.
func serve(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to open database", "path", cfg.Database.Path, "error", err)
		return err
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	// The dispatcher needs the platform, which needs the bot, which needs
	// its default handler at construction.
	var dispatcher *handlers.Dispatcher
	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			dispatcher.Handle(ctx, b, update)
		}),
		tgbot.WithWorkers(cfg.Telegram.Workers),
		tgbot.WithNotAsyncHandlers(),
		tgbot.WithUpdatesChannelCap(cfg.Telegram.UpdatesBuffer),
		tgbot.WithAllowedUpdates(tgbot.AllowedUpdates{"message"}),
		tgbot.WithHTTPClient(cfg.Telegram.RequestTimeout, &http.Client{Timeout: cfg.Telegram.RequestTimeout + pollGrace}),
	}
	if cfg.Telegram.WebhookSecret != "" {
		botOpts = append(botOpts, tgbot.WithWebhookSecretToken(cfg.Telegram.WebhookSecret))
	}

	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		return err
	}

	platform := telegram.NewPlatform(tg)
	provisioner := relay.NewProvisioner(platform, cfg.Telegram.StaffGroupID, log)
	engine := relay.NewEngine(store, provisioner, platform, relay.Options{
		StaffGroupID:         cfg.Telegram.StaffGroupID,
		Messages:             relayMessages(cfg.Messages),
		CoalesceFirstContact: cfg.Relay.CoalesceFirstContact,
	}, log)
	dispatcher = handlers.NewDispatcher(handlers.HandlerDeps{
		Logger:   log,
		Config:   cfg,
		Relay:    engine,
		Platform: platform,
	})
	dispatcher.Register(tg)

	var srv *http.Server
	if cfg.HTTPEnabled() {
		if cfg.Logger.Level != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}
		opts := server.Options{}
		if cfg.Telegram.Mode == "webhook" {
			opts.WebhookPath = cfg.Telegram.WebhookPath
			opts.Webhook = tg.WebhookHandler()
		}
		srv = server.New(cfg.HTTP.Addr, server.NewRouter(store, opts, log))
	}

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tasks.TaskDeps{Logger: log, Store: store}))
	if err != nil {
		return err
	}

	app := bot.NewBot(log, cfg, tg, sched, srv)

	log.Info("Starting modmail...", "staff_group_id", cfg.Telegram.StaffGroupID)
	runErr := app.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		// Allow logs to flush before exiting on error
		time.Sleep(time.Second)
		return fmt.Errorf("bot stopped: %w", runErr)
	}

	log.Info("Bot stopped gracefully.")
	return nil
}

func relayMessages(m config.MessagesConfig) relay.Messages {
	return relay.Messages{
		UserProvisioningFailed: m.UserProvisioningFailed,
		UserDeliveryFailed:     m.UserDeliveryFailed,
		UserStorageFailed:      m.UserStorageFailed,
		StaffBindingNotFound:   m.StaffBindingNotFound,
		StaffDeliveryFailed:    m.StaffDeliveryFailed,
		StaffStorageFailed:     m.StaffStorageFailed,
	}
}
