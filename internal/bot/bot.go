// Package bot wires update intake, the HTTP server and the scheduler into
// one lifecycle.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"

	"github.com/edgard/modmail/internal/config"
)

// Listener is the part of *tgbot.Bot that receives updates.
type Listener interface {
	Start(ctx context.Context)
	StartWebhook(ctx context.Context)
	DeleteWebhook(ctx context.Context, params *tgbot.DeleteWebhookParams) (bool, error)
	SetWebhook(ctx context.Context, params *tgbot.SetWebhookParams) (bool, error)
}

// Bot manages the lifecycle of the running components.
type Bot struct {
	logger    *slog.Logger
	cfg       *config.Config
	listener  Listener
	scheduler *Scheduler
	server    *http.Server
}

// NewBot creates the orchestrator. server may be nil when HTTP is disabled.
func NewBot(logger *slog.Logger, cfg *config.Config, listener Listener, scheduler *Scheduler, server *http.Server) *Bot {
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		cfg:       cfg,
		listener:  listener,
		scheduler: scheduler,
		server:    server,
	}
}

// Run starts every component and blocks until ctx is cancelled or one of
// them fails.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...", "mode", b.cfg.Telegram.Mode)

	g, gCtx := errgroup.WithContext(ctx)

	if b.server != nil {
		g.Go(func() error { return b.serveHTTP(gCtx) })
	}

	g.Go(func() error {
		if b.cfg.Telegram.Mode == "webhook" {
			return b.listenWebhook(gCtx)
		}
		return b.listenPolling(gCtx)
	})

	g.Go(func() error {
		if err := b.scheduler.Start(gCtx); err != nil {
			b.logger.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler...")
		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}

func (b *Bot) listenPolling(ctx context.Context) error {
	_, err := b.listener.DeleteWebhook(ctx, &tgbot.DeleteWebhookParams{
		DropPendingUpdates: b.cfg.Telegram.DropPendingUpdates,
	})
	if err != nil {
		return fmt.Errorf("failed to delete webhook before polling: %w", err)
	}

	b.logger.Info("Starting Telegram long polling...")
	b.listener.Start(ctx)
	b.logger.Info("Telegram polling stopped.")

	if ctx.Err() == nil {
		return fmt.Errorf("telegram listener stopped unexpectedly")
	}
	return nil
}

func (b *Bot) listenWebhook(ctx context.Context) error {
	_, err := b.listener.SetWebhook(ctx, &tgbot.SetWebhookParams{
		URL:                b.cfg.Telegram.WebhookURL,
		SecretToken:        b.cfg.Telegram.WebhookSecret,
		DropPendingUpdates: b.cfg.Telegram.DropPendingUpdates,
		AllowedUpdates:     []string{"message"},
	})
	if err != nil {
		return fmt.Errorf("failed to register webhook: %w", err)
	}

	b.logger.Info("Processing webhook updates...", "url", b.cfg.Telegram.WebhookURL)
	b.listener.StartWebhook(ctx)
	b.logger.Info("Telegram webhook processing stopped.")

	if ctx.Err() == nil {
		return fmt.Errorf("telegram webhook processing stopped unexpectedly")
	}
	return nil
}

func (b *Bot) serveHTTP(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		b.logger.Info("HTTP server listening", "addr", b.server.Addr)
		if err := b.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := b.server.Shutdown(shutdownCtx); err != nil {
		b.logger.Error("HTTP server shutdown failed", "error", err)
		return nil
	}
	b.logger.Info("HTTP server stopped.")
	return nil
}
