// Package handlers turns Telegram updates into relay operations and the
// welcome reply.
package handlers

import (
	"context"
	"log/slog"

	"github.com/edgard/modmail/internal/config"
	"github.com/edgard/modmail/internal/relay"
)

// Relay is the part of relay.Engine the dispatcher drives.
type Relay interface {
	RelayFromUser(ctx context.Context, in relay.UserMessage) error
	RelayFromStaff(ctx context.Context, in relay.StaffMessage) error
}

// HandlerDeps provides dependencies for Telegram update handlers.
type HandlerDeps struct {
	Logger   *slog.Logger
	Config   *config.Config
	Relay    Relay
	Platform relay.Platform
}
