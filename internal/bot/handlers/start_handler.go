package handlers

import (
	"context"
	"html"
	"strings"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/modmail/internal/relay"
)

// startHandler answers /start in a private chat with the configured welcome.
type startHandler struct {
	deps HandlerDeps
}

func (h startHandler) Handle(ctx context.Context, msg *models.Message) {
	log := h.deps.Logger.With("handler", "start")
	log.InfoContext(ctx, "Handling /start command", "chat_id", msg.Chat.ID, "user_id", msg.From.ID)

	welcome := WelcomeText(h.deps.Config.Messages.Welcome, profileOf(msg.From))
	err := h.deps.Platform.SendMessage(ctx, relay.Outgoing{
		Destination: relay.Destination{ChatID: msg.Chat.ID},
		Text:        welcome,
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send welcome message", "error", err, "chat_id", msg.Chat.ID)
		return
	}
	log.DebugContext(ctx, "Successfully sent welcome message", "chat_id", msg.Chat.ID)
}

// WelcomeText fills {name} in the template with the escaped display name.
func WelcomeText(template string, p relay.Profile) string {
	return strings.ReplaceAll(template, "{name}", html.EscapeString(p.DisplayName()))
}
