package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/modmail/internal/relay"
)

// Client is the part of *bot.Bot the platform adapter calls.
type Client interface {
	CreateForumTopic(ctx context.Context, params *bot.CreateForumTopicParams) (*models.ForumTopic, error)
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	CopyMessage(ctx context.Context, params *bot.CopyMessageParams) (*models.MessageID, error)
}

// Platform implements relay.Platform with the Telegram Bot API.
type Platform struct {
	client Client
}

var _ relay.Platform = (*Platform)(nil)

// NewPlatform wraps a Telegram client.
func NewPlatform(client Client) *Platform {
	return &Platform{client: client}
}

// CreateThread opens a forum topic in the group.
func (p *Platform) CreateThread(ctx context.Context, groupID int64, name string) (int, error) {
	topic, err := p.client.CreateForumTopic(ctx, &bot.CreateForumTopicParams{
		ChatID: groupID,
		Name:   name,
	})
	if err != nil {
		return 0, wrapError("createForumTopic", err)
	}
	if topic == nil || topic.MessageThreadID == 0 {
		return 0, errors.New("createForumTopic: response has no message_thread_id")
	}
	return topic.MessageThreadID, nil
}

// SendMessage posts an HTML message, optionally as a reply.
func (p *Platform) SendMessage(ctx context.Context, msg relay.Outgoing) error {
	params := &bot.SendMessageParams{
		ChatID:          msg.ChatID,
		MessageThreadID: msg.ThreadID,
		Text:            msg.Text,
		ParseMode:       models.ParseModeHTML,
	}
	if msg.ReplyTo != 0 {
		params.ReplyParameters = &models.ReplyParameters{
			MessageID:                msg.ReplyTo,
			AllowSendingWithoutReply: true,
		}
	}

	if _, err := p.client.SendMessage(ctx, params); err != nil {
		return wrapError("sendMessage", err)
	}
	return nil
}

// CopyMessage copies src to dst without a forward header.
func (p *Platform) CopyMessage(ctx context.Context, src relay.MessageRef, dst relay.Destination) error {
	_, err := p.client.CopyMessage(ctx, &bot.CopyMessageParams{
		ChatID:          dst.ChatID,
		MessageThreadID: dst.ThreadID,
		FromChatID:      src.ChatID,
		MessageID:       src.MessageID,
	})
	if err != nil {
		return wrapError("copyMessage", err)
	}
	return nil
}

// wrapError tags Bot API errors with the method name and marks forbidden
// responses (blocked bot, deactivated user) as relay.ErrRecipientUnreachable.
func wrapError(method string, err error) error {
	if errors.Is(err, bot.ErrorForbidden) {
		return fmt.Errorf("%s: %w: %w", method, relay.ErrRecipientUnreachable, err)
	}
	return fmt.Errorf("%s: %w", method, err)
}
