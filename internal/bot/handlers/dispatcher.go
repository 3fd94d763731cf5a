package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/modmail/internal/relay"
)

// EventKind is the dispatcher's classification of an incoming message.
type EventKind int

const (
	EventIgnore EventKind = iota
	EventStart
	EventUserMessage
	EventStaffReply
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventUserMessage:
		return "user_message"
	case EventStaffReply:
		return "staff_reply"
	default:
		return "ignore"
	}
}

// Classify decides what to do with a message. Messages without a sender and
// forum service messages are ignored. Private messages from people are either
// /start or relayed to staff. Topic messages in a non-general thread of the
// staff group are relayed back to the thread owner, whoever posted them:
// anonymous admins post as a bot account.
func Classify(msg *models.Message, staffGroupID int64) EventKind {
	if msg == nil || msg.From == nil {
		return EventIgnore
	}

	switch {
	case msg.Chat.Type == models.ChatTypePrivate:
		if msg.From.IsBot {
			return EventIgnore
		}
		if isStartCommand(msg) {
			return EventStart
		}
		return EventUserMessage
	case msg.Chat.ID == staffGroupID:
		if !msg.IsTopicMessage || msg.MessageThreadID == relay.GeneralThreadID || isForumServiceMessage(msg) {
			return EventIgnore
		}
		return EventStaffReply
	default:
		return EventIgnore
	}
}

func isStartCommand(msg *models.Message) bool {
	for _, e := range msg.Entities {
		if e.Type != models.MessageEntityTypeBotCommand || e.Offset != 0 {
			continue
		}
		runes := []rune(msg.Text)
		if e.Length > len(runes) {
			return false
		}
		cmd := string(runes[:e.Length])
		if at := strings.IndexByte(cmd, '@'); at >= 0 {
			cmd = cmd[:at]
		}
		return cmd == "/start"
	}
	return false
}

func isForumServiceMessage(msg *models.Message) bool {
	return msg.ForumTopicCreated != nil ||
		msg.ForumTopicEdited != nil ||
		msg.ForumTopicClosed != nil ||
		msg.ForumTopicReopened != nil
}

// Registrar is the part of *bot.Bot used to register routed handlers.
type Registrar interface {
	RegisterHandlerMatchFunc(matchFunc bot.MatchFunc, f bot.HandlerFunc, m ...bot.Middleware) string
}

// Dispatcher routes updates to the welcome handler or the relay engine.
type Dispatcher struct {
	deps  HandlerDeps
	start startHandler
}

// NewDispatcher creates the dispatcher used as the bot's default handler.
func NewDispatcher(deps HandlerDeps) *Dispatcher {
	return &Dispatcher{deps: deps, start: startHandler{deps}}
}

// Register routes /start through the bot's handler registry. Everything
// else reaches Handle as the default handler.
func (d *Dispatcher) Register(r Registrar) {
	id := r.RegisterHandlerMatchFunc(d.MatchStart, d.HandleStart)
	d.deps.Logger.Debug("Registered handler", "command", "/start", "handler_id", id)
}

// MatchStart reports whether the update is /start in a private chat.
func (d *Dispatcher) MatchStart(update *models.Update) bool {
	return Classify(update.Message, d.deps.Config.Telegram.StaffGroupID) == EventStart
}

// HandleStart answers /start with the welcome text.
func (d *Dispatcher) HandleStart(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if !d.MatchStart(update) {
		return
	}
	d.start.Handle(ctx, update.Message)
}

// Handle matches bot.HandlerFunc. Relay failures are already reported to the
// sender by the engine, so they are only logged here.
func (d *Dispatcher) Handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := update.Message
	kind := Classify(msg, d.deps.Config.Telegram.StaffGroupID)
	log := d.deps.Logger.With("handler", "dispatcher", "update_id", update.ID, "event", kind.String())

	var err error
	switch kind {
	case EventStart:
		d.start.Handle(ctx, msg)
	case EventUserMessage:
		err = d.deps.Relay.RelayFromUser(ctx, relay.UserMessage{
			Profile: profileOf(msg.From),
			Message: refOf(msg),
		})
	case EventStaffReply:
		err = d.deps.Relay.RelayFromStaff(ctx, relay.StaffMessage{Message: refOf(msg)})
	default:
		log.DebugContext(ctx, "Ignoring update")
		return
	}

	if err != nil {
		log.WarnContext(ctx, "Relay did not complete", "error", err)
	}
}

func profileOf(u *models.User) relay.Profile {
	return relay.Profile{
		UserID:       u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Username:     u.Username,
		LanguageCode: u.LanguageCode,
	}
}

func refOf(msg *models.Message) relay.MessageRef {
	return relay.MessageRef{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		ThreadID:  msg.MessageThreadID,
	}
}
