package relay

import (
	"context"
	"errors"
	"html"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/edgard/modmail/internal/database"
)

// BindingStore is the persistence the engine needs.
type BindingStore interface {
	GetBindingByUser(ctx context.Context, userID int64) (*database.Binding, error)
	GetBindingByThread(ctx context.Context, threadID int) (*database.Binding, error)
	SaveBinding(ctx context.Context, binding *database.Binding) error
}

// ThreadProvisioner opens a thread for a user.
type ThreadProvisioner interface {
	Provision(ctx context.Context, profile Profile) (int, error)
}

// Messages holds the feedback texts. They are sent with HTML parse mode;
// "{error}" in the staff texts is replaced by the escaped platform error.
type Messages struct {
	UserProvisioningFailed string
	UserDeliveryFailed     string
	UserStorageFailed      string
	StaffBindingNotFound   string
	StaffDeliveryFailed    string
	StaffStorageFailed     string
}

// Options configures an Engine.
type Options struct {
	StaffGroupID int64
	Messages     Messages

	// CoalesceFirstContact collapses concurrent first messages from the same
	// user into a single provisioning.
	CoalesceFirstContact bool
}

// UserMessage is a message an end user sent in their private chat.
type UserMessage struct {
	Profile Profile
	Message MessageRef
}

// StaffMessage is a message staff posted inside a group thread.
type StaffMessage struct {
	Message MessageRef
}

// Engine relays messages between users and their staff threads.
type Engine struct {
	store       BindingStore
	provisioner ThreadProvisioner
	platform    Platform
	opts        Options
	logger      *slog.Logger
	flights     singleflight.Group
}

// NewEngine wires the relay engine.
func NewEngine(store BindingStore, provisioner ThreadProvisioner, platform Platform, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		store:       store,
		provisioner: provisioner,
		platform:    platform,
		opts:        opts,
		logger:      logger.With("component", "relay"),
	}
}

// RelayFromUser copies a user's message into their thread, provisioning and
// binding a thread first if the user has none. On failure the user gets one
// feedback reply and the error is returned; nothing is retried.
func (e *Engine) RelayFromUser(ctx context.Context, in UserMessage) error {
	log := e.logger.With("user_id", in.Profile.UserID, "message_id", in.Message.MessageID)

	threadID, err := e.threadFor(ctx, in.Profile)
	if err != nil {
		var provErr *ProvisioningError
		if errors.As(err, &provErr) {
			log.ErrorContext(ctx, "Could not provision thread for user", "error", err)
			e.reply(ctx, in.Message, e.opts.Messages.UserProvisioningFailed)
		} else {
			log.ErrorContext(ctx, "Could not resolve thread for user", "error", err)
			e.reply(ctx, in.Message, e.opts.Messages.UserStorageFailed)
		}
		return err
	}

	dst := Destination{ChatID: e.opts.StaffGroupID, ThreadID: threadID}
	if err := e.platform.CopyMessage(ctx, in.Message, dst); err != nil {
		derr := newDeliveryError(err)
		log.ErrorContext(ctx, "Failed to relay user message", "thread_id", threadID, "error", err)
		e.reply(ctx, in.Message, e.opts.Messages.UserDeliveryFailed)
		return derr
	}

	log.DebugContext(ctx, "Relayed user message", "thread_id", threadID)
	return nil
}

// RelayFromStaff copies a staff message back to the user bound to its thread.
// Messages in the general thread are ignored without any lookup.
func (e *Engine) RelayFromStaff(ctx context.Context, in StaffMessage) error {
	threadID := in.Message.ThreadID
	if threadID == GeneralThreadID {
		return nil
	}
	log := e.logger.With("thread_id", threadID, "message_id", in.Message.MessageID)

	binding, err := e.store.GetBindingByThread(ctx, threadID)
	if err != nil {
		serr := &StorageError{Op: "lookup thread", Err: err}
		log.ErrorContext(ctx, "Could not look up thread owner", "error", err)
		e.reply(ctx, in.Message, withDetail(e.opts.Messages.StaffStorageFailed, err))
		return serr
	}
	if binding == nil {
		log.WarnContext(ctx, "No user bound to thread")
		e.reply(ctx, in.Message, e.opts.Messages.StaffBindingNotFound)
		return ErrBindingNotFound
	}

	log = log.With("user_id", binding.UserID)
	if err := e.platform.CopyMessage(ctx, in.Message, Destination{ChatID: binding.UserID}); err != nil {
		derr := newDeliveryError(err)
		log.WarnContext(ctx, "Failed to relay staff reply", "blocked", derr.Blocked, "error", err)
		e.reply(ctx, in.Message, withDetail(e.opts.Messages.StaffDeliveryFailed, err))
		return derr
	}

	log.DebugContext(ctx, "Relayed staff reply")
	return nil
}

func (e *Engine) threadFor(ctx context.Context, profile Profile) (int, error) {
	binding, err := e.store.GetBindingByUser(ctx, profile.UserID)
	if err != nil {
		return 0, &StorageError{Op: "lookup user", Err: err}
	}
	if binding != nil {
		return binding.ThreadID, nil
	}
	if !e.opts.CoalesceFirstContact {
		return e.bindNewThread(ctx, profile)
	}

	v, err, shared := e.flights.Do(strconv.FormatInt(profile.UserID, 10), func() (any, error) {
		// The previous flight may have finished between our lookup and Do.
		binding, err := e.store.GetBindingByUser(ctx, profile.UserID)
		if err != nil {
			return 0, &StorageError{Op: "lookup user", Err: err}
		}
		if binding != nil {
			return binding.ThreadID, nil
		}
		return e.bindNewThread(ctx, profile)
	})
	if shared {
		e.logger.DebugContext(ctx, "Joined concurrent first contact", "user_id", profile.UserID)
	}
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (e *Engine) bindNewThread(ctx context.Context, profile Profile) (int, error) {
	threadID, err := e.provisioner.Provision(ctx, profile)
	if err != nil {
		return 0, err
	}

	if err := e.store.SaveBinding(ctx, &database.Binding{UserID: profile.UserID, ThreadID: threadID}); err != nil {
		e.logger.ErrorContext(ctx, "Thread created but binding not saved",
			"user_id", profile.UserID, "thread_id", threadID, "error", err)
		return 0, &StorageError{Op: "save binding", Err: err}
	}

	e.logger.InfoContext(ctx, "User bound to thread", "user_id", profile.UserID, "thread_id", threadID)
	return threadID, nil
}

// reply answers the triggering message in place. Failures are logged only.
func (e *Engine) reply(ctx context.Context, to MessageRef, text string) {
	if text == "" {
		return
	}
	msg := Outgoing{
		Destination: Destination{ChatID: to.ChatID, ThreadID: to.ThreadID},
		Text:        text,
		ReplyTo:     to.MessageID,
	}
	if err := e.platform.SendMessage(ctx, msg); err != nil {
		e.logger.ErrorContext(ctx, "Failed to send feedback message",
			"chat_id", to.ChatID, "thread_id", to.ThreadID, "error", err)
	}
}

func newDeliveryError(err error) *DeliveryError {
	return &DeliveryError{
		Detail:  err.Error(),
		Err:     err,
		Blocked: errors.Is(err, ErrRecipientUnreachable),
	}
}

func withDetail(text string, err error) string {
	return strings.ReplaceAll(text, "{error}", html.EscapeString(err.Error()))
}
