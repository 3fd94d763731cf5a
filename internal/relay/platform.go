// Package relay implements the binding and forwarding engine that mirrors
// private user conversations into staff group threads and back.
package relay

import (
	"context"
	"errors"
)

// GeneralThreadID is the thread id of the staff group's default topic.
// Messages there are not support conversations.
const GeneralThreadID = 0

// ErrRecipientUnreachable marks platform errors caused by a recipient that
// blocked the bot or can no longer be written to.
var ErrRecipientUnreachable = errors.New("recipient unreachable")

// Destination addresses a chat and, inside forum groups, one of its threads.
type Destination struct {
	ChatID   int64
	ThreadID int
}

// MessageRef points at an existing platform message.
type MessageRef struct {
	ChatID    int64
	MessageID int
	ThreadID  int
}

// Outgoing is a new HTML text message.
type Outgoing struct {
	Destination
	Text string

	// ReplyTo is the message id in the destination chat to reply to, or 0.
	ReplyTo int
}

// Platform is the subset of the group messaging platform the relay needs.
type Platform interface {
	// CreateThread opens a new thread named name in the group and returns its id.
	CreateThread(ctx context.Context, groupID int64, name string) (int, error)

	// SendMessage posts a new text message.
	SendMessage(ctx context.Context, msg Outgoing) error

	// CopyMessage reproduces src at dst without sender attribution.
	CopyMessage(ctx context.Context, src MessageRef, dst Destination) error
}
