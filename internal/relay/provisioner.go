package relay

import (
	"context"
	"fmt"
	"html"
	"io"
	"log/slog"
	"strings"
)

// MaxThreadNameLength is the longest thread name, in characters, sent to the platform.
const MaxThreadNameLength = 127

// Profile describes the end user a thread is provisioned for.
type Profile struct {
	UserID       int64
	FirstName    string
	LastName     string
	Username     string
	LanguageCode string
}

// DisplayName joins first and last name the way Telegram clients show them.
func (p Profile) DisplayName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// ThreadName builds the "<display name> [<id>]" label, cut to MaxThreadNameLength characters.
func ThreadName(p Profile) string {
	name := fmt.Sprintf("%s [%d]", p.DisplayName(), p.UserID)
	runes := []rune(name)
	if len(runes) <= MaxThreadNameLength {
		return name
	}
	return string(runes[:MaxThreadNameLength])
}

// ProfileCard renders the HTML introduction posted as the first message of a thread.
func ProfileCard(p Profile) string {
	username := "None"
	if p.Username != "" {
		username = "@" + html.EscapeString(p.Username)
	}
	language := "None"
	if p.LanguageCode != "" {
		language = html.EscapeString(p.LanguageCode)
	}

	var sb strings.Builder
	sb.WriteString("🆕 <b>New Ticket Created</b>\n\n")
	fmt.Fprintf(&sb, "👤 <b>User:</b> <b>%s</b>\n", html.EscapeString(p.DisplayName()))
	fmt.Fprintf(&sb, "🆔 <b>ID:</b> <code>%d</code>\n", p.UserID)
	fmt.Fprintf(&sb, "🔗 <b>Username:</b> %s\n", username)
	fmt.Fprintf(&sb, "🗣 <b>Language:</b> %s", language)
	return sb.String()
}

// Provisioner opens staff threads for users on first contact.
type Provisioner struct {
	platform Platform
	groupID  int64
	logger   *slog.Logger
}

// NewProvisioner creates a Provisioner that opens threads in the staff group groupID.
func NewProvisioner(platform Platform, groupID int64, logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Provisioner{
		platform: platform,
		groupID:  groupID,
		logger:   logger.With("component", "provisioner"),
	}
}

// Provision creates a thread for the user and posts the profile card into it.
// A rejected creation returns a *ProvisioningError. A failed profile card is
// only logged; the thread id is returned either way.
func (p *Provisioner) Provision(ctx context.Context, profile Profile) (int, error) {
	name := ThreadName(profile)
	log := p.logger.With("user_id", profile.UserID, "group_id", p.groupID)

	log.InfoContext(ctx, "Creating thread for user", "thread_name", name)
	threadID, err := p.platform.CreateThread(ctx, p.groupID, name)
	if err != nil {
		log.ErrorContext(ctx, "Failed to create thread", "error", err)
		return 0, &ProvisioningError{Detail: err.Error(), Err: err}
	}
	log = log.With("thread_id", threadID)
	log.InfoContext(ctx, "Thread created")

	card := Outgoing{
		Destination: Destination{ChatID: p.groupID, ThreadID: threadID},
		Text:        ProfileCard(profile),
	}
	if err := p.platform.SendMessage(ctx, card); err != nil {
		log.WarnContext(ctx, "Failed to post profile card", "error", err)
	}

	return threadID, nil
}
