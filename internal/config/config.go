// Package config loads and validates the modmail configuration from
// defaults, an optional YAML file, and environment variables.
package config

import "time"

// Config is the complete application configuration.
type Config struct {
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Relay     RelayConfig     `mapstructure:"relay"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// TelegramConfig holds the bot credential, the staff group and update intake settings.
type TelegramConfig struct {
	Token        string `mapstructure:"token"          validate:"required"`
	StaffGroupID int64  `mapstructure:"staff_group_id" validate:"required"`

	// Mode selects how updates arrive: "polling" or "webhook".
	Mode               string `mapstructure:"mode"                 validate:"oneof=polling webhook"`
	WebhookURL         string `mapstructure:"webhook_url"          validate:"omitempty,url"`
	WebhookPath        string `mapstructure:"webhook_path"         validate:"startswith=/"`
	WebhookSecret      string `mapstructure:"webhook_secret"`
	DropPendingUpdates bool   `mapstructure:"drop_pending_updates"`

	Workers        int           `mapstructure:"workers"         validate:"min=1,max=256"`
	UpdatesBuffer  int           `mapstructure:"updates_buffer"  validate:"min=1"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"min=1s,max=5m"`
}

// DatabaseConfig locates the SQLite binding store.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// LoggerConfig controls slog output.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// RelayConfig tunes the relay engine.
type RelayConfig struct {
	CoalesceFirstContact bool `mapstructure:"coalesce_first_contact"`
}

// HTTPConfig configures the health and webhook server. An empty Addr
// disables the server in polling mode.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`
}

// SchedulerConfig lists the scheduled tasks by registry name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig enables a task on a cron schedule with a seconds field.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// MessagesConfig holds every text the bot sends on its own behalf. All are
// HTML. {name} is replaced in Welcome, {error} in the staff failure texts.
type MessagesConfig struct {
	Welcome                string `mapstructure:"welcome"                  validate:"required"`
	UserProvisioningFailed string `mapstructure:"user_provisioning_failed" validate:"required"`
	UserDeliveryFailed     string `mapstructure:"user_delivery_failed"     validate:"required"`
	UserStorageFailed      string `mapstructure:"user_storage_failed"      validate:"required"`
	StaffBindingNotFound   string `mapstructure:"staff_binding_not_found"  validate:"required"`
	StaffDeliveryFailed    string `mapstructure:"staff_delivery_failed"    validate:"required"`
	StaffStorageFailed     string `mapstructure:"staff_storage_failed"     validate:"required"`
}
