package config

import "time"

// EnvPrefix prefixes every environment variable, e.g. MODMAIL_TELEGRAM_TOKEN.
const EnvPrefix = "MODMAIL"

const (
	DefaultDatabasePath = "modmail.db"

	DefaultTelegramMode           = "polling"
	DefaultTelegramWebhookPath    = "/telegram/webhook"
	DefaultTelegramWorkers        = 4
	DefaultTelegramUpdatesBuffer  = 1024
	DefaultTelegramRequestTimeout = 30 * time.Second

	DefaultHTTPShutdownTimeout = 10 * time.Second

	DefaultSQLMaintenanceSchedule = "0 0 4 * * *"
	DefaultBindingStatsSchedule   = "0 0 * * * *"
)

// legacyEnv maps config keys to the environment variables the previous
// deployment used, checked after the prefixed name.
var legacyEnv = map[string]string{
	"telegram.token":          "BOT_TOKEN",
	"telegram.staff_group_id": "ADMIN_GROUP_ID",
}

var defaults = map[string]any{
	"telegram.token":                "",
	"telegram.staff_group_id":       0,
	"telegram.mode":                 DefaultTelegramMode,
	"telegram.webhook_url":          "",
	"telegram.webhook_path":         DefaultTelegramWebhookPath,
	"telegram.webhook_secret":       "",
	"telegram.drop_pending_updates": true,
	"telegram.workers":              DefaultTelegramWorkers,
	"telegram.updates_buffer":       DefaultTelegramUpdatesBuffer,
	"telegram.request_timeout":      DefaultTelegramRequestTimeout,

	"database.path": DefaultDatabasePath,

	"logger.level": "info",
	"logger.json":  true,

	"relay.coalesce_first_contact": false,

	"http.addr":             "",
	"http.shutdown_timeout": DefaultHTTPShutdownTimeout,

	"scheduler.tasks": map[string]any{
		"sql_maintenance": map[string]any{"enabled": true, "schedule": DefaultSQLMaintenanceSchedule},
		"binding_stats":   map[string]any{"enabled": true, "schedule": DefaultBindingStatsSchedule},
	},

	"messages.welcome":                  "Hello, <b>{name}</b>! Any message you send here will be forwarded to the admins.",
	"messages.user_provisioning_failed": "⚠️ Error: Could not connect to support staff. Please ensure the bot is an admin in the group and Topics are enabled.",
	"messages.user_delivery_failed":     "❌ Failed to send your message to support. Please try again later.",
	"messages.user_storage_failed":      "❌ Support is temporarily unavailable. Please try again later.",
	"messages.staff_binding_not_found":  "⚠️ Error: Cannot find the user associated with this topic in the database.",
	"messages.staff_delivery_failed":    "❌ Could not deliver reply to user. They may have blocked the bot.\nError: {error}",
	"messages.staff_storage_failed":     "⚠️ Error: The binding store is unavailable.\nError: {error}",
}
