package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks struct tags and the rules that span several fields.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid %s: failed %q check", verrs[0].Namespace(), verrs[0].Tag())
		}
		return err
	}

	if c.Telegram.Mode == "webhook" {
		if c.Telegram.WebhookURL == "" {
			return errors.New("telegram.webhook_url is required in webhook mode")
		}
		if c.HTTP.Addr == "" {
			return errors.New("http.addr is required in webhook mode")
		}
	}

	return nil
}

// HTTPEnabled reports whether the HTTP server should run.
func (c *Config) HTTPEnabled() bool {
	return c.HTTP.Addr != "" || c.Telegram.Mode == "webhook"
}
