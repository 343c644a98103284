package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators registers console-specific validation rules.
// Must be called before validating Config.
func RegisterCustomValidators(v *validator.Validate) error {
	// ws_url: validates a ws:// or wss:// URL
	if err := v.RegisterValidation("ws_url", validateWSURL); err != nil {
		return fmt.Errorf("failed to register ws_url validator: %w", err)
	}
	return nil
}

// validateWSURL validates a websocket endpoint URL.
func validateWSURL(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "ws" || u.Scheme == "wss") && u.Host != ""
}

// Validate validates the Config using struct tags and custom cross-field
// rules. Returns an error with actionable messages on failure.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := RegisterCustomValidators(v); err != nil {
		return err
	}

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	// Cross-field validation: the snapshot cache needs a file path.
	if c.Snapshot.Enabled && c.Snapshot.Path == "" {
		return errors.New("snapshot: enabled but no path configured and no user config dir available")
	}

	return nil
}

// formatValidationErrors converts validator.ValidationErrors to user-friendly
// messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

// formatSingleValidationError creates a user-friendly message for a single
// validation error.
func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()
	tag := e.Tag()

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "hostname_port":
		return fmt.Sprintf("%s must be a valid host:port", field)
	case "ws_url":
		return fmt.Sprintf("%s must be a ws:// or wss:// URL", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, tag)
	}
}
