package animation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/trackreel/trackreel/pkg/core"
)

// ConfigurationError reports an invalid or missing setting.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid configuration field %q: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid configuration field %q: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func fieldError(field, reason string) error {
	return &ConfigurationError{Field: field, Reason: reason}
}

// IsConfigurationError reports whether err carries a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// ParseARGB decodes a raw ARGB value for field.
func ParseARGB(field, raw string) (core.Color, error) {
	c, err := core.ParseARGB(raw)
	if err != nil {
		return 0, &ConfigurationError{Field: field, Reason: "not a number", Err: err}
	}
	return c, nil
}

// ParseRGB decodes a raw opaque RGB value for field.
func ParseRGB(field, raw string) (core.Color, error) {
	c, err := core.ParseRGB(raw)
	if err != nil {
		return 0, &ConfigurationError{Field: field, Reason: "not a number", Err: err}
	}
	return c, nil
}

// ParseOptionalMillis decodes a millisecond count where an empty string means
// unset.
func ParseOptionalMillis(field, raw string) (core.Opt[time.Duration], error) {
	if strings.TrimSpace(raw) == "" {
		return core.None[time.Duration](), nil
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return core.None[time.Duration](), &ConfigurationError{Field: field, Reason: "not a number", Err: err}
	}
	return core.Some(time.Duration(ms) * time.Millisecond), nil
}
