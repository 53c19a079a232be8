// Package validation provides custom validation rules for the application.
package validation

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/eventhub/internal/errors"
)

// eventTypeRegex accepts dotted namespaces such as "order.created" or "billing:invoice-paid".
var eventTypeRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:/\-]*$`)

// MaxEventTypeLength matches the width of the event_type columns.
const MaxEventTypeLength = 255

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// EventType validates an event type namespace.
var EventType = validation.NewStringRuleWithError(
	func(s string) bool {
		return len(s) <= MaxEventTypeLength && eventTypeRegex.MatchString(s)
	},
	validation.NewError(
		"validation_event_type",
		"must start with a letter or digit and contain only letters, digits, '.', '_', ':', '/' or '-'",
	),
)

// WebhookURL validates an absolute http or https URL with a host.
var WebhookURL = validation.NewStringRuleWithError(
	func(s string) bool {
		u, err := url.Parse(s)
		if err != nil {
			return false
		}
		return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
	},
	validation.NewError("validation_webhook_url", "must be an absolute http or https URL"),
)

// FlatFilter validates a filter map: non-empty keys and primitive values only.
var FlatFilter = validation.By(func(value interface{}) error {
	m, ok := value.(map[string]any)
	if !ok {
		return validation.NewError("validation_filter_type", "must be an object")
	}
	for k, v := range m {
		if err := validation.Validate(k, validation.Required, NotBlank); err != nil {
			return validation.NewError("validation_filter_key", "keys must not be blank")
		}
		if !IsPrimitive(v) {
			return validation.NewError(
				"validation_filter_value",
				"value of "+k+" must be a string, number, boolean or null",
			)
		}
	}
	return nil
})

// IsPrimitive reports whether v is a JSON scalar as produced by encoding/json, with or
// without UseNumber, or a Go literal.
func IsPrimitive(v any) bool {
	switch v.(type) {
	case nil, string, bool, json.Number,
		float32, float64,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}
