package middleware

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// ValidateConversationID validates a caller-supplied conversation id.
// Conversation ids are opaque; the only constraint is non-emptiness.
func ValidateConversationID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("conversation ID cannot be empty")
	}
	if len(id) > 128 {
		return errors.New("conversation ID exceeds maximum length")
	}
	return nil
}

// ValidateModelName validates a model name path or query parameter.
func ValidateModelName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("model name cannot be empty")
	}
	if len(name) > 128 {
		return errors.New("model name exceeds maximum length")
	}
	if !utf8.ValidString(name) {
		return errors.New("model name must be valid UTF-8")
	}
	return nil
}
