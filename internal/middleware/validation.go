package middleware

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	maxQueryLength     = 8000
	maxSessionIDLength = 128
	maxTierLength      = 32
)

// ValidateQuery validates query text.
func ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return errors.New("query cannot be empty")
	}
	if len(query) > maxQueryLength {
		return errors.New("query exceeds maximum length")
	}
	if !utf8.ValidString(query) {
		return errors.New("query must be valid UTF-8")
	}
	return nil
}

// ValidateSessionID validates a client-chosen session ID.
func ValidateSessionID(id string) error {
	if len(id) == 0 {
		return errors.New("session ID cannot be empty")
	}
	if len(id) > maxSessionIDLength {
		return errors.New("session ID exceeds maximum length")
	}
	for _, r := range id {
		if !isSessionIDRune(r) {
			return errors.New("invalid session ID format")
		}
	}
	return nil
}

// ValidateTier validates an optional tier hint.
func ValidateTier(tier string) error {
	if len(tier) > maxTierLength {
		return errors.New("tier exceeds maximum length")
	}
	return nil
}

func isSessionIDRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-', r == '_', r == '.', r == ':':
		return true
	}
	return false
}
