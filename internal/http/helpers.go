package http

import (
	"strings"

	"github.com/google/uuid"
)

// sanitizeInput removes control characters except tab, newline and carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	return "req_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// isMutating reports whether a method changes wallet state and is therefore rate limited.
func isMutating(method string) bool {
	switch method {
	case "POST", "PUT", "PATCH", "DELETE":
		return true
	}
	return false
}
