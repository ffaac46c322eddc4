package handlers

import (
	"log/slog"
	"strings"

	"github.com/polarlink/cabinet/api/config"
)

// internalError logs the full error internally and returns a user-safe message.
// The returned message does not contain sensitive information like credentials,
// file paths, or query details.
func internalError(operation string, err error) string {
	slog.Error(operation, "error", err)
	return operation
}

// SanitizeError removes sensitive information from error messages before
// they are returned to a caller. Credentials embedded in URLs (the Anthropic
// endpoint, proxies) and the local database path are redacted; SQLite syntax
// errors pass through because they are useful to the caller.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()

	// Redact user:pass@ credentials in the first URL.
	if idx := strings.Index(msg, "://"); idx != -1 {
		if atIdx := strings.Index(msg[idx:], "@"); atIdx != -1 {
			endOfProto := idx + 3
			msg = msg[:endOfProto] + "***@" + msg[idx+atIdx+1:]
		}
	}

	// Redact query parameters, they may carry tokens.
	if idx := strings.Index(msg, "?"); idx != -1 {
		endIdx := len(msg)
		for _, delim := range []string{" ", "'", "\""} {
			if i := strings.Index(msg[idx:], delim); i != -1 && idx+i < endIdx {
				endIdx = idx + i
			}
		}
		msg = msg[:idx] + "?..." + msg[endIdx:]
	}

	// Redact the on-disk database location.
	if path := config.Path(); path != "" {
		msg = strings.ReplaceAll(msg, path, "<db>")
	}

	return msg
}
