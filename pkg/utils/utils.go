package utils

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// ParseLogLevel converts a string to an slog.Level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.Level(0), fmt.Errorf("invalid log level: %s", level)
	}
}

// NewJSONLogger returns a JSON logger writing to w. An empty or invalid level
// falls back to info; the error is returned so callers can report it.
func NewJSONLogger(w io.Writer, level string) (*slog.Logger, error) {
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelInfo)

	var err error
	if level != "" {
		var parsed slog.Level
		if parsed, err = ParseLogLevel(level); err == nil {
			programLevel.Set(parsed)
		}
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: programLevel}))
	return logger, err
}

// RedactToken redacts a token string for safe logging, preserving only the first and last N characters
func RedactToken(token string, firstN, lastN int) string {
	if token == "" {
		return ""
	}

	tokenLen := len(token)

	// If token is shorter than firstN + lastN, just mask it all
	if tokenLen <= firstN+lastN {
		return strings.Repeat("*", tokenLen)
	}

	return token[:firstN] + "..." + token[tokenLen-lastN:]
}

// RedactSecret hides a secret entirely, keeping only its length
func RedactSecret(secret string) string {
	if secret == "" {
		return ""
	}
	return fmt.Sprintf("[redacted %d bytes]", len(secret))
}

// TruncateString truncates a string to the specified length and adds an ellipsis if truncated
func TruncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return s[:maxLength]
	}

	return s[:maxLength-3] + "..."
}
