// Package logging builds the structured logger shared by one hostswitch
// invocation.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// DefaultLevel keeps routine output quiet; only warnings and errors show.
const DefaultLevel = slog.LevelWarn

// NewOpID returns an identifier correlating the log lines of one invocation.
func NewOpID() string {
	return uuid.New().String()
}

// ParseLevel converts a config value such as "debug" or "WARN" to a level.
// An empty value yields DefaultLevel.
func ParseLevel(value string) (slog.Level, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return DefaultLevel, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return DefaultLevel, fmt.Errorf("invalid log level %q: %w", value, err)
	}
	return level, nil
}

// New creates a text logger writing to w at the given level. Every record
// carries the operation id under the "op" key.
func New(w io.Writer, level slog.Level, opID string) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("op", opID)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
