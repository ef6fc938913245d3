package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New creates a slog logger configured at the provided level. Format "text"
// selects the human-readable handler used in development; anything else emits
// JSON. If the level string is invalid it defaults to info.
func New(level, format string) *slog.Logger {
	lvl := new(slog.LevelVar)
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

// Discard returns a logger that drops all output. Useful for tests.
func Discard() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

// MaskDestination hides most of an email address or phone number so that log
// lines can identify a recipient without exposing it.
func MaskDestination(dest string) string {
	if dest == "" {
		return ""
	}
	if at := strings.IndexByte(dest, '@'); at > 0 {
		local, domain := dest[:at], dest[at:]
		if len(local) <= 2 {
			return local[:1] + "***" + domain
		}
		return local[:2] + "***" + domain
	}
	if len(dest) <= 4 {
		return "***"
	}
	return strings.Repeat("*", len(dest)-4) + dest[len(dest)-4:]
}
