package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var Logger zerolog.Logger = zerolog.Nop()

// Init initializes the global logger
func Init(serviceName string, isDevelopment bool, level string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var output io.Writer = os.Stdout

	if isDevelopment {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		}
	}

	Logger = zerolog.New(output).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()

	log.Logger = Logger
	zerolog.DefaultContextLogger = &Logger
}

// ParseLevel maps a config level name, defaulting to info
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithConversation attaches a child logger carrying the conversation's
// identity to the context
func WithConversation(ctx context.Context, conversationID int64, userID int64, sessionID string) context.Context {
	child := From(ctx).With().
		Int64("conversation", conversationID).
		Int64("user", userID).
		Str("session", sessionID).
		Logger()
	return child.WithContext(ctx)
}

// From returns the context's logger, or the global one
func From(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &Logger
}
