// Package yalogger is the structured logger every component receives.
//
// Loggers are cheap to derive: WithField and friends return a new Logger that
// carries the extra context, the receiver is not changed. The bot scopes
// loggers by request id, user, chat and plugin using the Key* field names.
package yalogger

import (
	"github.com/google/uuid"
)

// Config configures NewBaseLogger. A nil *Config means Debug level text output
// to stderr. When File is set the output also goes to a rotated file of at
// most MaxSizeMB megabytes, keeping MaxBackups old files.
type Config struct {
	BaseLoggerType   BaseLoggerType
	Level            Level
	FullTimestamp    bool
	DisableTimestamp bool
	TimestampFormat  string
	File             string
	MaxSizeMB        int
	MaxBackups       int
}

// BaseLogger owns the backend and hands out Loggers bound to it.
type BaseLogger interface {
	NewLogger() Logger
}

// Logger is a leveled logger with context fields.
//
// Example usage:
//
//	log := yalogger.NewBaseLogger(nil).NewLogger()
//	log.WithField(yalogger.KeyPlugin, "Echo").Infof("Initializing plugin: %s", "Echo")
type Logger interface {
	Trace(msg string)
	Tracef(format string, args ...any)
	Debug(msg string)
	Debugf(format string, args ...any)
	Info(msg string)
	Infof(format string, args ...any)
	Warn(msg string)
	Warnf(format string, args ...any)
	Error(msg string)
	Errorf(format string, args ...any)

	// Fatal and Fatalf exit the process after logging.
	Fatal(msg string)
	Fatalf(format string, args ...any)

	WithField(key string, value any) Logger
	WithFields(fields map[string]any) Logger

	// WithRequestUUID sets KeyRequestID, the id OnUpdate assigns to every
	// inbound update.
	WithRequestUUID(id uuid.UUID) Logger
	WithUserID(userID int64) Logger
	WithChatID(chatID int64) Logger

	// GetFields returns a copy of the context fields.
	GetFields() map[string]any
	// GetField returns one context field, or nil.
	GetField(key string) any
}
