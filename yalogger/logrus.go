package yalogger

import (
	"io"
	"maps"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultTimestampFormat = "2006-01-02 15:04:05"
	defaultMaxSizeMB       = 100
	defaultMaxBackups      = 3
)

// logrusAdapter implements Logger on top of a logrus.Entry.
type logrusAdapter struct {
	entry *logrus.Entry
}

// baseLogrus holds the configured logrus.Logger new adapters are derived from.
type baseLogrus struct {
	logger *logrus.Logger
}

// NewBaseLogger creates and configures a new base logger based on the provided configuration.
// A nil config gives a debug level text logger on stderr.
//
// Example usage:
//
//	log := yalogger.NewBaseLogger(&yalogger.Config{Level: yalogger.InfoLevel}).NewLogger()
//	log.Info("Starting...")
//
// Notes:
//
//   - If the logger type specified in config is not supported, the function panics.
func NewBaseLogger(config *Config) BaseLogger {
	if config == nil {
		config = &Config{
			BaseLoggerType:   Logrus,
			Level:            DebugLevel,
			TimestampFormat:  defaultTimestampFormat,
			DisableTimestamp: true,
		}
	}

	switch config.BaseLoggerType {
	case Logrus:
		base := logrus.New()
		base.SetLevel(logrus.Level(config.Level))
		base.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:    config.FullTimestamp,
			TimestampFormat:  config.TimestampFormat,
			DisableTimestamp: config.DisableTimestamp,
		})
		base.SetOutput(newOutput(config))

		return &baseLogrus{logger: base}
	default:
		panic("Unsupported logger type, you are a teapot!!!")
	}
}

// NewFromLogrus wraps an already configured logrus logger, e.g. one from
// logrus/hooks/test in unit tests.
func NewFromLogrus(logger *logrus.Logger) Logger {
	return &logrusAdapter{entry: logrus.NewEntry(logger)}
}

// NewLogger creates a new Logger instance from the base logrus logger.
func (b *baseLogrus) NewLogger() Logger {
	return &logrusAdapter{entry: logrus.NewEntry(b.logger)}
}

func newOutput(config *Config) io.Writer {
	if config.File == "" {
		return os.Stderr
	}

	maxSize := config.MaxSizeMB
	if maxSize == 0 {
		maxSize = defaultMaxSizeMB
	}

	maxBackups := config.MaxBackups
	if maxBackups == 0 {
		maxBackups = defaultMaxBackups
	}

	return io.MultiWriter(os.Stderr, &lumberjack.Logger{
		Filename:   config.File,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
	})
}

func (l *logrusAdapter) Info(msg string) {
	l.entry.Info(msg)
}

func (l *logrusAdapter) Infof(format string, args ...any) {
	l.entry.Infof(format, args...)
}

func (l *logrusAdapter) Error(msg string) {
	l.entry.Error(msg)
}

func (l *logrusAdapter) Errorf(format string, args ...any) {
	l.entry.Errorf(format, args...)
}

func (l *logrusAdapter) Warn(msg string) {
	l.entry.Warn(msg)
}

func (l *logrusAdapter) Warnf(format string, args ...any) {
	l.entry.Warnf(format, args...)
}

func (l *logrusAdapter) Debug(msg string) {
	l.entry.Debug(msg)
}

func (l *logrusAdapter) Debugf(format string, args ...any) {
	l.entry.Debugf(format, args...)
}

func (l *logrusAdapter) Fatal(msg string) {
	l.entry.Fatal(msg)
}

func (l *logrusAdapter) Fatalf(format string, args ...any) {
	l.entry.Fatalf(format, args...)
}

func (l *logrusAdapter) Trace(msg string) {
	l.entry.Trace(msg)
}

func (l *logrusAdapter) Tracef(format string, args ...any) {
	l.entry.Tracef(format, args...)
}

// WithField returns a new Logger with one more key-value pair in its context.
// The receiver is left untouched.
//
// Example usage:
//
//	logger.WithField("plugin", "Echo").Info("Initializing")
func (l *logrusAdapter) WithField(key string, value any) Logger {
	return &logrusAdapter{entry: l.entry.WithField(key, value)}
}

func (l *logrusAdapter) WithFields(fields map[string]any) Logger {
	return &logrusAdapter{entry: l.entry.WithFields(fields)}
}

func (l *logrusAdapter) WithRequestUUID(id uuid.UUID) Logger {
	return l.WithField(KeyRequestID, id.String())
}

func (l *logrusAdapter) WithUserID(userID int64) Logger {
	return l.WithField(KeyUserID, userID)
}

func (l *logrusAdapter) WithChatID(chatID int64) Logger {
	return l.WithField(KeyChatID, chatID)
}

// GetFields returns a copy of the current log context fields.
func (l *logrusAdapter) GetFields() map[string]any {
	fields := make(map[string]any, len(l.entry.Data))
	maps.Copy(fields, l.entry.Data)

	return fields
}

func (l *logrusAdapter) GetField(key string) any {
	val, ok := l.entry.Data[key]
	if !ok {
		return nil
	}

	return val
}
