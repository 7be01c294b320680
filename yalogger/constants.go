package yalogger

import "errors"

// Level mirrors logrus levels so it can be converted without a lookup table.
type Level uint32

const (
	PanicLevel Level = iota
	FatalLevel
	ErrorLevel
	WarnLevel
	InfoLevel
	DebugLevel
	TraceLevel
)

// BaseLoggerType selects the backend behind BaseLogger.
type BaseLoggerType uint8

const (
	Logrus BaseLoggerType = iota
)

const (
	KeyRequestID = "request_id"
	KeyUserID    = "user_id"
	KeyChatID    = "chat_id"
	KeyPlugin    = "plugin"
)

var ErrInvalidLogLevel = errors.New("invalid log level")
