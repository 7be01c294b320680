package yalogger

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// String returns the lower-case level name as logrus prints it.
func (l Level) String() string {
	if l > TraceLevel {
		return "unknown"
	}

	return logrus.Level(l).String()
}

// UnmarshalText accepts the level names logrus understands, in any case.
// "warning" is an alias of "warn".
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := logrus.ParseLevel(string(text))
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, text)
	}

	*l = Level(parsed)

	return nil
}

// MarshalText is the inverse of UnmarshalText.
func (l Level) MarshalText() ([]byte, error) {
	if l > TraceLevel {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLogLevel, uint32(l))
	}

	return []byte(l.String()), nil
}
