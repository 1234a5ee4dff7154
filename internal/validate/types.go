// SPDX-License-Identifier: MIT
package validate

import "strings"

// LogLevel is a log level accepted by the logging configuration.
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var logLevels = []LogLevel{LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError}

// IsValid reports whether l is one of the known levels.
func (l LogLevel) IsValid() bool {
	for _, known := range logLevels {
		if l == known {
			return true
		}
	}
	return false
}

func (l LogLevel) String() string {
	return string(l)
}

// ParseLogLevel normalizes s (trimmed, lower-cased, "warning" as "warn")
// and checks it against the known levels.
func ParseLogLevel(s string) (LogLevel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = string(LogLevelWarn)
	}
	level := LogLevel(s)
	if !level.IsValid() {
		return "", ErrInvalidLogLevel
	}
	return level, nil
}

// ErrInvalidLogLevel is returned by ParseLogLevel.
var ErrInvalidLogLevel = &Error{
	Field:   "logLevel",
	Message: "invalid log level (must be: trace, debug, info, warn, error)",
}
