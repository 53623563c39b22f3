package log

import (
	"fmt"
	"strings"
)

type LogLevel int

const (
	Debug LogLevel = iota
	Info
	Warn
	Error
	Fatal
)

const colorReset = "\033[0m"

var levels = map[LogLevel]struct {
	name  string
	color string
}{
	Debug: {"DEBUG", "\033[34m"},
	Info:  {"INFO", "\033[32m"},
	Warn:  {"WARN", "\033[33m"},
	Error: {"ERROR", "\033[31m"},
	Fatal: {"FATAL", "\033[35m"},
}

func (l LogLevel) String() string {
	if level, ok := levels[l]; ok {
		return level.name
	}
	return "UNKNOWN"
}

// Color returns the terminal escape sequence used for l.
func (l LogLevel) Color() string {
	if level, ok := levels[l]; ok {
		return level.color
	}
	return colorReset
}

// Parse converts a case-insensitive level name into a LogLevel.
func Parse(level string) (LogLevel, error) {
	normalized := strings.ToUpper(strings.TrimSpace(level))
	for l, candidate := range levels {
		if candidate.name == normalized {
			return l, nil
		}
	}
	return Info, fmt.Errorf("invalid log level '%s'", level)
}
