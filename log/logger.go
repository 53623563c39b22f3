package log

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

const defaultTimeFormat = "2006-01-02 15:04:05"

// Logger writes leveled lines as text or JSON. Children created with Named
// or With share the writer and its lock.
type Logger struct {
	mu     *sync.Mutex
	writer io.Writer
	fields []field

	Name  string
	Level LogLevel

	TimeFormat string
	File       string
	NoColor    bool
	JSON       bool
	NoTerminal bool
	Rotation   *LoggerRotation
}

// LoggerRotation configures the lumberjack writer used for File.
type LoggerRotation struct {
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

type field struct {
	key   string
	value any
}

type logEntry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Service   string         `json:"service,omitempty"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// NewLogger writes to stdout unless noTerminal is set, and to file when one
// is given. Without any target it falls back to stdout.
func NewLogger(name string, level LogLevel, file string, noTerminal bool) *Logger {
	l := &Logger{
		mu:         &sync.Mutex{},
		Name:       name,
		Level:      level,
		File:       file,
		NoTerminal: noTerminal,
		TimeFormat: defaultTimeFormat,
		Rotation: &LoggerRotation{
			MaxSize:    128,
			MaxBackups: 5,
			MaxAge:     16,
		},
	}
	l.writer = l.targets(os.Stdout)
	return l
}

// NewWriterLogger creates a logger that writes plain lines to w. Used by tests
// and by callers that capture output.
func NewWriterLogger(name string, level LogLevel, w io.Writer) *Logger {
	return &Logger{
		mu:         &sync.Mutex{},
		writer:     w,
		Name:       name,
		Level:      level,
		TimeFormat: defaultTimeFormat,
		NoColor:    true,
		NoTerminal: true,
	}
}

// Discard returns a logger that drops every message.
func Discard() *Logger {
	return NewWriterLogger("", Fatal+1, io.Discard)
}

func (l *Logger) targets(terminal io.Writer) io.Writer {
	var writers []io.Writer
	if !l.NoTerminal {
		writers = append(writers, terminal)
	}
	if l.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   l.File,
			MaxSize:    l.Rotation.MaxSize,
			MaxBackups: l.Rotation.MaxBackups,
			MaxAge:     l.Rotation.MaxAge,
			Compress:   l.Rotation.Compress,
		})
	}

	switch len(writers) {
	case 0:
		return terminal
	case 1:
		return writers[0]
	default:
		return io.MultiWriter(writers...)
	}
}

func (l *Logger) log(level LogLevel, msg string, args ...any) {
	if level < l.Level {
		return
	}

	timestamp := time.Now().Format(l.TimeFormat)
	message := fmt.Sprintf(msg, args...)

	var line string
	if l.JSON {
		line = l.encodeJSON(level, timestamp, message)
	} else {
		line = l.encodeText(level, timestamp, message)
	}

	l.mu.Lock()
	io.WriteString(l.writer, line)
	l.mu.Unlock()

	if level == Fatal {
		os.Exit(1)
	}
}

func (l *Logger) encodeJSON(level LogLevel, timestamp, message string) string {
	entry := logEntry{
		Timestamp: timestamp,
		Level:     level.String(),
		Service:   l.Name,
		Message:   message,
	}
	if len(l.fields) > 0 {
		entry.Fields = make(map[string]any, len(l.fields))
		for _, f := range l.fields {
			entry.Fields[f.key] = f.value
		}
	}

	b, err := json.Marshal(entry)
	if err != nil {
		// Field values that cannot be marshalled are rendered as text.
		entry.Fields = map[string]any{"fields": strings.TrimSpace(l.textFields())}
		b, _ = json.Marshal(entry)
	}
	return string(b) + "\n"
}

func (l *Logger) encodeText(level LogLevel, timestamp, message string) string {
	var sb strings.Builder
	colored := !l.NoTerminal && !l.NoColor
	if colored {
		sb.WriteString(level.Color())
	}

	fmt.Fprintf(&sb, "[%s] %-5s", timestamp, level)
	if l.Name != "" {
		fmt.Fprintf(&sb, " [%s]", l.Name)
	}
	sb.WriteString(" ")
	sb.WriteString(message)
	sb.WriteString(l.textFields())

	if colored {
		sb.WriteString(colorReset)
	}
	sb.WriteString("\n")
	return sb.String()
}

func (l *Logger) textFields() string {
	var sb strings.Builder
	for _, f := range l.fields {
		fmt.Fprintf(&sb, " %s=%v", f.key, f.value)
	}
	return sb.String()
}

func (l *Logger) Debug(msg string, args ...any) {
	l.log(Debug, msg, args...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.log(Info, msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.log(Warn, msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.log(Error, msg, args...)
}

// Fatal logs msg and exits the process.
func (l *Logger) Fatal(msg string, args ...any) {
	l.log(Fatal, msg, args...)
}

// Named returns a child logger sharing the writer, with name appended.
func (l *Logger) Named(name string) *Logger {
	child := l.clone()
	if l.Name != "" {
		name = l.Name + "/" + name
	}
	child.Name = name
	return child
}

// With returns a child logger that appends key=value to every line.
func (l *Logger) With(key string, value any) *Logger {
	child := l.clone()
	child.fields = append(child.fields, field{key: key, value: value})
	return child
}

func (l *Logger) clone() *Logger {
	child := *l
	child.fields = append([]field(nil), l.fields...)
	return &child
}
