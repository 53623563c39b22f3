package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	for _, input := range []string{"debug", " INFO ", "Warn", "ERROR"} {
		if _, err := Parse(input); err != nil {
			t.Errorf("Parse(%q) failed: %v", input, err)
		}
	}
	if _, err := Parse("trace"); err == nil {
		t.Error("Expected error for unknown level")
	}
	if Warn.String() != "WARN" || LogLevel(42).String() != "UNKNOWN" {
		t.Error("Unexpected level names")
	}
}

func TestLogger_LevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("metacat", Info, &buf)

	logger.Debug("hidden")
	logger.Named("ingest").With("run", "abc").Warn("Cannot read '%s'", "a.nc")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Debug message written at INFO level: %q", out)
	}
	if !strings.Contains(out, "WARN  [metacat/ingest] Cannot read 'a.nc' run=abc") {
		t.Errorf("Unexpected output %q", out)
	}
}

func TestLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("metacat", Debug, &buf)
	logger.JSON = true

	logger.With("files", 2).Info("done")

	var entry logEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Invalid JSON line %q: %v", buf.String(), err)
	}
	if entry.Level != "INFO" || entry.Message != "done" || entry.Service != "metacat" {
		t.Errorf("Unexpected entry %+v", entry)
	}
	if entry.Fields["files"] != float64(2) {
		t.Errorf("Expected field files=2, got %v", entry.Fields)
	}
}

func TestDiscard(t *testing.T) {
	// Must not panic or exit below Fatal.
	Discard().Error("dropped")
}
