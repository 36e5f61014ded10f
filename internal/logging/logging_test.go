package logging

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func fixedLogger(buf *bytes.Buffer, level Level, prefix string) *Logger {
	l := New(Config{Level: level, Output: buf, Prefix: prefix})
	l.now = func() time.Time { return time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC) }
	return l
}

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.expected {
			t.Errorf("Level(%d).String() = %q, expected %q", tt.level, got, tt.expected)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		ok       bool
	}{
		{"debug", LevelDebug, true},
		{"DEBUG", LevelDebug, true},
		{"info", LevelInfo, true},
		{" Info ", LevelInfo, true},
		{"warn", LevelWarn, true},
		{"WARNING", LevelWarn, true},
		{"error", LevelError, true},
		{"unknown", LevelInfo, false},
		{"", LevelInfo, false},
	}

	for _, tt := range tests {
		got, ok := ParseLevel(tt.input)
		if got != tt.expected || ok != tt.ok {
			t.Errorf("ParseLevel(%q) = %v, %v; expected %v, %v", tt.input, got, ok, tt.expected, tt.ok)
		}
	}
}

func TestNew_DefaultOutput(t *testing.T) {
	l := New(Config{})
	if l.output == nil {
		t.Error("expected default output to be set")
	}
}

func TestLogger_LineFormat(t *testing.T) {
	var buf bytes.Buffer
	l := fixedLogger(&buf, LevelInfo, "posmap")

	l.Info("ran %d queries", 3)

	expected := "2024-03-01T12:30:00.000 [INFO] posmap: ran 3 queries\n"
	if buf.String() != expected {
		t.Errorf("line = %q, expected %q", buf.String(), expected)
	}
}

func TestLogger_NoPrefix(t *testing.T) {
	var buf bytes.Buffer
	l := fixedLogger(&buf, LevelInfo, "")

	l.Warn("careful")

	expected := "2024-03-01T12:30:00.000 [WARN] careful\n"
	if buf.String() != expected {
		t.Errorf("line = %q, expected %q", buf.String(), expected)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelWarn, Output: &buf})

	l.Debug("debug")
	l.Info("info")
	l.Warn("warn")
	l.Error("error")

	output := buf.String()
	if strings.Contains(output, "[DEBUG]") || strings.Contains(output, "[INFO]") {
		t.Errorf("expected debug and info to be filtered, got: %s", output)
	}
	if !strings.Contains(output, "[WARN]") || !strings.Contains(output, "[ERROR]") {
		t.Errorf("expected warn and error in output, got: %s", output)
	}
}

func TestLogger_FieldsSorted(t *testing.T) {
	var buf bytes.Buffer
	l := fixedLogger(&buf, LevelInfo, "")

	l.WithFields(map[string]any{"zeta": 1, "alpha": "a"}).WithComponent("script").Info("done")

	if !strings.HasSuffix(buf.String(), "done {alpha=a, component=script, zeta=1}\n") {
		t.Errorf("unexpected fields: %q", buf.String())
	}
}

func TestLogger_WithFieldDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	l := fixedLogger(&buf, LevelInfo, "")

	_ = l.WithField("key", "value")
	l.Info("plain")

	if strings.Contains(buf.String(), "key=value") {
		t.Errorf("parent logger gained child field: %q", buf.String())
	}
}

func TestLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelError, Output: &buf})

	l.Info("should not appear")
	if buf.Len() != 0 {
		t.Error("expected no output at error level")
	}

	l.SetLevel(LevelInfo)
	if l.Level() != LevelInfo {
		t.Errorf("Level() = %v, expected INFO", l.Level())
	}
	l.Info("should appear")
	if buf.Len() == 0 {
		t.Error("expected output after SetLevel")
	}
}

func TestLogger_SetOutput(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	l := New(Config{Level: LevelInfo, Output: &buf1})

	l.Info("to buf1")
	l.SetOutput(&buf2)
	l.Info("to buf2")

	if !strings.Contains(buf1.String(), "to buf1") || strings.Contains(buf1.String(), "to buf2") {
		t.Errorf("buf1 = %q", buf1.String())
	}
	if !strings.Contains(buf2.String(), "to buf2") {
		t.Errorf("buf2 = %q", buf2.String())
	}
}

func TestLogger_DisableEnable(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelInfo, Output: &buf})

	l.Disable()
	l.Info("should not appear")
	if buf.Len() != 0 {
		t.Error("expected no output when disabled")
	}

	l.Enable()
	l.Info("should appear")
	if buf.Len() == 0 {
		t.Error("expected output when enabled")
	}
}

func TestNull(t *testing.T) {
	l := Null()
	l.Debug("test")
	l.Info("test")
	l.WithComponent("x").Error("test")
}

func TestGetSet(t *testing.T) {
	orig := Get()
	if orig == nil {
		t.Fatal("Get() returned nil")
	}
	if Get() != orig {
		t.Error("expected Get() to return same instance")
	}
	defer Set(orig)

	var buf bytes.Buffer
	custom := New(Config{Level: LevelDebug, Output: &buf})
	Set(custom)
	Get().Debug("through default")
	if !strings.Contains(buf.String(), "through default") {
		t.Errorf("expected Set logger to be used, got %q", buf.String())
	}

	Set(nil)
	if Get() == nil {
		t.Error("Set(nil) should install a null logger")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Level != LevelInfo {
		t.Errorf("expected default level INFO, got %v", cfg.Level)
	}
	if cfg.Output == nil {
		t.Error("expected default output to be set")
	}
	if cfg.Prefix != "posmap" {
		t.Errorf("expected prefix 'posmap', got %q", cfg.Prefix)
	}
}
