package gopdf

import "testing"

func TestLoggerLevels(t *testing.T) {
	l := NewLogger(LogLevelWarn, "gopdf.test")

	tests := []struct {
		level LogLevel
		want  bool
	}{
		{LogLevelDebug, false},
		{LogLevelInfo, false},
		{LogLevelWarn, true},
		{LogLevelError, true},
		{LogLevelNone, false},
	}
	for _, tt := range tests {
		if got := l.Enabled(tt.level); got != tt.want {
			t.Errorf("Enabled(%s) = %v, want %v", tt.level, got, tt.want)
		}
	}

	l.SetLevel(LogLevelDebug)
	if !l.Enabled(LogLevelDebug) {
		t.Error("Enabled(DEBUG) after SetLevel(DEBUG) = false")
	}

	l.SetEnabled(false)
	if l.Enabled(LogLevelError) {
		t.Error("disabled logger reports ERROR enabled")
	}

	// 调用不应 panic
	l.Debug("value %d", 1)
	l.Error("value %d", 2)
}

func TestLoggerNamed(t *testing.T) {
	parent := NewLogger(LogLevelInfo, "gopdf")
	child := parent.Named("viewer")
	if child.Name() != "gopdf.viewer" {
		t.Errorf("Name() = %q, want gopdf.viewer", child.Name())
	}
	if child.Level() != LogLevelInfo {
		t.Errorf("child Level() = %s, want INFO", child.Level())
	}

	child.SetLevel(LogLevelError)
	if parent.Level() != LogLevelInfo {
		t.Error("child SetLevel changed parent level")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   LogLevelDebug,
		"INFO":    LogLevelInfo,
		"warning": LogLevelWarn,
		" error ": LogLevelError,
		"off":     LogLevelNone,
	}
	for in, want := range tests {
		got, err := ParseLogLevel(in)
		if err != nil {
			t.Errorf("ParseLogLevel(%q) error = %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseLogLevel(%q) = %s, want %s", in, got, want)
		}
	}

	if _, err := ParseLogLevel("loud"); err == nil {
		t.Error("ParseLogLevel(loud) should fail")
	}
}
