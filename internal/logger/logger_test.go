package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		wantLevel zapcore.Level
		wantErr   bool
	}{
		{"json info", "info", "json", zapcore.InfoLevel, false},
		{"console debug", "debug", "console", zapcore.DebugLevel, false},
		{"default level", "", "", zapcore.InfoLevel, false},
		{"json error", "error", "json", zapcore.ErrorLevel, false},
		{"invalid level", "loud", "json", 0, true},
		{"invalid format", "info", "xml", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(Options{Level: tt.level, Format: tt.format})
			if (err != nil) != tt.wantErr {
				t.Fatalf("New(%q, %q) error = %v, wantErr %v", tt.level, tt.format, err, tt.wantErr)
			}
			if !tt.wantErr && l.Level() != tt.wantLevel {
				t.Errorf("Level() = %v, want %v", l.Level(), tt.wantLevel)
			}
		})
	}
}

func TestSetLevel(t *testing.T) {
	l, err := New(Options{Level: "info", Format: "json"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := l.SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel(debug) error = %v", err)
	}
	if l.Level() != zapcore.DebugLevel {
		t.Errorf("Level() = %v, want debug", l.Level())
	}
	if err := l.SetLevel("bogus"); err == nil {
		t.Error("SetLevel(bogus) should fail")
	}
}

func TestNewWritesRunLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "brandsite.log")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("previous run\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	l, err := New(Options{Level: "info", Format: "json", File: path})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	l.Info("page written")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	if strings.Contains(got, "previous run") {
		t.Errorf("log file not truncated: %q", got)
	}
	if !strings.Contains(got, "page written") {
		t.Errorf("log file missing entry: %q", got)
	}
}
