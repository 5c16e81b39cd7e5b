package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"xscraper/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{name: "info level", cfg: &config.LoggingConfig{Level: "info"}},
		{name: "debug level", cfg: &config.LoggingConfig{Level: "debug"}},
		{name: "empty level defaults to info", cfg: &config.LoggingConfig{}},
		{name: "invalid level", cfg: &config.LoggingConfig{Level: "loud"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lg, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && lg == nil {
				t.Error("New() returned nil logger")
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":    zerolog.DebugLevel,
		"INFO":     zerolog.InfoLevel,
		"warning":  zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"disabled": zerolog.Disabled,
	}
	for input, want := range tests {
		got, err := parseLogLevel(input)
		if err != nil {
			t.Errorf("parseLogLevel(%q) unexpected error: %v", input, err)
		}
		if got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", input, got, want)
		}
	}
	if _, err := parseLogLevel("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestConsoleOutputRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	lg, err := NewWithWriter(&config.LoggingConfig{Level: "warn"}, &buf)
	if err != nil {
		t.Fatalf("NewWithWriter: %v", err)
	}

	lg.Info("hidden message")
	lg.Warn("visible message")

	out := buf.String()
	if strings.Contains(out, "hidden message") {
		t.Errorf("info message written at warn level: %s", out)
	}
	if !strings.Contains(out, "visible message") {
		t.Errorf("warn message missing: %s", out)
	}
}

func TestFileOutputIsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "xscraper.log")
	var console bytes.Buffer
	lg, err := NewWithWriter(&config.LoggingConfig{Level: "debug", File: path}, &console)
	if err != nil {
		t.Fatalf("NewWithWriter: %v", err)
	}

	lg.WithField("identity", "jack").
		WithError(errors.New("boom")).
		InfoWithFields("collected", map[string]interface{}{"posts": 3})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, data)
	}
	if entry["identity"] != "jack" {
		t.Errorf("identity = %v, want jack", entry["identity"])
	}
	if entry["error"] != "boom" {
		t.Errorf("error = %v, want boom", entry["error"])
	}
	if entry["posts"] != float64(3) {
		t.Errorf("posts = %v, want 3", entry["posts"])
	}
	if entry["app"] != "xscraper" {
		t.Errorf("app = %v, want xscraper", entry["app"])
	}
	if !strings.Contains(console.String(), "collected") {
		t.Error("console output missing message")
	}
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent, _ := NewWithWriter(&config.LoggingConfig{Level: "info"}, &buf)
	_ = parent.WithField("child_only", true)

	parent.Info("from parent")
	if strings.Contains(buf.String(), "child_only") {
		t.Errorf("parent logger carries child field: %s", buf.String())
	}
}

func TestWithErrorNil(t *testing.T) {
	lg, _ := NewWithWriter(&config.LoggingConfig{Level: "info"}, &bytes.Buffer{})
	if lg.WithError(nil) != lg {
		t.Error("WithError(nil) should return the same logger")
	}
}

func TestGlobalLogger(t *testing.T) {
	captured := NewTestLogger()
	SetLogger(captured)
	defer SetLogger(nil)

	WithField("component", "test").Info("global info")
	LogComponentStart("collector", map[string]interface{}{"list": "timeline"})
	LogComponentStop("collector", "done")
	LogMetrics("collect", map[string]interface{}{"posts": 2})

	if !captured.HasMessage("global info") {
		t.Error("global info not captured")
	}
	if !captured.HasMessage("Component started") || !captured.HasMessage("Component stopped") {
		t.Errorf("component lifecycle not captured:\n%s", captured)
	}
	metrics := captured.GetMessagesByLevel("INFO")
	last := metrics[len(metrics)-1]
	if last.Fields["operation"] != "collect" || last.Fields["posts"] != 2 {
		t.Errorf("unexpected metrics fields: %v", last.Fields)
	}
}

func TestDomainHelpers(t *testing.T) {
	lg := NewTestLogger()

	LogSessionState(lg, "jack", "SessionLoaded", "ProfileVerified")
	LogCollectionProgress(lg, "timeline", 4, 2, 1)
	LogStop(lg, "timeline", "limit", 4, 1500*time.Millisecond)

	msgs := lg.GetMessages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Fields["to"] != "ProfileVerified" {
		t.Errorf("state field = %v", msgs[0].Fields["to"])
	}
	if msgs[2].Fields["reason"] != "limit" || msgs[2].Fields["elapsed"] != "1.5s" {
		t.Errorf("stop fields = %v", msgs[2].Fields)
	}
}

func TestTestLoggerSharesStore(t *testing.T) {
	lg := NewTestLogger()
	child := lg.WithField("a", 1).WithError(errors.New("bad"))
	child.ErrorWithFields("failed", map[string]interface{}{"b": 2})

	if !lg.HasError() {
		t.Fatal("parent should see child's error message")
	}
	msg := lg.GetMessages()[0]
	if msg.Fields["a"] != 1 || msg.Fields["b"] != 2 {
		t.Errorf("fields = %v", msg.Fields)
	}
	if msg.Error == nil || msg.Error.Error() != "bad" {
		t.Errorf("error = %v", msg.Error)
	}

	lg.Clear()
	if len(lg.GetMessages()) != 0 {
		t.Error("Clear did not drop messages")
	}
}

func TestNopLogger(t *testing.T) {
	lg := NewNopLogger()
	lg.WithField("k", "v").WithError(errors.New("x")).Info("ignored")
	if lg.GetZerolog() == nil {
		t.Error("nop logger should expose a usable zerolog instance")
	}
}
