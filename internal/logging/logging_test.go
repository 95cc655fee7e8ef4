package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		hasError bool
	}{
		{"debug", LevelDebug, false},
		{"DEBUG", LevelDebug, false},
		{"info", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"invalid", LevelInfo, true},
		{"", LevelInfo, true},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			level, err := ParseLevel(test.input)
			if test.hasError && err == nil {
				t.Error("expected error, got nil")
			}
			if !test.hasError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !test.hasError && level != test.expected {
				t.Errorf("expected %v, got %v", test.expected, level)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("json"); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(json) = %v, %v", f, err)
	}
	if f, err := ParseFormat(""); err != nil || f != FormatText {
		t.Errorf("ParseFormat(empty) = %v, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "mdemon.log")

	logger, err := New(&Config{
		Level:     LevelDebug,
		Format:    FormatJSON,
		Output:    "file",
		FilePath:  path,
		Component: "test",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("analysis complete", "windows", 12)
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}

	line := strings.TrimSpace(string(data))
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "analysis complete" {
		t.Errorf("unexpected msg: %v", entry["msg"])
	}
	if entry["component"] != "test" {
		t.Errorf("unexpected component: %v", entry["component"])
	}
	if entry["windows"] != float64(12) {
		t.Errorf("unexpected windows attr: %v", entry["windows"])
	}
}

func TestLevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mdemon.log")

	logger, err := New(&Config{
		Level:    LevelWarn,
		Format:   FormatText,
		Output:   "file",
		FilePath: path,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("visible")
	logger.Close()

	data, _ := os.ReadFile(path)
	out := string(data)
	if strings.Contains(out, "hidden") {
		t.Errorf("low-level messages leaked: %s", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("warn message missing: %s", out)
	}
}

func TestWithComponent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mdemon.log")

	logger, err := New(&Config{
		Level:    LevelInfo,
		Format:   FormatJSON,
		Output:   "file",
		FilePath: path,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.WithComponent("watcher").Info("started")
	logger.Close()

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `"component":"watcher"`) {
		t.Errorf("component attribute missing: %s", data)
	}
}
