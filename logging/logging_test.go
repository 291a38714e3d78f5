package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLevelFromString(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"Warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := LevelFromString(in); got != want {
			t.Errorf("LevelFromString(%q): expected %v, got %v", in, want, got)
		}
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo, FormatJSON)
	logger.Info("request", "method", "GET", "status", 200)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("Expected JSON record, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "request" || rec["method"] != "GET" || rec["status"] != float64(200) {
		t.Errorf("Unexpected record %v", rec)
	}
}

func TestNewLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn, FormatText)
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("Unexpected output %q", out)
	}
}

func TestRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "server.log")

	rf, err := OpenRotatingFile(path, 10, 2)
	if err != nil {
		t.Fatalf("OpenRotatingFile failed: %v", err)
	}
	defer rf.Close()

	for _, line := range []string{"aaaaaaaa\n", "bbbbbbbb\n", "cccccccc\n", "dddddddd\n"} {
		if _, err := rf.Write([]byte(line)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	read := func(p string) string {
		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("read %s: %v", p, err)
		}
		return string(data)
	}

	if got := read(path); got != "dddddddd\n" {
		t.Errorf("Expected current file to hold newest line, got %q", got)
	}
	if got := read(path + ".1"); got != "cccccccc\n" {
		t.Errorf("Expected .1 to hold previous line, got %q", got)
	}
	if got := read(path + ".2"); got != "bbbbbbbb\n" {
		t.Errorf("Expected .2 to hold oldest kept line, got %q", got)
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Error("Expected no third backup")
	}
}

func TestRotatingFileRecoversFromFailedRotation(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	path := filepath.Join(dir, "server.log")

	rf, err := OpenRotatingFile(path, 10, 2)
	if err != nil {
		t.Fatalf("OpenRotatingFile failed: %v", err)
	}
	defer rf.Close()

	if _, err := rf.Write([]byte("aaaaaaaa\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// a regular file where the log directory was makes reopening fail
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dir, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := rf.Write([]byte("bbbbbbbb\n")); err == nil {
		t.Error("Expected write to fail while the log directory is unusable")
	}

	if err := os.Remove(dir); err != nil {
		t.Fatal(err)
	}
	if _, err := rf.Write([]byte("cccccccc\n")); err != nil {
		t.Fatalf("Expected write to recover once the directory is back, got %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "cccccccc\n" {
		t.Errorf("Expected reopened file to hold the new line, got %q %v", data, err)
	}
}

func TestRotatingFileClosed(t *testing.T) {
	rf, err := OpenRotatingFile(filepath.Join(t.TempDir(), "x.log"), 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := rf.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := rf.Close(); err != nil {
		t.Errorf("Expected second Close to be a no-op, got %v", err)
	}
	if _, err := rf.Write([]byte("x")); err == nil {
		t.Error("Expected write after close to fail")
	}
}

func TestNewFromOptionsInvalidSize(t *testing.T) {
	_, _, err := NewFromOptions(Options{File: filepath.Join(t.TempDir(), "a.log"), MaxSize: "lots"})
	if err == nil {
		t.Error("Expected error for invalid size")
	}
}

func TestNewFromOptionsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "srv.log")
	logger, closer, err := NewFromOptions(Options{Level: "debug", Format: FormatText, File: path, MaxSize: "10MB", MaxBackups: 1})
	if err != nil {
		t.Fatalf("NewFromOptions failed: %v", err)
	}
	logger.Debug("to file")
	closer.Close()

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "to file") {
		t.Errorf("Expected record in log file, got %q", data)
	}
}
