package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zap.DebugLevel,
		" WARN ":  zap.WarnLevel,
		"warning": zap.WarnLevel,
		"error":   zap.ErrorLevel,
		"":        zap.InfoLevel,
		"loud":    zap.InfoLevel,
	}
	for raw, want := range tests {
		if got := ParseLevel(raw); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestNewWritesConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	dir := t.TempDir()
	log, err := New(Options{Level: "info", Dir: dir, Console: &console})
	if err != nil {
		t.Fatal(err)
	}
	log.Named("uploads").Info("stored", zap.String("key", "resume"))
	log.Debug("hidden")
	_ = log.Sync()

	out := console.String()
	if !strings.Contains(out, "[uploads]") || !strings.Contains(out, "stored") || !strings.Contains(out, `"key": "resume"`) {
		t.Fatalf("console = %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatal("debug line written at info level")
	}
	if strings.Contains(out, "\033[") {
		t.Fatal("colors written with Color off")
	}

	data, err := os.ReadFile(filepath.Join(dir, TodayFilename(time.Now())))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "stored") || !strings.Contains(string(data), "\tinfo\t") {
		t.Fatalf("file = %q", data)
	}
}

func TestPrettyEncoderColor(t *testing.T) {
	var console bytes.Buffer
	log, err := New(Options{Level: "debug", Console: &console, Color: true})
	if err != nil {
		t.Fatal(err)
	}
	log.Warn("slow storage")
	_ = log.Sync()
	if !strings.Contains(console.String(), ansiYellow+levelIcons[zapcore.WarnLevel]+ansiReset) {
		t.Fatalf("console = %q", console.String())
	}
}

func TestDailyWriterRollsByDate(t *testing.T) {
	w, err := NewDailyWriter(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	day := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return day }
	if _, err := w.Write([]byte("one\n")); err != nil {
		t.Fatal(err)
	}
	first := w.Path()
	day = day.Add(24 * time.Hour)
	if _, err := w.Write([]byte("two\n")); err != nil {
		t.Fatal(err)
	}
	if w.Path() == first || !strings.HasSuffix(first, "intake_3-4-26.log") {
		t.Fatalf("paths %q then %q", first, w.Path())
	}
	data, _ := os.ReadFile(first)
	if string(data) != "one\n" {
		t.Fatalf("first file = %q", data)
	}
}
