package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/backmassage/muxtag/internal/config"
)

func TestNewLogger_NoFile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ColorMode = config.ColorNever
	l, err := NewLogger(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	l.Info("test message")
}

func TestNewLogger_WithFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.ColorMode = config.ColorNever
	cfg.LogFile = filepath.Join(dir, "logs", "muxtag.log")

	var out, errOut bytes.Buffer
	l, err := newLogger(&cfg, &out, &errOut)
	if err != nil {
		t.Fatal(err)
	}
	l.Info("to file")
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	b, _ := os.ReadFile(cfg.LogFile)
	if !bytes.Contains(b, []byte("[INFO] to file")) {
		t.Errorf("log file content: %s", string(b))
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LogLevel = config.LevelWarn

	var out, errOut bytes.Buffer
	l, err := newLogger(&cfg, &out, &errOut)
	if err != nil {
		t.Fatal(err)
	}
	l.Debug("hidden debug")
	l.Info("hidden info")
	l.Success("hidden success")
	l.Warn("shown warn")
	l.Error("shown error")

	if s := out.String(); strings.Contains(s, "hidden") || !strings.Contains(s, "[WARN] shown warn") {
		t.Errorf("stdout = %q", s)
	}
	if s := errOut.String(); !strings.Contains(s, "[ERROR] shown error") {
		t.Errorf("stderr = %q", s)
	}
}

func TestLogger_DebugLevel(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LogLevel = config.LevelDebug

	var out, errOut bytes.Buffer
	l, err := newLogger(&cfg, &out, &errOut)
	if err != nil {
		t.Fatal(err)
	}
	l.Debug("pad added: %s", "src_0")
	if !strings.Contains(out.String(), "[DEBUG] pad added: src_0") {
		t.Errorf("stdout = %q", out.String())
	}
}

func TestLogger_Concurrent(t *testing.T) {
	cfg := config.DefaultConfig()
	var out, errOut bytes.Buffer
	l, err := newLogger(&cfg, &out, &errOut)
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l.Info("line %d", i)
		}(i)
	}
	wg.Wait()
	if got := strings.Count(out.String(), "\n"); got != 20 {
		t.Errorf("got %d lines, want 20", got)
	}
}
