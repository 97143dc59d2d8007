package main

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chase3718/patchthru/config"
	"github.com/chase3718/patchthru/patch"
	"github.com/chase3718/patchthru/thru"
	"github.com/chase3718/patchthru/tui"
)

func TestOpenLog(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.UI = config.UILine
	w, closeLog, err := openLog(cfg)
	if err != nil {
		t.Fatal(err)
	}
	closeLog()
	if w != os.Stderr {
		t.Errorf("cli logs to %v, want stderr", w)
	}

	cfg.LogFile = filepath.Join(t.TempDir(), "thru.log")
	w, closeLog, err = openLog(cfg)
	if err != nil {
		t.Fatal(err)
	}
	initLogger(true, w)
	logger.Info("thru: log check", "device", "test")
	closeLog()

	data, err := os.ReadFile(cfg.LogFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "thru: log check") || !strings.Contains(string(data), "source=") {
		t.Errorf("log file = %q", data)
	}
}

func TestFatalHandlerInTUIDoesNotExit(t *testing.T) {
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	fatal := make(chan error, 1)
	boom := errors.New("write: broken pipe")

	onFatal := fatalHandler(config.UITerminal, "/dev/snd/midiC1D0", fatal)
	onFatal(boom)
	onFatal(errors.New("second failure is dropped"))

	select {
	case err := <-fatal:
		if !errors.Is(err, boom) {
			t.Errorf("fatal = %v, want %v", err, boom)
		}
	default:
		t.Fatal("fatal error not handed to the TUI")
	}
}

func TestRunTUIReturnsFatalError(t *testing.T) {
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	dev, err := thru.New(thru.Config{
		Output:  io.Discard,
		Patches: []patch.Patch{{Name: "Solo"}},
		Logger:  logger,
		OnFatal: func(err error) { t.Errorf("unexpected fatal: %v", err) },
	})
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()

	p := tea.NewProgram(tui.New(dev),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
		tea.WithoutSignalHandler(),
	)
	fatal := make(chan error, 1)
	boom := errors.New("thru: writer flush: drain failed")
	fatal <- boom

	done := make(chan error, 1)
	go func() { done <- runTUI(p, fatal) }()
	select {
	case err := <-done:
		if !errors.Is(err, boom) {
			t.Errorf("runTUI = %v, want %v", err, boom)
		}
	case <-time.After(5 * time.Second):
		p.Kill()
		t.Fatal("TUI did not stop on a fatal error")
	}
}

func TestSaveSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patchthru", "config.json")
	cfg := config.DefaultConfig()
	cfg.UI = config.UILine
	cfg.BaudRate = 31250

	got, err := saveSettings(cfg, path)
	if err != nil {
		t.Fatal(err)
	}
	if got != path {
		t.Errorf("saved to %q, want %q", got, path)
	}
	loaded, err := config.LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if *loaded != *cfg {
		t.Errorf("loaded %+v, want %+v", loaded, cfg)
	}
}
