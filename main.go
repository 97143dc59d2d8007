package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chase3718/patchthru/cli"
	"github.com/chase3718/patchthru/config"
	"github.com/chase3718/patchthru/mcptools"
	"github.com/chase3718/patchthru/patch"
	"github.com/chase3718/patchthru/port"
	"github.com/chase3718/patchthru/thru"
	"github.com/chase3718/patchthru/tui"
)

const version = "0.3.0"

// -------------------- Logger --------------------

// logger is the program-wide structured logger. Safe to use before initLogger
// is called; defaults to slog.Default().
var logger = slog.Default()

// initLogger configures the shared slog logger and installs it as the
// default so the library packages log through the same handler.
func initLogger(debug bool, w io.Writer) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
	logger = slog.New(h)
	slog.SetDefault(logger)
}

// -------------------- Command line --------------------

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "usage: %s [flags] <midi-in|-> <midi-out> [patch-file]\n\n", filepath.Base(os.Args[0]))
	fmt.Fprintf(out, "Relays MIDI IN to MIDI OUT and sends bank/program changes from the patch file.\n")
	fmt.Fprintf(out, "Devices are paths (/dev/snd/midiC1D0, /dev/ttyUSB0 with -baud) or %s<port>.\n\n", port.RtMIDIPrefix)
	flag.PrintDefaults()
}

func main() {
	debug := flag.Bool("debug", false, "enable debug logging (adds source location)")
	baud := flag.Int("baud", 0, fmt.Sprintf("open device paths as serial ports at this rate (MIDI DIN is %d)", port.MIDIBaudRate))
	ui := flag.String("ui", string(config.UITerminal), "front end: tui, cli or mcp")
	logFile := flag.String("log", "", "write logs to this file (default: config dir when -ui=tui, stderr otherwise)")
	list := flag.Bool("list", false, "list MIDI devices and patch files, then exit")
	configPath := flag.String("config", "", "settings file (default ~/.config/patchthru/config.json)")
	maxSysEx := flag.Int("max-sysex", 0, "largest accepted system exclusive message in bytes")
	saveConfig := flag.Bool("save-config", false, "write the effective settings to the settings file, then exit")
	flag.Usage = usage
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "debug":
			cfg.Debug = *debug
		case "baud":
			cfg.BaudRate = *baud
		case "ui":
			cfg.UI = config.UI(*ui)
		case "log":
			cfg.LogFile = *logFile
		case "max-sysex":
			cfg.MaxSysEx = *maxSysEx
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *saveConfig {
		path, err := saveSettings(cfg, *configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("settings written to %s\n", path)
		return
	}

	logOut, closeLog, err := openLog(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeLog()
	initLogger(cfg.Debug, logOut)

	if *list {
		if err := listDevices(os.Stdout, cfg); err != nil {
			logger.Error("list failed", "err", err)
			os.Exit(1)
		}
		return
	}

	if flag.NArg() < 2 || flag.NArg() > 3 {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(cfg, flag.Arg(0), flag.Arg(1), flag.Arg(2)); err != nil {
		logger.Error("patchthru failed", "err", err)
		if logOut != os.Stderr {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFrom(path)
}

// saveSettings writes cfg to path, or to the default settings file when path
// is empty, and returns where it went.
func saveSettings(cfg *config.Config, path string) (string, error) {
	if path == "" {
		var err error
		if path, err = config.ConfigPath(); err != nil {
			return "", fmt.Errorf("cannot locate settings file: %w", err)
		}
		if err := cfg.Save(); err != nil {
			return "", fmt.Errorf("cannot write settings to %q: %w", path, err)
		}
		return path, nil
	}
	if err := cfg.SaveTo(path); err != nil {
		return "", fmt.Errorf("cannot write settings to %q: %w", path, err)
	}
	return path, nil
}

// openLog picks the log destination. The TUI owns the terminal, so it logs to
// a file in the config directory unless told otherwise.
func openLog(cfg *config.Config) (io.Writer, func(), error) {
	path := cfg.LogFile
	if path == "" && cfg.UI == config.UITerminal {
		dir, err := config.ConfigDir()
		if err != nil {
			return io.Discard, func() {}, nil
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, err
		}
		path = filepath.Join(dir, "patchthru.log")
	}
	if path == "" {
		return os.Stderr, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot open log file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

// -------------------- Device listing --------------------

func listDevices(w io.Writer, cfg *config.Config) error {
	listing, err := port.List(logger)
	if err != nil {
		return err
	}
	listing.Write(w)

	if cfg.PatchDir == "" {
		return nil
	}
	files, err := patch.Files(cfg.PatchDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "=== patch files in %s ===\n", cfg.PatchDir)
	if len(files) == 0 {
		fmt.Fprintln(w, "(none)")
	}
	for _, f := range files {
		fmt.Fprintln(w, f)
	}
	return nil
}

// -------------------- Relay --------------------

// fatalHandler is the device's OnFatal hook. The line and MCP front ends exit
// right away. The TUI holds the terminal in raw mode, so there the error is
// handed to fatal and the program quits through bubbletea, which restores the
// terminal before run returns it.
func fatalHandler(ui config.UI, outName string, fatal chan<- error) func(error) {
	return func(err error) {
		logger.Error("output device failed, exiting", "device", outName, "err", err)
		if ui != config.UITerminal {
			os.Exit(1)
		}
		select {
		case fatal <- err:
		default:
		}
	}
}

func run(cfg *config.Config, inName, outName, patchFile string) error {
	logger.Info("patchthru starting",
		"version", version,
		"in", inName,
		"out", outName,
		"patches", patchFile,
		"ui", cfg.UI,
		"baud", cfg.BaudRate,
	)

	var patches []patch.Patch
	if patchFile != "" {
		var err error
		if patches, err = patch.Load(patchFile); err != nil {
			return err
		}
		logger.Info("patches loaded", "file", patchFile, "count", len(patches))
	}

	opts := port.Options{BaudRate: cfg.BaudRate, Logger: logger}
	out, err := port.OpenOutput(outName, opts)
	if err != nil {
		return err
	}
	defer out.Close()

	in, err := port.OpenInput(inName, opts)
	if err != nil {
		return err
	}
	var input io.Reader
	if in != nil {
		defer in.Close()
		input = in
	}

	// buffered: the first patch may fail before the TUI is running
	fatal := make(chan error, 1)
	dev, err := thru.New(thru.Config{
		Input:    input,
		Output:   out,
		Patches:  patches,
		MaxSysEx: cfg.MaxSysEx,
		Logger:   logger,
		OnFatal:  fatalHandler(cfg.UI, outName, fatal),
	})
	if err != nil {
		return err
	}
	defer dev.Close()

	switch cfg.UI {
	case config.UILine:
		return cli.Run(os.Stdin, os.Stdout, dev)
	case config.UIMCP:
		return mcptools.ServeStdio(mcptools.NewServer(dev, version, logger))
	case config.UITerminal:
		return runTUI(tea.NewProgram(tui.New(dev), tea.WithAltScreen(), tea.WithMouseCellMotion()), fatal)
	}
	return fmt.Errorf("unknown ui %q", cfg.UI)
}

// runTUI runs p until the user quits or a fatal relay error arrives on fatal,
// and returns that error only after the terminal has been restored.
func runTUI(p *tea.Program, fatal <-chan error) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case err := <-fatal:
			p.Send(tui.FatalMsg{Err: err})
		case <-stop:
		}
	}()

	final, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	if m, ok := final.(tui.Model); ok && m.Err() != nil {
		return m.Err()
	}
	return nil
}
