// Quest Chronicles is a turn-based text RPG: create a character, take quests,
// fight, shop and save progress between sessions.
// Usage: questchronicles [--version] [--plain] [--script <file>] [--trace] [--config <file>] [data_directory]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nathoo/questchronicles/cli"
	"github.com/nathoo/questchronicles/config"
	"github.com/nathoo/questchronicles/engine/save"
	"github.com/nathoo/questchronicles/loader"
	"github.com/nathoo/questchronicles/menu"
	"github.com/nathoo/questchronicles/tui"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = "Usage: questchronicles [--version] [--plain] [--script <file>] [--trace] [--config <file>] [data_directory]"

func main() {
	plain := false
	trace := false
	var dataDir, scriptFile, configFile string

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version":
			fmt.Printf("questchronicles %s (commit %s, built %s)\n", version, commit, date)
			return
		case "--plain":
			plain = true
		case "--trace":
			trace = true
		case "--script", "--config":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "%s requires a file path\n", args[i])
				os.Exit(1)
			}
			if args[i] == "--script" {
				scriptFile = args[i+1]
			} else {
				configFile = args[i+1]
			}
			i++
		case "--help", "-h":
			fmt.Println(usage)
			return
		default:
			if dataDir == "" {
				dataDir = args[i]
			}
		}
	}

	if err := run(dataDir, configFile, scriptFile, plain, trace); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(dataDir, configFile, scriptFile string, plain, trace bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if dataDir != "" {
		cfg = cfg.WithDataDir(dataDir)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	written, err := loader.EnsureDefaults(cfg.Game.DataDir)
	if err != nil {
		return err
	}
	for _, name := range written {
		log.Info("wrote default data file", zap.String("dir", cfg.Game.DataDir), zap.String("file", name))
	}

	defs, err := loader.Load(cfg.Game.DataDir, log)
	if err != nil {
		return fmt.Errorf("loading game data: %w", err)
	}

	store, err := openStore(ctx, cfg.Save)
	if err != nil {
		return err
	}
	defer store.Close()
	log.Info("save store ready", zap.String("backend", cfg.Save.Backend))

	m := menu.New(defs, store)
	m.Log = log
	m.Seed = cfg.Game.Seed
	m.Capacity = cfg.Game.InventoryCapacity

	// Script mode: read commands from a file, force plain, echo commands.
	if scriptFile != "" {
		f, err := os.Open(scriptFile)
		if err != nil {
			return fmt.Errorf("opening script: %w", err)
		}
		defer f.Close()
		c := cli.New(m)
		c.In = f
		c.EchoInput = true
		c.Trace = trace
		return c.Run(ctx)
	}

	// Use plain CLI if --plain flag or stdout is not a terminal.
	if plain || !isTerminal() {
		c := cli.New(m)
		c.Trace = trace
		return c.Run(ctx)
	}

	return tui.Run(ctx, m)
}

func openStore(ctx context.Context, cfg config.SaveConfig) (save.Store, error) {
	if cfg.Backend == "sqlite" {
		return save.OpenSQLite(ctx, cfg.SQLitePath)
	}
	return save.NewFileStore(cfg.Dir)
}

// newLogger builds a zap logger from config. Logs go to the configured file
// so they never interleave with game output; no file means no logs.
func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	if cfg.Output == "" {
		return zap.NewNop(), nil
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.OutputPaths = []string{cfg.Output}
	zapCfg.ErrorOutputPaths = []string{cfg.Output}

	return zapCfg.Build()
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
