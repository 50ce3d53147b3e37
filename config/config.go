// Package config loads game settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// EnvConfigPath names the environment variable that selects the config file.
const EnvConfigPath = "QUESTCHRONICLES_CONFIG"

// DefaultPath is used when no path is given and the env var is unset.
const DefaultPath = "questchronicles.toml"

type Config struct {
	Game    GameConfig    `toml:"game"`
	Save    SaveConfig    `toml:"save"`
	Logging LoggingConfig `toml:"logging"`
}

type GameConfig struct {
	DataDir           string `toml:"data_dir"`
	InventoryCapacity int    `toml:"inventory_capacity"`
	Seed              int64  `toml:"seed"` // 0 picks a seed from the clock
}

type SaveConfig struct {
	Backend    string `toml:"backend"` // "json" or "sqlite"
	Dir        string `toml:"dir"`
	SQLitePath string `toml:"sqlite_path"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
	Output string `toml:"output"` // file path; empty discards logs
}

// Load reads .env from the working directory, then the TOML file at path.
// An empty path falls back to $QUESTCHRONICLES_CONFIG, then DefaultPath.
// A missing file is not an error unless it was named explicitly.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	explicit := path != ""
	if !explicit {
		if env := os.Getenv(EnvConfigPath); env != "" {
			path, explicit = env, true
		} else {
			path = DefaultPath
		}
	}

	cfg := defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Save.Backend {
	case "json", "sqlite":
	default:
		return fmt.Errorf("unknown save backend %q", c.Save.Backend)
	}
	if c.Game.InventoryCapacity < 1 {
		return fmt.Errorf("inventory_capacity must be positive, got %d", c.Game.InventoryCapacity)
	}
	return nil
}

// WithDataDir returns a copy whose save locations follow a data directory
// given on the command line, unless they were set explicitly.
func (c *Config) WithDataDir(dir string) *Config {
	out := *c
	d := defaults()
	if out.Save.Dir == d.Save.Dir {
		out.Save.Dir = filepath.Join(dir, "saves")
	}
	if out.Save.SQLitePath == d.Save.SQLitePath {
		out.Save.SQLitePath = filepath.Join(dir, "saves.db")
	}
	out.Game.DataDir = dir
	return &out
}

func defaults() *Config {
	return &Config{
		Game: GameConfig{
			DataDir:           "data",
			InventoryCapacity: 20,
		},
		Save: SaveConfig{
			Backend:    "json",
			Dir:        filepath.Join("data", "saves"),
			SQLitePath: filepath.Join("data", "saves.db"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
