// Package config loads missionkit.yaml and applies MISSIONKIT_ environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	DefaultFileName = "missionkit.yaml"
	EnvPrefix       = "MISSIONKIT_"
)

type Config struct {
	Version       int            `yaml:"version"`
	DescriptorExt string         `yaml:"descriptor_ext" env:"DESCRIPTOR_EXT"`
	ArchiveExt    string         `yaml:"archive_ext" env:"ARCHIVE_EXT"`
	History       HistoryConfig  `yaml:"history" envPrefix:"HISTORY_"`
	Bindings      BindingsConfig `yaml:"bindings" envPrefix:"BINDINGS_"`
	Log           LogConfig      `yaml:"log" envPrefix:"LOG_"`
	Database      DatabaseConfig `yaml:"database" envPrefix:"DATABASE_"`
	Library       LibraryConfig  `yaml:"library" envPrefix:"LIBRARY_"`
}

type HistoryConfig struct {
	Capacity int `yaml:"capacity" env:"CAPACITY"`
}

type BindingsConfig struct {
	Undo []string `yaml:"undo" env:"UNDO"`
	Redo []string `yaml:"redo" env:"REDO"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"DSN"`
}

// LibraryConfig lists the directories the index walks for archives.
type LibraryConfig struct {
	Paths   []string `yaml:"paths" env:"PATHS"`
	Exclude []string `yaml:"exclude" env:"EXCLUDE"`
}

func Default() *Config {
	return &Config{
		Version:       1,
		DescriptorExt: ".mission",
		ArchiveExt:    ".playmission",
		History:       HistoryConfig{Capacity: 200},
		Bindings: BindingsConfig{
			Undo: []string{"ctrl+z"},
			Redo: []string{"ctrl+shift+z", "ctrl+y"},
		},
		Log:      LogConfig{Level: "info", Format: "console"},
		Database: DatabaseConfig{DSN: "sqlite://missionkit.db"},
		Library:  LibraryConfig{Paths: []string{"."}},
	}
}

// Load reads path over the defaults. A missing file is not an error.
// Environment variables win over the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("loading config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("loading config: parse env: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return cfg, nil
}

// Write stores cfg as YAML, refusing to replace an existing file.
func Write(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing config: %w", err)
	}
	return f.Close()
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"console", "json"}
	dsnSchemes = []string{"sqlite://", "postgres://", "postgresql://"}
)

func validateConfig(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}
	if !strings.HasPrefix(cfg.DescriptorExt, ".") || len(cfg.DescriptorExt) < 2 {
		return fmt.Errorf("descriptor_ext must be a file extension, got %q", cfg.DescriptorExt)
	}
	if !strings.HasPrefix(cfg.ArchiveExt, ".") || len(cfg.ArchiveExt) < 2 {
		return fmt.Errorf("archive_ext must be a file extension, got %q", cfg.ArchiveExt)
	}
	if cfg.History.Capacity <= 0 {
		return fmt.Errorf("history capacity must be positive, got %d", cfg.History.Capacity)
	}
	if !slices.Contains(logLevels, strings.ToLower(cfg.Log.Level)) {
		return fmt.Errorf("unsupported log level: %s", cfg.Log.Level)
	}
	if !slices.Contains(logFormats, strings.ToLower(cfg.Log.Format)) {
		return fmt.Errorf("unsupported log format: %s", cfg.Log.Format)
	}
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return fmt.Errorf("database dsn is required")
	}
	if !slices.ContainsFunc(dsnSchemes, func(s string) bool { return strings.HasPrefix(cfg.Database.DSN, s) }) {
		return fmt.Errorf("unsupported database dsn: %s", cfg.Database.DSN)
	}
	if len(cfg.Library.Paths) == 0 {
		return fmt.Errorf("at least one library path is required")
	}
	for i, p := range cfg.Library.Paths {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("library path %d is empty", i)
		}
	}

	return nil
}
