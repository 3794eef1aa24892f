// Package config provides configuration and path resolution for kotor-go tools.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

const (
	// Version is the kotor-go version string
	Version = "0.4.0"

	// DefaultEncoding is the codepage assumed for game text
	DefaultEncoding = "CP1252"

	// FileName is the config file name, without extension
	FileName = "kotortool"

	// EnvPrefix prefixes every environment override (KOTOR_GAME_DIR, ...)
	EnvPrefix = "KOTOR"
)

// Keys.
const (
	KeyGameDir  = "game_dir"
	KeyRoutines = "routines"
	KeyEncoding = "encoding"
	KeyWorkers  = "workers"
	KeyListen   = "listen"
)

// Config is the resolved tool configuration.
type Config struct {
	GameDir  string `mapstructure:"game_dir"`
	Routines string `mapstructure:"routines"`
	Encoding string `mapstructure:"encoding"`
	Workers  int    `mapstructure:"workers"`
	Listen   string `mapstructure:"listen"`
}

// SearchPaths returns the directories searched for kotortool.yaml, in order:
//  1. $KOTOR_HOME
//  2. Executable directory
//  3. ~/.kotor-go
func SearchPaths() []string {
	var paths []string
	if home := os.Getenv(EnvPrefix + "_HOME"); home != "" {
		paths = append(paths, home)
	}
	paths = append(paths, filepath.Dir(os.Args[0]))
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		paths = append(paths, filepath.Join(home, ".kotor-go"))
	}
	return paths
}

// New returns a viper instance with defaults, env binding and the search
// paths set up. Callers bind their flags before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyGameDir, ".")
	v.SetDefault(KeyRoutines, "")
	v.SetDefault(KeyEncoding, DefaultEncoding)
	v.SetDefault(KeyWorkers, runtime.NumCPU())
	v.SetDefault(KeyListen, "127.0.0.1:8087")

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	for _, p := range SearchPaths() {
		v.AddConfigPath(p)
	}
	return v
}

// Load reads the config file if one exists and decodes the merged settings.
// An explicit path overrides the search.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &cfg, nil
}

// RoutinesFile returns the routine table path. Relative paths resolve
// against the game directory.
func (c *Config) RoutinesFile() string {
	if c.Routines == "" || filepath.IsAbs(c.Routines) {
		return c.Routines
	}
	return filepath.Join(c.GameDir, c.Routines)
}
