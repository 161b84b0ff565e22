// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Test     TestConfig     `toml:"test"`
	Duel     DuelConfig     `toml:"duel"`
	Practice PracticeConfig `toml:"practice"`
}

// TestConfig maps solo test settings.
type TestConfig struct {
	Level       *string `toml:"level"`
	Lang        *string `toml:"lang"`
	Words       *int    `toml:"words"`
	TimeSeconds *int    `toml:"time"`
	MistakeMode *string `toml:"mistake-mode"`
	Sound       *bool   `toml:"sound"`
}

// DuelConfig maps multiplayer settings.
type DuelConfig struct {
	Name     *string `toml:"name"`
	RelayURL *string `toml:"relay-url"`
}

// PracticeConfig maps weak-word practice settings.
type PracticeConfig struct {
	Words      *int     `toml:"words"`
	WeakTop    *int     `toml:"weak-top"`
	WeakFactor *float64 `toml:"weak-factor"`
	WeakWindow *int     `toml:"weak-window"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
