package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var ErrInvalidConfig = errors.New("invalid config")

const DefaultDelay = 60

// DefaultConfig points at the user's pictures folder.
func DefaultConfig() Config {
	cfg := Config{Delay: DefaultDelay}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.Folder = filepath.Join(home, "Pictures")
	}
	return cfg
}

type Config struct {
	// Folder is the absolute path of the image folder.
	Folder string `json:"folder" yaml:"folder" ini:"folder"`
	// Delay is the number of seconds between frames.
	Delay int `json:"delay" yaml:"delay" ini:"delay"`
}

func (c Config) Validate() error {
	if c.Delay <= 0 {
		return fmt.Errorf("%w: delay must be positive: %d", ErrInvalidConfig, c.Delay)
	}
	if c.Folder == "" {
		return fmt.Errorf("%w: folder not set", ErrInvalidConfig)
	}
	if !filepath.IsAbs(c.Folder) {
		return fmt.Errorf("%w: folder must be absolute: %s", ErrInvalidConfig, c.Folder)
	}

	file, err := os.Open(c.Folder)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: folder is not a directory: %s", ErrInvalidConfig, c.Folder)
	}

	return nil
}

func (c Config) DelayDuration() time.Duration {
	return time.Duration(c.Delay) * time.Second
}
