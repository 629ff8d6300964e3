package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ItsNotGoodName/x-photowall/internal/core"
	jsoniter "github.com/json-iterator/go"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// NewDriver picks a driver by the extension of filePath.
func NewDriver(filePath string) (Driver, error) {
	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".yaml", ".yml":
		return NewYAML(filePath), nil
	case ".json":
		return NewJSON(filePath), nil
	case ".ini":
		return NewINI(filePath), nil
	default:
		return nil, fmt.Errorf("unsupported config extension: %q", ext)
	}
}

// readFile opens filePath for decode, a missing file reads as the default config.
func readFile(filePath string, decode func(r io.Reader, cfg *Config) error) (Config, error) {
	file, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return Config{}, err
	}
	defer file.Close()

	var cfg Config
	if err := decode(file, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode %s: %w", filePath, err)
	}
	return cfg, nil
}

// writeFile writes to a temporary file and renames it over filePath.
func writeFile(filePath string, encode func(w io.Writer) error) error {
	filePathTmp := filePath + ".tmp"
	file, err := os.OpenFile(filePathTmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}

	if err := encode(file); err != nil {
		file.Close()
		os.Remove(filePathTmp)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(filePathTmp)
		return err
	}

	return os.Rename(filePathTmp, filePath)
}

func NewYAML(filePath string) YAML {
	return YAML{
		filePath: filePath,
	}
}

type YAML struct {
	filePath string
}

// Exists implements Driver.
func (y YAML) Exists() (bool, error) {
	return core.FileExists(y.filePath)
}

func (y YAML) Read() (Config, error) {
	return readFile(y.filePath, func(r io.Reader, cfg *Config) error {
		err := yaml.NewDecoder(r).Decode(cfg)
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	})
}

func (y YAML) Write(cfg Config) error {
	return writeFile(y.filePath, func(w io.Writer) error {
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	})
}

func NewJSON(filePath string) JSON {
	return JSON{
		filePath: filePath,
	}
}

type JSON struct {
	filePath string
}

// Exists implements Driver.
func (j JSON) Exists() (bool, error) {
	return core.FileExists(j.filePath)
}

func (j JSON) Read() (Config, error) {
	return readFile(j.filePath, func(r io.Reader, cfg *Config) error {
		b, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		if len(bytes.TrimSpace(b)) == 0 {
			return nil
		}
		return json.Unmarshal(b, cfg)
	})
}

func (j JSON) Write(cfg Config) error {
	return writeFile(j.filePath, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	})
}

// INISection holds the settings in INI files.
const INISection = "wallpaper"

func NewINI(filePath string) INI {
	return INI{
		filePath: filePath,
	}
}

type INI struct {
	filePath string
}

// Exists implements Driver.
func (i INI) Exists() (bool, error) {
	return core.FileExists(i.filePath)
}

func (i INI) Read() (Config, error) {
	return readFile(i.filePath, func(r io.Reader, cfg *Config) error {
		b, err := io.ReadAll(r)
		if err != nil {
			return err
		}

		file, err := ini.Load(b)
		if err != nil {
			return err
		}

		section := file.Section(INISection)
		cfg.Folder = section.Key("folder").String()
		if !section.HasKey("delay") {
			return nil
		}
		cfg.Delay, err = section.Key("delay").Int()
		return err
	})
}

func (i INI) Write(cfg Config) error {
	file := ini.Empty()
	section := file.Section(INISection)
	section.Key("folder").SetValue(cfg.Folder)
	section.Key("delay").SetValue(fmt.Sprint(cfg.Delay))

	return writeFile(i.filePath, func(w io.Writer) error {
		_, err := file.WriteTo(w)
		return err
	})
}
