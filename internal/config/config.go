package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/msalah0e/conceptmap/internal/layout"
	"github.com/msalah0e/conceptmap/internal/scene"
	"github.com/msalah0e/conceptmap/internal/viewport"
)

// Config holds conceptmap configuration.
type Config struct {
	Layout layout.Params   `toml:"layout" envPrefix:"LAYOUT_"`
	Camera viewport.Config `toml:"camera" envPrefix:"CAMERA_"`
	Styles scene.Styles    `toml:"styles"`
	Server ServerConfig    `toml:"server" envPrefix:"SERVER_"`
	Source SourceConfig    `toml:"source" envPrefix:"SOURCE_"`
	Log    LogConfig       `toml:"log" envPrefix:"LOG_"`
	UI     UIConfig        `toml:"ui" envPrefix:"UI_"`
}

// ServerConfig controls the web console.
type ServerConfig struct {
	Addr           string   `toml:"addr" env:"ADDR" validate:"required"`
	AllowedOrigins []string `toml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
	Width          float64  `toml:"width" env:"WIDTH" validate:"gt=0"`
	Height         float64  `toml:"height" env:"HEIGHT" validate:"gt=0"`
}

// SourceConfig selects where graph snapshots come from.
type SourceConfig struct {
	Kind    string `toml:"kind" env:"KIND" validate:"oneof=embedded dir http"`
	Dir     string `toml:"dir" env:"DIR" validate:"required_if=Kind dir"`
	BaseURL string `toml:"base_url" env:"BASE_URL" validate:"required_if=Kind http"`
	Default string `toml:"default" env:"DEFAULT"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level       string `toml:"level" env:"LEVEL" validate:"oneof=debug info warn error"`
	Development bool   `toml:"development" env:"DEVELOPMENT"`
	File        string `toml:"file" env:"FILE"`
}

// UIConfig controls display options.
type UIConfig struct {
	Color      bool   `toml:"color" env:"COLOR"`
	Background string `toml:"background" env:"BACKGROUND"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Layout: layout.DefaultParams(),
		Camera: viewport.DefaultConfig(),
		Styles: scene.DefaultStyles(),
		Server: ServerConfig{
			Addr:           ":8420",
			AllowedOrigins: []string{"http://localhost:3000"},
			Width:          1280,
			Height:         800,
		},
		Source: SourceConfig{Kind: "embedded", Default: "algebra"},
		Log:    LogConfig{Level: "info"},
		UI:     UIConfig{Color: true, Background: "#0a0e17"},
	}
}

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CONCEPTMAP_"

var validate = validator.New()

// ConfigDir returns the conceptmap config directory path.
func ConfigDir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "conceptmap")
}

// Path returns the config file path.
func Path() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file over the defaults, applies CONCEPTMAP_*
// environment overrides and validates the result. A missing file is not an
// error.
func Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(Path())
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config parse: %w", err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("config read: %w", err)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field against its validation tags.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, formatFieldError(fe))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func formatFieldError(e validator.FieldError) string {
	field := strings.TrimPrefix(e.Namespace(), "Config.")
	switch e.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "gt", "gte", "lte":
		return fmt.Sprintf("%s must be %s %s", field, e.Tag(), e.Param())
	case "gtfield":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// Save writes the config to disk.
func Save(cfg *Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// EnsureExists creates the config file with defaults if it doesn't exist.
func EnsureExists() error {
	if _, err := os.Stat(Path()); err == nil {
		return nil // already exists
	}
	return Save(Default())
}
