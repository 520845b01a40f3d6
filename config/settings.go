package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/hupe1980/mizan/dialogue"
)

// Settings holds harness-wide configuration that is not part of a task.
type Settings struct {
	DefaultLanguage string        `mapstructure:"default_language"`
	Backend         string        `mapstructure:"backend"`
	SystemPrompt    string        `mapstructure:"system_prompt"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxTokens       int64         `mapstructure:"max_tokens"`
	Concurrency     int           `mapstructure:"concurrency"`
	TurnTimeout     time.Duration `mapstructure:"turn_timeout"`
	MaxGenerations  int           `mapstructure:"max_generations"`

	Log       LogSettings      `mapstructure:"log"`
	Store     StoreSettings    `mapstructure:"store"`
	OpenAI    ProviderSettings `mapstructure:"openai"`
	Anthropic ProviderSettings `mapstructure:"anthropic"`
}

// LogSettings configures the structured logger.
type LogSettings struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text, pretty
}

// StoreSettings selects where run results are persisted.
type StoreSettings struct {
	Driver string `mapstructure:"driver"` // memory, sqlite
	DSN    string `mapstructure:"dsn"`
}

// ProviderSettings carries credentials for a hosted inference backend.
type ProviderSettings struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// DefaultSettings returns the built-in settings.
func DefaultSettings() Settings {
	return Settings{
		DefaultLanguage: dialogue.DefaultLanguage,
		Backend:         "simulated",
		Temperature:     0.7,
		MaxTokens:       1024,
		Concurrency:     4,
		Log:             LogSettings{Level: "info", Format: "pretty"},
		Store:           StoreSettings{Driver: "memory", DSN: "mizan.db"},
	}
}

// InitViper creates a configured *viper.Viper.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound by the caller)
//  2. Environment variables (MIZAN_BACKEND, MIZAN_LOG_LEVEL, MIZAN_OPENAI_API_KEY, ...)
//  3. mizan.yaml (explicit path, else ./mizan.yaml or $HOME/.mizan/mizan.yaml)
//  4. DefaultSettings()
func InitViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	setViperDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("mizan")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.mizan")
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading settings: %w", err)
		}
	}

	v.SetEnvPrefix("MIZAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// LoadSettings decodes and checks the settings held by v.
func LoadSettings(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks settings values for consistency.
func (s Settings) Validate() error {
	var problems []string
	if strings.TrimSpace(s.DefaultLanguage) == "" {
		problems = append(problems, "default_language: is required")
	}
	if strings.TrimSpace(s.Backend) == "" {
		problems = append(problems, "backend: is required")
	}
	if s.Concurrency < 1 {
		problems = append(problems, "concurrency: must be >= 1")
	}
	if s.TurnTimeout < 0 {
		problems = append(problems, "turn_timeout: must be >= 0")
	}
	if s.MaxGenerations < 0 {
		problems = append(problems, "max_generations: must be >= 0")
	}
	if s.MaxTokens < 0 {
		problems = append(problems, "max_tokens: must be >= 0")
	}
	switch s.Log.Format {
	case "json", "text", "pretty":
	default:
		problems = append(problems, fmt.Sprintf("log.format: unsupported format %q", s.Log.Format))
	}
	switch s.Store.Driver {
	case "memory", "sqlite":
	default:
		problems = append(problems, fmt.Sprintf("store.driver: unsupported driver %q", s.Store.Driver))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid settings:\n%s", strings.Join(problems, "\n"))
	}
	return nil
}

// setViperDefaults registers DefaultSettings() into viper using dotted keys.
// Every key must be registered so AutomaticEnv can resolve it on Unmarshal.
func setViperDefaults(v *viper.Viper) {
	d := DefaultSettings()

	v.SetDefault("default_language", d.DefaultLanguage)
	v.SetDefault("backend", d.Backend)
	v.SetDefault("system_prompt", d.SystemPrompt)
	v.SetDefault("temperature", d.Temperature)
	v.SetDefault("max_tokens", d.MaxTokens)
	v.SetDefault("concurrency", d.Concurrency)
	v.SetDefault("turn_timeout", d.TurnTimeout)
	v.SetDefault("max_generations", d.MaxGenerations)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.dsn", d.Store.DSN)

	v.SetDefault("openai.api_key", d.OpenAI.APIKey)
	v.SetDefault("openai.base_url", d.OpenAI.BaseURL)
	v.SetDefault("anthropic.api_key", d.Anthropic.APIKey)
	v.SetDefault("anthropic.base_url", d.Anthropic.BaseURL)
}
