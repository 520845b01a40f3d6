package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hupe1980/mizan/config"
	"github.com/hupe1980/mizan/logging"
)

// flagBindings maps command flags onto settings keys.
var flagBindings = map[string]string{
	"backend":         "backend",
	"store":           "store.driver",
	"dsn":             "store.dsn",
	"timeout":         "turn_timeout",
	"concurrency":     "concurrency",
	"max-generations": "max_generations",
	"language":        "default_language",
}

// loadSettings resolves settings from file, environment and the flags of cmd
// that were set explicitly.
func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	settingsFile, err := cmd.Flags().GetString("settings")
	if err != nil {
		return config.Settings{}, fmt.Errorf("could not get settings flag: %w", err)
	}

	v, err := config.InitViper(settingsFile)
	if err != nil {
		return config.Settings{}, err
	}
	if err := bindFlags(cmd, v); err != nil {
		return config.Settings{}, err
	}

	debug, err := cmd.Flags().GetBool("debug")
	if err != nil {
		return config.Settings{}, fmt.Errorf("could not get debug flag: %w", err)
	}
	if debug {
		v.Set("log.level", "debug")
	}

	return config.LoadSettings(v)
}

func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	for name, key := range flagBindings {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag %s: %w", name, err)
		}
	}
	return nil
}

// newLogger builds the logger described by s, writing to w.
func newLogger(s config.Settings, w io.Writer) (logging.Logger, error) {
	level, err := logging.ParseLevel(s.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.New(&logging.LoggerConfig{
		Level:     level,
		Format:    s.Log.Format,
		Output:    w,
		Component: "mizan",
	}), nil
}
