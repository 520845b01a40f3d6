// Package config turns raw task definitions into validated dialogue tasks and
// loads the harness settings.
//
// Task definitions come either as already-decoded maps (Validate) or from
// YAML / JSON files (LoadTask). Every failure is a *ConfigurationError: the
// run cannot self-correct from a malformed definition, so callers abort.
//
// Harness settings (default language, backend, timeouts, logging, storage)
// are read with viper from mizan.yaml, MIZAN_* environment variables and
// built-in defaults, in that order of precedence (lowest last).
package config
