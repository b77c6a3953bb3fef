package manager

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings is the YAML application configuration.
//
// Example YAML (~/.config/sshive/config.yaml):
//
//	skip_credential_check: false
//	terminal: kitty
//	cleanup_delay_seconds: 5
//	check_timeout_seconds: 2
type Settings struct {
	// SkipCredentialCheck disables the active authentication probe that
	// normally runs before launching a connection. Static validation
	// (binaries and key files present) always runs.
	SkipCredentialCheck bool `yaml:"skip_credential_check,omitempty"`

	// Terminal optionally pins a terminal emulator by name instead of
	// probing the preference list. The named emulator must still be
	// resolvable on PATH at launch time.
	Terminal string `yaml:"terminal,omitempty"`

	// CleanupDelaySeconds is how long a converted temporary key stays on
	// disk after a launch, so the spawned terminal's ssh can read it.
	CleanupDelaySeconds int `yaml:"cleanup_delay_seconds,omitempty"`

	// CheckTimeoutSeconds bounds the active credential check.
	CheckTimeoutSeconds int `yaml:"check_timeout_seconds,omitempty"`
}

const defaultSettingsFilename = "config.yaml"

// ErrSettingsNotFound is returned when no settings file can be located.
// Callers normally fall back to DefaultSettings.
var ErrSettingsNotFound = errors.New("settings not found")

// DefaultSettings returns the built-in configuration.
func DefaultSettings() *Settings {
	return &Settings{
		CleanupDelaySeconds: 5,
		CheckTimeoutSeconds: 2,
	}
}

// CleanupDelay returns the delayed-deletion window as a duration.
func (s *Settings) CleanupDelay() time.Duration {
	if s.CleanupDelaySeconds < 1 {
		return 5 * time.Second
	}
	return time.Duration(s.CleanupDelaySeconds) * time.Second
}

// CheckTimeout returns the active-check bound as a duration.
func (s *Settings) CheckTimeout() time.Duration {
	if s.CheckTimeoutSeconds < 1 {
		return 2 * time.Second
	}
	return time.Duration(s.CheckTimeoutSeconds) * time.Second
}

// Validate performs basic sanity checks on the configuration.
func (s *Settings) Validate() error {
	if s.CleanupDelaySeconds < 0 {
		return fmt.Errorf("cleanup_delay_seconds: must be >= 0")
	}
	if s.CheckTimeoutSeconds < 0 {
		return fmt.Errorf("check_timeout_seconds: must be >= 0")
	}
	return nil
}

// LoadSettings discovers and loads the YAML settings.
// If explicitPath is empty, it searches common locations in order:
//  1. $SSHIVE_CONFIG
//  2. $XDG_CONFIG_HOME/sshive/config.yaml
//  3. ~/.config/sshive/config.yaml
//
// Returns the parsed Settings and the path that was used. A missing file in
// every candidate location yields ErrSettingsNotFound.
func LoadSettings(explicitPath string) (*Settings, string, error) {
	candidates := SettingsPathCandidates(explicitPath)
	var lastErr error
	for _, p := range candidates {
		p = ExpandPath(p)
		if p == "" {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			lastErr = err
			continue
		}
		cfg := DefaultSettings()
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, p, fmt.Errorf("parse yaml %s: %w", p, err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, p, fmt.Errorf("invalid settings %s: %w", p, err)
		}
		return cfg, p, nil
	}
	if lastErr == nil || errors.Is(lastErr, os.ErrNotExist) {
		lastErr = ErrSettingsNotFound
	}
	return nil, "", lastErr
}

// SettingsPathCandidates returns possible settings file paths, in priority order.
// If explicitPath is provided, it is returned first (expanded).
func SettingsPathCandidates(explicitPath string) []string {
	var out []string
	if explicitPath != "" {
		out = append(out, explicitPath)
	}
	if env := os.Getenv("SSHIVE_CONFIG"); env != "" {
		out = append(out, env)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		out = append(out, filepath.Join(xdg, defaultConfigDirName, defaultSettingsFilename))
	}
	home, _ := os.UserHomeDir()
	if home != "" {
		out = append(out, filepath.Join(home, ".config", defaultConfigDirName, defaultSettingsFilename))
	}
	return out
}

// SaveSettings writes the settings YAML to path, creating the parent
// directory if needed. If path is empty, the default location is used.
func SaveSettings(path string, s *Settings) error {
	if s == nil {
		return errors.New("nil settings")
	}
	if err := s.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(path) == "" {
		dir, err := DefaultConfigDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, defaultSettingsFilename)
	}
	path = ExpandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	payload, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return fmt.Errorf("write settings %s: %w", path, err)
	}
	return nil
}
