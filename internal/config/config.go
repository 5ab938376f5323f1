// Package config implements xfinder's configuration layer: a Config struct
// with nested section structs, loaded by applying defaults, then
// config.toml, then environment-variable overrides, in that precedence.
// Grounded on the teacher's internal/config package's
// constructor/Load/Validate shape; the wire format changes from the
// teacher's YAML to TOML per spec.md §6, using
// github.com/pelletier/go-toml/v2 (a grounded dependency from the wider
// example pack — see DESIGN.md).
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ExclusionsConfig mirrors internal/exclude.Policy's three lists.
type ExclusionsConfig struct {
	Extensions []string `toml:"extensions"`
	Patterns   []string `toml:"patterns"`
	Dirs       []string `toml:"dirs"`
}

// IndexingConfig configures the n-gram tokenizer bounds and the optional
// file-count ceiling for a scan.
type IndexingConfig struct {
	MinNgramSize    int  `toml:"min_ngram_size"`
	MaxNgramSize    int  `toml:"max_ngram_size"`
	MaxFilesToIndex int  `toml:"max_files_to_index"`
	NoFileLimit     bool `toml:"no_file_limit"`
}

// UIConfig configures the collaborating GUI host's display defaults.
type UIConfig struct {
	ResultsDisplayLimit int  `toml:"results_display_limit"`
	WatchdogEnabled     bool `toml:"watchdog_enabled"`
	MinimizeToTray      bool `toml:"minimize_to_tray"`
}

// SystemConfig configures OS-integration toggles the core does not itself
// implement, but whose desired state it persists.
type SystemConfig struct {
	AutostartEnabled bool `toml:"autostart_enabled"`
	SchedulerEnabled bool `toml:"scheduler_enabled"`
	SchedulerHour    int  `toml:"scheduler_hour"`
	SchedulerMinute  int  `toml:"scheduler_minute"`
	TrayEnabled      bool `toml:"tray_enabled"`
	HotkeyEnabled    bool `toml:"hotkey_enabled"`
}

// Config is xfinder's full persisted configuration (spec.md §6).
type Config struct {
	ScanPaths  []string         `toml:"scan_paths"`
	Exclusions ExclusionsConfig `toml:"exclusions"`
	Indexing   IndexingConfig   `toml:"indexing"`
	UI         UIConfig         `toml:"ui"`
	System     SystemConfig     `toml:"system"`
}

// NewConfig returns a Config populated with spec.md §6's defaults.
func NewConfig() *Config {
	return &Config{
		ScanPaths: nil,
		Exclusions: ExclusionsConfig{
			Extensions: []string{".tmp", ".cache", ".lock"},
			Patterns:   []string{},
			Dirs:       []string{".git", "node_modules", ".cache"},
		},
		Indexing: IndexingConfig{
			MinNgramSize:    2,
			MaxNgramSize:    20,
			MaxFilesToIndex: 100_000,
			NoFileLimit:     false,
		},
		UI: UIConfig{
			ResultsDisplayLimit: 50,
			WatchdogEnabled:     true,
			MinimizeToTray:      false,
		},
		System: SystemConfig{
			AutostartEnabled: false,
			SchedulerEnabled: false,
			SchedulerHour:    3,
			SchedulerMinute:  0,
			TrayEnabled:      false,
			HotkeyEnabled:    false,
		},
	}
}

// DefaultStateDir returns the per-user persisted-state directory,
// conventionally ~/.xfinder_index (spec.md §6).
func DefaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".xfinder_index")
}

// ConfigFileName is the canonical config file name within the state dir.
const ConfigFileName = "config.toml"

// Load reads config.toml from dir, falling back to defaults for missing
// fields, then applies XFINDER_-prefixed environment overrides, then
// validates. A missing file is not an error: it yields pure defaults.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	path := filepath.Join(dir, ConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveTOML writes cfg to dir/config.toml, overwriting any existing file.
// Round-trips byte-identically for any file this system wrote itself,
// since this is the single canonical encoder path (spec.md §8).
func SaveTOML(dir string, cfg *Config) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ConfigFileName), data, 0o644)
}

// LoadTOML reads a Config from an explicit file path rather than a state
// directory, without applying defaults or environment overrides. Used by
// the byte-identical round-trip property (spec.md §8).
func LoadTOML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports a non-nil error if cfg's fields are out of range.
func (c *Config) Validate() error {
	if c.Indexing.MinNgramSize < 1 {
		return errInvalid("indexing.min_ngram_size must be >= 1")
	}
	if c.Indexing.MaxNgramSize < c.Indexing.MinNgramSize {
		return errInvalid("indexing.max_ngram_size must be >= min_ngram_size")
	}
	if c.Indexing.MaxFilesToIndex < 0 {
		return errInvalid("indexing.max_files_to_index must be >= 0")
	}
	if c.System.SchedulerHour < 0 || c.System.SchedulerHour > 23 {
		return errInvalid("system.scheduler_hour must be in 0..23")
	}
	if c.System.SchedulerMinute < 0 || c.System.SchedulerMinute > 59 {
		return errInvalid("system.scheduler_minute must be in 0..59")
	}
	return nil
}

type configError string

func (e configError) Error() string { return string(e) }

func errInvalid(msg string) error { return configError(msg) }

// envPrefix namespaces xfinder's environment-variable config overrides.
const envPrefix = "XFINDER_"

// applyEnvOverrides applies a small, spec-relevant set of environment
// overrides on top of file-loaded values; unset variables leave the field
// untouched.
func applyEnvOverrides(cfg *Config) {
	if v, ok := lookupEnv("SCAN_PATHS"); ok {
		cfg.ScanPaths = strings.Split(v, string(os.PathListSeparator))
	}
	if v, ok := lookupEnvInt("INDEXING_MAX_FILES"); ok {
		cfg.Indexing.MaxFilesToIndex = v
	}
	if v, ok := lookupEnvBool("INDEXING_NO_FILE_LIMIT"); ok {
		cfg.Indexing.NoFileLimit = v
	}
	if v, ok := lookupEnvInt("UI_RESULTS_DISPLAY_LIMIT"); ok {
		cfg.UI.ResultsDisplayLimit = v
	}
	if v, ok := lookupEnvBool("SYSTEM_AUTOSTART_ENABLED"); ok {
		cfg.System.AutostartEnabled = v
	}
}

func lookupEnv(name string) (string, bool) {
	return os.LookupEnv(envPrefix + name)
}

func lookupEnvInt(name string) (int, bool) {
	v, ok := lookupEnv(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func lookupEnvBool(name string) (bool, bool) {
	v, ok := lookupEnv(name)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}
