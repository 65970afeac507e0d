package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Locales understood by the status labels and reminder content.
const (
	LocaleEnglish = "en"
	LocaleRussian = "ru"
)

// DefaultCollectionKey is the store key holding the medication collection.
const DefaultCollectionKey = "medicines"

// Config holds application configuration.
type Config struct {
	// Locale selects label and reminder wording: "en" (default) or "ru".
	Locale string `json:"locale,omitempty"`

	// CollectionKey is the single store key that holds every medication record.
	CollectionKey string `json:"collection_key,omitempty"`

	// TitleMaxChars caps the length of a medication title (in runes).
	TitleMaxChars int `json:"title_max_chars,omitempty"`

	// AllowedPaths is an allowlist of directories for import/export operations.
	// Paths outside ~/.dose/exports require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for import/export.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of type names to disable entirely.
	// Known types: "medication".
	DisabledTypes []string `json:"disabled_types,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// DaemonSyncSeconds is how often the reminder daemon re-reads armed triggers.
	DaemonSyncSeconds int `json:"daemon_sync_seconds,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Locale:            LocaleEnglish,
		CollectionKey:     DefaultCollectionKey,
		TitleMaxChars:     100,
		LogLevel:          "info",
		DaemonSyncSeconds: 30,
	}
}

// Load loads configuration from baseDir/config.json and applies DOSE_* environment overrides.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.dose.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	return Merge(cfg, fromEnv(os.LookupEnv)), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// fromEnv builds an overlay config from DOSE_LOCALE, DOSE_LOG_LEVEL and
// DOSE_DAEMON_SYNC_SECONDS. Unparseable values are ignored.
func fromEnv(lookup func(string) (string, bool)) *Config {
	cfg := &Config{}
	if v, ok := lookup("DOSE_LOCALE"); ok {
		cfg.Locale = strings.TrimSpace(v)
	}
	if v, ok := lookup("DOSE_LOG_LEVEL"); ok {
		cfg.LogLevel = strings.TrimSpace(v)
	}
	if v, ok := lookup("DOSE_DAEMON_SYNC_SECONDS"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			cfg.DaemonSyncSeconds = n
		}
	}
	return cfg
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.Locale = firstString(overlay.Locale, base.Locale)
	result.CollectionKey = firstString(overlay.CollectionKey, base.CollectionKey)
	result.LogLevel = firstString(overlay.LogLevel, base.LogLevel)

	result.TitleMaxChars = firstInt(overlay.TitleMaxChars, base.TitleMaxChars)
	result.DBMaxOpenConns = firstInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = firstInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns)
	result.DaemonSyncSeconds = firstInt(overlay.DaemonSyncSeconds, base.DaemonSyncSeconds)

	// Booleans: overlay wins if true, else base
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

func firstString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return strings.TrimSpace(overlay)
	}
	return base
}

func firstInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
