package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"shiftcal/internal/schedule"
)

// Environment variables that override the file.
const (
	EnvConfigPath = "SHIFTCAL_CONFIG"
	EnvListen     = "SHIFTCAL_LISTEN"
	EnvLogLevel   = "SHIFTCAL_LOG_LEVEL"
)

const DefaultPath = "shiftcal.yaml"

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// LogConfig selects the log level ("debug", "info", "warn", "error") and
// format ("text", "json").
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone written as the calendar's reference
	// timezone (X-WR-TIMEZONE). Event times are not converted.
	Timezone string `yaml:"timezone" json:"timezone"`

	// PlaceholderName names events whose row has no subject.
	PlaceholderName string `yaml:"placeholder_name" json:"placeholder_name"`

	// DefaultDuration is the length of timed events without a usable end.
	DefaultDuration time.Duration `yaml:"default_duration" json:"default_duration"`

	// Truthy lists the all-day flag values that make a row all-day.
	Truthy []string `yaml:"truthy" json:"truthy"`

	// Aliases adds header names per semantic field (subject, start_date,
	// start_time, end_date, end_time, all_day, description, location).
	// They are tried before the built-in names.
	Aliases map[string][]string `yaml:"aliases,omitempty" json:"aliases,omitempty"`

	// Transformer selects the normalization step: "passthrough" or "surname".
	Transformer string `yaml:"transformer" json:"transformer"`

	// SurnameColumns are the headers searched by the "surname" transformer.
	SurnameColumns []string `yaml:"surname_columns" json:"surname_columns"`

	// WorkDir holds per-request workspaces.
	WorkDir string `yaml:"work_dir" json:"work_dir"`

	// WorkspaceTTL is how old an abandoned workspace must be before the
	// janitor removes it.
	WorkspaceTTL time.Duration `yaml:"workspace_ttl" json:"workspace_ttl"`

	// Janitor is the cron schedule of the workspace sweep.
	Janitor string `yaml:"janitor" json:"janitor"`

	// MaxUploadBytes caps the uploaded file size.
	MaxUploadBytes int64 `yaml:"max_upload_bytes" json:"max_upload_bytes"`

	// RateLimit is the number of conversion requests allowed per client
	// per minute. Zero disables limiting.
	RateLimit int `yaml:"rate_limit" json:"rate_limit"`

	Log LogConfig `yaml:"log" json:"log"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:          "127.0.0.1:8080",
		Timezone:        "Europe/Rome",
		PlaceholderName: "Event",
		DefaultDuration: 60 * time.Minute,
		Truthy:          []string{"true", "1", "yes", "y", "si", "sì", "x"},
		Transformer:     "passthrough",
		SurnameColumns:  []string{"Cognome", "Surname", "Nome", "Name", "Dipendente", "Employee"},
		WorkDir:         filepath.Join(os.TempDir(), "shiftcal"),
		WorkspaceTTL:    time.Hour,
		Janitor:         "@every 10m",
		MaxUploadBytes:  10 << 20,
		RateLimit:       30,
		Log:             LogConfig{Level: "info", Format: "text"},
		BasicAuth:       nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if strings.TrimSpace(c.PlaceholderName) == "" {
		c.PlaceholderName = def.PlaceholderName
	}
	if c.DefaultDuration <= 0 {
		c.DefaultDuration = def.DefaultDuration
	}
	if len(c.Truthy) == 0 {
		c.Truthy = def.Truthy
	}
	if c.Transformer == "" {
		c.Transformer = def.Transformer
	}
	if len(c.SurnameColumns) == 0 {
		c.SurnameColumns = def.SurnameColumns
	}
	if c.WorkDir == "" {
		c.WorkDir = def.WorkDir
	}
	if c.WorkspaceTTL <= 0 {
		c.WorkspaceTTL = def.WorkspaceTTL
	}
	if c.Janitor == "" {
		c.Janitor = def.Janitor
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = def.MaxUploadBytes
	}
	if c.RateLimit < 0 {
		c.RateLimit = 0
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
	if c.BasicAuth != nil && c.BasicAuth.Username == "" && c.BasicAuth.Password == "" {
		c.BasicAuth = nil
	}
}

// Validate reports settings that cannot be defaulted.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	switch strings.ToLower(c.Transformer) {
	case "passthrough", "surname":
	default:
		return fmt.Errorf("unknown transformer %q", c.Transformer)
	}
	for field := range c.Aliases {
		if !knownField(field) {
			return fmt.Errorf("aliases: unknown field %q", field)
		}
	}
	return nil
}

func knownField(name string) bool {
	for _, f := range schedule.Fields {
		if string(f) == name {
			return true
		}
	}
	return false
}

// AliasTable returns the built-in header aliases with the configured ones
// tried first.
func (c *Config) AliasTable() schedule.AliasTable {
	extra := make(schedule.AliasTable, len(c.Aliases))
	for field, names := range c.Aliases {
		extra[schedule.Field(field)] = names
	}
	return schedule.DefaultAliases().Merge(extra)
}

// ApplyEnv overrides file values with SHIFTCAL_LISTEN and SHIFTCAL_LOG_LEVEL.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvListen)); v != "" {
		c.Listen = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.Log.Level = v
	}
}

// ResolvePath returns path, else $SHIFTCAL_CONFIG, else DefaultPath.
func ResolvePath(path string) string {
	if path != "" {
		return path
	}
	if v := os.Getenv(EnvConfigPath); v != "" {
		return v
	}
	return DefaultPath
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
//
// Environment overrides are applied in both cases; a loaded file is also
// validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				cfg.ApplyEnv()
				return cfg, err
			}
			cfg.ApplyEnv()
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".shiftcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
