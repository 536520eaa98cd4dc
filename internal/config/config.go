package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the calendar endpoint.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Server is the WebUntis host, e.g. "example.webuntis.com".
	Server string `yaml:"server" json:"server"`

	// School is the WebUntis school identifier passed on every RPC call.
	School string `yaml:"school" json:"school"`

	// Username / Password are the WebUntis login credentials.
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`

	// ClassID, if non-zero, selects the timetable element directly and
	// skips class/student discovery.
	ClassID int `yaml:"class_id" json:"class_id"`

	// Timezone is the IANA zone the emitted events are localized to.
	Timezone string `yaml:"timezone" json:"timezone"`

	// Output is the path of the generated ICS file. It is fully
	// rewritten on every sync run.
	Output string `yaml:"output" json:"output"`

	// DaysBack / DaysForward bound the fetched date range relative to
	// the current date.
	DaysBack    int `yaml:"days_back" json:"days_back"`
	DaysForward int `yaml:"days_forward" json:"days_forward"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *").
	// If empty the program runs a single sync and exits.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// Listen is the HTTP listen address for serving the generated
	// calendar in daemon mode.
	Listen string `yaml:"listen" json:"listen"`

	// LogLevel is one of "debug", "info", "error".
	LogLevel string `yaml:"log_level" json:"log_level"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Timezone:    "Europe/Brussels",
		Output:      "docs/calendar.ics",
		DaysBack:    90,
		DaysForward: 180,
		Listen:      "127.0.0.1:8080",
		LogLevel:    "info",
	}
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Timezone == "" {
		c.Timezone = "Europe/Brussels"
	}
	if c.Output == "" {
		c.Output = "docs/calendar.ics"
	}
	if c.DaysBack <= 0 {
		c.DaysBack = 90
	}
	if c.DaysForward <= 0 {
		c.DaysForward = 180
	}
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// applyEnv overlays WEBUNTIS_* environment variables over the file
// values. Environment takes precedence so containerized deployments can
// run without a config file at all.
func (c *Config) applyEnv() {
	if v := os.Getenv("WEBUNTIS_SERVER"); v != "" {
		c.Server = v
	}
	if v := os.Getenv("WEBUNTIS_SCHOOL"); v != "" {
		c.School = v
	}
	if v := os.Getenv("WEBUNTIS_USERNAME"); v != "" {
		c.Username = v
	}
	if v := os.Getenv("WEBUNTIS_PASSWORD"); v != "" {
		c.Password = v
	}
	if v := os.Getenv("WEBUNTIS_CLASS_ID"); v != "" {
		if id, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			c.ClassID = id
		}
	}
}

// Validate reports which required settings are missing. A failed
// validation aborts the run before any network or pipeline work.
func (c *Config) Validate() error {
	var missing []string
	if c.Server == "" {
		missing = append(missing, "server")
	}
	if c.School == "" {
		missing = append(missing, "school")
	}
	if c.Username == "" {
		missing = append(missing, "username")
	}
	if c.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Load loads configuration from the given YAML path, then overlays
// WEBUNTIS_* environment variables.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config (env overlay applied)
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults, overlay environment
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	cfg.applyEnv()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600 (the file holds credentials).
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

	tmp, err := os.CreateTemp(dir, ".untiscal-config-*.tmp")
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
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}
