package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/agentwarden/warden/internal/logger"
)

var cfgLog = logger.New("config")

// Config is the warden configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Trust   TrustConfig   `yaml:"trust"`
	Audit   AuditConfig   `yaml:"audit"`
	Session SessionConfig `yaml:"session"`
}

// ServerConfig holds serve-mode settings.
type ServerConfig struct {
	// SocketPath is the Unix domain socket path (or named pipe
	// identifier on Windows). Empty means <data-dir>/warden.sock.
	SocketPath string `yaml:"socket_path"`
	// Port optionally exposes the API on loopback TCP as well;
	// 0 disables the TCP listener.
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
	NoColor  bool   `yaml:"no_color"`
}

// TrustConfig holds rule storage settings.
type TrustConfig struct {
	// ProfileRoot is the directory holding one subdirectory per
	// profile. Empty means <data-dir>/profiles.
	ProfileRoot string `yaml:"profile_root"`
	// GlobalPath is the shared global rule file. Empty means
	// <data-dir>/global_context.json.
	GlobalPath string `yaml:"global_path"`
	// DefaultProfile is used when no profile is named.
	DefaultProfile string `yaml:"default_profile"`
	// Watch enables hot reload of rule files in serve mode.
	Watch bool `yaml:"watch"`
}

// AuditConfig holds the decision audit log settings.
type AuditConfig struct {
	Enabled bool `yaml:"enabled"`
	// DBPath is the SQLite database file. Empty means
	// <data-dir>/audit.db.
	DBPath string `yaml:"db_path"`
	// EncryptionKey enables SQLCipher; prefer the WARDEN_DB_KEY
	// environment variable over putting the key in the file.
	EncryptionKey string `yaml:"encryption_key"`
	// RetentionDays is how long records are kept; 0 keeps them
	// forever.
	RetentionDays int `yaml:"retention_days"`
	// PurgeSchedule is a cron expression for the retention purge.
	// Empty uses the built-in nightly schedule.
	PurgeSchedule string `yaml:"purge_schedule"`
}

// SessionConfig holds session override settings.
type SessionConfig struct {
	// TTLMinutes is how long an idle session keeps its overrides.
	TTLMinutes int `yaml:"ttl_minutes"`
}

// DataDir returns the warden data directory (~/.warden).
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".warden"
	}
	return filepath.Join(home, ".warden")
}

// DefaultConfigPath returns the default config file path
// (~/.warden/config.yaml).
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".warden", "config.yaml")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	dataDir := DataDir()
	return &Config{
		Server: ServerConfig{
			Port:     0,
			LogLevel: "info",
			NoColor:  false,
		},
		Trust: TrustConfig{
			ProfileRoot:    filepath.Join(dataDir, "profiles"),
			GlobalPath:     filepath.Join(dataDir, "global_context.json"),
			DefaultProfile: "default",
			Watch:          true,
		},
		Audit: AuditConfig{
			Enabled:       false,
			DBPath:        filepath.Join(dataDir, "audit.db"),
			RetentionDays: 30,
		},
		Session: SessionConfig{
			TTLMinutes: 60,
		},
	}
}

// Validate checks all Config fields and returns a multi-error report.
// Call this AFTER CLI overrides have been applied, not during Load().
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port: must be 0-65535 (got %d)", c.Server.Port))
	}
	if _, err := logger.ParseLevel(c.Server.LogLevel); err != nil {
		errs = append(errs, fmt.Sprintf("server.log_level: unknown log level %q (valid: trace, debug, info, warn, error)", c.Server.LogLevel))
	}

	if c.Trust.ProfileRoot == "" {
		errs = append(errs, "trust.profile_root: must not be empty")
	}
	if c.Trust.GlobalPath == "" {
		errs = append(errs, "trust.global_path: must not be empty")
	}
	if p := c.Trust.DefaultProfile; p == "" || p != filepath.Base(p) || p == "." || p == ".." {
		errs = append(errs, fmt.Sprintf("trust.default_profile: must be a plain directory name (got %q)", p))
	}

	if c.Audit.Enabled && c.Audit.DBPath == "" {
		errs = append(errs, "audit.db_path: must not be empty when audit is enabled")
	}
	if c.Audit.RetentionDays < 0 || c.Audit.RetentionDays > 36500 {
		errs = append(errs, fmt.Sprintf("audit.retention_days: must be 0-36500 (got %d)", c.Audit.RetentionDays))
	}
	if key := c.Audit.EncryptionKey; key != "" && len(key) < 16 {
		errs = append(errs, "audit.encryption_key: must be at least 16 characters")
	}
	if s := c.Audit.PurgeSchedule; s != "" {
		if _, err := cron.ParseStandard(s); err != nil {
			errs = append(errs, fmt.Sprintf("audit.purge_schedule: invalid cron expression %q", s))
		}
	}

	if c.Session.TTLMinutes < 0 {
		errs = append(errs, fmt.Sprintf("session.ttl_minutes: must be >= 0 (got %d)", c.Session.TTLMinutes))
	}

	if len(errs) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString("config validation failed:\n")
	for i, e := range errs {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, e)
	}
	return errors.New(sb.String())
}

// isUnknownFieldError returns true if the error is from
// yaml.Decoder.KnownFields(true) detecting an unrecognized key (e.g. a
// typo like "servr:").
func isUnknownFieldError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "not found in type")
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Load does NOT call Validate(); callers apply CLI overrides
// first, then call cfg.Validate() themselves.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	// Strict decode first so typos get flagged instead of ignored.
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if isUnknownFieldError(err) {
			cfgLog.Warn("config has unknown fields (ignored): %v", err)
			// Re-parse without strict mode for forward compatibility.
			cfg = DefaultConfig()
			if err2 := yaml.Unmarshal(data, cfg); err2 != nil {
				return nil, fmt.Errorf("config parse error: %w", err2)
			}
		} else {
			return nil, fmt.Errorf("config parse error: %w", err)
		}
	}

	return cfg, nil
}
