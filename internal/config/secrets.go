package config

import (
	"errors"
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Secrets holds sensitive configuration loaded from environment
// variables. Environment variables are preferred over CLI flags for
// secrets because flags are visible in process listings (ps auxww).
type Secrets struct {
	// DBKey is the SQLCipher key for the audit database.
	// Env: WARDEN_DB_KEY
	DBKey string `envconfig:"WARDEN_DB_KEY"`
}

// LoadSecrets loads secrets from environment variables.
func LoadSecrets() (*Secrets, error) {
	var s Secrets
	if err := envconfig.Process("", &s); err != nil {
		return nil, fmt.Errorf("failed to load secrets from environment: %w", err)
	}
	return &s, nil
}

// LoadSecretsWithDefaults loads secrets, falling back to the provided
// values when the environment variables are not set.
func LoadSecretsWithDefaults(dbKey string) (*Secrets, error) {
	s, err := LoadSecrets()
	if err != nil {
		return nil, err
	}
	if s.DBKey == "" {
		s.DBKey = dbKey
	}
	return s, nil
}

// ValidateDBKey validates the audit encryption key if set.
func (s *Secrets) ValidateDBKey() error {
	if s.DBKey != "" && len(s.DBKey) < 16 {
		return errors.New("audit encryption key must be at least 16 characters")
	}
	return nil
}

// HasDBEncryption returns true if audit encryption is configured.
func (s *Secrets) HasDBEncryption() bool {
	return s.DBKey != ""
}

// MaskDBKey returns a masked form of the key, safe for logging.
func (s *Secrets) MaskDBKey() string {
	if s.DBKey == "" {
		return "(not set)"
	}
	if len(s.DBKey) <= 8 {
		return "****"
	}
	return s.DBKey[:4] + "****" + s.DBKey[len(s.DBKey)-4:]
}
