// Package config provides configuration management for linewarden.
//
// Values resolve as flags > LW_ environment > config file > defaults.
// Secrets are environment-only and never read from a config file.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config is the resolved configuration for every command.
type Config struct {
	DBURL    string
	Log      LogConfig
	Server   ServerConfig
	Validate ValidateConfig
}

// LogConfig selects the zerolog level and output format.
type LogConfig struct {
	Level  string
	Format string
}

// ServerConfig holds configuration for the gRPC validation service.
type ServerConfig struct {
	Host           string
	Port           int
	RequestTimeout time.Duration
	MaxContentSize int
	RulesDir       string
	MetricsPort    int // 0 disables the /metrics listener
	WatchRules     bool
}

// ValidateConfig holds overrides applied to every rule set used by the
// validate command. Zero values keep what the rule set declares.
type ValidateConfig struct {
	MaxViolations int // negative keeps the rule set's cap
	Separator     string
	Charset       string
	Parallel      int
}

// Default returns configuration with default values.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           50051,
			RequestTimeout: 30 * time.Second,
			MaxContentSize: 16 * 1024 * 1024,
			RulesDir:       "./rules",
			MetricsPort:    9090,
			WatchRules:     true,
		},
		Validate: ValidateConfig{
			MaxViolations: -1,
			Parallel:      4,
		},
	}
}

// HMACSecrets extracts request signing secrets from the environment.
// Supports LW_HMAC_SECRET (single) and LW_HMAC_SECRET_N (rotation).
// Returns map of secret_id -> decoded secret bytes.
func HMACSecrets() (map[string][]byte, error) {
	secrets := make(map[string][]byte)

	add := func(key string) error {
		secretID, decoded, err := ParseHMACSecretWithID(os.Getenv(key))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if _, exists := secrets[secretID]; exists {
			return fmt.Errorf("duplicate secret_id '%s' found in environment variables (check LW_HMAC_SECRET and LW_HMAC_SECRET_* for conflicts)", secretID)
		}
		secrets[secretID] = decoded
		return nil
	}

	if os.Getenv("LW_HMAC_SECRET") != "" {
		if err := add("LW_HMAC_SECRET"); err != nil {
			return nil, err
		}
	}

	// Numbered secrets stop at the first gap.
	for i := 1; ; i++ {
		key := fmt.Sprintf("LW_HMAC_SECRET_%d", i)
		if os.Getenv(key) == "" {
			break
		}
		if err := add(key); err != nil {
			return nil, err
		}
	}

	return secrets, nil
}

// ParseHMACSecretWithID parses the secret_id:base64_secret format.
// Secret ID must be 32 lowercase hex chars (UUIDv7 without hyphens).
func ParseHMACSecretWithID(envValue string) (secretID string, secret []byte, err error) {
	id, encoded, ok := strings.Cut(strings.TrimSpace(envValue), ":")
	if !ok {
		return "", nil, fmt.Errorf("format must be <secret_id>:<base64_secret>")
	}

	if len(id) != 32 {
		return "", nil, fmt.Errorf("secret_id must be 32 hex chars (UUIDv7 without hyphens)")
	}
	for _, c := range id {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return "", nil, fmt.Errorf("secret_id must be hex chars only")
		}
	}

	secret, err = base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 encoding: %w", err)
	}
	if len(secret) < 32 {
		return "", nil, fmt.Errorf("secret must be at least 32 bytes, got %d", len(secret))
	}

	return id, secret, nil
}
