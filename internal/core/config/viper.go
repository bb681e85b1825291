package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps CLI flag names to configuration keys. Flags missing from the
// FlagSet passed to Load are skipped, so every command binds only its own.
var flagKeys = map[string]string{
	"db-url":         "db_url",
	"log-level":      "log.level",
	"log-format":     "log.format",
	"host":           "server.host",
	"port":           "server.port",
	"rules-dir":      "server.rules_dir",
	"metrics-port":   "server.metrics_port",
	"watch":          "server.watch_rules",
	"max-violations": "validate.max_violations",
	"separator":      "validate.separator",
	"charset":        "validate.charset",
	"parallel":       "validate.parallel",
}

// Load resolves configuration from flags, LW_ environment variables, an
// optional config file and defaults. flags may be nil.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	d := Default()
	v.SetDefault("db_url", d.DBURL)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout.String())
	v.SetDefault("server.max_content_size", d.Server.MaxContentSize)
	v.SetDefault("server.rules_dir", d.Server.RulesDir)
	v.SetDefault("server.metrics_port", d.Server.MetricsPort)
	v.SetDefault("server.watch_rules", d.Server.WatchRules)
	v.SetDefault("validate.max_violations", d.Validate.MaxViolations)
	v.SetDefault("validate.separator", d.Validate.Separator)
	v.SetDefault("validate.charset", d.Validate.Charset)
	v.SetDefault("validate.parallel", d.Validate.Parallel)

	v.SetEnvPrefix("LW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets must be environment-only.
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{
		DBURL: v.GetString("db_url"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Server: ServerConfig{
			Host:           v.GetString("server.host"),
			Port:           v.GetInt("server.port"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
			MaxContentSize: v.GetInt("server.max_content_size"),
			RulesDir:       v.GetString("server.rules_dir"),
			MetricsPort:    v.GetInt("server.metrics_port"),
			WatchRules:     v.GetBool("server.watch_rules"),
		},
		Validate: ValidateConfig{
			MaxViolations: v.GetInt("validate.max_violations"),
			Separator:     v.GetString("validate.separator"),
			Charset:       v.GetString("validate.charset"),
			Parallel:      v.GetInt("validate.parallel"),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks port ranges and positive limits.
func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort < 0 || cfg.Server.MetricsPort > 65535 {
		return fmt.Errorf("metrics_port must be between 0 and 65535, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Server.MaxContentSize <= 0 {
		return fmt.Errorf("max_content_size must be positive, got %d", cfg.Server.MaxContentSize)
	}
	if cfg.Validate.Parallel <= 0 {
		return fmt.Errorf("parallel must be positive, got %d", cfg.Validate.Parallel)
	}
	return nil
}

func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.InConfig("hmac_secret") || v.InConfig("server.hmac_secret") {
		return fmt.Errorf("HMAC secrets not allowed in config files (use LW_HMAC_SECRET environment variable)")
	}
	return nil
}
