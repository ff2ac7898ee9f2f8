// Package config loads tally's runtime configuration with viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

// Config holds all application configuration
type Config struct {
	App    AppConfig
	Log    LogConfig
	Engine EngineConfig
	Store  StoreConfig
	HTTP   HTTPConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Env  string
	Port string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// EngineConfig selects the tracker and bounds its store.
type EngineConfig struct {
	Domain         string // preset name: leads, income, payroll, contractor
	SchemaFile     string // optional YAML/JSON document overriding Domain
	MaxRecords     int
	CurrencySymbol string
	Locale         string        // BCP 47 tag for display strings, e.g. en-IN
	AuditInterval  time.Duration // 0 disables the periodic cross-check
}

// StoreConfig points at the sqlite journal. An empty Path disables it.
type StoreConfig struct {
	Path string
}

// HTTPConfig holds HTTP server settings
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	CORSAllowOrigins []string
}

const (
	DefaultMaxRecords     = 5000
	DefaultCurrencySymbol = "₹"
	DefaultLocale         = "en-IN"
	DefaultAuditInterval  = 5 * time.Minute
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("engine.domain", "leads")
	v.SetDefault("engine.schema_file", "")
	v.SetDefault("engine.max_records", DefaultMaxRecords)
	v.SetDefault("engine.currency_symbol", DefaultCurrencySymbol)
	v.SetDefault("engine.locale", DefaultLocale)
	v.SetDefault("engine.audit_interval", DefaultAuditInterval)
	v.SetDefault("store.path", "")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.cors_allow_origins", []string{"*"})
}

// Load reads configuration from multiple sources.
// Priority (highest to lowest):
// 1. Environment variables with TALLY_ prefix (e.g., TALLY_ENGINE_DOMAIN)
// 2. The file at path, or tally.toml in the working directory
// 3. Built-in defaults
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("tally")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("TALLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Engine: EngineConfig{
			Domain:         strings.TrimSpace(v.GetString("engine.domain")),
			SchemaFile:     strings.TrimSpace(v.GetString("engine.schema_file")),
			MaxRecords:     v.GetInt("engine.max_records"),
			CurrencySymbol: v.GetString("engine.currency_symbol"),
			Locale:         v.GetString("engine.locale"),
			AuditInterval:  v.GetDuration("engine.audit_interval"),
		},
		Store: StoreConfig{
			Path: v.GetString("store.path"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			CORSAllowOrigins: splitList(v.GetStringSlice("http.cors_allow_origins")),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitList accepts both a TOML array and a comma separated env value.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.App.Port == "" {
		return fmt.Errorf("app.port is required")
	}
	if c.Engine.Domain == "" && c.Engine.SchemaFile == "" {
		return fmt.Errorf("engine.domain or engine.schema_file is required")
	}
	if c.Engine.MaxRecords < 0 {
		return fmt.Errorf("engine.max_records cannot be negative, got %d", c.Engine.MaxRecords)
	}
	if _, err := language.Parse(c.Engine.Locale); err != nil {
		return fmt.Errorf("engine.locale %q: %w", c.Engine.Locale, err)
	}
	if c.Engine.AuditInterval < 0 {
		return fmt.Errorf("engine.audit_interval cannot be negative")
	}
	if c.HTTP.ReadTimeout <= 0 || c.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("http timeouts must be positive")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}

	if c.App.Env == "production" {
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}
	return nil
}

// IsProduction reports whether app.env is production.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
