package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

const (
	BackendHTTP = "http"
	BackendYNAB = "ynab"
)

type Config struct {
	Service ServiceConfig `mapstructure:"service"`
	Session SessionConfig `mapstructure:"session"`
	YNAB    YNABConfig    `mapstructure:"ynab"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServiceConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Backend string        `mapstructure:"backend"`
}

// SessionConfig carries the credentials of an already signed-in session.
type SessionConfig struct {
	Cookie       string `mapstructure:"cookie"`
	CSRFToken    string `mapstructure:"csrf_token"`
	CSRFTokenEnv string `mapstructure:"csrf_token_env"`
}

type YNABConfig struct {
	Token    string `mapstructure:"token"`
	BudgetID string `mapstructure:"budget_id"`
}

type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"service-url": "service.url",
	"timeout":     "service.timeout",
	"backend":     "service.backend",
	"cookie":      "session.cookie",
	"csrf-token":  "session.csrf_token",
	"budget-id":   "ynab.budget_id",
	"addr":        "server.addr",
	"log-level":   "log.level",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.url", "http://localhost:8080")
	v.SetDefault("service.timeout", 30*time.Second)
	v.SetDefault("service.backend", BackendHTTP)
	v.SetDefault("session.cookie", "")
	v.SetDefault("session.csrf_token", "")
	v.SetDefault("session.csrf_token_env", "COA_CSRF_TOKEN")
	v.SetDefault("ynab.token", "")
	v.SetDefault("ynab.budget_id", "")
	v.SetDefault("server.addr", "0.0.0.0:3000")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("log.level", "info")
}

// Build merges, lowest to highest precedence: defaults, the config file,
// a .env file, COA_* environment variables and changed flags. An empty
// cfgFile looks for an optional config.yaml in the working directory.
func Build(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("COA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Service.Backend {
	case BackendHTTP:
		if c.Service.URL == "" {
			return fmt.Errorf("service.url is required for the %s backend", BackendHTTP)
		}
	case BackendYNAB:
		if c.YNAB.Token == "" || c.YNAB.BudgetID == "" {
			return fmt.Errorf("ynab.token and ynab.budget_id are required for the %s backend", BackendYNAB)
		}
	default:
		return fmt.Errorf("unknown service.backend %q", c.Service.Backend)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level: %w", err)
	}
	return nil
}

// LogLevel returns the configured level, defaulting to info.
func (c *Config) LogLevel() log.Level {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return level
}
