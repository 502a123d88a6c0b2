package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	UpstreamModeHTTP   = "http"
	UpstreamModeLambda = "lambda"
)

type Config struct {
	Server struct {
		Addr         string        `mapstructure:"addr"`
		Mode         string        `mapstructure:"mode"`
		ReadTimeout  time.Duration `mapstructure:"read_timeout"`
		WriteTimeout time.Duration `mapstructure:"write_timeout"`
	} `mapstructure:"server"`

	Upstream struct {
		// Mode selects how downstream auth-service calls are made: "http" for a
		// direct call against BaseURL, "lambda" for a synchronous invoke of
		// FunctionARN. Chosen once per deployment; immutable afterwards.
		Mode        string        `mapstructure:"mode"`
		BaseURL     string        `mapstructure:"base_url"`
		FunctionARN string        `mapstructure:"function_arn"`
		AWSRegion   string        `mapstructure:"aws_region"`
		PathPrefix  string        `mapstructure:"path_prefix"`
		Resource    string        `mapstructure:"resource"`
		Timeout     time.Duration `mapstructure:"timeout"`
		RetryCount  int           `mapstructure:"retry_count"`
	} `mapstructure:"upstream"`

	Redis struct {
		URL      string `mapstructure:"url"`
		PoolSize int    `mapstructure:"pool_size"`
	} `mapstructure:"redis"`

	Auth struct {
		JWT struct {
			Secret string `mapstructure:"secret"`
			Issuer string `mapstructure:"issuer"`
		} `mapstructure:"jwt"`
	} `mapstructure:"auth"`

	Visibility struct {
		AllowedCategories []string `mapstructure:"allowed_categories"`
	} `mapstructure:"visibility"`

	Observability struct {
		TraceEnabled       bool   `mapstructure:"trace_enabled"`
		TracingEndpointURL string `mapstructure:"tracing_endpoint_url"`
		LogLevel           string `mapstructure:"log_level"`
		Format             string `mapstructure:"log_format"`
		LogSource          bool   `mapstructure:"log_source"`
	} `mapstructure:"observability"`
}

func MustLoad() *Config {
	v := viper.New()

	logger := slog.Default()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvPrefix("AUTHORIZER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		logger.Error("Failed to read config", slog.Any("error", err))
		os.Exit(1)
	}

	if env := os.Getenv("APP_ENV"); env != "" {
		v.SetConfigName(fmt.Sprintf("config.%s", env))
		if err := v.MergeInConfig(); err != nil {
			logger.Info("No environment-specific config (optional)", slog.String("env", env))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		logger.Error("Failed to unmarshal config", slog.Any("error", err))
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("upstream.mode", UpstreamModeHTTP)
	v.SetDefault("upstream.path_prefix", "/api/auth/v1")
	v.SetDefault("upstream.resource", "/api/auth/v1/{proxy+}")
	v.SetDefault("upstream.timeout", 15*time.Second)
	v.SetDefault("upstream.retry_count", 2)
	v.SetDefault("visibility.allowed_categories", []string{"opportunity", "seller", "activity", "property"})
}

// Validate enforces the settings whose absence must abort startup rather than
// surface as a per-request denial.
func (c *Config) Validate() error {
	switch c.Upstream.Mode {
	case UpstreamModeHTTP:
		if c.Upstream.BaseURL == "" {
			return errors.New("upstream.base_url not set, will not continue")
		}
	case UpstreamModeLambda:
		if c.Upstream.FunctionARN == "" {
			return errors.New("upstream.function_arn not set, will not continue")
		}
	default:
		return fmt.Errorf("unknown upstream.mode %q (expected %q or %q)",
			c.Upstream.Mode, UpstreamModeHTTP, UpstreamModeLambda)
	}

	if len(c.Visibility.AllowedCategories) == 0 {
		return errors.New("visibility.allowed_categories must not be empty")
	}

	return nil
}
