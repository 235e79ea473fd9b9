// Package config loads the server configuration in three layers: struct
// defaults, an optional YAML file, then environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"sortashort_server/models"
	"sortashort_server/validation"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar points at a YAML file that overrides the default search paths.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{"config.yaml", "config.yml", "/etc/sortashort/config.yaml"}

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	AWS       AWSConfig       `koanf:"aws"`
	Storage   StorageConfig   `koanf:"storage"`
	Auth      AuthConfig      `koanf:"auth"`
	Static    StaticConfig    `koanf:"static"`
	Log       LogConfig       `koanf:"log"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Dev       DevConfig       `koanf:"dev"`
}

type ServerConfig struct {
	Port        string   `koanf:"port" validate:"required,numeric"`
	CORSOrigins []string `koanf:"cors_origins" validate:"min=1"`
}

type AWSConfig struct {
	Region         string `koanf:"region" validate:"required"`
	DynamoEndpoint string `koanf:"dynamo_endpoint" validate:"omitempty,url"` // Local DynamoDB for development
}

type StorageConfig struct {
	Table        string `koanf:"table" validate:"required"`
	Bucket       string `koanf:"bucket" validate:"required"`
	CatalogKey   string `koanf:"catalog_key" validate:"required"`
	PosterPrefix string `koanf:"poster_prefix" validate:"required"`
}

type AuthConfig struct {
	CognitoClientID string `koanf:"cognito_client_id"`
}

type StaticConfig struct {
	Root      string `koanf:"root" validate:"required"`
	ShellFile string `koanf:"shell_file" validate:"required"` // SPA shell carrying the SEO placeholders
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

type RateLimitConfig struct {
	Requests int           `koanf:"requests" validate:"gte=0"` // 0 disables the limiter
	Window   time.Duration `koanf:"window" validate:"gte=0"`
}

type DevConfig struct {
	RefillEnabled bool `koanf:"refill_enabled"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8080",
			CORSOrigins: []string{"*"},
		},
		AWS: AWSConfig{
			Region: "us-east-1",
		},
		Storage: StorageConfig{
			Table:        models.DefaultTableName,
			Bucket:       "sort-a-short",
			CatalogKey:   "shorts.json",
			PosterPrefix: "posters/",
		},
		Static: StaticConfig{
			Root:      "dist",
			ShellFile: "index.html",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		RateLimit: RateLimitConfig{
			Requests: 120,
			Window:   time.Minute,
		},
	}
}

// sliceConfigPaths are split on commas when they arrive as a single env string.
var sliceConfigPaths = []string{"server.cors_origins"}

var envMappings = map[string]string{
	"port":                "server.port",
	"cors_origins":        "server.cors_origins",
	"aws_region":          "aws.region",
	"dynamo_endpoint":     "aws.dynamo_endpoint",
	"table_name":          "storage.table",
	"bucket_name":         "storage.bucket",
	"catalog_key":         "storage.catalog_key",
	"poster_prefix":       "storage.poster_prefix",
	"cognito_client_id":   "auth.cognito_client_id",
	"static_root":         "static.root",
	"log_level":           "log.level",
	"log_format":          "log.format",
	"rate_limit_requests": "rate_limit.requests",
	"rate_limit_window":   "rate_limit.window",
	"dev_refill_enabled":  "dev.refill_enabled",
}

// Load builds the configuration. Precedence: env > file > defaults.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the struct rules.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c)
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Server.Port
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envTransformFunc maps known env names to koanf paths and drops the rest.
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) == 0 {
			continue
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}
