package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/sagarc03/servefile"
	"github.com/sagarc03/servefile/digestcache"
	servefilehttp "github.com/sagarc03/servefile/http"
	"github.com/sagarc03/servefile/negotiate"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for servefile.
type Config struct {
	Env         string                   `mapstructure:"env"`
	Server      ServerConfig             `mapstructure:"server"`
	Serve       ServeConfig              `mapstructure:"serve"`
	DigestCache DigestCacheConfig        `mapstructure:"digest_cache"`
	CORS        servefilehttp.CORSConfig `mapstructure:"cors"`
	Metrics     MetricsConfig            `mapstructure:"metrics"`
	Log         LogConfig                `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name         string        `mapstructure:"name"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" validate:"min=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"min=0"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" validate:"min=0"`
	// PoolSize bounds concurrent plans; 0 picks a size from GOMAXPROCS.
	PoolSize int `mapstructure:"pool_size" validate:"min=0"`
}

// ServeConfig describes what is served and how responses are planned.
type ServeConfig struct {
	Root              string              `mapstructure:"root" validate:"required"`
	IndexFile         string              `mapstructure:"index_file"`
	Listing           bool                `mapstructure:"listing"`
	FollowSymlinks    bool                `mapstructure:"follow_symlinks"`
	EncodingSupport   string              `mapstructure:"encoding_support" validate:"required,oneof=never text all"`
	Variants          []negotiate.Variant `mapstructure:"variants" validate:"dive"`
	StrongETags       bool                `mapstructure:"strong_etags"`
	StrongETagMaxSize uint64              `mapstructure:"strong_etag_max_size"`
	MaxRanges         int                 `mapstructure:"max_ranges" validate:"min=0"`
	TextCharset       string              `mapstructure:"text_charset"`
	MIMETypesFile     string              `mapstructure:"mime_types_file"`
}

// DigestCacheConfig holds the strong-ETag digest store configuration.
type DigestCacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Type    string `mapstructure:"type" validate:"required_if=Enabled true,omitempty,oneof=memory sqlite postgres"`
	DSN     string `mapstructure:"dsn"`
	Table   string `mapstructure:"table" validate:"required_if=Enabled true"`
}

// MetricsConfig holds the Prometheus listener configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr" validate:"required_if=Enabled true"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// PlannerConfig converts the serve section into planner settings.
func (s ServeConfig) PlannerConfig() (servefile.PlannerConfig, error) {
	support, err := negotiate.ParseSupport(s.EncodingSupport)
	if err != nil {
		return servefile.PlannerConfig{}, fmt.Errorf("planner config: %w", err)
	}

	cfg := servefile.PlannerConfig{
		IndexFile:         s.IndexFile,
		Listing:           s.Listing,
		EncodingSupport:   support,
		Variants:          s.Variants,
		StrongETags:       s.StrongETags,
		StrongETagMaxSize: s.StrongETagMaxSize,
		MaxRanges:         s.MaxRanges,
		TextCharset:       s.TextCharset,
	}
	if err := cfg.Validate(); err != nil {
		return servefile.PlannerConfig{}, fmt.Errorf("planner config: %w", err)
	}
	return cfg, nil
}

// ContentTypes returns the built-in extension table merged with the
// mime_types_file, if one is configured. The file is a YAML map from
// extension (with or without the leading dot) to media type.
func (s ServeConfig) ContentTypes() (servefile.MIMETypes, error) {
	types := servefile.DefaultContentTypes()
	if s.MIMETypesFile == "" {
		return types, nil
	}

	data, err := os.ReadFile(s.MIMETypesFile)
	if err != nil {
		return nil, fmt.Errorf("read mime types: %w", err)
	}

	var extra map[string]string
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return nil, fmt.Errorf("parse mime types %s: %w", s.MIMETypesFile, err)
	}

	return types.Merge(extra), nil
}

// Store returns the digestcache connection settings.
func (d DigestCacheConfig) Store() digestcache.Config {
	return digestcache.Config{Type: d.Type, DSN: d.DSN, Table: d.Table}
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"root":            "serve.root",
	"port":            "server.port",
	"listing":         "serve.listing",
	"follow-symlinks": "serve.follow_symlinks",
	"index-file":      "serve.index_file",
	"strong-etags":    "serve.strong_etags",
	"digest-cache":    "digest_cache.enabled",
	"cache-type":      "digest_cache.type",
	"cache-dsn":       "digest_cache.dsn",
	"log-level":       "log.level",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		viperKey, ok := flagToViperKey[f.Name]
		if !ok {
			return
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	planner := servefile.DefaultPlannerConfig()

	v.SetDefault("env", "dev")

	v.SetDefault("server.port", 5708)
	v.SetDefault("server.name", "servefile")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 0) // no write deadline
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.pool_size", 0)

	v.SetDefault("serve.root", "./public")
	v.SetDefault("serve.index_file", planner.IndexFile)
	v.SetDefault("serve.listing", false)
	v.SetDefault("serve.follow_symlinks", false)
	v.SetDefault("serve.encoding_support", string(planner.EncodingSupport))
	v.SetDefault("serve.strong_etags", false)
	v.SetDefault("serve.strong_etag_max_size", planner.StrongETagMaxSize)
	v.SetDefault("serve.max_ranges", planner.MaxRanges)
	v.SetDefault("serve.text_charset", planner.TextCharset)

	v.SetDefault("digest_cache.enabled", false)
	v.SetDefault("digest_cache.type", "sqlite")
	v.SetDefault("digest_cache.dsn", "servefile.db")
	v.SetDefault("digest_cache.table", "servefile_digests")

	v.SetDefault("cors.enabled", false)
	v.SetDefault("cors.allowed_methods", []string{"GET", "HEAD"})

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9708")

	v.SetDefault("log.level", "info")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("SERVEFILE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// variants are a list and have no per-key default
	if !v.IsSet("serve.variants") {
		cfg.Serve.Variants = negotiate.DefaultVariants()
	}

	// 6. Validate using go-playground/validator
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
