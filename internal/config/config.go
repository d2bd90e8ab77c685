// Package config loads process configuration from a file, DATAGPT_* environment
// variables and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable ("DATAGPT_STORE_KIND").
const EnvPrefix = "DATAGPT"

// Config is the full process configuration.
type Config struct {
	BaseURL      string        `mapstructure:"base_url"`
	Token        string        `mapstructure:"token"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxWait      time.Duration `mapstructure:"max_wait"`

	// StagesFile is an optional YAML overlay for the stage table.
	StagesFile string `mapstructure:"stages_file"`

	Handler HandlerConfig `mapstructure:"handler"`
	Store   StoreConfig   `mapstructure:"store"`
	Results ResultsConfig `mapstructure:"results"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Log     LogConfig     `mapstructure:"log"`
	HTTP    HTTPConfig    `mapstructure:"http"`
}

// HandlerConfig selects how stage endpoints are called.
type HandlerConfig struct {
	Kind     string        `mapstructure:"kind"` // webhook | process
	Timeout  time.Duration `mapstructure:"timeout"`
	Commands string        `mapstructure:"commands"` // process registry file
}

// StoreConfig selects where runs are kept.
type StoreConfig struct {
	Kind string        `mapstructure:"kind"` // memory | file | redis
	Dir  string        `mapstructure:"dir"`
	TTL  time.Duration `mapstructure:"ttl"`

	// EncryptionKey seals stored runs when set (base64, 32 bytes).
	EncryptionKey string   `mapstructure:"encryption_key"`
	FallbackKeys  []string `mapstructure:"fallback_keys"`
}

// ResultsConfig selects the Result Store async stages are polled against.
type ResultsConfig struct {
	Kind  string `mapstructure:"kind"` // memory | redis | postgres
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// RedisConfig is shared by the redis store, results and locker.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
	Lock     bool   `mapstructure:"lock"`
}

// LogConfig configures internal/logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// HTTPConfig configures the serve command.
type HTTPConfig struct {
	Addr    string `mapstructure:"addr"`
	Metrics bool   `mapstructure:"metrics"`
}

var (
	ErrUnknownKind = errors.New("unknown kind")
	ErrMissing     = errors.New("missing setting")
)

// SetDefaults registers default values on v. Every key gets one, since
// Unmarshal only sees environment variables for keys viper already knows.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("base_url", "")
	v.SetDefault("token", "")
	v.SetDefault("stages_file", "")
	v.SetDefault("poll_interval", 5*time.Second)
	v.SetDefault("max_wait", 5*time.Minute)
	v.SetDefault("handler.kind", "webhook")
	v.SetDefault("handler.timeout", 30*time.Second)
	v.SetDefault("handler.commands", "")
	v.SetDefault("store.kind", "file")
	v.SetDefault("store.dir", ".datagpt/runs")
	v.SetDefault("store.ttl", time.Duration(0))
	v.SetDefault("store.encryption_key", "")
	v.SetDefault("store.fallback_keys", []string{})
	v.SetDefault("results.kind", "memory")
	v.SetDefault("results.dsn", "")
	v.SetDefault("results.table", "pipeline_results")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "")
	v.SetDefault("redis.lock", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.metrics", true)
}

// BindFlags registers the common flags on fs and binds them to v.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	fs.String("base-url", "", "base URL joined with each stage name")
	fs.String("token", "", "bearer token sent to stage endpoints")
	fs.String("stages", "", "YAML overlay for the stage table")
	fs.String("store", "", "run store: memory, file or redis")
	fs.String("results", "", "result store: memory, redis or postgres")
	fs.String("log-level", "", "log level: debug, info, warn or error")

	binds := map[string]string{
		"base_url":     "base-url",
		"token":        "token",
		"stages_file":  "stages",
		"store.kind":   "store",
		"results.kind": "results",
		"log.level":    "log-level",
	}
	for key, flag := range binds {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path (when set, any format viper knows) and decodes v into a Config.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerations and required companions.
func (c *Config) Validate() error {
	if err := oneOf("handler.kind", c.Handler.Kind, "webhook", "process"); err != nil {
		return err
	}
	if err := oneOf("store.kind", c.Store.Kind, "memory", "file", "redis"); err != nil {
		return err
	}
	if err := oneOf("results.kind", c.Results.Kind, "memory", "redis", "postgres"); err != nil {
		return err
	}
	if c.Results.Kind == "postgres" && c.Results.DSN == "" {
		return fmt.Errorf("%w: results.dsn is required for postgres", ErrMissing)
	}
	if c.Store.EncryptionKey == "" && len(c.Store.FallbackKeys) > 0 {
		return fmt.Errorf("%w: store.fallback_keys without store.encryption_key", ErrMissing)
	}
	if c.MaxWait < c.PollInterval {
		return fmt.Errorf("max_wait %s shorter than poll_interval %s", c.MaxWait, c.PollInterval)
	}
	return nil
}

// UsesRedis reports whether any component needs a redis client.
func (c *Config) UsesRedis() bool {
	return c.Store.Kind == "redis" || c.Results.Kind == "redis" || c.Redis.Lock
}

func oneOf(key, val string, allowed ...string) error {
	for _, a := range allowed {
		if val == a {
			return nil
		}
	}
	return fmt.Errorf("%w: %s=%q (want one of %s)", ErrUnknownKind, key, val, strings.Join(allowed, ", "))
}
