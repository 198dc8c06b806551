package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/hanwen/go-ptp/log"
	"github.com/hanwen/go-ptp/ptp"
)

// Config holds the settings shared by the command line tool and the
// event server.
//
// Sources, highest priority first:
//  1. PTP_* environment variables
//  2. the configuration file
//  3. defaults
type Config struct {
	// Timeout for single transport reads.
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0" yaml:"timeout"`

	// ResponseRetries is the number of extra response reads on timeout.
	ResponseRetries int `mapstructure:"response_retries" validate:"gte=0,lte=100" yaml:"response_retries"`

	RetryDelay time.Duration `mapstructure:"retry_delay" validate:"gte=0" yaml:"retry_delay"`

	MaxStaleReplies int `mapstructure:"max_stale_replies" validate:"gte=0" yaml:"max_stale_replies"`

	// PropCacheTime is how long a device property descriptor stays
	// valid after it was fetched.
	PropCacheTime time.Duration `mapstructure:"prop_cache_time" validate:"gte=0" yaml:"prop_cache_time"`

	Fuzzing bool `mapstructure:"fuzzing" yaml:"fuzzing"`

	EventPollInterval time.Duration `mapstructure:"event_poll_interval" validate:"gt=0" yaml:"event_poll_interval"`

	// Transport is "usb" or "ptpip".
	Transport string `mapstructure:"transport" validate:"oneof=usb ptpip" yaml:"transport"`

	// Device is a regular expression matched against USB
	// manufacturer and product strings.
	Device string `mapstructure:"device" yaml:"device"`

	// Address is the PTP/IP camera, host or host:port.
	Address string `mapstructure:"address" validate:"required_if=Transport ptpip" yaml:"address"`

	// Listen is the event server address.
	Listen string `mapstructure:"listen" validate:"required" yaml:"listen"`

	Debug log.DebugFlags `mapstructure:"debug" yaml:"debug"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	def := ptp.DefaultOptions()
	return &Config{
		Timeout:           def.Timeout,
		ResponseRetries:   def.ResponseRetries,
		RetryDelay:        def.RetryDelay,
		MaxStaleReplies:   def.MaxStaleReplies,
		PropCacheTime:     def.PropCacheTime,
		EventPollInterval: time.Second,
		Transport:         "usb",
		Listen:            "localhost:8080",
	}
}

// ApplyDefaults fills in fields whose zero value is invalid.
func ApplyDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.EventPollInterval == 0 {
		cfg.EventPollInterval = def.EventPollInterval
	}
	if cfg.Transport == "" {
		cfg.Transport = def.Transport
	}
	if cfg.Listen == "" {
		cfg.Listen = def.Listen
	}
}

var validate = validator.New()

// Validate checks field constraints.
func Validate(cfg *Config) error {
	return validate.Struct(cfg)
}

// SessionOptions maps the engine settings onto ptp.Options.
func (c *Config) SessionOptions() ptp.Options {
	return ptp.Options{
		ResponseRetries: c.ResponseRetries,
		RetryDelay:      c.RetryDelay,
		MaxStaleReplies: c.MaxStaleReplies,
		PropCacheTime:   c.PropCacheTime,
		Fuzzing:         c.Fuzzing,
		Timeout:         c.Timeout,
	}
}

// Load reads configuration from path, the environment and defaults. An
// empty path searches ptp.yaml in the working directory and the user
// configuration directory. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setupViper(v, path)

	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Save writes cfg as YAML.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func setupViper(v *viper.Viper, path string) {
	// PTP_TIMEOUT, PTP_DEBUG_USB, ...
	v.SetEnvPrefix("PTP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only consults keys viper knows about.
	setDefaults(v, DefaultConfig())

	if path != "" {
		v.SetConfigFile(path)
		return
	}
	v.AddConfigPath(".")
	v.AddConfigPath(configDir())
	v.SetConfigName("ptp")
	v.SetConfigType("yaml")
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("timeout", cfg.Timeout)
	v.SetDefault("response_retries", cfg.ResponseRetries)
	v.SetDefault("retry_delay", cfg.RetryDelay)
	v.SetDefault("max_stale_replies", cfg.MaxStaleReplies)
	v.SetDefault("prop_cache_time", cfg.PropCacheTime)
	v.SetDefault("fuzzing", cfg.Fuzzing)
	v.SetDefault("event_poll_interval", cfg.EventPollInterval)
	v.SetDefault("transport", cfg.Transport)
	v.SetDefault("device", cfg.Device)
	v.SetDefault("address", cfg.Address)
	v.SetDefault("listen", cfg.Listen)
	for _, k := range []string{"usb", "ptp", "data", "cache", "event", "http"} {
		v.SetDefault("debug."+k, false)
	}
}

// readConfigFile reports whether a configuration file was read.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(durationDecodeHook())
}

// durationDecodeHook accepts "30s" style strings and raw nanoseconds.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ptp")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "ptp")
}

// DefaultPath is where the command line tool saves its configuration.
func DefaultPath() string {
	return filepath.Join(configDir(), "ptp.yaml")
}
