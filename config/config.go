// Package config resolves seauto settings from defaults, an optional YAML
// file and SEAUTO_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/guregu/null.v3"

	"github.com/partnet/seauto/common"
)

// EnvPrefix is prepended to environment variable names, so that
// page.load.timeout is read from SEAUTO_PAGE_LOAD_TIMEOUT.
const EnvPrefix = "SEAUTO"

// Additional keys only used outside the synchronization core.
const (
	KeyLogLevel        = "log.level"
	KeyLogFile         = "log.file"
	KeyTracingEndpoint = "tracing.endpoint"
	KeyTracingProto    = "tracing.proto"
	KeyTracingInsecure = "tracing.insecure"
)

var _ common.Config = &Config{}

// Config is a common.Config backed by viper. Values are parsed when read so
// a malformed value fails the operation that needs it.
type Config struct {
	v *viper.Viper
}

// Options controls where settings are loaded from.
type Options struct {
	// File is an optional YAML file. Missing files are an error.
	File string
	// Lookup replaces the process environment, mostly for tests.
	Lookup LookupFunc
	// Overrides take precedence over every other source.
	Overrides map[string]string
}

// LookupFunc looks up an environment variable.
type LookupFunc func(key string) (string, bool)

// New loads the configuration described by opts.
func New(opts Options) (*Config, error) {
	v := viper.New()
	for k, d := range common.Defaults {
		v.SetDefault(k, d)
	}
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyTracingEndpoint, "")
	v.SetDefault(KeyTracingProto, "http")
	v.SetDefault(KeyTracingInsecure, "false")

	if opts.File != "" {
		v.SetConfigFile(opts.File)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: reading %q: %w", common.ErrConfiguration, opts.File, err)
		}
	}

	if opts.Lookup == nil {
		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
	} else {
		for _, k := range v.AllKeys() {
			if val, ok := opts.Lookup(EnvName(k)); ok {
				v.Set(k, val)
			}
		}
	}

	for k, val := range opts.Overrides {
		v.Set(k, val)
	}

	return &Config{v: v}, nil
}

// EnvName returns the environment variable that sets key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func (c *Config) raw(key string) (string, error) {
	if !c.v.IsSet(key) {
		return "", &common.ConfigurationError{Key: key, Err: errors.New("not set")}
	}
	return c.v.GetString(key), nil
}

// Duration reads key as whole seconds or a Go duration string.
func (c *Config) Duration(key string) (time.Duration, error) {
	s, err := c.raw(key)
	if err != nil {
		return 0, err
	}
	return common.ParseDuration(key, s)
}

// Int reads key as a non-negative integer.
func (c *Config) Int(key string) (int, error) {
	s, err := c.raw(key)
	if err != nil {
		return 0, err
	}
	return common.ParseInt(key, s)
}

// Bool reads key as a boolean.
func (c *Config) Bool(key string) (bool, error) {
	s, err := c.raw(key)
	if err != nil {
		return false, err
	}
	return common.ParseBool(key, s)
}

// String reads key verbatim.
func (c *Config) String(key string) (string, error) {
	return c.raw(key)
}

// OptionalString returns key, invalid when it is unset or empty.
func (c *Config) OptionalString(key string) null.String {
	s := c.v.GetString(key)
	return null.NewString(s, s != "")
}

// OptionalBool returns key, invalid when it is unset or malformed.
func (c *Config) OptionalBool(key string) null.Bool {
	if !c.v.IsSet(key) {
		return null.Bool{}
	}
	b, err := c.Bool(key)
	return null.NewBool(b, err == nil)
}
