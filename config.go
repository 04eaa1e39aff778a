package vramcache

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/vramcache/frametimer"
)

// ByteSize is a size in bytes that reads from YAML either as a plain number
// or with a unit ("64MiB", "1.5 GB").
type ByteSize uint64

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: byte size must be a scalar", value.Line)
	}
	n, err := humanize.ParseBytes(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*b = ByteSize(n)
	return nil
}

// String formats the size with IEC units.
func (b ByteSize) String() string {
	return humanize.IBytes(uint64(b))
}

// FetchConfig configures blob store fetching.
type FetchConfig struct {
	MaxConcurrency     int      `yaml:"max_concurrency"`
	IOLimitBytesPerSec ByteSize `yaml:"io_limit_bytes_per_sec"`
	PayloadCacheSize   ByteSize `yaml:"payload_cache_size"`
	// MaxPayloadSize bounds the decompressed size of fetched resources.
	MaxPayloadSize ByteSize `yaml:"max_payload_size"`
}

// Config is the file form of the cache options.
//
//	cache_size: 256MiB
//	keep_effects: true
//	device_memory_limit: 1GiB
//	section_budgets:
//	  client_resources_upload: 4ms
//	fetch:
//	  max_concurrency: 8
//	  payload_cache_size: 64MiB
//	log_level: info
type Config struct {
	// CacheSize is the soft budget for uploaded bytes. Unset means
	// DefaultCacheSize; 0 disables caching.
	CacheSize         *ByteSize                `yaml:"cache_size"`
	KeepEffects       bool                     `yaml:"keep_effects"`
	StrictInvariants  bool                     `yaml:"strict_invariants"`
	DeviceMemoryLimit ByteSize                 `yaml:"device_memory_limit"`
	SectionBudgets    map[string]time.Duration `yaml:"section_budgets"`
	Fetch             FetchConfig              `yaml:"fetch"`
	// LogLevel is one of debug, info, warn or error. Unset disables logging.
	LogLevel string `yaml:"log_level"`
	// LogFormat is text (default) or json.
	LogFormat string `yaml:"log_format"`

	budgets  map[frametimer.Section]time.Duration
	logLevel slog.Level
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig parses and validates a YAML config. Unknown keys are rejected.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: parse config: %w", ErrInvalidArgument, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.budgets = make(map[frametimer.Section]time.Duration, len(c.SectionBudgets))
	for name, d := range c.SectionBudgets {
		s, err := frametimer.ParseSection(name)
		if err != nil {
			return err
		}
		if d < 0 {
			return fmt.Errorf("section %s: negative budget %s", name, d)
		}
		c.budgets[s] = d
	}

	for _, f := range []struct {
		key  string
		size ByteSize
	}{
		{"device_memory_limit", c.DeviceMemoryLimit},
		{"fetch.io_limit_bytes_per_sec", c.Fetch.IOLimitBytesPerSec},
		{"fetch.payload_cache_size", c.Fetch.PayloadCacheSize},
	} {
		if f.size > math.MaxInt64 {
			return fmt.Errorf("%s: %s exceeds the maximum of %s", f.key, f.size, ByteSize(math.MaxInt64))
		}
	}
	if c.Fetch.MaxPayloadSize > math.MaxUint32 {
		return fmt.Errorf("fetch.max_payload_size: %s exceeds the 4 GiB envelope limit", c.Fetch.MaxPayloadSize)
	}

	if c.Fetch.MaxConcurrency < 0 {
		return fmt.Errorf("fetch.max_concurrency: must not be negative, got %d", c.Fetch.MaxConcurrency)
	}

	if c.LogLevel != "" {
		if err := c.logLevel.UnmarshalText([]byte(c.LogLevel)); err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
	}

	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("log_format: unknown format %q", c.LogFormat)
	}

	return nil
}

// Options converts the config to cache options. Options passed to New after
// these override them. Section budgets and the log level are only applied
// to configs returned by LoadConfig or ParseConfig.
func (c *Config) Options() []Option {
	opts := []Option{
		WithKeepEffects(c.KeepEffects),
		WithStrictInvariants(c.StrictInvariants),
		WithDeviceMemoryLimit(int64(c.DeviceMemoryLimit)),
		WithFetchConcurrency(c.Fetch.MaxConcurrency),
		WithFetchIOLimit(int64(c.Fetch.IOLimitBytesPerSec)),
		WithPayloadCacheSize(int64(c.Fetch.PayloadCacheSize)),
		WithMaxPayloadSize(uint64(c.Fetch.MaxPayloadSize)),
	}

	if c.CacheSize != nil {
		opts = append(opts, WithCacheSize(uint64(*c.CacheSize)))
	}

	for s, d := range c.budgets {
		opts = append(opts, WithSectionBudget(s, d))
	}

	if c.LogLevel != "" {
		if c.LogFormat == "json" {
			opts = append(opts, WithLogger(NewJSONLogger(c.logLevel)))
		} else {
			opts = append(opts, WithLogger(NewTextLogger(c.logLevel)))
		}
	}

	return opts
}
