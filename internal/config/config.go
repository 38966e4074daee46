// Package config loads the scenestack YAML configuration.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/aretw0/scenestack/internal/logging"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration file.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	HTTP       HTTPConfig       `yaml:"http"`
	Redis      RedisConfig      `yaml:"redis"`
	MasterData MasterDataConfig `yaml:"masterdata"`
	Snapshot   SnapshotConfig   `yaml:"snapshot"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RedisConfig enables the Redis snapshot store when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// Enabled reports whether a Redis server is configured.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

// MasterData sources.
const (
	SourceNone  = ""
	SourceFile  = "file"
	SourceRedis = "redis"
)

// MasterDataConfig selects where master data is loaded from. With Source "file" Path
// names a YAML snapshot; with "redis" the tables are read from the configured server.
type MasterDataConfig struct {
	Source string `yaml:"source"`
	Path   string `yaml:"path"`
}

// SnapshotConfig controls what reaches the snapshot store. Keys are base64 encoded
// 32-byte AES keys; MaskKeys are regular expressions matched against argument map keys.
type SnapshotConfig struct {
	EncryptionKey string   `yaml:"encryption_key"`
	FallbackKeys  []string `yaml:"fallback_keys"`
	MaskKeys      []string `yaml:"mask_keys"`
}

// Keys decodes the active and fallback keys. The active key is nil when encryption is off.
func (s SnapshotConfig) Keys() (active []byte, fallback [][]byte, err error) {
	if s.EncryptionKey == "" {
		if len(s.FallbackKeys) > 0 {
			return nil, nil, errors.New("fallback_keys require encryption_key")
		}
		return nil, nil, nil
	}
	if active, err = decodeKey(s.EncryptionKey); err != nil {
		return nil, nil, fmt.Errorf("encryption_key: %w", err)
	}
	for i, k := range s.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("fallback_keys[%d]: %w", i, err)
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log:  LogConfig{Level: "info", Format: "text"},
		HTTP: HTTPConfig{Addr: ":8080", ShutdownTimeout: 5 * time.Second},
	}
}

// Load reads path on top of the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr: required"))
	}
	if c.HTTP.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("http.shutdown_timeout: must not be negative"))
	}
	if c.Redis.DB < 0 {
		errs = append(errs, errors.New("redis.db: must not be negative"))
	}
	if c.Redis.TTL < 0 {
		errs = append(errs, errors.New("redis.ttl: must not be negative"))
	}
	switch c.MasterData.Source {
	case SourceNone:
	case SourceFile:
		if c.MasterData.Path == "" {
			errs = append(errs, errors.New("masterdata.path: required for file source"))
		}
	case SourceRedis:
		if !c.Redis.Enabled() {
			errs = append(errs, errors.New("masterdata.source: redis requires redis.addr"))
		}
	default:
		errs = append(errs, fmt.Errorf("masterdata.source: unknown source %q", c.MasterData.Source))
	}
	if _, _, err := c.Snapshot.Keys(); err != nil {
		errs = append(errs, fmt.Errorf("snapshot.%w", err))
	}
	for _, p := range c.Snapshot.MaskKeys {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("snapshot.mask_keys: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
