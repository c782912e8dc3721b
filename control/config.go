// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Server configuration loaded from YAML, and a thread-safe store with reload
// propagation.

package control

import (
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds the tunables of a wsreactor process.
type Config struct {
	Port         int    `yaml:"port"`
	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"`     // "text" or "json"
	MaxPayload   int    `yaml:"max_payload"`    // largest accepted frame payload
	MaxSendQueue int    `yaml:"max_send_queue"` // pending outbound bytes per connection
	MaxEvents    int    `yaml:"max_events"`     // readiness events per wait
	ReactorCPU   int    `yaml:"reactor_cpu"`    // -1 leaves the reactor thread unpinned
	ReadBudget   int    `yaml:"read_budget"`    // reads per connection before yielding to others
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:         21455,
		LogLevel:     "info",
		LogFormat:    "text",
		MaxPayload:   1 << 20,
		MaxSendQueue: 4 << 20,
		MaxEvents:    32,
		ReactorCPU:   -1,
		ReadBudget:   16,
	}
}

// LoadConfig reads path over the defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML over the defaults and validates the result.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 0xFFFF {
		return errors.Errorf("port %d out of range", c.Port)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "log_level")
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return errors.Errorf("log_format %q: want text or json", c.LogFormat)
	}
	if c.MaxPayload <= 0 {
		return errors.Errorf("max_payload must be positive, got %d", c.MaxPayload)
	}
	if c.MaxSendQueue <= 0 {
		return errors.Errorf("max_send_queue must be positive, got %d", c.MaxSendQueue)
	}
	if c.MaxEvents <= 0 {
		return errors.Errorf("max_events must be positive, got %d", c.MaxEvents)
	}
	if c.ReadBudget <= 0 {
		return errors.Errorf("read_budget must be positive, got %d", c.ReadBudget)
	}
	return nil
}

// ApplyLogging sets level and formatter of logger from the config.
func (c *Config) ApplyLogging(logger *logrus.Logger) error {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return errors.Wrap(err, "log_level")
	}
	logger.SetLevel(lvl)
	if strings.EqualFold(c.LogFormat, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// ConfigStore holds the current configuration and notifies listeners on change.
type ConfigStore struct {
	mu        sync.RWMutex
	config    *Config
	listeners []func(old, updated *Config)
}

// NewConfigStore initializes a store holding cfg.
func NewConfigStore(cfg *Config) *ConfigStore {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &ConfigStore{config: cfg}
}

// Get returns a copy of the current configuration.
func (cs *ConfigStore) Get() Config {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return *cs.config
}

// SetConfig replaces the configuration and dispatches reload listeners.
func (cs *ConfigStore) SetConfig(cfg *Config) {
	cs.mu.Lock()
	old := cs.config
	cs.config = cfg
	listeners := append([]func(old, updated *Config){}, cs.listeners...)
	cs.mu.Unlock()
	for _, fn := range listeners {
		fn(old, cfg)
	}
}

// OnReload registers a listener hook called on config changes.
func (cs *ConfigStore) OnReload(fn func(old, updated *Config)) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}
