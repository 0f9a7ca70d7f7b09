package evdispatch

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds dispatcher-wide tuning loaded from YAML: a small struct with
// yaml tags and a hand-rolled Validate method rather than a
// reflection-based validator.
type Config struct {
	// PoolBlockSize is an advisory hint for how large a moment's scratch
	// pool should be sized; the pool itself grows on demand, but callers
	// embedding evdispatch in allocation-sensitive contexts use this to
	// pre-size their own buffers.
	PoolBlockSize int `yaml:"poolBlockSize"`

	// MaxQueueDepth is the number of queued moments on one dispatcher at
	// which FailFast rejects further triggers. Zero means unbounded. It is
	// only enforced when FailFast is true; otherwise the queue grows past it.
	MaxQueueDepth int `yaml:"maxQueueDepth"`

	// FailFast, when true, makes Trigger return ErrInvalidState instead of
	// growing the queue once MaxQueueDepth is reached.
	FailFast bool `yaml:"failFast"`
}

// DefaultConfig returns the configuration evdispatch uses when none is
// supplied explicitly.
func DefaultConfig() Config {
	return Config{PoolBlockSize: 256, MaxQueueDepth: 0, FailFast: false}
}

// Validate checks Config for internally consistent values.
func (c Config) Validate() error {
	if c.PoolBlockSize < 1 {
		return fmt.Errorf("evdispatch: poolBlockSize must be >= 1, got %d", c.PoolBlockSize)
	}
	if c.MaxQueueDepth < 0 {
		return fmt.Errorf("evdispatch: maxQueueDepth must be >= 0, got %d", c.MaxQueueDepth)
	}
	return nil
}

// LoadConfig reads and validates a Config from a YAML file at path.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("evdispatch: reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("evdispatch: parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
