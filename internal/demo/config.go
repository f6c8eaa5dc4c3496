// Package demo implements the memwheel-demo scenario harness (SPEC_FULL.md
// §4.9, C8): a self-contained producer/consumer pair run as two OS
// processes over a real shared-memory region, exercising the wheel and
// notify packages the way a real caller would.
package demo

import (
	"fmt"
	"os"

	"github.com/c2h5oh/datasize"
	"gopkg.in/yaml.v3"

	"github.com/wheelmem/memwheel/internal/logging"
)

// Mode selects which of spec.md §8's scenario shapes a run follows.
type Mode string

const (
	// ModeFixed replays a hand-authored sequence of message sizes once,
	// in order, mirroring scenarios S1-S4.
	ModeFixed Mode = "fixed"
	// ModeSoak runs a randomized high-volume exchange, mirroring S6.
	ModeSoak Mode = "soak"
)

// Config is the top-level scenario description loaded from YAML.
type Config struct {
	// Logging configures the demo's console output.
	Logging logging.Config `yaml:"logging"`
	// RegionSize is the size of the shared-memory region backing the
	// wheel. It must be a multiple of wheel.A.
	RegionSize datasize.ByteSize `yaml:"region_size"`
	// Notify enables the notification layer (notify.Wheel over eventfd
	// handles) instead of the bare wheel.Wheel spin interface.
	Notify bool `yaml:"notify"`
	// Mode selects a fixed replay or a randomized soak.
	Mode Mode `yaml:"mode"`
	// FixedSizes is the message-size sequence for ModeFixed.
	FixedSizes []int `yaml:"fixed_sizes"`
	// SoakCount is the number of messages for ModeSoak.
	SoakCount int `yaml:"soak_count"`
	// SoakMinSize and SoakMaxSize bound each message's random size for
	// ModeSoak.
	SoakMinSize int `yaml:"soak_min_size"`
	SoakMaxSize int `yaml:"soak_max_size"`
	// SoakSeed seeds the deterministic random payload generator.
	SoakSeed int64 `yaml:"soak_seed"`
}

// DefaultConfig returns the soak scenario used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Logging:     logging.Config{Level: 0}, // zapcore.InfoLevel
		RegionSize:  1 << 20,
		Notify:      true,
		Mode:        ModeSoak,
		SoakCount:   5000,
		SoakMinSize: 0,
		SoakMaxSize: 256,
		SoakSeed:    7,
	}
}

// LoadConfig reads and parses a scenario file, applying it on top of
// DefaultConfig so a partial YAML document is enough to run the demo.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("demo: read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("demo: parse YAML configuration: %w", err)
	}

	return cfg, nil
}

// MessageSizes expands the config into the concrete per-message size
// sequence a producer should follow. For ModeSoak, it draws SoakCount
// sizes from a generator seeded with SoakSeed, so the consumer side can
// reconstruct the exact same sequence independently for verification.
func (c *Config) MessageSizes() ([]int, error) {
	switch c.Mode {
	case ModeFixed:
		if len(c.FixedSizes) == 0 {
			return nil, fmt.Errorf("demo: mode %q requires a non-empty fixed_sizes", c.Mode)
		}
		return c.FixedSizes, nil
	case ModeSoak:
		if c.SoakCount <= 0 {
			return nil, fmt.Errorf("demo: soak_count must be positive, got %d", c.SoakCount)
		}
		if c.SoakMaxSize < c.SoakMinSize {
			return nil, fmt.Errorf("demo: soak_max_size %d is below soak_min_size %d", c.SoakMaxSize, c.SoakMinSize)
		}
		return newSizeSequence(c.SoakSeed, c.SoakCount, c.SoakMinSize, c.SoakMaxSize), nil
	default:
		return nil, fmt.Errorf("demo: unknown mode %q", c.Mode)
	}
}
