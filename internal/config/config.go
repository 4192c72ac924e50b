// Package config loads and validates network scenario files (JSON or YAML).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every parse, schema or semantic failure.
var ErrInvalid = errors.New("invalid config")

// Config is the root configuration structure.
type Config struct {
	Common Common       `yaml:"common"`
	Nodes  []NodeConfig `yaml:"nodes"`
}

// Common holds settings shared by every node.
type Common struct {
	ErrorRate float64 `yaml:"error_rate"`
	MaxPPS    int     `yaml:"max_pps"` // 0 = unlimited
	Seed      int64   `yaml:"seed"`    // 0 = time based
}

// NodeConfig describes one node and its script.
type NodeConfig struct {
	ID        int          `yaml:"id"`
	ErrorRate *float64     `yaml:"error_rate,omitempty"`
	Tasks     []TaskConfig `yaml:"tasks"`
}

// TaskConfig is one scripted send.
type TaskConfig struct {
	DestID    int    `yaml:"dest_id"`
	TimeoutMS int64  `yaml:"timeout_ms"`
	Payload   string `yaml:"payload"`
	Count     int    `yaml:"count"`
}

// Delay is the pause before each repetition of the task.
func (t TaskConfig) Delay() time.Duration {
	return time.Duration(t.TimeoutMS) * time.Millisecond
}

// EffectiveErrorRate returns the node override when set, otherwise common.
func (n NodeConfig) EffectiveErrorRate(common float64) float64 {
	if n.ErrorRate != nil {
		return *n.ErrorRate
	}
	return common
}

// Load reads, schema-checks and decodes a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return LoadBytes(path, data)
}

// LoadBytes is Load for an in-memory document; name is used in error messages.
func LoadBytes(name string, data []byte) (*Config, error) {
	if err := ValidateSchema(name, data); err != nil {
		return nil, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s is empty", ErrInvalid, name)
		}
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrInvalid, name, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate runs the checks the schema cannot express, plus the range checks for
// configs built in code.
func (c *Config) Validate() error {
	if err := checkRate("common.error_rate", c.Common.ErrorRate); err != nil {
		return err
	}
	if c.Common.MaxPPS < 0 {
		return fmt.Errorf("%w: common.max_pps must be >= 0, got %d", ErrInvalid, c.Common.MaxPPS)
	}

	seen := make(map[int]int, len(c.Nodes))
	for i, n := range c.Nodes {
		if prev, dup := seen[n.ID]; dup {
			return fmt.Errorf("%w: nodes[%d] reuses id %d from nodes[%d]", ErrInvalid, i, n.ID, prev)
		}
		seen[n.ID] = i

		if n.ErrorRate != nil {
			if err := checkRate(fmt.Sprintf("nodes[%d].error_rate", i), *n.ErrorRate); err != nil {
				return err
			}
		}
		for j, t := range n.Tasks {
			switch {
			case t.TimeoutMS < 0:
				return fmt.Errorf("%w: nodes[%d].tasks[%d].timeout_ms must be >= 0", ErrInvalid, i, j)
			case t.Count < 0:
				return fmt.Errorf("%w: nodes[%d].tasks[%d].count must be >= 0", ErrInvalid, i, j)
			case t.Payload == "":
				return fmt.Errorf("%w: nodes[%d].tasks[%d].payload must not be empty", ErrInvalid, i, j)
			case strings.Contains(t.Payload, "\n"):
				return fmt.Errorf("%w: nodes[%d].tasks[%d].payload must be a single line", ErrInvalid, i, j)
			}
		}
	}
	return nil
}

// Attempts is the number of send attempts across all nodes.
func (c *Config) Attempts() int {
	total := 0
	for _, n := range c.Nodes {
		for _, t := range n.Tasks {
			total += t.Count
		}
	}
	return total
}

func checkRate(field string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("%w: %s must be within [0,1], got %v", ErrInvalid, field, v)
	}
	return nil
}
