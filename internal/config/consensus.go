package config

import (
	"os"
	"strconv"

	"github.com/JaimeStill/concord/workflow"
)

const (
	EnvConsensusMinConfidence = "CONCORD_CONSENSUS_MIN_CONFIDENCE"
	EnvConsensusMaxRounds     = "CONCORD_CONSENSUS_MAX_ROUNDS"
	EnvConsensusConcurrency   = "CONCORD_CONSENSUS_CONCURRENCY"
)

// ConsensusConfig bounds each workflow run.
type ConsensusConfig struct {
	MinConfidence float64 `toml:"min_confidence"`
	MaxRounds     int     `toml:"max_rounds"`
	Concurrency   int     `toml:"concurrency"`
}

// RunConfig converts the section into a workflow run configuration.
func (c *ConsensusConfig) RunConfig() workflow.RunConfig {
	return workflow.RunConfig{
		MinConfidence: c.MinConfidence,
		MaxRounds:     c.MaxRounds,
	}
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ConsensusConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.RunConfig().Validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ConsensusConfig) Merge(overlay *ConsensusConfig) {
	if overlay.MinConfidence != 0 {
		c.MinConfidence = overlay.MinConfidence
	}
	if overlay.MaxRounds != 0 {
		c.MaxRounds = overlay.MaxRounds
	}
	if overlay.Concurrency != 0 {
		c.Concurrency = overlay.Concurrency
	}
}

func (c *ConsensusConfig) loadDefaults() {
	d := workflow.DefaultRunConfig()
	if c.MinConfidence == 0 {
		c.MinConfidence = d.MinConfidence
	}
	if c.MaxRounds == 0 {
		c.MaxRounds = d.MaxRounds
	}
	if c.Concurrency < 1 {
		c.Concurrency = 4
	}
}

func (c *ConsensusConfig) loadEnv() {
	if v := os.Getenv(EnvConsensusMinConfidence); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.MinConfidence = f
		}
	}
	if v := os.Getenv(EnvConsensusMaxRounds); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxRounds = n
		}
	}
	if v := os.Getenv(EnvConsensusConcurrency); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Concurrency = n
		}
	}
}
