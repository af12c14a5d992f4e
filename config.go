package maple

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Config bundles every tunable the engine needs, read from a TOML file
// the way the teacher's SingleHostConfig/EvoEpiConfig are (DESIGN NOTES
// §9, "Global state": no package-level singleton, an explicit value
// threaded through the orchestrator instead).
type Config struct {
	Model     ModelConfig     `toml:"model"`
	Placement PlacementConfig `toml:"placement"`
	Topology  TopologyConfig  `toml:"topology"`
	Branch    BranchConfig    `toml:"branch"`
	Logging   LoggingConfig   `toml:"logging"`

	validated bool
}

// ModelConfig selects and parameterizes the substitution model.
type ModelConfig struct {
	Name                   string  `toml:"name"` // "jc", "gtr", "rate-variant-scalar", "rate-variant-entry"
	MutationUpdatePeriod   int     `toml:"mutation_update_period"`
	WaitingTimePseudocount float64 `toml:"waiting_time_pseudocount"`
}

// PlacementConfig tunes the best-first placement search (spec.md §4.4).
type PlacementConfig struct {
	HammingWeight                    float64 `toml:"hamming_weight"`
	ThresholdProb                    float64 `toml:"threshold_prob"`
	FailureLimitSample               int     `toml:"failure_limit_sample"`
	StrictStopSeekingPlacementSample bool    `toml:"strict_stop_seeking_placement_sample"`
	DefaultBlength                   float64 `toml:"default_blength"` // 1/L when unset
}

// TopologyConfig tunes the SPR optimiser (spec.md §4.6).
type TopologyConfig struct {
	NumTreeImprovement          int     `toml:"num_tree_improvement"`
	ShortRange                  bool    `toml:"short_range"`
	ShortRangeRadius            int     `toml:"short_range_radius"`
	FailureLimitSubtree         int     `toml:"failure_limit_subtree"`
	FailureLimitSubtreeShort    int     `toml:"failure_limit_subtree_short"`
	ThreshEntireTreeImprovement float64 `toml:"thresh_entire_tree_improvement"`
}

// BranchConfig bounds the Newton branch-length optimiser (spec.md §4.7).
type BranchConfig struct {
	MinBlength   float64 `toml:"min_blength"`
	MaxBlength   float64 `toml:"max_blength"`
	FixedBlength bool    `toml:"fixed_blength"`
}

// LoggingConfig controls where/how the run logger persists diagnostics.
type LoggingConfig struct {
	Prefix string `toml:"prefix"`
	Driver string `toml:"driver"` // "csv" or "sqlite"
}

// LoadConfig parses a TOML configuration file, the way
// single_host_config_loader.go/evoepi_config_loader.go parse theirs.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, errors.Wrapf(err, "loading config from %q", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultConfig returns a Config populated with the same defaults
// Validate would fill in for a zero-value Config, for callers (and
// tests) that don't read from a file.
func DefaultConfig() *Config {
	cfg := &Config{}
	_ = cfg.Validate()
	return cfg
}

// Validate checks parameter validity and fills in defaults, mirroring
// EvoEpiConfig.Validate's pattern of assigning derived defaults as part
// of validation.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Model.Name) {
	case "":
		c.Model.Name = "jc"
	case "jc", "gtr", "rate-variant-scalar", "rate-variant-entry":
	default:
		return fmt.Errorf(InvalidStringParameterError, "model.name", c.Model.Name, "not jc/gtr/rate-variant-scalar/rate-variant-entry")
	}
	if c.Model.MutationUpdatePeriod <= 0 {
		c.Model.MutationUpdatePeriod = 25
	}
	if c.Model.WaitingTimePseudocount <= 0 {
		c.Model.WaitingTimePseudocount = 0.1
	}

	if c.Placement.ThresholdProb <= 0 {
		c.Placement.ThresholdProb = 1e-7
	}
	if c.Placement.FailureLimitSample <= 0 {
		c.Placement.FailureLimitSample = 5
	}
	if c.Placement.HammingWeight < 0 {
		return fmt.Errorf(InvalidFloatParameterError, "placement.hamming_weight", c.Placement.HammingWeight, "hamming_weight < 0")
	}
	if c.Placement.DefaultBlength <= 0 {
		c.Placement.DefaultBlength = 0 // resolved to 1/L by the caller that knows L
	}

	if c.Topology.NumTreeImprovement <= 0 {
		c.Topology.NumTreeImprovement = 5
	}
	if c.Topology.ShortRangeRadius <= 0 {
		c.Topology.ShortRangeRadius = 20
	}
	if c.Topology.FailureLimitSubtree <= 0 {
		c.Topology.FailureLimitSubtree = 4
	}
	if c.Topology.FailureLimitSubtreeShort <= 0 {
		c.Topology.FailureLimitSubtreeShort = 2
	}
	if c.Topology.ThreshEntireTreeImprovement <= 0 {
		c.Topology.ThreshEntireTreeImprovement = 1e-3
	}

	if c.Branch.MinBlength <= 0 {
		c.Branch.MinBlength = 1e-6
	}
	if c.Branch.MaxBlength <= 0 {
		c.Branch.MaxBlength = 1.0
	}
	if c.Branch.MinBlength >= c.Branch.MaxBlength {
		return fmt.Errorf(InvalidFloatParameterError, "branch.min_blength", c.Branch.MinBlength, "min_blength >= max_blength")
	}

	switch strings.ToLower(c.Logging.Driver) {
	case "":
		c.Logging.Driver = "csv"
	case "csv", "sqlite":
	default:
		return fmt.Errorf(InvalidStringParameterError, "logging.driver", c.Logging.Driver, "not csv/sqlite")
	}

	c.validated = true
	return nil
}

// clampBlength enforces the branch-length floor/ceiling from spec.md
// §4.1's numeric semantics: lengths below the floor propagate as zero,
// lengths above the ceiling saturate.
func (c *Config) clampBlength(t float64) float64 {
	if t < c.Branch.MinBlength {
		return 0
	}
	if t > c.Branch.MaxBlength {
		return c.Branch.MaxBlength
	}
	return t
}

// branchSensitivity is the Newton-step convergence tolerance from
// spec.md §4.7: min_blength * 1e-5.
func (c *Config) branchSensitivity() float64 {
	return c.Branch.MinBlength * 1e-5
}
