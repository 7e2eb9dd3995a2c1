// Package config loads the operator-facing YAML files: named cluster presets
// (which vaults, which strategies, which assumptions) and the runtime wiring
// (RPC endpoint, lens address, cache, yield API).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vaultrun/vaultrun/internal/domain/scenario"
	"github.com/vaultrun/vaultrun/internal/providers/lens"
	"github.com/vaultrun/vaultrun/internal/providers/merkl"
	"github.com/vaultrun/vaultrun/internal/types"
)

// Cluster is one named preset: the vault set an operator sizes together.
type Cluster struct {
	Name        string           `yaml:"name"`
	Vaults      []VaultPreset    `yaml:"vaults"`
	Strategies  []StrategyPreset `yaml:"strategies"`
	SingleSided []string         `yaml:"single_sided"` // vault addresses lent into without leverage
	Grid        GridConfig       `yaml:"grid"`
}

// VaultPreset names a vault and the operator's End-scenario assumptions.
type VaultPreset struct {
	Address     string               `yaml:"address"`
	Assumptions scenario.Assumptions `yaml:"assumptions"`
}

// StrategyPreset describes one leveraged debt/collateral pairing.
type StrategyPreset struct {
	Debt           string  `yaml:"debt"`
	Collateral     string  `yaml:"collateral"`
	BorrowLTV      float64 `yaml:"borrow_ltv"`
	LiquidationLTV float64 `yaml:"liquidation_ltv"`
}

// GridConfig sets heatmap resolution per axis.
type GridConfig struct {
	Steps int `yaml:"steps"`
}

// DefaultGridSteps matches the 101-point utilization sweep the heatmaps
// have always used.
const DefaultGridSteps = 101

// LoadCluster reads and validates a cluster preset file.
func LoadCluster(path string) (*Cluster, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Cluster
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("config: parse cluster %s: %w", path, err)
	}
	if c.Grid.Steps == 0 {
		c.Grid.Steps = DefaultGridSteps
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: cluster %s: %w", path, err)
	}
	return &c, nil
}

// Validate checks referential integrity and parameter ranges.
func (c *Cluster) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("cluster name is required")
	}
	if len(c.Vaults) == 0 {
		return fmt.Errorf("cluster needs at least one vault")
	}

	known := make(map[string]bool, len(c.Vaults))
	for i, v := range c.Vaults {
		if v.Address == "" {
			return fmt.Errorf("vault %d has no address", i)
		}
		if known[v.Address] {
			return fmt.Errorf("vault %s listed twice", v.Address)
		}
		known[v.Address] = true
		if v.Assumptions.TotalSupplyAssets < 0 || v.Assumptions.TotalBorrowAssets < 0 {
			return fmt.Errorf("vault %s has negative assumptions", v.Address)
		}
	}

	for _, s := range c.Strategies {
		if !known[s.Debt] {
			return fmt.Errorf("strategy references unknown debt vault %s", s.Debt)
		}
		if !known[s.Collateral] {
			return fmt.Errorf("strategy references unknown collateral vault %s", s.Collateral)
		}
		if s.BorrowLTV < 0 || s.BorrowLTV >= 1 {
			return fmt.Errorf("strategy %s->%s borrow LTV %v outside [0,1)", s.Debt, s.Collateral, s.BorrowLTV)
		}
		if s.LiquidationLTV != 0 && s.LiquidationLTV < s.BorrowLTV {
			return fmt.Errorf("strategy %s->%s liquidation LTV %v below borrow LTV %v",
				s.Debt, s.Collateral, s.LiquidationLTV, s.BorrowLTV)
		}
		if s.LiquidationLTV >= 1 {
			return fmt.Errorf("strategy %s->%s liquidation LTV %v outside [0,1)", s.Debt, s.Collateral, s.LiquidationLTV)
		}
	}

	for _, addr := range c.SingleSided {
		if !known[addr] {
			return fmt.Errorf("single-sided entry references unknown vault %s", addr)
		}
	}

	if c.Grid.Steps < 1 {
		return fmt.Errorf("grid steps %d must be at least 1", c.Grid.Steps)
	}
	return nil
}

// Runtime is the process-level wiring config.
type Runtime struct {
	RPCURL string       `yaml:"rpc_url"`
	Lens   lens.Config  `yaml:"lens"`
	Merkl  merkl.Config `yaml:"merkl"`
	Redis  RedisConfig  `yaml:"redis"`
	HTTP   HTTPConfig   `yaml:"http"`
}

// RedisConfig points at the snapshot cache.
type RedisConfig struct {
	Addr       string         `yaml:"addr"`
	DB         int            `yaml:"db"`
	DefaultTTL types.Duration `yaml:"default_ttl"`
}

// HTTPConfig configures the read-only API server.
type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LoadRuntime reads the runtime config, letting RPC_URL from the environment
// override the file so endpoints with keys stay out of version control.
func LoadRuntime(path string) (*Runtime, error) {
	c := &Runtime{
		Lens:  lens.DefaultConfig(),
		Merkl: merkl.DefaultConfig(),
		Redis: RedisConfig{Addr: "localhost:6379", DefaultTTL: types.Duration(time.Minute)},
		HTTP:  HTTPConfig{Host: "127.0.0.1", Port: 8080},
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("config: parse runtime %s: %w", path, err)
		}
	}
	if env := os.Getenv("RPC_URL"); env != "" {
		c.RPCURL = env
	}
	return c, nil
}
