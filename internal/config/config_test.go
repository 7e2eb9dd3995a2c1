package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const clusterYAML = `
name: eth-cluster
vaults:
  - address: "0xdddd000000000000000000000000000000000001"
    assumptions:
      total_supply_assets: 1200
      total_borrow_assets: 900
  - address: "0xcccc000000000000000000000000000000000002"
    assumptions:
      total_supply_assets: 800
      total_borrow_assets: 640
strategies:
  - debt: "0xdddd000000000000000000000000000000000001"
    collateral: "0xcccc000000000000000000000000000000000002"
    borrow_ltv: 0.8
    liquidation_ltv: 0.85
single_sided:
  - "0xcccc000000000000000000000000000000000002"
grid:
  steps: 51
`

func writeCluster(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cluster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadCluster(t *testing.T) {
	c, err := LoadCluster(writeCluster(t, clusterYAML))
	require.NoError(t, err)

	assert.Equal(t, "eth-cluster", c.Name)
	require.Len(t, c.Vaults, 2)
	assert.Equal(t, 900.0, c.Vaults[0].Assumptions.TotalBorrowAssets)
	require.Len(t, c.Strategies, 1)
	assert.Equal(t, 0.8, c.Strategies[0].BorrowLTV)
	assert.Equal(t, 51, c.Grid.Steps)
}

func TestLoadCluster_DefaultGridSteps(t *testing.T) {
	body := `
name: tiny
vaults:
  - address: "0xdddd000000000000000000000000000000000001"
`
	c, err := LoadCluster(writeCluster(t, body))
	require.NoError(t, err)
	assert.Equal(t, DefaultGridSteps, c.Grid.Steps)
}

func TestClusterValidate_Failures(t *testing.T) {
	base := func() *Cluster {
		return &Cluster{
			Name:   "c",
			Vaults: []VaultPreset{{Address: "0xd"}, {Address: "0xc"}},
			Grid:   GridConfig{Steps: 11},
		}
	}

	cases := []struct {
		name   string
		mutate func(*Cluster)
	}{
		{"missing name", func(c *Cluster) { c.Name = "" }},
		{"no vaults", func(c *Cluster) { c.Vaults = nil }},
		{"duplicate vault", func(c *Cluster) { c.Vaults = append(c.Vaults, VaultPreset{Address: "0xd"}) }},
		{"unknown debt vault", func(c *Cluster) {
			c.Strategies = []StrategyPreset{{Debt: "0xzz", Collateral: "0xc", BorrowLTV: 0.5}}
		}},
		{"ltv at one", func(c *Cluster) {
			c.Strategies = []StrategyPreset{{Debt: "0xd", Collateral: "0xc", BorrowLTV: 1.0}}
		}},
		{"liquidation below borrow", func(c *Cluster) {
			c.Strategies = []StrategyPreset{{Debt: "0xd", Collateral: "0xc", BorrowLTV: 0.8, LiquidationLTV: 0.7}}
		}},
		{"liquidation at one", func(c *Cluster) {
			c.Strategies = []StrategyPreset{{Debt: "0xd", Collateral: "0xc", BorrowLTV: 0.8, LiquidationLTV: 1.0}}
		}},
		{"unknown single sided", func(c *Cluster) { c.SingleSided = []string{"0xzz"} }},
		{"zero grid steps", func(c *Cluster) { c.Grid.Steps = 0 }},
		{"negative assumptions", func(c *Cluster) { c.Vaults[0].Assumptions.TotalSupplyAssets = -1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := base()
			tc.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoadRuntime_File(t *testing.T) {
	body := `
rpc_url: "https://rpc.example.org"
lens:
  lens_address: "0xc3c45633E45041Bf3bE841f89D2Cb51E2F657403"
  breaker_timeout: 45s
redis:
  addr: "redis:6379"
  default_ttl: 5m
http:
  port: 9090
`
	path := filepath.Join(t.TempDir(), "runtime.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	c, err := LoadRuntime(path)
	require.NoError(t, err)
	assert.Equal(t, "https://rpc.example.org", c.RPCURL)
	assert.Equal(t, 45*time.Second, c.Lens.BreakerTimeout.Std())
	assert.Equal(t, 5*time.Minute, c.Redis.DefaultTTL.Std())
	assert.Equal(t, 9090, c.HTTP.Port)
	assert.Equal(t, "https://api.merkl.xyz/v4", c.Merkl.BaseURL, "unset sections keep defaults")
}

func TestLoadRuntime_EnvOverride(t *testing.T) {
	t.Setenv("RPC_URL", "https://rpc.example.org")

	c, err := LoadRuntime("")
	require.NoError(t, err)
	assert.Equal(t, "https://rpc.example.org", c.RPCURL)
	assert.Equal(t, "localhost:6379", c.Redis.Addr, "defaults apply without a file")
}
