package vault

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultrun/vaultrun/internal/domain/irm"
)

var testIRM = irm.Config{BaseRate: 0.0, Slope1: 0.04, Slope2: 0.60, Kink: 0.80}

func TestNew_DerivesUtilization(t *testing.T) {
	v, err := New(State{
		Address:           "0xabc",
		Symbol:            "eWETH",
		TotalSupplyAssets: 1000,
		TotalBorrowAssets: 400,
		SupplyCap:         2000,
		BorrowCap:         1600,
		IRM:               testIRM,
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.40, v.Utilization(), 1e-12)
	assert.InDelta(t, 0.80, v.UtilizationAtCaps(), 1e-12)

	supply, borrow := v.RatesCurrent()
	assert.InDelta(t, 0.02, borrow, 1e-12, "current borrow rate at 40% utilization")
	assert.InDelta(t, 0.02*0.40, supply, 1e-12)

	_, borrowAtCaps := v.RatesAtCaps()
	assert.InDelta(t, 0.04, borrowAtCaps, 1e-12, "cap-implied utilization sits exactly on the kink")
}

func TestNew_ZeroSupplyUtilization(t *testing.T) {
	v, err := New(State{Address: "0xabc", IRM: testIRM})
	require.NoError(t, err)
	assert.Equal(t, 0.0, v.Utilization(), "empty vault has zero utilization")
	assert.Equal(t, 0.0, v.UtilizationAtCaps(), "uncapped vault reports zero cap utilization")
}

func TestNew_RejectsInconsistentSnapshots(t *testing.T) {
	cases := []struct {
		name  string
		state State
		field string
	}{
		{"borrow above supply", State{Symbol: "eUSDC", TotalSupplyAssets: 100, TotalBorrowAssets: 150, IRM: testIRM}, "total_borrow_assets"},
		{"borrow cap above supply cap", State{Symbol: "eUSDC", SupplyCap: 100, BorrowCap: 200, IRM: testIRM}, "borrow_cap"},
		{"negative balance", State{Symbol: "eUSDC", TotalSupplyAssets: -1, IRM: testIRM}, "balances"},
		{"bad irm", State{Symbol: "eUSDC", IRM: irm.Config{Kink: 2}}, "irm"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.state)
			require.Error(t, err)

			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "construction failures must be ConfigurationError")
			assert.Equal(t, "eUSDC", cfgErr.Vault, "error should carry the vault identity")
			assert.Equal(t, tc.field, cfgErr.Field)
		})
	}
}

func TestNew_UncappedBorrowCapAllowed(t *testing.T) {
	// SupplyCap 0 means uncapped, so any borrow cap is structurally fine.
	_, err := New(State{Address: "0xabc", BorrowCap: 500, IRM: testIRM})
	assert.NoError(t, err)
}
