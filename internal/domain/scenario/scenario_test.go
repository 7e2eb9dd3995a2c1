package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultrun/vaultrun/internal/domain/irm"
	"github.com/vaultrun/vaultrun/internal/domain/vault"
)

func testVault(t *testing.T) *vault.State {
	t.Helper()
	v, err := vault.New(vault.State{
		Address:           "0xabc",
		Symbol:            "eWETH",
		TotalSupplyAssets: 1000,
		TotalBorrowAssets: 400,
		SupplyCap:         2000,
		BorrowCap:         1600,
		IRM:               irm.Config{BaseRate: 0.0, Slope1: 0.04, Slope2: 0.60, Kink: 0.80},
	})
	require.NoError(t, err)
	return v
}

func TestEvaluate_FixedLabelOrder(t *testing.T) {
	results := Evaluate(testVault(t), Assumptions{TotalSupplyAssets: 1200, TotalBorrowAssets: 900})

	require.Len(t, results[:], 4)
	for i, want := range Labels {
		assert.Equal(t, want, results[i].Label, "scenario order is fixed")
	}
}

func TestEvaluate_UtilizationPerScenario(t *testing.T) {
	results := Evaluate(testVault(t), Assumptions{TotalSupplyAssets: 1200, TotalBorrowAssets: 900})

	assert.InDelta(t, 0.40, results[0].Utilization, 1e-12, "current")
	assert.InDelta(t, 0.80, results[1].Utilization, 1e-12, "current at caps")
	assert.InDelta(t, 0.75, results[2].Utilization, 1e-12, "end")
	assert.InDelta(t, 0.75, results[3].Utilization, 1e-12, "end at caps, projection within caps")

	for _, r := range results {
		assert.False(t, r.Clamped, "consistent inputs should not be clamped")
		wantSupply, wantBorrow := testVault(t).IRM.Rates(r.Utilization)
		assert.Equal(t, wantBorrow, r.BorrowAPY, "rates come from the vault's own model")
		assert.Equal(t, wantSupply, r.SupplyAPY)
	}
}

func TestEvaluate_ClampsBorrowAboveSupply(t *testing.T) {
	results := Evaluate(testVault(t), Assumptions{TotalSupplyAssets: 500, TotalBorrowAssets: 800})

	end := results[2]
	assert.True(t, end.Clamped, "projected borrow above supply must be flagged")
	assert.InDelta(t, 1.0, end.Utilization, 1e-12, "clamped projection saturates utilization")
}

func TestEvaluate_EndAtCapsRespectsCeilings(t *testing.T) {
	// Projection overshoots both caps; the at-caps state pulls it back.
	results := Evaluate(testVault(t), Assumptions{TotalSupplyAssets: 5000, TotalBorrowAssets: 4500})

	end, endAtCaps := results[2], results[3]
	assert.InDelta(t, 0.90, end.Utilization, 1e-12)
	assert.InDelta(t, 1600.0/2000.0, endAtCaps.Utilization, 1e-12, "caps bound the projected balances")
}

func TestEvaluate_NegativeAssumptionsTreatedAsZero(t *testing.T) {
	results := Evaluate(testVault(t), Assumptions{TotalSupplyAssets: -10, TotalBorrowAssets: -5})
	assert.Equal(t, 0.0, results[2].Utilization)
	assert.Equal(t, 0.0, results[2].SupplyAPY, "empty projection yields nothing")
}

func TestLabel_String(t *testing.T) {
	assert.Equal(t, "current", Current.String())
	assert.Equal(t, "current_at_caps", CurrentAtCaps.String())
	assert.Equal(t, "end", End.String())
	assert.Equal(t, "end_at_caps", EndAtCaps.String())
}
