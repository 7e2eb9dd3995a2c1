// Package scenario evaluates the four canonical utilization states of a
// vault: where it is now, where its caps force it, and where the operator's
// assumptions take it. The vault's own rate model applies in every state —
// only the utilization input varies.
package scenario

import (
	"fmt"

	"github.com/vaultrun/vaultrun/internal/domain/vault"
)

// Label identifies one of the four canonical scenarios.
type Label int

const (
	Current Label = iota
	CurrentAtCaps
	End
	EndAtCaps
)

// Labels lists all scenarios in evaluation order.
var Labels = [4]Label{Current, CurrentAtCaps, End, EndAtCaps}

func (l Label) String() string {
	switch l {
	case Current:
		return "current"
	case CurrentAtCaps:
		return "current_at_caps"
	case End:
		return "end"
	case EndAtCaps:
		return "end_at_caps"
	}
	return fmt.Sprintf("scenario(%d)", int(l))
}

// MarshalText lets labels serialize by name in JSON object values.
func (l Label) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// Assumptions are the operator's projected future balances for the End
// scenarios. Values are validated for sign by the caller; a projected borrow
// above the projected supply is tolerated and clamped during evaluation.
type Assumptions struct {
	TotalSupplyAssets float64 `yaml:"total_supply_assets" json:"total_supply_assets"`
	TotalBorrowAssets float64 `yaml:"total_borrow_assets" json:"total_borrow_assets"`
}

// Result is one evaluated scenario. Results are ephemeral: recomputed on
// every evaluation pass, never cached across assumption changes.
type Result struct {
	Label       Label   `json:"label"`
	Utilization float64 `json:"utilization"`
	SupplyAPY   float64 `json:"supply_apy"`
	BorrowAPY   float64 `json:"borrow_apy"`

	// Clamped marks a state whose projected borrow exceeded its projected
	// supply and was pulled back to utilization 1. A warning condition for
	// the caller to surface, not an error.
	Clamped bool `json:"clamped,omitempty"`
}

// Evaluate computes the four scenario results for a vault in fixed label
// order. It never fails: inconsistent assumptions are clamped and flagged.
func Evaluate(v *vault.State, a Assumptions) [4]Result {
	endSupply, endBorrow := nonNegative(a.TotalSupplyAssets), nonNegative(a.TotalBorrowAssets)

	// End at caps: the projection cannot overshoot the vault's ceilings.
	cappedSupply, cappedBorrow := endSupply, endBorrow
	if v.SupplyCap > 0 && cappedSupply > v.SupplyCap {
		cappedSupply = v.SupplyCap
	}
	if v.BorrowCap > 0 && cappedBorrow > v.BorrowCap {
		cappedBorrow = v.BorrowCap
	}

	return [4]Result{
		at(v, Current, v.Utilization(), false),
		at(v, CurrentAtCaps, v.UtilizationAtCaps(), false),
		fromBalances(v, End, endSupply, endBorrow),
		fromBalances(v, EndAtCaps, cappedSupply, cappedBorrow),
	}
}

func fromBalances(v *vault.State, label Label, supply, borrow float64) Result {
	clamped := false
	if borrow > supply {
		borrow = supply
		clamped = true
	}
	u := 0.0
	if supply > 0 {
		u = borrow / supply
	}
	return at(v, label, u, clamped)
}

func at(v *vault.State, label Label, utilization float64, clamped bool) Result {
	supplyAPY, borrowAPY := v.IRM.Rates(utilization)
	return Result{
		Label:       label,
		Utilization: utilization,
		SupplyAPY:   supplyAPY,
		BorrowAPY:   borrowAPY,
		Clamped:     clamped,
	}
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
