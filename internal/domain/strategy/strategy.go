// Package strategy computes net yields for the two position types the sizing
// tool models: a recursive leverage loop at constant LTV, and a plain
// single-sided deposit.
package strategy

import (
	"fmt"

	"github.com/vaultrun/vaultrun/internal/domain/scenario"
)

// DomainError reports a strategy input outside its mathematical domain.
// It is local to one computation (or one grid cell) and never aborts a batch.
type DomainError struct {
	Param  string
	Value  float64
	Reason string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("strategy: %s=%v out of range: %s", e.Param, e.Value, e.Reason)
}

// Result is one computed strategy position. It references the scenario it
// was derived from without owning it.
type Result struct {
	Scenario   scenario.Result `json:"scenario"`
	LTV        float64         `json:"ltv"`
	Multiplier float64         `json:"multiplier"`
	NetAPY     float64         `json:"net_apy"`
}

// MaxLeverage is the supply multiplier of an infinite re-supply/re-borrow
// loop at constant LTV: 1 / (1 - ltv).
func MaxLeverage(ltv float64) float64 {
	return 1 / (1 - ltv)
}

// ComputeLeverage evaluates the leverage loop closed form against one
// scenario's rates. LTV must lie in [0,1); 0 degenerates to an unleveraged
// deposit. The closed form matches the limit of the discrete loop exactly.
func ComputeLeverage(s scenario.Result, ltv float64) (Result, error) {
	if ltv < 0 || ltv >= 1 {
		return Result{}, &DomainError{Param: "ltv", Value: ltv, Reason: "must be in [0,1)"}
	}
	m := MaxLeverage(ltv)
	return Result{
		Scenario:   s,
		LTV:        ltv,
		Multiplier: m,
		NetAPY:     s.SupplyAPY*m - s.BorrowAPY*(m-1),
	}, nil
}

// ComputeSingleSided evaluates a deposit with no borrow leg: the supply rate
// plus whatever comparative (incentive) yield the vault carries.
func ComputeSingleSided(s scenario.Result, comparativeYield float64) Result {
	return Result{
		Scenario:   s,
		LTV:        0,
		Multiplier: 1,
		NetAPY:     s.SupplyAPY + comparativeYield,
	}
}
