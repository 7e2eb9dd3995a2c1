package strategy

import (
	"fmt"

	"github.com/vaultrun/vaultrun/internal/domain/vault"
)

// Pair is a leveraged loop across two vaults: borrow from the debt vault,
// supply into the collateral vault, repeat at constant LTV. The collateral
// leg earns its supply rate plus its comparative yield; the debt leg costs
// its borrow rate.
type Pair struct {
	Debt           *vault.State
	Collateral     *vault.State
	BorrowLTV      float64
	LiquidationLTV float64
}

// Name renders the conventional "debt → collateral" strategy label.
func (p Pair) Name() string {
	return fmt.Sprintf("%s -> %s", symbolOf(p.Debt), symbolOf(p.Collateral))
}

func symbolOf(v *vault.State) string {
	if v.Symbol != "" {
		return v.Symbol
	}
	return v.Address
}

// YieldAt evaluates the pair's net APY at the borrow LTV with each side's
// rate model applied at an explicit utilization. This is the kernel behind
// utilization sensitivity sweeps: both utilizations are free variables,
// everything else is fixed.
func (p Pair) YieldAt(debtUtilization, collateralUtilization float64) (float64, error) {
	return p.yieldAt(p.BorrowLTV, debtUtilization, collateralUtilization)
}

func (p Pair) yieldAt(ltv, debtUtilization, collateralUtilization float64) (float64, error) {
	if ltv < 0 || ltv >= 1 {
		return 0, &DomainError{Param: "ltv", Value: ltv, Reason: "must be in [0,1)"}
	}
	_, borrowAPY := p.Debt.IRM.Rates(debtUtilization)
	supplyAPY, _ := p.Collateral.IRM.Rates(collateralUtilization)

	gain := supplyAPY + p.Collateral.ComparativeYield
	m := MaxLeverage(ltv)
	return gain*m - borrowAPY*(m-1), nil
}

// CurrentYield is the net APY at the borrow LTV and both vaults' live
// utilizations.
func (p Pair) CurrentYield() (float64, error) {
	return p.yieldAt(p.BorrowLTV, p.Debt.Utilization(), p.Collateral.Utilization())
}

// CapsYield is the worst-case bound: the loop wound up to the liquidation
// LTV at both vaults' cap-implied utilizations. A pair with no liquidation
// LTV set falls back to its borrow LTV.
func (p Pair) CapsYield() (float64, error) {
	ltv := p.LiquidationLTV
	if ltv == 0 {
		ltv = p.BorrowLTV
	}
	return p.yieldAt(ltv, p.Debt.UtilizationAtCaps(), p.Collateral.UtilizationAtCaps())
}
