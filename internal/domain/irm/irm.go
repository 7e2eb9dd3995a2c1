// Package irm implements the kinked-linear interest rate model used by
// lending vaults: borrow rate rises gently up to a kink utilization, then
// steeply above it.
package irm

import "fmt"

// Config holds the interest rate model parameters for one vault. All rates
// are annualized fractions (0.04 = 4% APY). Immutable once constructed.
type Config struct {
	BaseRate      float64 `yaml:"base_rate" json:"base_rate"`           // borrow rate at 0% utilization
	Slope1        float64 `yaml:"slope1" json:"slope1"`                 // rate increase from 0 to kink
	Slope2        float64 `yaml:"slope2" json:"slope2"`                 // rate increase from kink to 100%
	Kink          float64 `yaml:"kink" json:"kink"`                     // kink utilization, fraction in [0,1]
	ReserveFactor float64 `yaml:"reserve_factor" json:"reserve_factor"` // protocol cut of borrow interest
}

// Validate checks the structural invariants of the model parameters.
func (c Config) Validate() error {
	if c.BaseRate < 0 || c.Slope1 < 0 || c.Slope2 < 0 {
		return fmt.Errorf("irm: negative rate parameter (base=%v slope1=%v slope2=%v)", c.BaseRate, c.Slope1, c.Slope2)
	}
	if c.Kink < 0 || c.Kink > 1 {
		return fmt.Errorf("irm: kink %v outside [0,1]", c.Kink)
	}
	if c.ReserveFactor < 0 || c.ReserveFactor > 1 {
		return fmt.Errorf("irm: reserve factor %v outside [0,1]", c.ReserveFactor)
	}
	return nil
}

// BorrowRate returns the annualized borrow rate at the given utilization.
// Utilization is clamped to [0,1] before evaluation.
func (c Config) BorrowRate(utilization float64) float64 {
	u := clampUnit(utilization)

	// A kink at zero has no below-kink segment at all.
	if c.Kink > 0 && u <= c.Kink {
		return c.BaseRate + c.Slope1*(u/c.Kink)
	}
	if c.Kink >= 1 {
		// Kink at 100%: the steep segment never applies.
		return c.BaseRate + c.Slope1
	}
	return c.BaseRate + c.Slope1 + c.Slope2*((u-c.Kink)/(1-c.Kink))
}

// Rates returns the annualized (supply, borrow) rate pair at the given
// utilization. The supply rate scales with utilization, net of the reserve
// factor, so it is zero when nothing is borrowed.
func (c Config) Rates(utilization float64) (supplyRate, borrowRate float64) {
	u := clampUnit(utilization)
	borrowRate = c.BorrowRate(u)
	supplyRate = borrowRate * u * (1 - c.ReserveFactor)
	return supplyRate, borrowRate
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
