// Package vault holds the immutable per-fetch snapshot of a lending vault:
// current balances, capacity caps, and the vault's interest rate model.
package vault

import (
	"fmt"

	"github.com/vaultrun/vaultrun/internal/domain/irm"
)

// ConfigurationError reports a structurally invalid vault snapshot. Source
// data is occasionally inconsistent mid-update; the vault is rejected at
// construction rather than allowed to produce utilization above 1.
type ConfigurationError struct {
	Vault  string // vault identity (address or symbol)
	Field  string // offending field
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("vault %s: invalid %s: %s", e.Vault, e.Field, e.Reason)
}

// State is a single vault's snapshot. Construct with New; treat as
// read-only afterwards — a new fetch cycle produces a new State.
type State struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`

	TotalSupplyAssets float64 `json:"total_supply_assets"`
	TotalBorrowAssets float64 `json:"total_borrow_assets"`
	SupplyCap         float64 `json:"supply_cap"` // 0 means uncapped
	BorrowCap         float64 `json:"borrow_cap"` // 0 means uncapped

	IRM irm.Config `json:"irm"`

	// ComparativeYield is an externally sourced incentive APY (e.g. reward
	// campaigns) layered on top of the supply rate by single-sided and
	// collateral-leg strategies.
	ComparativeYield float64 `json:"comparative_yield"`
}

// New validates a snapshot and returns it as an immutable State.
func New(s State) (*State, error) {
	if s.TotalSupplyAssets < 0 || s.TotalBorrowAssets < 0 {
		return nil, &ConfigurationError{Vault: s.identity(), Field: "balances",
			Reason: fmt.Sprintf("negative balance (supply=%v borrow=%v)", s.TotalSupplyAssets, s.TotalBorrowAssets)}
	}
	if s.TotalBorrowAssets > s.TotalSupplyAssets {
		return nil, &ConfigurationError{Vault: s.identity(), Field: "total_borrow_assets",
			Reason: fmt.Sprintf("borrow %v exceeds supply %v", s.TotalBorrowAssets, s.TotalSupplyAssets)}
	}
	if s.SupplyCap < 0 || s.BorrowCap < 0 {
		return nil, &ConfigurationError{Vault: s.identity(), Field: "caps",
			Reason: fmt.Sprintf("negative cap (supply=%v borrow=%v)", s.SupplyCap, s.BorrowCap)}
	}
	if s.SupplyCap > 0 && s.BorrowCap > s.SupplyCap {
		return nil, &ConfigurationError{Vault: s.identity(), Field: "borrow_cap",
			Reason: fmt.Sprintf("borrow cap %v exceeds supply cap %v", s.BorrowCap, s.SupplyCap)}
	}
	if err := s.IRM.Validate(); err != nil {
		return nil, &ConfigurationError{Vault: s.identity(), Field: "irm", Reason: err.Error()}
	}
	return &s, nil
}

func (s *State) identity() string {
	if s.Symbol != "" {
		return s.Symbol
	}
	return s.Address
}

// Utilization is borrow over supply at current balances, 0 on empty supply.
func (s *State) Utilization() float64 {
	return utilization(s.TotalBorrowAssets, s.TotalSupplyAssets)
}

// UtilizationAtCaps is the utilization implied by the capacity caps, i.e.
// where the vault lands if both sides fill to their ceilings.
func (s *State) UtilizationAtCaps() float64 {
	return utilization(s.BorrowCap, s.SupplyCap)
}

// RatesCurrent returns the (supply, borrow) APY pair at current utilization.
func (s *State) RatesCurrent() (supplyAPY, borrowAPY float64) {
	return s.IRM.Rates(s.Utilization())
}

// RatesAtCaps returns the (supply, borrow) APY pair at cap-implied utilization.
func (s *State) RatesAtCaps() (supplyAPY, borrowAPY float64) {
	return s.IRM.Rates(s.UtilizationAtCaps())
}

func utilization(borrow, supply float64) float64 {
	if supply <= 0 {
		return 0
	}
	return borrow / supply
}
