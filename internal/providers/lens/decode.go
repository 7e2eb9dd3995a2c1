package lens

import (
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/vaultrun/vaultrun/internal/domain/irm"
)

const (
	secondsPerYear = 31536000

	// On-chain IRM rates are per-second, fixed-point at 1e27.
	ratePerSecScale = 1e27

	// The kink utilization is encoded on a uint32 scale.
	kinkScale = 4294967295

	wordBytes = 32
)

// decodeVaultInfo turns a raw lens tuple into asset-unit balances plus an
// annualized IRM config.
func decodeVaultInfo(address string, raw *rawVaultInfo) (*VaultInfo, error) {
	irmCfg, err := decodeKinkParams(raw.InterestRateModelParams)
	if err != nil {
		return nil, fmt.Errorf("lens: vault %s: %w", address, err)
	}

	scale := math.Pow(10, float64(raw.VaultDecimals))
	if scale == 0 {
		scale = 1
	}

	return &VaultInfo{
		Address:           address,
		Name:              raw.VaultName,
		Symbol:            raw.VaultSymbol,
		Decimals:          raw.VaultDecimals,
		TotalSupplyAssets: toFloat(raw.TotalAssets) / scale,
		TotalBorrowAssets: toFloat(raw.TotalBorrowed) / scale,
		SupplyCap:         toFloat(raw.SupplyCap) / scale,
		BorrowCap:         toFloat(raw.BorrowCap) / scale,
		IRM:               irmCfg,
		FetchedAt:         time.Now().UTC(),
	}, nil
}

// decodeKinkParams unpacks the 4-word kink IRM parameter blob: base rate,
// slope below kink, slope above kink (all per-second), then the kink on the
// uint32 scale. Output is the annualized slope-form config where slope1/slope2
// are the total APY gains across their segments.
func decodeKinkParams(blob []byte) (irm.Config, error) {
	if len(blob) < 4*wordBytes {
		return irm.Config{}, fmt.Errorf("irm params blob too short: %d bytes", len(blob))
	}

	words := make([]*big.Int, 4)
	for i := range words {
		words[i] = new(big.Int).SetBytes(blob[i*wordBytes : (i+1)*wordBytes])
	}
	baseRaw, slope1Raw, slope2Raw, kinkRaw := words[0], words[1], words[2], words[3]

	if kinkRaw.Cmp(big.NewInt(kinkScale)) > 0 {
		return irm.Config{}, fmt.Errorf("irm kink %s exceeds uint32 scale", kinkRaw)
	}

	// Per-second rates at the three anchor utilizations: zero, kink, full.
	rZero := new(big.Int).Set(baseRaw)
	rKink := new(big.Int).Add(rZero, new(big.Int).Mul(slope1Raw, kinkRaw))
	remaining := new(big.Int).Sub(big.NewInt(kinkScale), kinkRaw)
	rFull := new(big.Int).Add(rKink, new(big.Int).Mul(slope2Raw, remaining))

	baseAPY := toAPY(rZero)
	kinkAPY := toAPY(rKink)
	fullAPY := toAPY(rFull)

	return irm.Config{
		BaseRate: baseAPY,
		Slope1:   kinkAPY - baseAPY,
		Slope2:   fullAPY - kinkAPY,
		Kink:     toFloat(kinkRaw) / kinkScale,
	}, nil
}

// toAPY compounds a per-second fixed-point rate over a year.
func toAPY(ratePerSec *big.Int) float64 {
	r := toFloat(ratePerSec) / ratePerSecScale
	if r == 0 {
		return 0
	}
	return math.Pow(1+r, secondsPerYear) - 1
}

func toFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}
