package lens

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeKinkParams_ZeroRates(t *testing.T) {
	cfg, err := decodeKinkParams(kinkBlob(
		big.NewInt(0), big.NewInt(0), big.NewInt(0),
		big.NewInt(8*kinkScale/10),
	))
	require.NoError(t, err)

	assert.Equal(t, 0.0, cfg.BaseRate)
	assert.Equal(t, 0.0, cfg.Slope1)
	assert.Equal(t, 0.0, cfg.Slope2)
	assert.InDelta(t, 0.8, cfg.Kink, 1e-9)
	assert.NoError(t, cfg.Validate())
}

func TestDecodeKinkParams_AnchorsAndCompounding(t *testing.T) {
	// Per-second rate chosen so continuous compounding lands near 5% APY.
	perSec := int64(1547000000000000000) // ~ln(1.05)/secondsPerYear at 1e27 scale
	cfg, err := decodeKinkParams(kinkBlob(
		big.NewInt(perSec), big.NewInt(0), big.NewInt(0),
		big.NewInt(9*kinkScale/10),
	))
	require.NoError(t, err)

	wantAPY := math.Pow(1+float64(perSec)/ratePerSecScale, secondsPerYear) - 1
	assert.InDelta(t, wantAPY, cfg.BaseRate, 1e-12)
	assert.InDelta(t, 0.05, cfg.BaseRate, 5e-3, "chosen per-second rate compounds to roughly 5%")
	assert.Equal(t, 0.0, cfg.Slope1, "flat slopes add nothing above the base")
}

func TestDecodeKinkParams_SlopesAreSegmentGains(t *testing.T) {
	kinkRaw := big.NewInt(8 * kinkScale / 10)
	slope1 := big.NewInt(1e9)
	slope2 := big.NewInt(15e9)

	cfg, err := decodeKinkParams(kinkBlob(big.NewInt(0), slope1, slope2, kinkRaw))
	require.NoError(t, err)

	// The decoded config must reproduce the on-chain anchor rates: the
	// borrow rate at the kink is base+slope1, at full utilization it is
	// base+slope1+slope2.
	rKink := new(big.Int).Mul(slope1, kinkRaw)
	wantAtKink := toAPY(rKink)
	assert.InDelta(t, wantAtKink, cfg.BorrowRate(cfg.Kink), 1e-9)

	rFull := new(big.Int).Add(rKink, new(big.Int).Mul(slope2, new(big.Int).Sub(big.NewInt(kinkScale), kinkRaw)))
	assert.InDelta(t, toAPY(rFull), cfg.BorrowRate(1), 1e-9)

	assert.Greater(t, cfg.Slope2, cfg.Slope1, "the above-kink segment is the steep one here")
	assert.NoError(t, cfg.Validate())
}

func TestDecodeKinkParams_ShortBlob(t *testing.T) {
	_, err := decodeKinkParams(make([]byte, 3*wordBytes))
	assert.Error(t, err)
}

func TestDecodeVaultInfo_ZeroDecimals(t *testing.T) {
	raw := &rawVaultInfo{
		VaultName: "Raw", VaultSymbol: "RAW", VaultDecimals: 0,
		TotalAssets: big.NewInt(500), TotalBorrowed: big.NewInt(100),
		SupplyCap: big.NewInt(0), BorrowCap: big.NewInt(0),
		InterestRateModelParams: kinkBlob(big.NewInt(0), big.NewInt(0), big.NewInt(0), big.NewInt(0)),
	}
	info, err := decodeVaultInfo("0xabc", raw)
	require.NoError(t, err)
	assert.Equal(t, 500.0, info.TotalSupplyAssets, "decimals of zero means unscaled units")
}
