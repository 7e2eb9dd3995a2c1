// Package lens fetches raw vault data from an EVM RPC endpoint by querying
// a deployed VaultLens contract. It is the engine's only on-chain touchpoint:
// one eth_call per vault, decoded into the engine's snapshot types before
// anything else runs.
package lens

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/vaultrun/vaultrun/internal/domain/irm"
	"github.com/vaultrun/vaultrun/internal/types"
)

// Only the slice of the lens output the sizing engine consumes.
const lensABIJSON = `[{
	"name": "getVaultInfo",
	"type": "function",
	"stateMutability": "view",
	"inputs": [{"name": "vault", "type": "address"}],
	"outputs": [{"name": "info", "type": "tuple", "components": [
		{"name": "vaultName", "type": "string"},
		{"name": "vaultSymbol", "type": "string"},
		{"name": "vaultDecimals", "type": "uint8"},
		{"name": "totalAssets", "type": "uint256"},
		{"name": "totalBorrowed", "type": "uint256"},
		{"name": "supplyCap", "type": "uint256"},
		{"name": "borrowCap", "type": "uint256"},
		{"name": "interestRateModelParams", "type": "bytes"}
	]}]
}]`

// VaultInfo is one decoded lens response: balances scaled to asset units and
// the IRM parameter blob already converted to annualized rates.
type VaultInfo struct {
	Address           string     `json:"address"`
	Name              string     `json:"name"`
	Symbol            string     `json:"symbol"`
	Decimals          uint8      `json:"decimals"`
	TotalSupplyAssets float64    `json:"total_supply_assets"`
	TotalBorrowAssets float64    `json:"total_borrow_assets"`
	SupplyCap         float64    `json:"supply_cap"`
	BorrowCap         float64    `json:"borrow_cap"`
	IRM               irm.Config `json:"irm"`
	FetchedAt         time.Time  `json:"fetched_at"`
}

type rawVaultInfo struct {
	VaultName               string
	VaultSymbol             string
	VaultDecimals           uint8
	TotalAssets             *big.Int
	TotalBorrowed           *big.Int
	SupplyCap               *big.Int
	BorrowCap               *big.Int
	InterestRateModelParams []byte
}

// ethCaller is the slice of ethclient.Client the provider needs; tests
// substitute a canned responder.
type ethCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Config tunes the provider's request pacing and breaker behavior.
type Config struct {
	LensAddress     string         `yaml:"lens_address"`
	RequestsPerSec  float64        `yaml:"requests_per_sec"`
	Burst           int            `yaml:"burst"`
	BreakerTimeout  types.Duration `yaml:"breaker_timeout"`
	BreakerFailures uint32         `yaml:"breaker_failures"`
}

// DefaultConfig keeps well under public RPC limits.
func DefaultConfig() Config {
	return Config{
		RequestsPerSec:  4,
		Burst:           2,
		BreakerTimeout:  types.Duration(30 * time.Second),
		BreakerFailures: 5,
	}
}

// Client reads vault snapshots through the lens contract.
type Client struct {
	caller  ethCaller
	lens    common.Address
	abi     abi.ABI
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	log     zerolog.Logger
}

// Dial connects to an RPC endpoint and returns a lens client.
func Dial(ctx context.Context, rpcURL string, cfg Config) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("lens: dial %s: %w", rpcURL, err)
	}
	return NewClient(ec, cfg)
}

// NewClient wraps an existing caller; used directly by tests.
func NewClient(caller ethCaller, cfg Config) (*Client, error) {
	parsed, err := abi.JSON(strings.NewReader(lensABIJSON))
	if err != nil {
		return nil, fmt.Errorf("lens: parse ABI: %w", err)
	}
	if !common.IsHexAddress(cfg.LensAddress) {
		return nil, fmt.Errorf("lens: invalid lens address %q", cfg.LensAddress)
	}

	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	c := &Client{
		caller:  caller,
		lens:    common.HexToAddress(cfg.LensAddress),
		abi:     parsed,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), burst),
		log:     log.With().Str("provider", "lens").Logger(),
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "vault_lens",
		Timeout: cfg.BreakerTimeout.Std(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("lens breaker state change")
		},
	})
	return c, nil
}

// VaultInfo fetches and decodes one vault's snapshot.
func (c *Client) VaultInfo(ctx context.Context, vaultAddress string) (*VaultInfo, error) {
	if !common.IsHexAddress(vaultAddress) {
		return nil, fmt.Errorf("lens: invalid vault address %q", vaultAddress)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	calldata, err := c.abi.Pack("getVaultInfo", common.HexToAddress(vaultAddress))
	if err != nil {
		return nil, fmt.Errorf("lens: pack call: %w", err)
	}

	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.caller.CallContract(ctx, ethereum.CallMsg{To: &c.lens, Data: calldata}, nil)
	})
	if err != nil {
		c.log.Error().Err(err).Str("vault", vaultAddress).Msg("lens call failed")
		return nil, fmt.Errorf("lens: call getVaultInfo(%s): %w", vaultAddress, err)
	}

	out, err := c.abi.Unpack("getVaultInfo", result.([]byte))
	if err != nil {
		return nil, fmt.Errorf("lens: unpack getVaultInfo(%s): %w", vaultAddress, err)
	}
	raw := abi.ConvertType(out[0], new(rawVaultInfo)).(*rawVaultInfo)

	info, err := decodeVaultInfo(vaultAddress, raw)
	if err != nil {
		return nil, err
	}

	c.log.Debug().
		Str("vault", vaultAddress).
		Str("symbol", info.Symbol).
		Float64("supply", info.TotalSupplyAssets).
		Float64("borrow", info.TotalBorrowAssets).
		Dur("duration", time.Since(start)).
		Msg("fetched vault snapshot")
	return info, nil
}
