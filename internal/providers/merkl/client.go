// Package merkl fetches comparative (incentive) APYs for vaults from a
// Merkl-style reward aggregation API. The figure feeds the single-sided
// strategy and the collateral leg of leveraged pairs; a vault with no live
// campaign simply contributes zero.
package merkl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/vaultrun/vaultrun/internal/types"
)

// Config tunes the API client.
type Config struct {
	BaseURL        string         `yaml:"base_url"`
	ChainID        int            `yaml:"chain_id"`
	RequestTimeout types.Duration `yaml:"request_timeout"`
	RequestsPerSec float64        `yaml:"requests_per_sec"`
}

// DefaultConfig targets the public API on Ethereum mainnet.
func DefaultConfig() Config {
	return Config{
		BaseURL:        "https://api.merkl.xyz/v4",
		ChainID:        1,
		RequestTimeout: types.Duration(10 * time.Second),
		RequestsPerSec: 2,
	}
}

// Client queries reward campaign APYs per vault address.
type Client struct {
	baseURL string
	chainID int
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	log     zerolog.Logger
}

// NewClient builds a rate-limited, breaker-wrapped API client.
func NewClient(cfg Config) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		chainID: cfg.ChainID,
		http:    &http.Client{Timeout: cfg.RequestTimeout.Std()},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1),
		log:     log.With().Str("provider", "merkl").Logger(),
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "merkl",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return c
}

type opportunity struct {
	Identifier string  `json:"identifier"`
	Status     string  `json:"status"`
	APR        float64 `json:"apr"` // percentage, e.g. 2.5 for 2.5%
}

// ComparativeYield returns the live campaign APY for a vault as a fraction
// (0.02 for 2%). Vaults without a live campaign return 0 without error.
func (c *Client) ComparativeYield(ctx context.Context, vaultAddress string) (float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	url := fmt.Sprintf("%s/opportunities?chainId=%d&identifier=%s", c.baseURL, c.chainID, strings.ToLower(vaultAddress))
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, url)
	})
	if err != nil {
		c.log.Error().Err(err).Str("vault", vaultAddress).Msg("comparative yield fetch failed")
		return 0, fmt.Errorf("merkl: fetch %s: %w", vaultAddress, err)
	}

	total := 0.0
	for _, opp := range result.([]opportunity) {
		if strings.EqualFold(opp.Status, "LIVE") {
			total += opp.APR / 100
		}
	}
	c.log.Debug().Str("vault", vaultAddress).Float64("apy", total).Msg("comparative yield")
	return total, nil
}

func (c *Client) fetch(ctx context.Context, url string) ([]opportunity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}
	var opps []opportunity
	if err := json.NewDecoder(resp.Body).Decode(&opps); err != nil {
		return nil, err
	}
	return opps, nil
}
