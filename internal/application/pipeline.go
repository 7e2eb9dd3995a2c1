// Package application wires the data providers, the snapshot cache, and the
// computation engine into cluster-level evaluation passes. All I/O happens
// here, strictly before any engine math runs.
package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/vaultrun/vaultrun/internal/config"
	"github.com/vaultrun/vaultrun/internal/domain/scenario"
	"github.com/vaultrun/vaultrun/internal/domain/vault"
	"github.com/vaultrun/vaultrun/internal/metrics"
	"github.com/vaultrun/vaultrun/internal/providers/lens"
)

// SnapshotProvider fetches one vault's raw on-chain snapshot.
type SnapshotProvider interface {
	VaultInfo(ctx context.Context, vaultAddress string) (*lens.VaultInfo, error)
}

// YieldProvider fetches one vault's comparative (incentive) APY.
type YieldProvider interface {
	ComparativeYield(ctx context.Context, vaultAddress string) (float64, error)
}

// SnapshotCache sits in front of the SnapshotProvider. A nil cache disables
// caching entirely.
type SnapshotCache interface {
	Get(ctx context.Context, address string) (*lens.VaultInfo, bool)
	Set(ctx context.Context, info *lens.VaultInfo, source string) error
}

// Pipeline turns cluster presets into evaluated reports.
type Pipeline struct {
	snapshots SnapshotProvider
	yields    YieldProvider
	cache     SnapshotCache
}

// NewPipeline assembles a pipeline. yields and cache may be nil; vaults then
// carry no comparative yield and every pass hits the provider.
func NewPipeline(snapshots SnapshotProvider, yields YieldProvider, cache SnapshotCache) *Pipeline {
	return &Pipeline{snapshots: snapshots, yields: yields, cache: cache}
}

// loadVault resolves one preset into a validated vault state.
func (p *Pipeline) loadVault(ctx context.Context, address string) (*vault.State, error) {
	info, ok := p.cachedInfo(ctx, address)
	if !ok {
		fetched, err := p.snapshots.VaultInfo(ctx, address)
		metrics.RecordFetch("lens", err)
		if err != nil {
			return nil, err
		}
		info = fetched
		if p.cache != nil {
			if err := p.cache.Set(ctx, info, "lens"); err != nil {
				log.Warn().Err(err).Str("vault", address).Msg("snapshot cache store failed")
			}
		}
	}

	comparative := 0.0
	if p.yields != nil {
		apy, err := p.yields.ComparativeYield(ctx, address)
		metrics.RecordFetch("merkl", err)
		if err != nil {
			// Missing incentive data degrades to zero rather than
			// blocking the whole evaluation.
			log.Warn().Err(err).Str("vault", address).Msg("comparative yield unavailable, assuming zero")
		} else {
			comparative = apy
		}
	}

	return vault.New(vault.State{
		Address:           info.Address,
		Name:              info.Name,
		Symbol:            info.Symbol,
		TotalSupplyAssets: info.TotalSupplyAssets,
		TotalBorrowAssets: info.TotalBorrowAssets,
		SupplyCap:         info.SupplyCap,
		BorrowCap:         info.BorrowCap,
		IRM:               info.IRM,
		ComparativeYield:  comparative,
	})
}

func (p *Pipeline) cachedInfo(ctx context.Context, address string) (*lens.VaultInfo, bool) {
	if p.cache == nil {
		return nil, false
	}
	info, ok := p.cache.Get(ctx, address)
	metrics.RecordCacheLookup(ok)
	return info, ok
}

// loadCluster fetches every preset vault concurrently. Structurally invalid
// vaults are reported as failures, not fetch errors: stale chain data must
// not take down the vaults that did load.
func (p *Pipeline) loadCluster(ctx context.Context, cluster *config.Cluster) (map[string]*vault.State, []VaultFailure, error) {
	type loaded struct {
		address string
		state   *vault.State
		err     error
	}

	results := make([]loaded, len(cluster.Vaults))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(4)
	for i, preset := range cluster.Vaults {
		i, preset := i, preset
		eg.Go(func() error {
			state, err := p.loadVault(ctx, preset.Address)
			if err != nil {
				var cfgErr *vault.ConfigurationError
				if !errors.As(err, &cfgErr) {
					// Transport failure: the pass cannot proceed.
					return fmt.Errorf("load vault %s: %w", preset.Address, err)
				}
			}
			results[i] = loaded{address: preset.Address, state: state, err: err}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	states := make(map[string]*vault.State, len(results))
	var failures []VaultFailure
	for _, r := range results {
		if r.err != nil {
			log.Warn().Err(r.err).Str("vault", r.address).Msg("vault excluded from evaluation")
			failures = append(failures, VaultFailure{Address: r.address, Reason: r.err.Error()})
			continue
		}
		states[r.address] = r.state
	}
	return states, failures, nil
}

// assumptionsFor finds the preset assumptions for a vault address.
func assumptionsFor(cluster *config.Cluster, address string) scenario.Assumptions {
	for _, v := range cluster.Vaults {
		if v.Address == address {
			return v.Assumptions
		}
	}
	return scenario.Assumptions{}
}
