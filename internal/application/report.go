package application

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vaultrun/vaultrun/internal/config"
	"github.com/vaultrun/vaultrun/internal/domain/grid"
	"github.com/vaultrun/vaultrun/internal/domain/scenario"
	"github.com/vaultrun/vaultrun/internal/domain/strategy"
	"github.com/vaultrun/vaultrun/internal/domain/vault"
	"github.com/vaultrun/vaultrun/internal/metrics"
)

// ClusterReport is the full output of one evaluation pass: the three
// structures the presentation side consumes, plus per-vault failures.
type ClusterReport struct {
	Cluster     string              `json:"cluster"`
	GeneratedAt time.Time           `json:"generated_at"`
	Vaults      []VaultReport       `json:"vaults"`
	Strategies  []StrategyReport    `json:"strategies"`
	SingleSided []SingleSidedReport `json:"single_sided"`
	Failures    []VaultFailure      `json:"failures,omitempty"`
}

// VaultReport pairs a vault with its four scenario valuations.
type VaultReport struct {
	Vault     *vault.State       `json:"vault"`
	Scenarios [4]scenario.Result `json:"scenarios"`
}

// StrategyReport summarizes one leveraged pair and its sensitivity surfaces.
type StrategyReport struct {
	Name           string     `json:"name"`
	Debt           string     `json:"debt"`
	Collateral     string     `json:"collateral"`
	BorrowLTV      float64    `json:"borrow_ltv"`
	LiquidationLTV float64    `json:"liquidation_ltv"`
	MaxLeverage    float64    `json:"max_leverage"`
	CurrentYield   float64    `json:"current_yield"`
	CapsYield      float64    `json:"caps_yield"`
	Heatmap        *grid.Grid `json:"heatmap,omitempty"`
	LTVCurve       *grid.Grid `json:"ltv_curve,omitempty"`
}

// SingleSidedReport is the no-leverage baseline for one vault.
type SingleSidedReport struct {
	Vault   string          `json:"vault"`
	Symbol  string          `json:"symbol"`
	Current strategy.Result `json:"current"`
	AtCaps  strategy.Result `json:"at_caps"`
}

// VaultFailure records a vault excluded from a pass by a structural error.
type VaultFailure struct {
	Address string `json:"address"`
	Reason  string `json:"reason"`
}

// EvaluateCluster runs one full pass: fetch, validate, evaluate scenarios,
// compute strategies, sweep grids. Strategies touching a failed vault are
// skipped; everything else proceeds.
func (p *Pipeline) EvaluateCluster(ctx context.Context, cluster *config.Cluster) (*ClusterReport, error) {
	start := time.Now()
	states, failures, err := p.loadCluster(ctx, cluster)
	if err != nil {
		return nil, err
	}

	report := &ClusterReport{
		Cluster:     cluster.Name,
		GeneratedAt: time.Now().UTC(),
		Failures:    failures,
	}

	for _, preset := range cluster.Vaults {
		v, ok := states[preset.Address]
		if !ok {
			continue
		}
		report.Vaults = append(report.Vaults, VaultReport{
			Vault:     v,
			Scenarios: scenario.Evaluate(v, preset.Assumptions),
		})
	}

	for _, sp := range cluster.Strategies {
		debt, okD := states[sp.Debt]
		coll, okC := states[sp.Collateral]
		if !okD || !okC {
			log.Warn().Str("debt", sp.Debt).Str("collateral", sp.Collateral).
				Msg("skipping strategy over excluded vault")
			continue
		}
		sr, err := p.evaluateStrategy(ctx, sp, debt, coll, cluster.Grid.Steps)
		if err != nil {
			return nil, err
		}
		report.Strategies = append(report.Strategies, sr)
	}

	for _, addr := range cluster.SingleSided {
		v, ok := states[addr]
		if !ok {
			continue
		}
		scenarios := scenario.Evaluate(v, assumptionsFor(cluster, addr))
		report.SingleSided = append(report.SingleSided, SingleSidedReport{
			Vault:   addr,
			Symbol:  v.Symbol,
			Current: strategy.ComputeSingleSided(scenarios[0], v.ComparativeYield),
			AtCaps:  strategy.ComputeSingleSided(scenarios[1], v.ComparativeYield),
		})
	}

	metrics.ObserveEvaluation(time.Since(start))
	log.Info().
		Str("cluster", cluster.Name).
		Int("vaults", len(report.Vaults)).
		Int("strategies", len(report.Strategies)).
		Int("failures", len(report.Failures)).
		Dur("duration", time.Since(start)).
		Msg("cluster evaluation complete")
	return report, nil
}

func (p *Pipeline) evaluateStrategy(ctx context.Context, sp config.StrategyPreset, debt, coll *vault.State, steps int) (StrategyReport, error) {
	pair := strategy.Pair{
		Debt:           debt,
		Collateral:     coll,
		BorrowLTV:      sp.BorrowLTV,
		LiquidationLTV: sp.LiquidationLTV,
	}

	current, err := pair.CurrentYield()
	if err != nil {
		return StrategyReport{}, err
	}
	caps, err := pair.CapsYield()
	if err != nil {
		return StrategyReport{}, err
	}

	// Utilization heatmap: debt utilization as rows, collateral as columns.
	heatmap, err := grid.BuildParallel(ctx,
		grid.Axis{Name: "debt_utilization", Kind: grid.KindUtilization, Min: 0, Max: 1, Steps: steps},
		grid.Axis{Name: "collateral_utilization", Kind: grid.KindUtilization, Min: 0, Max: 1, Steps: steps},
		pair.YieldAt,
	)
	if err != nil {
		return StrategyReport{}, err
	}
	metrics.AddGridCells(steps * steps)

	// Yield against LTV at live utilizations, to show where extra leverage
	// stops paying.
	ltvCurve, err := grid.BuildLine(
		grid.Axis{Name: "borrow_ltv", Kind: grid.KindLTV, Min: 0, Max: 0.95, Steps: 20},
		func(ltv float64) (float64, error) {
			swept := pair
			swept.BorrowLTV = ltv
			return swept.CurrentYield()
		},
	)
	if err != nil {
		return StrategyReport{}, err
	}

	return StrategyReport{
		Name:           pair.Name(),
		Debt:           sp.Debt,
		Collateral:     sp.Collateral,
		BorrowLTV:      sp.BorrowLTV,
		LiquidationLTV: sp.LiquidationLTV,
		MaxLeverage:    strategy.MaxLeverage(sp.BorrowLTV),
		CurrentYield:   current,
		CapsYield:      caps,
		Heatmap:        heatmap,
		LTVCurve:       ltvCurve,
	}, nil
}
