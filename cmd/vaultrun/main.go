package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vaultrun/vaultrun/internal/application"
	"github.com/vaultrun/vaultrun/internal/config"
	"github.com/vaultrun/vaultrun/internal/data"
	httpserver "github.com/vaultrun/vaultrun/internal/interfaces/http"
	"github.com/vaultrun/vaultrun/internal/providers/lens"
	"github.com/vaultrun/vaultrun/internal/providers/merkl"
	"github.com/vaultrun/vaultrun/internal/report"
)

const (
	appName = "vaultrun"
	version = "v1.1.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	var runtimePath string

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Size lending-vault clusters by projecting yields across market states",
		Version: version,
		Long: `vaultrun evaluates lending-vault clusters: it fetches on-chain balances,
caps and rate-model parameters, projects the four canonical scenarios
(current, current at caps, end, end at caps), and computes leveraged and
single-sided strategy yields with utilization sensitivity heatmaps.`,
	}
	rootCmd.PersistentFlags().StringVar(&runtimePath, "runtime", "", "runtime config file (RPC endpoint, cache, providers)")

	ratesCmd := &cobra.Command{
		Use:   "rates <cluster.yaml>",
		Short: "Print the four-scenario rate table for a cluster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := evaluate(cmd.Context(), runtimePath, args[0])
			if err != nil {
				return err
			}
			return report.WriteScenarioTable(os.Stdout, rep)
		},
	}

	strategiesCmd := &cobra.Command{
		Use:   "strategies <cluster.yaml>",
		Short: "Print leveraged and single-sided strategy summaries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := evaluate(cmd.Context(), runtimePath, args[0])
			if err != nil {
				return err
			}
			return report.WriteStrategyTable(os.Stdout, rep)
		},
	}

	var strategyName string
	heatmapCmd := &cobra.Command{
		Use:   "heatmap <cluster.yaml>",
		Short: "Emit a strategy's utilization sensitivity grid as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := evaluate(cmd.Context(), runtimePath, args[0])
			if err != nil {
				return err
			}
			for _, sr := range rep.Strategies {
				if strategyName == "" || sr.Name == strategyName {
					return report.WriteGridCSV(os.Stdout, sr.Heatmap)
				}
			}
			return fmt.Errorf("no strategy %q in cluster %s", strategyName, rep.Cluster)
		},
	}
	heatmapCmd.Flags().StringVar(&strategyName, "strategy", "", "strategy name (default: first in the cluster)")

	var clusterDir string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve cluster evaluations as a read-only JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), runtimePath, clusterDir)
		},
	}
	serveCmd.Flags().StringVar(&clusterDir, "clusters", "presets", "directory of cluster preset files")

	rootCmd.AddCommand(ratesCmd, strategiesCmd, heatmapCmd, serveCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// buildPipeline assembles providers and cache from the runtime config.
func buildPipeline(ctx context.Context, runtimePath string) (*application.Pipeline, error) {
	rc, err := config.LoadRuntime(runtimePath)
	if err != nil {
		return nil, err
	}
	if rc.RPCURL == "" {
		return nil, fmt.Errorf("no RPC endpoint: set rpc_url in the runtime config or RPC_URL in the environment")
	}

	lensClient, err := lens.Dial(ctx, rc.RPCURL, rc.Lens)
	if err != nil {
		return nil, err
	}

	var cache application.SnapshotCache
	if rc.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: rc.Redis.Addr, DB: rc.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", rc.Redis.Addr).Msg("redis unreachable, running uncached")
		} else {
			cache = data.NewSnapshotCache(rdb, rc.Redis.DefaultTTL.Std())
		}
	}

	return application.NewPipeline(lensClient, merkl.NewClient(rc.Merkl), cache), nil
}

func evaluate(ctx context.Context, runtimePath, clusterPath string) (*application.ClusterReport, error) {
	cluster, err := config.LoadCluster(clusterPath)
	if err != nil {
		return nil, err
	}
	pipeline, err := buildPipeline(ctx, runtimePath)
	if err != nil {
		return nil, err
	}
	return pipeline.EvaluateCluster(ctx, cluster)
}

func serve(ctx context.Context, runtimePath, clusterDir string) error {
	rc, err := config.LoadRuntime(runtimePath)
	if err != nil {
		return err
	}
	pipeline, err := buildPipeline(ctx, runtimePath)
	if err != nil {
		return err
	}

	resolver := func(name string) (*config.Cluster, error) {
		return config.LoadCluster(fmt.Sprintf("%s/%s.yaml", clusterDir, name))
	}

	cfg := httpserver.DefaultServerConfig()
	if rc.HTTP.Host != "" {
		cfg.Host = rc.HTTP.Host
	}
	if rc.HTTP.Port != 0 {
		cfg.Port = rc.HTTP.Port
	}

	log.Info().Str("clusters", clusterDir).Msg("starting API server")
	return httpserver.NewServer(cfg, pipeline, resolver).ListenAndServe(ctx)
}
