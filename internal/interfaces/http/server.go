// Package http serves evaluated cluster reports to the rendering front end.
// The server is read-only: every request triggers a fresh evaluation pass
// with explicit inputs, so no computation state survives between calls.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/vaultrun/vaultrun/internal/application"
	"github.com/vaultrun/vaultrun/internal/config"
)

// ClusterResolver maps a preset name to its loaded cluster config.
type ClusterResolver func(name string) (*config.Cluster, error)

// ServerConfig holds listener settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig binds locally; the front end runs on the same host.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "127.0.0.1",
		Port:         8080,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server exposes cluster evaluations over JSON.
type Server struct {
	router   *mux.Router
	server   *http.Server
	pipeline *application.Pipeline
	clusters ClusterResolver
}

// NewServer wires routes onto a pipeline.
func NewServer(cfg ServerConfig, pipeline *application.Pipeline, clusters ClusterResolver) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		pipeline: pipeline,
		clusters: clusters,
	}
	s.routes()
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/cluster/{name}/scenarios", s.handleScenarios).Methods(http.MethodGet)
	s.router.HandleFunc("/cluster/{name}/strategies", s.handleStrategies).Methods(http.MethodGet)
	s.router.HandleFunc("/cluster/{name}/heatmap", s.handleHeatmap).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe blocks until the context is cancelled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.server.Addr).Msg("http server listening")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) evaluate(r *http.Request) (*application.ClusterReport, int, error) {
	name := mux.Vars(r)["name"]
	cluster, err := s.clusters(name)
	if err != nil {
		return nil, http.StatusNotFound, fmt.Errorf("unknown cluster %q: %w", name, err)
	}
	report, err := s.pipeline.EvaluateCluster(r.Context(), cluster)
	if err != nil {
		return nil, http.StatusBadGateway, err
	}
	return report, http.StatusOK, nil
}

func (s *Server) handleScenarios(w http.ResponseWriter, r *http.Request) {
	report, status, err := s.evaluate(r)
	if err != nil {
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Cluster     string                     `json:"cluster"`
		GeneratedAt time.Time                  `json:"generated_at"`
		Vaults      []application.VaultReport  `json:"vaults"`
		Failures    []application.VaultFailure `json:"failures,omitempty"`
	}{report.Cluster, report.GeneratedAt, report.Vaults, report.Failures})
}

func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	report, status, err := s.evaluate(r)
	if err != nil {
		writeError(w, status, err)
		return
	}
	// Summary only: the heatmap endpoint carries the surfaces.
	type summary struct {
		Name         string  `json:"name"`
		BorrowLTV    float64 `json:"borrow_ltv"`
		MaxLeverage  float64 `json:"max_leverage"`
		CurrentYield float64 `json:"current_yield"`
		CapsYield    float64 `json:"caps_yield"`
	}
	out := struct {
		Cluster     string                          `json:"cluster"`
		Strategies  []summary                       `json:"strategies"`
		SingleSided []application.SingleSidedReport `json:"single_sided"`
	}{Cluster: report.Cluster, SingleSided: report.SingleSided}
	for _, sr := range report.Strategies {
		out.Strategies = append(out.Strategies, summary{
			Name:         sr.Name,
			BorrowLTV:    sr.BorrowLTV,
			MaxLeverage:  sr.MaxLeverage,
			CurrentYield: sr.CurrentYield,
			CapsYield:    sr.CapsYield,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	report, status, err := s.evaluate(r)
	if err != nil {
		writeError(w, status, err)
		return
	}
	name := r.URL.Query().Get("strategy")
	for _, sr := range report.Strategies {
		if name == "" || sr.Name == name {
			writeJSON(w, http.StatusOK, sr)
			return
		}
	}
	writeError(w, http.StatusNotFound, fmt.Errorf("no strategy %q in cluster %s", name, report.Cluster))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("response encode failed")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
