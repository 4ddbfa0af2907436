package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nullstate/largeworld/internal/config"
	"github.com/nullstate/largeworld/internal/database"
	"github.com/nullstate/largeworld/internal/engine"
	"github.com/nullstate/largeworld/internal/events"
	"github.com/nullstate/largeworld/internal/rng"
	"github.com/nullstate/largeworld/internal/stats"
)

// submitRequest is the body of POST /api/runs: the simulation's input file
// content, as produced by `largeworld input` or the name:value format
// documented for Configuration.
type submitRequest struct {
	InputBody string `json:"input_body"`
}

type submitResponse struct {
	RunID  string `json:"run_id"`
	DBPath string `json:"db_path"`
}

// RunHandlers exposes submission and stats retrieval for simulation runs.
type RunHandlers struct {
	bus *events.Bus
	cfg *config.ServiceConfig
	log zerolog.Logger
}

// NewRunHandlers creates a RunHandlers bound to the service's data directory.
func NewRunHandlers(bus *events.Bus, cfg *config.ServiceConfig, log zerolog.Logger) *RunHandlers {
	return &RunHandlers{bus: bus, cfg: cfg, log: log.With().Str("component", "run_handlers").Logger()}
}

// HandleSubmit accepts an input file body, starts the run in the background,
// and immediately returns its run id and database path.
func (h *RunHandlers) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("decode request: %s", err), http.StatusBadRequest)
		return
	}
	if req.InputBody == "" {
		http.Error(w, "input_body is required", http.StatusBadRequest)
		return
	}

	runID := uuid.NewString()
	inputPath := filepath.Join(h.cfg.DataDir, runID+".input.txt")
	if err := os.WriteFile(inputPath, []byte(req.InputBody), 0644); err != nil {
		http.Error(w, fmt.Sprintf("stage input file: %s", err), http.StatusInternalServerError)
		return
	}

	cfg, err := config.LoadFromFile(inputPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid configuration: %s", err), http.StatusBadRequest)
		return
	}

	dbPath := filepath.Join(h.cfg.DataDir, runID+".db")
	db, err := database.New(database.Config{Path: dbPath, Profile: database.ProfileLedger, Name: "simulation"})
	if err != nil {
		http.Error(w, fmt.Sprintf("open database: %s", err), http.StatusInternalServerError)
		return
	}
	if err := db.Migrate(); err != nil {
		http.Error(w, fmt.Sprintf("migrate database: %s", err), http.StatusInternalServerError)
		return
	}
	if err := db.QuickCheck(r.Context()); err != nil {
		http.Error(w, fmt.Sprintf("database not reachable after migration: %s", err), http.StatusInternalServerError)
		return
	}

	sink := database.NewSQLiteSink(db)
	sim, err := engine.New(cfg, rng.FreshSeed(), sink, h.bus, runID)
	if err != nil {
		http.Error(w, fmt.Sprintf("construct simulation: %s", err), http.StatusBadRequest)
		return
	}

	go func() {
		if err := sim.Run(); err != nil {
			h.log.Error().Err(err).Str("run_id", runID).Msg("run failed")
		}
	}()

	writeJSON(w, http.StatusAccepted, submitResponse{RunID: runID, DBPath: dbPath})
}

// statsResponse wraps a run's statistical summary with the underlying
// database's file-level footprint.
type statsResponse struct {
	*stats.RunSummary
	DBStats *database.Stats `json:"db_stats,omitempty"`
}

// HandleStats opens a completed run's database and returns its summary.
func (h *RunHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	dbPath := filepath.Join(h.cfg.DataDir, runID+".db")
	if _, err := os.Stat(dbPath); err != nil {
		http.Error(w, fmt.Sprintf("run %s not found: %s", runID, err), http.StatusNotFound)
		return
	}

	db, err := database.New(database.Config{Path: dbPath, Profile: database.ProfileStandard, Name: "simulation"})
	if err != nil {
		http.Error(w, fmt.Sprintf("open database: %s", err), http.StatusNotFound)
		return
	}
	defer db.Close()

	if err := db.HealthCheck(r.Context()); err != nil {
		http.Error(w, fmt.Sprintf("database integrity check failed: %s", err), http.StatusInternalServerError)
		return
	}

	summary, err := stats.Summarize(db.Conn(), runID)
	if err != nil {
		http.Error(w, fmt.Sprintf("summarize run: %s", err), http.StatusInternalServerError)
		return
	}

	dbStats, err := db.GetStats()
	if err != nil {
		h.log.Warn().Err(err).Str("run_id", runID).Msg("failed to read database stats")
	}

	writeJSON(w, http.StatusOK, statsResponse{RunSummary: summary, DBStats: dbStats})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
