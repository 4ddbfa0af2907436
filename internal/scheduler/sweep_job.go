package scheduler

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/nullstate/largeworld/internal/config"
	"github.com/nullstate/largeworld/internal/database"
	"github.com/nullstate/largeworld/internal/engine"
	"github.com/nullstate/largeworld/internal/events"
	"github.com/nullstate/largeworld/internal/rng"
)

// SweepJob runs one full simulation from an input file, writing its output
// to a fresh SQLite database under dataDir.
type SweepJob struct {
	InputFile string
	DataDir   string
	Bus       *events.Bus
}

// Name identifies the job for logging.
func (j *SweepJob) Name() string {
	return fmt.Sprintf("sweep:%s", filepath.Base(j.InputFile))
}

// Run loads the input file's Configuration, opens a new run database, and
// executes the simulation to completion.
func (j *SweepJob) Run() error {
	cfg, err := config.LoadFromFile(j.InputFile)
	if err != nil {
		return fmt.Errorf("sweep job: load config: %w", err)
	}

	runID := uuid.NewString()
	dbPath := filepath.Join(j.DataDir, runID+".db")

	db, err := database.New(database.Config{Path: dbPath, Profile: database.ProfileLedger, Name: "simulation"})
	if err != nil {
		return fmt.Errorf("sweep job: open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("sweep job: migrate: %w", err)
	}
	if err := db.QuickCheck(context.Background()); err != nil {
		return fmt.Errorf("sweep job: database not reachable after migration: %w", err)
	}

	sink := database.NewSQLiteSink(db)
	sim, err := engine.New(cfg, rng.FreshSeed(), sink, j.Bus, runID)
	if err != nil {
		return fmt.Errorf("sweep job: construct simulation: %w", err)
	}
	return sim.Run()
}
