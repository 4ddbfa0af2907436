package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nullstate/largeworld/internal/config"
	"github.com/nullstate/largeworld/internal/database"
	"github.com/nullstate/largeworld/internal/engine"
	"github.com/nullstate/largeworld/internal/events"
	"github.com/nullstate/largeworld/internal/rng"
	"github.com/nullstate/largeworld/pkg/logger"
)

var runOutDir string

func init() {
	runCmd.Flags().StringVarP(&runOutDir, "out-dir", "o", ".", "Directory to write the run's SQLite database")
}

var runCmd = &cobra.Command{
	Use:   "run <input_file>",
	Short: "Run a simulation from an input file to completion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inputFile := args[0]

		cfg, err := config.LoadFromFile(inputFile)
		if err != nil {
			return fmt.Errorf("run: %w", err)
		}

		runID := uuid.NewString()
		dbPath := filepath.Join(runOutDir, runID+".db")

		db, err := database.New(database.Config{Path: dbPath, Profile: database.ProfileLedger, Name: "simulation"})
		if err != nil {
			return fmt.Errorf("run: open database: %w", err)
		}
		if err := db.Migrate(); err != nil {
			return fmt.Errorf("run: migrate database: %w", err)
		}
		if err := db.QuickCheck(context.Background()); err != nil {
			return fmt.Errorf("run: database not reachable after migration: %w", err)
		}

		log := logger.New(logger.Config{Level: "info", Pretty: true})
		bus := events.NewBus(log)
		bus.Subscribe(events.PeriodCompleted, func(e *events.Event) {
			fmt.Printf("period %v complete\n", e.Data["period"])
		})
		bus.Subscribe(events.RunFailed, func(e *events.Event) {
			fmt.Printf("run failed: %v\n", e.Data["error"])
		})

		sink := database.NewSQLiteSink(db)
		sim, err := engine.New(cfg, rng.FreshSeed(), sink, bus, runID)
		if err != nil {
			return fmt.Errorf("run: construct simulation: %w", err)
		}

		fmt.Printf("run %s started, output %s\n", runID, dbPath)
		if err := sim.Run(); err != nil {
			return fmt.Errorf("run: %w", err)
		}
		fmt.Printf("run %s completed\n", runID)
		return nil
	},
}
