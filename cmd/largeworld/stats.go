package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nullstate/largeworld/internal/database"
	"github.com/nullstate/largeworld/internal/stats"
)

var statsRunID string

func init() {
	statsCmd.Flags().StringVar(&statsRunID, "run", "", "Run id to summarize (defaults to the only run in the database)")
}

var statsCmd = &cobra.Command{
	Use:   "stats <db>",
	Short: "Summarize a completed run's price history and print it as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath := args[0]

		db, err := database.New(database.Config{Path: dbPath, Profile: database.ProfileStandard, Name: "simulation"})
		if err != nil {
			return fmt.Errorf("stats: open database: %w", err)
		}
		defer db.Close()

		runID := statsRunID
		if runID == "" {
			if err := db.Conn().QueryRow(`SELECT id FROM runs LIMIT 1`).Scan(&runID); err != nil {
				return fmt.Errorf("stats: resolve run id: %w", err)
			}
		}

		summary, err := stats.Summarize(db.Conn(), runID)
		if err != nil {
			return fmt.Errorf("stats: %w", err)
		}

		out, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("stats: encode summary: %w", err)
		}
		fmt.Println(string(out))
		return nil
	},
}
