// Command largeworld runs Large-World market simulations from the command
// line: collecting an input file interactively, running one, or summarizing
// a completed run's database.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "largeworld",
	Short: "largeworld runs Large-World agent-based market simulations",
	Long:  "largeworld runs Large-World agent-based market simulations",
}

func init() {
	rootCmd.AddCommand(inputCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(quitCmd)
}

var quitCmd = &cobra.Command{
	Use:   "q",
	Short: "Exit without running anything",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("goodbye")
	},
}
