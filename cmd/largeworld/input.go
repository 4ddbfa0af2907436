package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var inputOutFile string

func init() {
	inputCmd.Flags().StringVarP(&inputOutFile, "out", "o", "input.txt", "Path to write the generated input file")
}

var inputCmd = &cobra.Command{
	Use:   "input",
	Short: "Interactively collect a Configuration and write it to an input file",
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := bufio.NewReader(os.Stdin)
		fields := []string{
			"N", "S", "E", "K", "num_periods", "i", "r",
			"market_type", "phi", "rep_flag", "rep_threshold",
			"alpha", "beta", "epsilon", "rho", "p_max",
			"fix_num_states", "by_midpoint", "pick_agent_first", "use_backlog", "is_custom",
			"num_trader_types", "file_name",
		}

		var lines []string
		for _, f := range fields {
			fmt.Printf("%s: ", f)
			line, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("input: read %s: %w", f, err)
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s:%s", f, line))
		}

		out, err := os.Create(inputOutFile)
		if err != nil {
			return fmt.Errorf("input: create %s: %w", inputOutFile, err)
		}
		defer out.Close()
		for _, l := range lines {
			if _, err := fmt.Fprintln(out, l); err != nil {
				return fmt.Errorf("input: write %s: %w", inputOutFile, err)
			}
		}

		fmt.Printf("wrote %s\n", inputOutFile)
		return nil
	},
}
