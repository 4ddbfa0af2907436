// Package config provides configuration loading for both a simulation run
// (a typed Configuration parsed from an input file) and the ambient service
// (HTTP port, database path, log level) loaded from environment variables.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// RepFlag selects which representativeness heuristic variant is active.
type RepFlag int

const (
	RepNone RepFlag = iota
	RepVariantOne
	RepVariantTwo
	RepVariantThree
)

// MarketType selects the per-period iteration discipline.
type MarketType int

const (
	MarketContinuous MarketType = 1
	MarketSemiSync   MarketType = 2
)

// Configuration holds every parameter a Large-World simulation run needs.
//
// It is loaded from a name:value input file (see LoadFromFile) rather than
// from the environment: a run's parameters are data, not deployment config.
type Configuration struct {
	N           int // number of agents
	S           int // number of states (securities)
	E           int // per-holding initial endowment
	K           int // states per agent (fix_num_states) or agents per state (fix-worlds)
	NumPeriods  int
	I           int // iterations per period
	R           int // size of the realization set
	MarketType  MarketType
	Phi         int // pattern-detection window
	RepFlag     RepFlag
	RepThreshold int

	Alpha float64 // price anchor-and-adjust weight
	Beta  float64 // dividend anchor-and-adjust weight
	Epsilon float64
	Rho     float64
	PMax    float64 // representativeness variant 3 probability cap

	FixNumStates   bool
	ByMidpoint     bool
	PickAgentFirst bool
	UseBacklog     bool
	IsCustom       bool

	NumTraderTypes   int
	NumTradersByType []int
	// Dividends[t][s] is the payoff of state s for trader type t. Unused
	// when IsCustom is false (every holding then pays dividend 1).
	Dividends [][]float64

	FileName string
}

// Validate enforces the invariants an input Configuration must satisfy
// before a simulation is allowed to start (spec error kind: configuration
// error — reported before any simulation work is done).
func (c *Configuration) Validate() error {
	if c.FixNumStates {
		if c.K > c.S {
			return fmt.Errorf("config: fix_num_states requires K (%d) <= S (%d)", c.K, c.S)
		}
	} else if c.K > c.N {
		return fmt.Errorf("config: fix-worlds requires K (%d) <= N (%d)", c.K, c.N)
	}
	if c.R > c.S {
		return fmt.Errorf("config: r (%d) must be <= S (%d)", c.R, c.S)
	}
	if c.IsCustom {
		if len(c.NumTradersByType) != c.NumTraderTypes {
			return fmt.Errorf("config: num_traders_by_type has %d entries, want num_trader_types %d", len(c.NumTradersByType), c.NumTraderTypes)
		}
		sum := 0
		for _, n := range c.NumTradersByType {
			sum += n
		}
		if sum != c.N {
			return fmt.Errorf("config: sum(num_traders_by_type) = %d, want N = %d", sum, c.N)
		}
		if len(c.Dividends) != c.NumTraderTypes {
			return fmt.Errorf("config: dividends has %d trader-type rows, want %d", len(c.Dividends), c.NumTraderTypes)
		}
		for t, row := range c.Dividends {
			if len(row) != c.S {
				return fmt.Errorf("config: dividends[%d] has %d states, want S=%d", t, len(row), c.S)
			}
		}
	}
	if c.Alpha <= 0 || c.Alpha >= 1 {
		return fmt.Errorf("config: alpha must be in (0,1), got %v", c.Alpha)
	}
	if c.Beta <= 0 || c.Beta >= 1 {
		return fmt.Errorf("config: beta must be in (0,1), got %v", c.Beta)
	}
	if c.Phi < 1 {
		return fmt.Errorf("config: phi must be >= 1, got %d", c.Phi)
	}
	return nil
}

// LoadFromFile parses an input file of "name:value" lines, one per line,
// list-typed values comma-separated, per the external CLI surface's file
// format. Unknown keys are ignored so files stay forward-compatible.
func LoadFromFile(path string) (*Configuration, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open input file: %w", err)
	}
	defer f.Close()

	raw := map[string]string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, ":")
		if idx < 0 {
			return nil, fmt.Errorf("config: malformed input line %q", line)
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		raw[key] = val
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: read input file: %w", err)
	}

	cfg := &Configuration{
		N:            getInt(raw, "N", 0),
		S:            getInt(raw, "S", 0),
		E:            getInt(raw, "E", 0),
		K:            getInt(raw, "K", 0),
		NumPeriods:   getInt(raw, "num_periods", 1),
		I:            getInt(raw, "i", 1),
		R:            getInt(raw, "r", 0),
		MarketType:   MarketType(getInt(raw, "market_type", 1)),
		Phi:          getInt(raw, "phi", 2),
		RepFlag:      RepFlag(getInt(raw, "rep_flag", 0)),
		RepThreshold: getInt(raw, "rep_threshold", 0),

		Alpha:   getFloat(raw, "alpha", 0.5),
		Beta:    getFloat(raw, "beta", 0.5),
		Epsilon: getFloat(raw, "epsilon", 0.1),
		Rho:     getFloat(raw, "rho", 0.5),
		PMax:    getFloat(raw, "p_max", 0.1),

		FixNumStates:   getBool(raw, "fix_num_states", true),
		ByMidpoint:     getBool(raw, "by_midpoint", true),
		PickAgentFirst: getBool(raw, "pick_agent_first", true),
		UseBacklog:     getBool(raw, "use_backlog", false),
		IsCustom:       getBool(raw, "is_custom", false),

		NumTraderTypes: getInt(raw, "num_trader_types", 1),
		FileName:       raw["file_name"],
	}

	if v, ok := raw["num_traders_by_type"]; ok {
		ints, err := parseIntList(v)
		if err != nil {
			return nil, fmt.Errorf("config: num_traders_by_type: %w", err)
		}
		cfg.NumTradersByType = ints
	}

	if cfg.IsCustom {
		div, err := parseDividends(raw, cfg.NumTraderTypes, cfg.S)
		if err != nil {
			return nil, fmt.Errorf("config: dividends: %w", err)
		}
		cfg.Dividends = div
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDividends reads "dividends_0", "dividends_1", ... one comma-separated
// row of length S per trader type.
func parseDividends(raw map[string]string, numTraderTypes, s int) ([][]float64, error) {
	out := make([][]float64, numTraderTypes)
	for t := 0; t < numTraderTypes; t++ {
		key := fmt.Sprintf("dividends_%d", t)
		v, ok := raw[key]
		if !ok {
			return nil, fmt.Errorf("missing %s", key)
		}
		row, err := parseFloatList(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if len(row) != s {
			return nil, fmt.Errorf("%s has %d values, want S=%d", key, len(row), s)
		}
		out[t] = row
	}
	return out, nil
}

func parseIntList(v string) ([]int, error) {
	parts := strings.Split(v, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func parseFloatList(v string) ([]float64, error) {
	parts := strings.Split(v, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func getInt(raw map[string]string, key string, def int) int {
	if v, ok := raw[key]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(raw map[string]string, key string, def float64) float64 {
	if v, ok := raw[key]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBool(raw map[string]string, key string, def bool) bool {
	if v, ok := raw[key]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
