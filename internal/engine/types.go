// Package engine implements the Large-World market simulation core: per
// security holdings, agents, the continuous double-auction market, the
// market table, the intelligence/representativeness heuristics, and the
// driver that composes them into a period-by-period run.
package engine

import (
	"sort"
	"strconv"
	"strings"

	"github.com/nullstate/largeworld/internal/config"
)

// RepVariant replaces the source's ad-hoc rep_flag int: Kind selects the
// variant, and each variant reads only the fields it uses (the struct
// itself carries every field for every variant).
type RepVariant struct {
	Kind         config.RepFlag
	Epsilon      float64
	Phi          int
	Threshold    int
	PMax         float64
	PreDecrement bool // variant 2 only: apply (C+1)/C before decrementing C
}

// MarketDiscipline is the tagged sum replacing market_type.
type MarketDiscipline struct {
	Continuous     bool // true => market type 1, false => market type 2 (semi-sync)
	PickAgentFirst bool
	Rho            float64
}

// IntelParams bundles every coefficient the intelligence functions and
// market clearing need, built once from a Configuration.
type IntelParams struct {
	Alpha      float64
	Beta       float64
	ByMidpoint bool
	Rep        RepVariant
	Discipline MarketDiscipline
}

// NewIntelParams builds an IntelParams from a validated Configuration.
func NewIntelParams(cfg *config.Configuration) IntelParams {
	return IntelParams{
		Alpha:      cfg.Alpha,
		Beta:       cfg.Beta,
		ByMidpoint: cfg.ByMidpoint,
		Rep: RepVariant{
			Kind:      cfg.RepFlag,
			Epsilon:   cfg.Epsilon,
			Phi:       cfg.Phi,
			Threshold: cfg.RepThreshold,
			PMax:      cfg.PMax,
		},
		Discipline: MarketDiscipline{
			Continuous:     cfg.MarketType == config.MarketContinuous,
			PickAgentFirst: cfg.PickAgentFirst,
			Rho:            cfg.Rho,
		},
	}
}

// CanonicalNotInfoKey produces a stable map key for a not_info set, by
// sorting its state ids before joining them — the design note's fix for
// using an unordered set as a backlog key.
func CanonicalNotInfoKey(notInfo map[int]bool) string {
	ids := make([]int, 0, len(notInfo))
	for id := range notInfo {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
