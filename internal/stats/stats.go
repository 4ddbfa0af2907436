// Package stats computes post-run descriptive statistics and technical
// indicator overlays over a completed simulation's price history, read
// back from the persisted transactions table.
package stats

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

// MarketSummary summarizes one market's price series across an entire run.
type MarketSummary struct {
	State         int
	NumTrades     int
	MeanPrice     float64
	StdDevPrice   float64
	MinPrice      float64
	MaxPrice      float64
	SMA5          []float64 // 5-period simple moving average over the price series
}

// RunSummary is the aggregate report for one run, addressed by run id.
type RunSummary struct {
	RunID          string
	NumPeriods     int
	NumTrades      int
	PriceCorrelation map[string]float64 // "state_a-state_b" -> Pearson correlation
	Markets        []MarketSummary
}

// Summarize reads a run's transactions from db and computes a RunSummary.
func Summarize(db *sql.DB, runID string) (*RunSummary, error) {
	rows, err := db.Query(`SELECT state, price FROM transactions WHERE run_id = ? ORDER BY state, period, iteration, tx_idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("stats: query transactions: %w", err)
	}
	defer rows.Close()

	series := map[int][]float64{}
	total := 0
	for rows.Next() {
		var state int
		var price float64
		if err := rows.Scan(&state, &price); err != nil {
			return nil, fmt.Errorf("stats: scan transaction: %w", err)
		}
		series[state] = append(series[state], price)
		total++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stats: iterate transactions: %w", err)
	}

	var periods int
	if err := db.QueryRow(`SELECT COUNT(DISTINCT period) FROM realizations WHERE run_id = ?`, runID).Scan(&periods); err != nil {
		return nil, fmt.Errorf("stats: count periods: %w", err)
	}

	states := make([]int, 0, len(series))
	for s := range series {
		states = append(states, s)
	}
	sort.Ints(states)

	summary := &RunSummary{
		RunID:            runID,
		NumPeriods:       periods,
		NumTrades:        total,
		PriceCorrelation: map[string]float64{},
		Markets:          make([]MarketSummary, 0, len(states)),
	}

	for _, s := range states {
		prices := series[s]
		ms := MarketSummary{State: s, NumTrades: len(prices)}
		if len(prices) > 0 {
			ms.MeanPrice = stat.Mean(prices, nil)
			ms.StdDevPrice = stat.StdDev(prices, nil)
			ms.MinPrice, ms.MaxPrice = minMax(prices)
			if len(prices) >= 5 {
				ms.SMA5 = talib.Sma(prices, 5)
			}
		}
		summary.Markets = append(summary.Markets, ms)
	}

	for i, a := range states {
		for _, b := range states[i+1:] {
			pa, pb := series[a], series[b]
			n := len(pa)
			if len(pb) < n {
				n = len(pb)
			}
			if n < 2 {
				continue
			}
			corr := stat.Correlation(pa[:n], pb[:n], nil)
			summary.PriceCorrelation[fmt.Sprintf("%d-%d", a, b)] = corr
		}
	}

	return summary, nil
}

func minMax(xs []float64) (float64, float64) {
	min, max := xs[0], xs[0]
	for _, x := range xs[1:] {
		if x < min {
			min = x
		}
		if x > max {
			max = x
		}
	}
	return min, max
}
