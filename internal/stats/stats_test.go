package stats_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nullstate/largeworld/internal/database"
	"github.com/nullstate/largeworld/internal/domain"
	dbtesting "github.com/nullstate/largeworld/internal/testing"
	"github.com/nullstate/largeworld/internal/stats"
)

func seedRun(t *testing.T, db *database.DB, runID string) {
	t.Helper()
	sink := database.NewSQLiteSink(db)
	require.NoError(t, sink.Open(runID, "input.txt", "{}"))

	prices := map[int][]float64{
		0: {10, 11, 9, 10.5, 10.2, 10.8},
		1: {5, 5.2, 4.9, 5.1},
	}
	for state, ps := range prices {
		for i, p := range ps {
			require.NoError(t, sink.AppendTransaction(domain.TransactionRecord{
				Period: 1, Iteration: i, State: state, TxIndex: i + 1, Buyer: 0, Seller: 1, Price: p,
			}))
		}
	}
	require.NoError(t, sink.AppendRealization(domain.RealizationRecord{Period: 1, State: 0, Realized: true}))
	require.NoError(t, sink.AppendRealization(domain.RealizationRecord{Period: 1, State: 1, Realized: true}))
	require.NoError(t, sink.Complete())
}

func TestSummarizeComputesPerMarketStats(t *testing.T) {
	db, cleanup := dbtesting.NewTestDB(t, "stats")
	defer cleanup()
	seedRun(t, db, "run-stats")

	summary, err := stats.Summarize(db.Conn(), "run-stats")
	require.NoError(t, err)

	assert.Equal(t, "run-stats", summary.RunID)
	assert.Equal(t, 1, summary.NumPeriods)
	assert.Equal(t, 10, summary.NumTrades)
	require.Len(t, summary.Markets, 2)

	var state0 stats.MarketSummary
	for _, m := range summary.Markets {
		if m.State == 0 {
			state0 = m
		}
	}
	assert.Equal(t, 6, state0.NumTrades)
	assert.Len(t, state0.SMA5, 6)
	assert.True(t, state0.MinPrice <= state0.MeanPrice)
	assert.True(t, state0.MeanPrice <= state0.MaxPrice)
}

func TestSummarizeComputesCrossMarketCorrelation(t *testing.T) {
	db, cleanup := dbtesting.NewTestDB(t, "stats-corr")
	defer cleanup()
	seedRun(t, db, "run-corr")

	summary, err := stats.Summarize(db.Conn(), "run-corr")
	require.NoError(t, err)

	corr, ok := summary.PriceCorrelation["0-1"]
	assert.True(t, ok)
	assert.True(t, corr >= -1 && corr <= 1)
}

func TestSummarizeEmptyRunHasNoMarkets(t *testing.T) {
	db, cleanup := dbtesting.NewTestDB(t, "stats-empty")
	defer cleanup()

	sink := database.NewSQLiteSink(db)
	require.NoError(t, sink.Open("run-empty", "input.txt", "{}"))
	require.NoError(t, sink.Complete())

	summary, err := stats.Summarize(db.Conn(), "run-empty")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.NumTrades)
	assert.Empty(t, summary.Markets)
	assert.Empty(t, summary.PriceCorrelation)
}
