package engine

import "sort"

// MarketTable maps state id to Market, fans orders to the right market, and
// tracks the last successful clear price across all markets.
type MarketTable struct {
	markets     map[int]*Market
	stateOrder  []int // ascending, fixed at construction — deterministic iteration
	latestPrice float64
	hasPrice    bool
}

// NewMarketTable builds a table over the given markets, one per held state.
func NewMarketTable(markets map[int]*Market) *MarketTable {
	order := make([]int, 0, len(markets))
	for s := range markets {
		order = append(order, s)
	}
	sort.Ints(order)
	return &MarketTable{markets: markets, stateOrder: order}
}

// Market returns the market for a state id, or nil if the state has none.
func (t *MarketTable) Market(stateID int) *Market {
	return t.markets[stateID]
}

// States returns the held state ids in ascending order.
func (t *MarketTable) States() []int {
	return t.stateOrder
}

// LatestPrice returns the most recent successful clear price across every
// market in the current period, or ok=false if none has cleared yet.
func (t *MarketTable) LatestPrice() (float64, bool) {
	return t.latestPrice, t.hasPrice
}

// UpdateBidder dispatches to the market for stateID and records the clear
// price, if any, as the table's latest price.
func (t *MarketTable) UpdateBidder(stateID int, price float64, agentID, time int) (float64, bool) {
	m := t.markets[stateID]
	if m == nil {
		return 0, false
	}
	p, cleared := m.UpdateBidder(price, agentID, time)
	if cleared {
		t.latestPrice, t.hasPrice = p, true
	}
	return p, cleared
}

// UpdateAsker dispatches to the market for stateID and records the clear
// price, if any, as the table's latest price.
func (t *MarketTable) UpdateAsker(stateID int, price float64, agentID, time int, holdingAmount int) (float64, bool) {
	m := t.markets[stateID]
	if m == nil {
		return 0, false
	}
	p, cleared := m.UpdateAsker(price, agentID, time, holdingAmount)
	if cleared {
		t.latestPrice, t.hasPrice = p, true
	}
	return p, cleared
}

// TableMarketMake asks every market, in ascending state-id order, to try a
// clear once — used by market type 2's semi-synchronous discipline.
func (t *MarketTable) TableMarketMake(iteration int) {
	for _, s := range t.stateOrder {
		m := t.markets[s]
		if p, cleared := m.TryClear(iteration); cleared {
			t.latestPrice, t.hasPrice = p, true
		}
	}
}

// GetMarketMinPrice returns the min-price watermark for stateID, used by
// repModuleMike under market type 2.
func (t *MarketTable) GetMarketMinPrice(stateID int) (float64, bool) {
	m := t.markets[stateID]
	if m == nil {
		return 0, false
	}
	return m.MinPrice(), true
}

// TableReset resets every market for a new period and clears the table's
// latest-price memory.
func (t *MarketTable) TableReset() {
	for _, s := range t.stateOrder {
		t.markets[s].PeriodReset()
	}
	t.latestPrice = 0
	t.hasPrice = false
}
