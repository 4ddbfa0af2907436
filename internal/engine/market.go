package engine

import "github.com/nullstate/largeworld/internal/domain"

// Registry resolves agent ids for markets, replacing the source's
// back-references from Market to Agent with a single non-owning lookup.
type Registry interface {
	Agent(id int) *Agent
}

// order is a resting bid or ask.
type order struct {
	price   float64
	agentID int
	time    int
	exists  bool
}

// Market runs the continuous double auction for one state id: exactly one
// best bid and one best ask at a time.
type Market struct {
	StateID int
	Reserve []int // agent ids holding this state, fixed at construction

	bestBid order
	bestAsk order

	priceHistory    []float64
	pattern         []int
	minPrice        float64
	numTransactions int
	periodNum       int
	latestPrice     float64
	hasPrice        bool

	reg    Registry
	params *IntelParams

	lastTransaction domain.TransactionRecord
}

// NewMarket constructs a Market for stateID with the given participant
// reserve (fixed for the life of the run).
func NewMarket(stateID int, reserve []int, reg Registry, params *IntelParams) *Market {
	return &Market{
		StateID:  stateID,
		Reserve:  reserve,
		reg:      reg,
		params:   params,
		bestAsk:  order{price: 1},
		minPrice: 1,
	}
}

// PeriodReset resets the book and all period-scoped fields, and advances
// the period counter. Calling it twice in a row leaves the same state as
// calling it once, except that the period counter advances on every call.
func (m *Market) PeriodReset() {
	m.bestBid = order{}
	m.bestAsk = order{price: 1, exists: false}
	m.priceHistory = m.priceHistory[:0]
	m.pattern = m.pattern[:0]
	m.minPrice = 1
	m.numTransactions = 0
	m.latestPrice = 0
	m.hasPrice = false
	m.periodNum++
}

// NumTransactions reports how many clears have occurred this period.
func (m *Market) NumTransactions() int { return m.numTransactions }

// BestBid reports the current best bid price and whether one exists.
func (m *Market) BestBid() (float64, bool) { return m.bestBid.price, m.bestBid.exists }

// BestAsk reports the current best ask price and whether one exists.
func (m *Market) BestAsk() (float64, bool) { return m.bestAsk.price, m.bestAsk.exists }

// LatestPrice reports this market's own most recent clear price this period.
func (m *Market) LatestPrice() (float64, bool) { return m.latestPrice, m.hasPrice }

// MinPrice reports the lowest clear price seen this period (starts at 1).
func (m *Market) MinPrice() float64 { return m.minPrice }

// UpdateBidder replaces the best bid if price beats (or none exists), then
// attempts a clear.
func (m *Market) UpdateBidder(price float64, agentID, t int) (float64, bool) {
	if !m.bestBid.exists || price > m.bestBid.price {
		m.bestBid = order{price: price, agentID: agentID, time: t, exists: true}
	}
	return m.TryClear(t)
}

// UpdateAsker replaces the best ask if price beats (or none exists), then
// attempts a clear. holdingAmount must be > 0 for the order to be accepted.
func (m *Market) UpdateAsker(price float64, agentID, t int, holdingAmount int) (float64, bool) {
	if holdingAmount <= 0 {
		return 0, false
	}
	if !m.bestAsk.exists || price < m.bestAsk.price {
		m.bestAsk = order{price: price, agentID: agentID, time: t, exists: true}
	}
	return m.TryClear(t)
}

// replaceBid updates the best bid without attempting a clear, used by the
// semi-synchronous discipline where every agent quotes before any market
// clears (clearing happens only inside TableMarketMake).
func (m *Market) replaceBid(price float64, agentID, t int) {
	if !m.bestBid.exists || price > m.bestBid.price {
		m.bestBid = order{price: price, agentID: agentID, time: t, exists: true}
	}
}

// replaceAsk updates the best ask without attempting a clear; see replaceBid.
func (m *Market) replaceAsk(price float64, agentID, t int) {
	if !m.bestAsk.exists || price < m.bestAsk.price {
		m.bestAsk = order{price: price, agentID: agentID, time: t, exists: true}
	}
}

// TryClear performs a clear when a best bid and best ask both exist, belong
// to different agents, and bid >= ask.
func (m *Market) TryClear(t int) (float64, bool) {
	if !m.bestBid.exists || !m.bestAsk.exists {
		return 0, false
	}
	if m.bestBid.agentID == m.bestAsk.agentID {
		return 0, false
	}
	if m.bestBid.price < m.bestAsk.price {
		return 0, false
	}
	return m.clear(t), true
}

func (m *Market) clear(t int) float64 {
	bid, ask := m.bestBid, m.bestAsk

	var price float64
	if m.params.ByMidpoint {
		price = (bid.price + ask.price) / 2
	} else if bid.time <= ask.time {
		price = bid.price
	} else {
		price = ask.price
	}

	buyer := m.reg.Agent(bid.agentID)
	seller := m.reg.Agent(ask.agentID)
	buyerHolding := buyer.Holdings[m.StateID]
	sellerHolding := seller.Holdings[m.StateID]

	buyerAspirationBefore := buyerHolding.Aspiration
	sellerAspirationBefore := sellerHolding.Aspiration

	seller.BalanceAdd(price)
	buyer.BalanceAdd(-price)
	sellerHolding.AmountAdd(-1)
	buyerHolding.AmountAdd(1)

	action := 0
	if bid.time > ask.time {
		action = 1
	}

	m.numTransactions++
	rec := domain.TransactionRecord{
		Period:           m.periodNum,
		Iteration:        t,
		State:            m.StateID,
		TxIndex:          m.numTransactions,
		Buyer:            bid.agentID,
		Seller:           ask.agentID,
		Price:            price,
		Action:           action,
		Bid:              bid.price,
		BuyerAspiration:  buyerAspirationBefore,
		Ask:              ask.price,
		SellerAspiration: sellerAspirationBefore,
		Spread:           bid.price - ask.price,
	}

	if price < m.minPrice {
		m.minPrice = price
	}

	sgn := 0
	if len(m.priceHistory) > 0 {
		sgn = sign(m.priceHistory[len(m.priceHistory)-1], price)
	}
	m.priceHistory = append(m.priceHistory, price)
	m.pattern = append(m.pattern, sgn)
	m.latestPrice = price
	m.hasPrice = true

	pat := DetectPattern(m.params.Rep.Phi, m.pattern)
	m.applyPostClearUpdates(price, pat)

	m.bestBid = order{}
	m.bestAsk = order{price: 1}

	m.lastTransaction = rec
	return price
}

// LastTransaction returns the record produced by the most recent clear,
// read by the driver to append it to the persistence sink — the market
// itself holds no sink reference, keeping it independently testable.
func (m *Market) LastTransaction() domain.TransactionRecord {
	return m.lastTransaction
}

func (m *Market) applyPostClearUpdates(price float64, pat PatternResult) {
	for _, agentID := range m.Reserve {
		a := m.reg.Agent(agentID)
		if a.NotInfo[m.StateID] {
			continue
		}
		h := a.Holdings[m.StateID]
		h.Aspiration = PriceAnchorAdjust(m.params.Alpha, price, h.Aspiration)
		ApplyRepresentativeness(m.params.Rep, a, m.StateID, pat)
	}
}
