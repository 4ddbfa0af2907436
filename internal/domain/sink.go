// Package domain holds the types and interfaces shared across the engine,
// persistence, and service layers, kept free of any concrete storage or
// transport dependency so the engine can be tested against a fake sink.
package domain

// TransactionRecord is one row appended to the transactions table at the
// moment a market clears.
type TransactionRecord struct {
	Period            int
	Iteration         int
	State             int
	TxIndex           int
	Buyer             int
	Seller            int
	Price             float64
	Action            int // 1 if the bid arrived later than the ask
	Bid               float64
	BuyerAspiration   float64
	Ask               float64
	SellerAspiration  float64
	Spread            float64
}

// RealizationRecord is one row per state per period recording whether that
// state's dividend paid out.
type RealizationRecord struct {
	Period   int
	State    int
	Realized bool
}

// AgentSnapshot is one row per agent at period end.
type AgentSnapshot struct {
	Period      int
	Agent       int
	NumStates   int
	Balance     float64
	StatesCSV   string
	NotInfoCSV  string
	C           int
}

// SecurityBalanceRecord is one row per (agent, state) at period end.
type SecurityBalanceRecord struct {
	Period   int
	Agent    int
	State    int
	Amount   int
	Dividend float64
	Payout   float64
	Realized bool
}

// AspirationRecord is one row per (agent, state) written at intelligence
// initialization, before any iteration runs.
type AspirationRecord struct {
	Period          int
	Agent           int
	State           int
	C               int
	StartAspiration float64
	IsNotInfo       bool
	IsBacklog       bool
}

// DividendRecord is one row per (agent, state) written once at population
// construction.
type DividendRecord struct {
	Agent      int
	TraderType int
	State      int
	Dividend   float64
}

// PersistenceSink is the abstract tabular appender the Large-World Driver
// writes to. It has one method per table; a run begins with Open and ends
// with Close. An implementation may batch appends internally (SQLiteSink
// holds one transaction per period): Complete makes every batched row
// durable, while Fail discards the batch that is still open.
type PersistenceSink interface {
	Open(runID string, fileName string, configJSON string) error
	AppendTransaction(TransactionRecord) error
	AppendRealization(RealizationRecord) error
	AppendAgentSnapshot(AgentSnapshot) error
	AppendSecurityBalance(SecurityBalanceRecord) error
	AppendAspiration(AspirationRecord) error
	AppendDividend(DividendRecord) error
	Complete() error
	Fail(reason error) error
	Close() error
}

// RandomSource is the single logical randomness stream every draw in the
// engine must go through, so that runs are reproducible under a seed.
type RandomSource interface {
	Float64() float64          // uniform [0,1)
	IntN(n int) int            // uniform [0,n)
	Perm(n int) []int          // random permutation of [0,n)
	Shuffle(n int, swap func(i, j int))
}
