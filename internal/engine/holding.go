package engine

// Holding is a per-(agent,state) record: quantity, current aspiration,
// dividend payoff, and an aspiration backlog keyed on information context.
type Holding struct {
	StateID    int
	Amount     int
	Aspiration float64
	Dividend   float64
	Backlog    map[string]float64
}

// NewHolding creates a Holding with the given endowment and dividend not
// yet assigned (set later by population construction).
func NewHolding(stateID int, endowment int) *Holding {
	return &Holding{
		StateID: stateID,
		Amount:  endowment,
		Backlog: make(map[string]float64),
	}
}

// AmountAdd adjusts the held quantity by x (may be negative).
func (h *Holding) AmountAdd(x int) {
	h.Amount += x
}

// AmountReset zeroes the held quantity, used after dividends are realized.
func (h *Holding) AmountReset() {
	h.Amount = 0
}

// BacklogLookup returns the stored aspiration for the exact not_info key,
// or ok=false if the key has never been written.
func (h *Holding) BacklogLookup(key string) (float64, bool) {
	v, ok := h.Backlog[key]
	return v, ok
}

// BacklogUpdate overwrites the backlog entry under the current not_info key.
func (h *Holding) BacklogUpdate(key string, aspiration float64) {
	h.Backlog[key] = aspiration
}
