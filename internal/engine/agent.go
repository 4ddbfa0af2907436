package engine

import "sort"

// Agent is a Small World: an endowed subset of state-contingent securities,
// a cash balance, and the information it has been given for the current
// period (not_info / uncertain).
type Agent struct {
	ID         int
	TraderType int
	Balance    float64

	// Holdings is fixed at construction: one entry per assigned state id.
	Holdings map[int]*Holding

	NotInfo   map[int]bool
	Uncertain map[int]bool
}

// NewAgent constructs an agent with one Holding per assigned state, each
// carrying the given endowment and aspiration 0; dividends are assigned
// separately by population construction.
func NewAgent(id, traderType int, states []int, endowment int) *Agent {
	a := &Agent{
		ID:         id,
		TraderType: traderType,
		Holdings:   make(map[int]*Holding, len(states)),
		NotInfo:    make(map[int]bool),
		Uncertain:  make(map[int]bool),
	}
	for _, s := range states {
		a.Holdings[s] = NewHolding(s, endowment)
	}
	return a
}

// StateIDs returns the agent's held state ids in ascending order.
func (a *Agent) StateIDs() []int {
	ids := make([]int, 0, len(a.Holdings))
	for s := range a.Holdings {
		ids = append(ids, s)
	}
	sort.Ints(ids)
	return ids
}

// SetNotInfo replaces not_info, and recomputes uncertain = held \ not_info.
func (a *Agent) SetNotInfo(notInfo map[int]bool) {
	a.NotInfo = notInfo
	a.Uncertain = make(map[int]bool, len(a.Holdings))
	for s := range a.Holdings {
		if !notInfo[s] {
			a.Uncertain[s] = true
		}
	}
}

// C returns the size of the uncertain set.
func (a *Agent) C() int {
	return len(a.Uncertain)
}

// BalanceAdd adjusts the agent's cash balance by x (may be negative).
func (a *Agent) BalanceAdd(x float64) {
	a.Balance += x
}

// BalanceReset zeroes the agent's cash balance, at period start.
func (a *Agent) BalanceReset() {
	a.Balance = 0
}

// ClosestDividend returns the dividend of the uncertain holding whose
// dividend is closest in absolute value to price, ties broken toward the
// lower state id; ok is false if uncertain is empty.
func (a *Agent) ClosestDividend(price float64) (stateID int, dividend float64, ok bool) {
	ids := a.uncertainSorted()
	if len(ids) == 0 {
		return 0, 0, false
	}
	best := ids[0]
	bestDist := absf(a.Holdings[best].Dividend - price)
	for _, s := range ids[1:] {
		d := absf(a.Holdings[s].Dividend - price)
		if d < bestDist {
			best = s
			bestDist = d
		}
	}
	return best, a.Holdings[best].Dividend, true
}

// RemoveUncertain marks state_id resolved: used by representativeness
// variant 2. Decrements C by removing the state from uncertain.
func (a *Agent) RemoveUncertain(stateID int) {
	delete(a.Uncertain, stateID)
}

func (a *Agent) uncertainSorted() []int {
	ids := make([]int, 0, len(a.Uncertain))
	for s := range a.Uncertain {
		ids = append(ids, s)
	}
	sort.Ints(ids)
	return ids
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
