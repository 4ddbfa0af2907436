package engine

import (
	"fmt"
	"sort"

	"github.com/nullstate/largeworld/internal/config"
	"github.com/nullstate/largeworld/internal/domain"
	"github.com/nullstate/largeworld/internal/events"
	"github.com/nullstate/largeworld/internal/rng"
)

// Simulation is the Large-World Driver: population construction, the
// per-period initialization/iteration/realization pipeline, and the single
// owner of every Agent and Market for the life of a run.
type Simulation struct {
	cfg    *config.Configuration
	params IntelParams
	rng    *rng.Source
	sink   domain.PersistenceSink
	bus    *events.Bus
	runID  string

	agents []*Agent // indexed by agent id, 0..len(agents)-1
	table  *MarketTable
	l      []int // sorted union of held states

	dividendRecordsWritten bool
}

// Agent implements Registry by returning the agent with that id.
func (s *Simulation) Agent(id int) *Agent {
	return s.agents[id]
}

// New constructs a Simulation: population, dividend assignment, and one
// Market per held state. It fails fast on the configuration invariants
// spec'd for construction (K vs S/N, r vs S) — Validate already checked
// these, so New only surfaces programmer errors if called unvalidated.
func New(cfg *config.Configuration, seed uint64, sink domain.PersistenceSink, bus *events.Bus, runID string) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	source := rng.New(seed)
	params := NewIntelParams(cfg)

	sim := &Simulation{
		cfg:    cfg,
		params: params,
		rng:    source,
		sink:   sink,
		bus:    bus,
		runID:  runID,
	}

	assignments, effectiveN, err := constructPopulation(cfg, source)
	if err != nil {
		return nil, err
	}

	sim.agents = make([]*Agent, effectiveN)
	traderTypes := assignTraderTypes(cfg, effectiveN)
	for id := 0; id < effectiveN; id++ {
		sim.agents[id] = NewAgent(id, traderTypes[id], assignments[id], cfg.E)
	}
	assignDividends(cfg, sim.agents)

	l := map[int]bool{}
	for _, states := range assignments {
		for _, s := range states {
			l[s] = true
		}
	}
	sim.l = sortedKeys(l)

	markets := make(map[int]*Market, len(sim.l))
	for _, stateID := range sim.l {
		reserve := reservesFor(assignments, stateID)
		markets[stateID] = NewMarket(stateID, reserve, sim, &sim.params)
	}
	sim.table = NewMarketTable(markets)

	return sim, nil
}

func sortedKeys(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

func reservesFor(assignments map[int][]int, stateID int) []int {
	ids := make([]int, 0, len(assignments))
	for agentID, states := range assignments {
		for _, s := range states {
			if s == stateID {
				ids = append(ids, agentID)
				break
			}
		}
	}
	sort.Ints(ids)
	return ids
}

// constructPopulation builds the agent id -> assigned states map under the
// configured population mode, returning the (possibly reduced) agent count.
func constructPopulation(cfg *config.Configuration, src *rng.Source) (map[int][]int, int, error) {
	if cfg.FixNumStates {
		assignments := make(map[int][]int, cfg.N)
		for id := 0; id < cfg.N; id++ {
			states := src.SampleWithoutReplacement(cfg.S, cfg.K)
			sort.Ints(states)
			assignments[id] = states
		}
		return assignments, cfg.N, nil
	}

	// Fix-K-worlds: each state assigned to K agents out of N; agents left
	// with zero states are excluded and N is reduced accordingly.
	perAgent := make(map[int][]int, cfg.N)
	for s := 0; s < cfg.S; s++ {
		chosen := src.SampleWithoutReplacement(cfg.N, cfg.K)
		for _, agentID := range chosen {
			perAgent[agentID] = append(perAgent[agentID], s)
		}
	}

	oldIDs := make([]int, 0, cfg.N)
	for id := 0; id < cfg.N; id++ {
		if len(perAgent[id]) > 0 {
			oldIDs = append(oldIDs, id)
		}
	}
	sort.Ints(oldIDs)

	assignments := make(map[int][]int, len(oldIDs))
	for newID, oldID := range oldIDs {
		states := perAgent[oldID]
		sort.Ints(states)
		assignments[newID] = states
	}
	return assignments, len(oldIDs), nil
}

// assignTraderTypes returns each agent's trader type: 0 for every agent
// under homogeneous dividends, or drawn from the configured per-type
// bucket counts in agent-id order under custom dividends.
func assignTraderTypes(cfg *config.Configuration, n int) []int {
	types := make([]int, n)
	if !cfg.IsCustom {
		return types
	}
	remaining := append([]int(nil), cfg.NumTradersByType...)
	t := 0
	for id := 0; id < n; id++ {
		for t < len(remaining) && remaining[t] == 0 {
			t++
		}
		if t >= len(remaining) {
			break
		}
		types[id] = t
		remaining[t]--
	}
	return types
}

// assignDividends sets each holding's dividend: homogeneous dividend 1 for
// every holding, or the per-type per-state payoff under custom dividends.
func assignDividends(cfg *config.Configuration, agents []*Agent) {
	for _, a := range agents {
		for stateID, h := range a.Holdings {
			if cfg.IsCustom {
				h.Dividend = cfg.Dividends[a.TraderType][stateID]
			} else {
				h.Dividend = 1
			}
		}
	}
}

// Run executes num_periods periods, each consisting of i iterations,
// exactly as control flow is described: reset, inform, initialize
// aspirations, iterate, realize.
func (s *Simulation) Run() error {
	cfgJSON := s.configSummaryJSON()
	if err := s.sink.Open(s.runID, s.cfg.FileName, cfgJSON); err != nil {
		return fmt.Errorf("engine: open sink: %w", err)
	}
	if err := s.writeDividendRecords(); err != nil {
		_ = s.sink.Fail(err)
		return err
	}
	s.emit(events.RunStarted, nil)

	for period := 1; period <= s.cfg.NumPeriods; period++ {
		if err := s.runPeriod(period); err != nil {
			_ = s.sink.Fail(err)
			s.emit(events.RunFailed, map[string]interface{}{"period": period, "error": err.Error()})
			return fmt.Errorf("engine: period %d: %w", period, err)
		}
	}

	if err := s.sink.Complete(); err != nil {
		return fmt.Errorf("engine: complete sink: %w", err)
	}
	s.emit(events.RunCompleted, nil)
	return s.sink.Close()
}

func (s *Simulation) emit(t events.EventType, data map[string]interface{}) {
	if s.bus == nil {
		return
	}
	s.bus.Emit(t, "engine", s.runID, data)
}

func (s *Simulation) writeDividendRecords() error {
	if s.dividendRecordsWritten {
		return nil
	}
	for _, a := range s.agents {
		for stateID, h := range a.Holdings {
			rec := domain.DividendRecord{Agent: a.ID, TraderType: a.TraderType, State: stateID, Dividend: h.Dividend}
			if err := s.sink.AppendDividend(rec); err != nil {
				return fmt.Errorf("append dividend: %w", err)
			}
		}
	}
	s.dividendRecordsWritten = true
	return nil
}

func (s *Simulation) runPeriod(period int) error {
	if s.cfg.R > s.cfg.S {
		return fmt.Errorf("r (%d) > S (%d)", s.cfg.R, s.cfg.S)
	}

	s.emit(events.PeriodStarted, map[string]interface{}{"period": period})

	s.resetSmallWorlds()
	s.table.TableReset()
	realizationSet := s.drawRealizationSet()

	if err := s.giveMinimalIntelligence(period, realizationSet); err != nil {
		return err
	}

	for j := 0; j < s.cfg.I; j++ {
		if s.params.Discipline.Continuous {
			s.iterateMarketType1(period, j)
		} else {
			s.iterateMarketType2(period, j)
		}
	}

	if err := s.realizePeriod(period, realizationSet); err != nil {
		return err
	}

	s.emit(events.PeriodCompleted, map[string]interface{}{"period": period})
	return nil
}

func (s *Simulation) resetSmallWorlds() {
	for _, a := range s.agents {
		a.BalanceReset()
		for _, h := range a.Holdings {
			h.AmountAdd(s.cfg.E)
		}
	}
}

func (s *Simulation) drawRealizationSet() map[int]bool {
	chosen := s.rng.SampleWithoutReplacement(s.cfg.S, s.cfg.R)
	set := make(map[int]bool, len(chosen))
	for _, st := range chosen {
		set[st] = true
	}
	return set
}

func (s *Simulation) giveMinimalIntelligence(period int, realized map[int]bool) error {
	for _, a := range s.agents {
		held := a.StateIDs()
		var notRealized []int
		for _, st := range held {
			if !realized[st] {
				notRealized = append(notRealized, st)
			}
		}
		notInfoCount := len(notRealized) / 2
		notInfoIdx := s.rng.SampleWithoutReplacement(len(notRealized), notInfoCount)
		notInfo := make(map[int]bool, len(notInfoIdx))
		for _, idx := range notInfoIdx {
			notInfo[notRealized[idx]] = true
		}
		a.SetNotInfo(notInfo)
		key := CanonicalNotInfoKey(notInfo)
		c := a.C()

		for _, st := range held {
			h := a.Holdings[st]
			isBacklog := false
			switch {
			case notInfo[st]:
				h.Aspiration = 0
			default:
				if s.cfg.UseBacklog {
					if v, ok := h.BacklogLookup(key); ok {
						h.Aspiration = v
						isBacklog = true
						break
					}
				}
				if c > 0 {
					h.Aspiration = h.Dividend / float64(c)
				} else {
					h.Aspiration = 0
				}
			}

			rec := domain.AspirationRecord{
				Period:          period,
				Agent:           a.ID,
				State:           st,
				C:               c,
				StartAspiration: h.Aspiration,
				IsNotInfo:       notInfo[st],
				IsBacklog:       isBacklog,
			}
			if err := s.sink.AppendAspiration(rec); err != nil {
				return fmt.Errorf("append aspiration: %w", err)
			}
		}
	}
	return nil
}

func (s *Simulation) iterateMarketType1(period, j int) {
	var agentID, stateID int
	if s.params.Discipline.PickAgentFirst {
		agentID = s.agents[s.rng.IntN(len(s.agents))].ID
		held := s.agents[agentID].StateIDs()
		stateID = held[s.rng.IntN(len(held))]
	} else {
		stateID = s.l[s.rng.IntN(len(s.l))]
		reserve := s.table.Market(stateID).Reserve
		agentID = reserve[s.rng.IntN(len(reserve))]
	}

	agent := s.agents[agentID]
	holding := agent.Holdings[stateID]

	var cleared bool
	if s.rng.IntN(2) == 0 {
		price := s.rng.UniformRange(0, holding.Aspiration)
		_, cleared = s.table.UpdateBidder(stateID, price, agentID, j)
	} else {
		price := s.rng.UniformRange(holding.Aspiration, holding.Dividend)
		_, cleared = s.table.UpdateAsker(stateID, price, agentID, j, holding.Amount)
	}

	if cleared {
		s.recordTransaction(period, s.table.Market(stateID))
	}

	if s.params.Rep.Kind == config.RepVariantThree && j > s.params.Rep.Threshold {
		s.applyVariantThree()
	}
}

func (s *Simulation) iterateMarketType2(period, j int) {
	r1 := s.rng.Float64()
	r2 := s.rng.Float64()
	if r1 > r2*s.params.Discipline.Rho {
		s.repModuleMike()
	}

	for _, a := range s.agents {
		for _, stateID := range a.StateIDs() {
			h := a.Holdings[stateID]
			p := s.rng.Float64()
			if p > h.Aspiration {
				s.table.Market(stateID).replaceAsk(p, a.ID, j)
			} else {
				s.table.Market(stateID).replaceBid(p, a.ID, j)
			}
		}
	}

	prevCounts := make(map[int]int, len(s.l))
	for _, stateID := range s.l {
		prevCounts[stateID] = s.table.Market(stateID).NumTransactions()
	}

	s.table.TableMarketMake(j)

	for _, stateID := range s.l {
		m := s.table.Market(stateID)
		if m.NumTransactions() > prevCounts[stateID] {
			s.recordTransaction(period, m)
		}
	}
}

// recordTransaction appends the market's most recent clear. It does no
// guarding itself: callers invoke it only for a clear they observed (the
// cleared flag in market type 1, a per-market transaction count compared
// before and after TableMarketMake in market type 2).
func (s *Simulation) recordTransaction(period int, m *Market) {
	rec := m.LastTransaction()
	rec.Period = period
	if err := s.sink.AppendTransaction(rec); err != nil {
		return
	}
	s.emit(events.TransactionCleared, map[string]interface{}{
		"period": period,
		"state":  rec.State,
		"price":  rec.Price,
		"buyer":  rec.Buyer,
		"seller": rec.Seller,
	})
}

// repModuleMike: pick one agent uniformly; among its non-not_info states,
// find the smallest per-market min_price; set states at that minimum to
// aspiration 0, every other non-not_info state's aspiration to its dividend.
func (s *Simulation) repModuleMike() {
	a := s.agents[s.rng.IntN(len(s.agents))]
	held := a.StateIDs()

	var minPrice float64
	haveMin := false
	for _, st := range held {
		if a.NotInfo[st] {
			continue
		}
		mp, ok := s.table.GetMarketMinPrice(st)
		if !ok {
			continue
		}
		if !haveMin || mp < minPrice {
			minPrice = mp
			haveMin = true
		}
	}
	if !haveMin {
		return
	}

	for _, st := range held {
		if a.NotInfo[st] {
			continue
		}
		h := a.Holdings[st]
		mp, _ := s.table.GetMarketMinPrice(st)
		if mp == minPrice {
			h.Aspiration = 0
		} else {
			h.Aspiration = h.Dividend
		}
	}
}

// applyVariantThree triggers, against a single probability threshold shared
// by every agent this iteration and drawn uniformly from [0, PMax]: set the
// uncertain holding whose dividend is closest to the market table's latest
// price to aspiration = dividend, all other uncertain holdings' aspirations
// to 0.
func (s *Simulation) applyVariantThree() {
	latest, ok := s.table.LatestPrice()
	if !ok {
		return
	}
	p := s.rng.UniformRange(0, s.params.Rep.PMax)
	for _, a := range s.agents {
		if s.rng.Float64() > p {
			continue
		}
		closest, _, found := a.ClosestDividend(latest)
		if !found {
			continue
		}
		for st := range a.Uncertain {
			if st == closest {
				a.Holdings[st].Aspiration = a.Holdings[st].Dividend
			} else {
				a.Holdings[st].Aspiration = 0
			}
		}
	}
}

func (s *Simulation) realizePeriod(period int, realized map[int]bool) error {
	for _, a := range s.agents {
		for _, stateID := range a.StateIDs() {
			h := a.Holdings[stateID]
			isRealized := realized[stateID]

			payout := 0.0
			if isRealized {
				payout = float64(h.Amount) * h.Dividend
				a.BalanceAdd(payout)
			}

			div := 0.0
			if isRealized {
				div = h.Dividend
			}
			if s.cfg.UseBacklog {
				key := CanonicalNotInfoKey(a.NotInfo)
				h.BacklogUpdate(key, DividendAnchorAdjust(s.params.Beta, div, h.Aspiration))
			}

			rec := domain.SecurityBalanceRecord{
				Period:   period,
				Agent:    a.ID,
				State:    stateID,
				Amount:   h.Amount,
				Dividend: h.Dividend,
				Payout:   payout,
				Realized: isRealized,
			}
			if err := s.sink.AppendSecurityBalance(rec); err != nil {
				return fmt.Errorf("append security balance: %w", err)
			}

			h.AmountReset()
		}

		snap := domain.AgentSnapshot{
			Period:     period,
			Agent:      a.ID,
			NumStates:  len(a.Holdings),
			Balance:    a.Balance,
			StatesCSV:  csvInts(a.StateIDs()),
			NotInfoCSV: csvInts(sortedKeysOf(a.NotInfo)),
			C:          a.C(),
		}
		if err := s.sink.AppendAgentSnapshot(snap); err != nil {
			return fmt.Errorf("append agent snapshot: %w", err)
		}
	}

	for st := 0; st < s.cfg.S; st++ {
		rec := domain.RealizationRecord{Period: period, State: st, Realized: realized[st]}
		if err := s.sink.AppendRealization(rec); err != nil {
			return fmt.Errorf("append realization: %w", err)
		}
	}
	return nil
}

func sortedKeysOf(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

func csvInts(ids []int) string {
	s := ""
	for i, id := range ids {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf("%d", id)
	}
	return s
}

func (s *Simulation) configSummaryJSON() string {
	return fmt.Sprintf(`{"N":%d,"S":%d,"E":%d,"K":%d,"num_periods":%d,"i":%d,"r":%d,"market_type":%d,"rep_flag":%d}`,
		s.cfg.N, s.cfg.S, s.cfg.E, s.cfg.K, s.cfg.NumPeriods, s.cfg.I, s.cfg.R, s.cfg.MarketType, s.cfg.RepFlag)
}
