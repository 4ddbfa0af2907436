package engine

import "github.com/nullstate/largeworld/internal/domain"

// fakeSink is an in-memory domain.PersistenceSink for exercising the
// engine without a real database.
type fakeSink struct {
	opened       bool
	completed    bool
	failed       error
	transactions []domain.TransactionRecord
	realizations []domain.RealizationRecord
	snapshots    []domain.AgentSnapshot
	balances     []domain.SecurityBalanceRecord
	aspirations  []domain.AspirationRecord
	dividends    []domain.DividendRecord
}

func (f *fakeSink) Open(runID, fileName, configJSON string) error {
	f.opened = true
	return nil
}

func (f *fakeSink) AppendTransaction(r domain.TransactionRecord) error {
	f.transactions = append(f.transactions, r)
	return nil
}

func (f *fakeSink) AppendRealization(r domain.RealizationRecord) error {
	f.realizations = append(f.realizations, r)
	return nil
}

func (f *fakeSink) AppendAgentSnapshot(r domain.AgentSnapshot) error {
	f.snapshots = append(f.snapshots, r)
	return nil
}

func (f *fakeSink) AppendSecurityBalance(r domain.SecurityBalanceRecord) error {
	f.balances = append(f.balances, r)
	return nil
}

func (f *fakeSink) AppendAspiration(r domain.AspirationRecord) error {
	f.aspirations = append(f.aspirations, r)
	return nil
}

func (f *fakeSink) AppendDividend(r domain.DividendRecord) error {
	f.dividends = append(f.dividends, r)
	return nil
}

func (f *fakeSink) Complete() error {
	f.completed = true
	return nil
}

func (f *fakeSink) Fail(reason error) error {
	f.failed = reason
	return nil
}

func (f *fakeSink) Close() error { return nil }
