package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/nullstate/largeworld/internal/domain"
)

// SQLiteSink is the concrete domain.PersistenceSink backed by a DB opened
// against the "simulation" schema. Appends within a period are batched into
// one transaction, committed at period boundaries, to keep single-threaded
// simulation throughput high without risking partial-period writes on crash.
type SQLiteSink struct {
	db *DB

	runID string
	tx    *sql.Tx

	currentPeriod int
	periodOpen    bool
}

// NewSQLiteSink wraps an already-open, already-migrated DB.
func NewSQLiteSink(db *DB) *SQLiteSink {
	return &SQLiteSink{db: db}
}

// Open records the run's identity and starts accepting appends.
func (s *SQLiteSink) Open(runID, fileName, configJSON string) error {
	s.runID = runID
	_, err := s.db.Exec(
		`INSERT INTO runs (id, file_name, config_json, started_at, status) VALUES (?, ?, ?, ?, 'running')`,
		runID, fileName, configJSON, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("sink: insert run: %w", err)
	}
	return nil
}

func (s *SQLiteSink) beginIfNeeded(period int) error {
	if s.tx != nil && s.currentPeriod == period && s.periodOpen {
		return nil
	}
	if s.tx != nil {
		if err := s.tx.Commit(); err != nil {
			return fmt.Errorf("sink: commit period %d: %w", s.currentPeriod, err)
		}
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("sink: begin period %d: %w", period, err)
	}
	s.tx = tx
	s.currentPeriod = period
	s.periodOpen = true
	return nil
}

func (s *SQLiteSink) AppendTransaction(r domain.TransactionRecord) error {
	if err := s.beginIfNeeded(r.Period); err != nil {
		return err
	}
	_, err := s.tx.Exec(
		`INSERT INTO transactions (run_id, period, iteration, state, tx_idx, buyer, seller, price, action, bid, buyer_aspiration, ask, seller_aspiration, spread)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.runID, r.Period, r.Iteration, r.State, r.TxIndex, r.Buyer, r.Seller, r.Price, r.Action, r.Bid, r.BuyerAspiration, r.Ask, r.SellerAspiration, r.Spread,
	)
	if err != nil {
		return fmt.Errorf("sink: insert transaction: %w", err)
	}
	return nil
}

func (s *SQLiteSink) AppendRealization(r domain.RealizationRecord) error {
	if err := s.beginIfNeeded(r.Period); err != nil {
		return err
	}
	_, err := s.tx.Exec(
		`INSERT INTO realizations (run_id, period, state, realized) VALUES (?,?,?,?)`,
		s.runID, r.Period, r.State, boolToInt(r.Realized),
	)
	if err != nil {
		return fmt.Errorf("sink: insert realization: %w", err)
	}
	return nil
}

func (s *SQLiteSink) AppendAgentSnapshot(r domain.AgentSnapshot) error {
	if err := s.beginIfNeeded(r.Period); err != nil {
		return err
	}
	_, err := s.tx.Exec(
		`INSERT INTO agents (run_id, period, agent, num_states, balance, states_csv, not_info_csv, c) VALUES (?,?,?,?,?,?,?,?)`,
		s.runID, r.Period, r.Agent, r.NumStates, r.Balance, r.StatesCSV, r.NotInfoCSV, r.C,
	)
	if err != nil {
		return fmt.Errorf("sink: insert agent snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteSink) AppendSecurityBalance(r domain.SecurityBalanceRecord) error {
	if err := s.beginIfNeeded(r.Period); err != nil {
		return err
	}
	_, err := s.tx.Exec(
		`INSERT INTO security_balances (run_id, period, agent, state, amount, dividend, payout, realized) VALUES (?,?,?,?,?,?,?,?)`,
		s.runID, r.Period, r.Agent, r.State, r.Amount, r.Dividend, r.Payout, boolToInt(r.Realized),
	)
	if err != nil {
		return fmt.Errorf("sink: insert security balance: %w", err)
	}
	return nil
}

func (s *SQLiteSink) AppendAspiration(r domain.AspirationRecord) error {
	if err := s.beginIfNeeded(r.Period); err != nil {
		return err
	}
	_, err := s.tx.Exec(
		`INSERT INTO aspirations (run_id, period, agent, state, c, start_aspiration, is_not_info, is_backlog) VALUES (?,?,?,?,?,?,?,?)`,
		s.runID, r.Period, r.Agent, r.State, r.C, r.StartAspiration, boolToInt(r.IsNotInfo), boolToInt(r.IsBacklog),
	)
	if err != nil {
		return fmt.Errorf("sink: insert aspiration: %w", err)
	}
	return nil
}

// AppendDividend is written once at construction, before any period
// transaction begins, so it uses its own short-lived transaction.
func (s *SQLiteSink) AppendDividend(r domain.DividendRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO dividends (run_id, agent, trader_type, state, dividend) VALUES (?,?,?,?,?)`,
		s.runID, r.Agent, r.TraderType, r.State, r.Dividend,
	)
	if err != nil {
		return fmt.Errorf("sink: insert dividend: %w", err)
	}
	return nil
}

// Complete commits the open period transaction and marks the run finished.
// It then checkpoints the WAL into the main file and vacuums it, so the
// database is a single self-contained file ready for archival upload.
func (s *SQLiteSink) Complete() error {
	if s.tx != nil {
		if err := s.tx.Commit(); err != nil {
			return fmt.Errorf("sink: commit final period: %w", err)
		}
		s.tx = nil
		s.periodOpen = false
	}
	_, err := s.db.Exec(
		`UPDATE runs SET status = 'completed', finished_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), s.runID,
	)
	if err != nil {
		return fmt.Errorf("sink: mark run completed: %w", err)
	}

	if err := s.db.WALCheckpoint("TRUNCATE"); err != nil {
		return fmt.Errorf("sink: checkpoint completed run: %w", err)
	}
	if err := s.db.Vacuum(); err != nil {
		return fmt.Errorf("sink: vacuum completed run: %w", err)
	}
	return nil
}

// Fail rolls back any open period transaction and marks the run failed.
func (s *SQLiteSink) Fail(reason error) error {
	if s.tx != nil {
		_ = s.tx.Rollback()
		s.tx = nil
		s.periodOpen = false
	}
	_, err := s.db.Exec(
		`UPDATE runs SET status = 'failed', finished_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), s.runID,
	)
	if err != nil {
		return fmt.Errorf("sink: mark run failed (cause: %v): %w", reason, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
