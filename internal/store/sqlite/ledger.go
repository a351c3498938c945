// Package sqlite persists the trade ledger so a restarted console can still
// show past digit contracts and their outcomes.
package sqlite

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"synthdesk/internal/model"
)

// Config configures the ledger database.
type Config struct {
	DBPath string // path to SQLite database file, e.g. "data/ledger.db"
}

// Ledger is a single-writer SQLite store for trade orders.
type Ledger struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (l *Ledger) DB() *sql.DB { return l.db }

// New opens the ledger database with WAL mode and initializes the schema.
func New(cfg Config) (*Ledger, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer, no pool contention
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened ledger at %s", cfg.DBPath)
	return &Ledger{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			correlation_id   TEXT    PRIMARY KEY,
			instrument       TEXT    NOT NULL,
			contract_type    TEXT    NOT NULL,
			digit            INTEGER NOT NULL,
			stake            REAL    NOT NULL,
			duration_ticks   INTEGER NOT NULL,
			state            TEXT    NOT NULL,
			settlement_digit INTEGER,
			profit           REAL,
			created_at       INTEGER NOT NULL,
			settled_at       INTEGER
		);

		CREATE INDEX IF NOT EXISTS idx_trades_created
			ON trades (created_at DESC);
	`)
	return err
}

// RecordOrder inserts one freshly submitted order.
func (l *Ledger) RecordOrder(ord model.TradeOrder) error {
	_, err := l.db.Exec(`
		INSERT OR REPLACE INTO trades
			(correlation_id, instrument, contract_type, digit, stake, duration_ticks, state, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, ord.CorrelationID, ord.Instrument, string(ord.ContractType), ord.Digit,
		ord.Stake, ord.DurationTicks, string(ord.State), ord.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("sqlite insert trade: %w", err)
	}
	return nil
}

// RecordSettlement updates one order's terminal state.
func (l *Ledger) RecordSettlement(correlationID string, state model.OrderState, digit int, profit float64) error {
	_, err := l.db.Exec(`
		UPDATE trades
		SET state = ?, settlement_digit = ?, profit = ?, settled_at = ?
		WHERE correlation_id = ?
	`, string(state), digit, profit, time.Now().UTC().Unix(), correlationID)
	if err != nil {
		return fmt.Errorf("sqlite settle trade: %w", err)
	}
	return nil
}

// Recent returns up to limit orders, newest first.
func (l *Ledger) Recent(limit int) ([]model.TradeOrder, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.Query(`
		SELECT correlation_id, instrument, contract_type, digit, stake,
		       duration_ticks, state, settlement_digit, profit, created_at, settled_at
		FROM trades
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query trades: %w", err)
	}
	defer rows.Close()

	var out []model.TradeOrder
	for rows.Next() {
		var (
			ord       model.TradeOrder
			ctype     string
			state     string
			setDigit  sql.NullInt64
			profit    sql.NullFloat64
			createdAt int64
			settledAt sql.NullInt64
		)
		if err := rows.Scan(&ord.CorrelationID, &ord.Instrument, &ctype, &ord.Digit,
			&ord.Stake, &ord.DurationTicks, &state, &setDigit, &profit, &createdAt, &settledAt); err != nil {
			return nil, fmt.Errorf("sqlite scan trade: %w", err)
		}
		ord.ContractType = model.ContractType(ctype)
		ord.State = model.OrderState(state)
		ord.CreatedAt = time.Unix(createdAt, 0).UTC()
		if setDigit.Valid {
			d := int(setDigit.Int64)
			ord.SettlementDigit = &d
		}
		if profit.Valid {
			p := profit.Float64
			ord.Profit = &p
		}
		if settledAt.Valid {
			t := time.Unix(settledAt.Int64, 0).UTC()
			ord.SettledAt = &t
		}
		out = append(out, ord)
	}
	return out, rows.Err()
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}
