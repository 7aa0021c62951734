package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	var pl sql.NullFloat64
	if t.Closed() {
		pl = sql.NullFloat64{Float64: t.RealizedPL, Valid: true}
	}
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, session_id, instrument, time, action, direction, quantity, price, realized_pl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.SessionID, t.Instrument, t.Time.UTC(),
		t.Action, t.Direction, t.Quantity, t.Price, pl,
	)
	return err
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(session_id, time, price, balance, equity, unrealized_pl, margin_used)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.Time.UTC(), e.Price, e.Balance, e.Equity, e.UnrealizedPL, e.MarginUsed,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
