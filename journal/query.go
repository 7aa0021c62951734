package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrTradeNotFound = errors.New("trade not found")

const tradeColumns = `trade_id, session_id, instrument, time, action, direction, quantity, price, realized_pl`

type scanner interface {
	Scan(dest ...any) error
}

func scanTrade(s scanner) (TradeRecord, error) {
	var (
		rec TradeRecord
		pl  sql.NullFloat64
	)
	err := s.Scan(
		&rec.TradeID,
		&rec.SessionID,
		&rec.Instrument,
		&rec.Time,
		&rec.Action,
		&rec.Direction,
		&rec.Quantity,
		&rec.Price,
		&pl,
	)
	if err != nil {
		return TradeRecord{}, err
	}
	rec.RealizedPL = pl.Float64
	return rec, nil
}

func (j *SQLite) queryTrades(query string, args ...any) ([]TradeRecord, error) {
	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(tradeID string) (TradeRecord, error) {
	row := j.db.QueryRow(`SELECT `+tradeColumns+` FROM trades WHERE trade_id = ?`, tradeID)
	rec, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TradeRecord{}, fmt.Errorf("%w: %q", ErrTradeNotFound, tradeID)
		}
		return TradeRecord{}, err
	}
	return rec, nil
}

// ListTradesBySession returns a session's trades in fill order.
func (j *SQLite) ListTradesBySession(sessionID string) ([]TradeRecord, error) {
	return j.queryTrades(`
		SELECT `+tradeColumns+`
		FROM trades
		WHERE session_id = ?
		ORDER BY time ASC, trade_id ASC`, sessionID)
}

// ListTradesBetween returns trades whose bar time is within [start, end).
func (j *SQLite) ListTradesBetween(start, end time.Time) ([]TradeRecord, error) {
	return j.queryTrades(`
		SELECT `+tradeColumns+`
		FROM trades
		WHERE time >= ? AND time < ?
		ORDER BY time ASC, trade_id ASC`, start.UTC(), end.UTC())
}

// ListSessions returns the distinct session IDs with at least one trade.
func (j *SQLite) ListSessions() ([]string, error) {
	rows, err := j.db.Query(`SELECT DISTINCT session_id FROM trades ORDER BY session_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ListEquityBySession returns a session's equity curve in time order.
func (j *SQLite) ListEquityBySession(sessionID string) ([]EquitySnapshot, error) {
	rows, err := j.db.Query(`
		SELECT session_id, time, price, balance, equity, unrealized_pl, margin_used
		FROM equity
		WHERE session_id = ?
		ORDER BY time ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(
			&e.SessionID,
			&e.Time,
			&e.Price,
			&e.Balance,
			&e.Equity,
			&e.UnrealizedPL,
			&e.MarginUsed,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
