// Package journal records simulated trades and equity snapshots.
package journal

import "time"

// Trade actions as stored in the journal.
const (
	ActionOpen  = "OPEN"
	ActionClose = "CLOSE"
)

// TradeRecord is one ledger fill. RealizedPL is only meaningful for CLOSE
// rows.
type TradeRecord struct {
	SessionID  string
	TradeID    string
	Instrument string
	Time       time.Time
	Action     string
	Direction  int // +1 buy, -1 sell
	Quantity   int
	Price      float64
	RealizedPL float64
}

// Closed reports whether the record is a closing fill.
func (t TradeRecord) Closed() bool { return t.Action == ActionClose }

// EquitySnapshot is the account marked to the current bar.
type EquitySnapshot struct {
	SessionID    string
	Time         time.Time
	Price        float64
	Balance      float64
	Equity       float64
	UnrealizedPL float64
	MarginUsed   float64
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordTrade(TradeRecord) error     { return nil }
func (Nop) RecordEquity(EquitySnapshot) error { return nil }
func (Nop) Close() error                      { return nil }
