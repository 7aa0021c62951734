// Package sim is the paper-trading ledger: one account, at most one open
// position, and an append-only trade log, filled at the last traded price.
package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rustyeddy/replaysim/journal"
	"github.com/rustyeddy/replaysim/market"
	"github.com/rustyeddy/replaysim/pkg/id"
)

var (
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrInvalidDirection   = errors.New("direction must be buy or sell")
	ErrNoOpenPosition     = errors.New("no open position")
	ErrInstrumentMismatch = errors.New("open position is for another instrument")
)

// OutcomeKind classifies what an accepted trade did.
type OutcomeKind string

const (
	Opened   OutcomeKind = "OPENED"
	Added    OutcomeKind = "ADDED"
	Reduced  OutcomeKind = "REDUCED"
	Closed   OutcomeKind = "CLOSED"
	Reversed OutcomeKind = "REVERSED"
)

// Outcome is the result of an accepted trade command.
type Outcome struct {
	Kind       OutcomeKind `json:"kind"`
	Trades     []Trade     `json:"trades"`
	Markers    []Marker    `json:"markers"`
	Position   *Position   `json:"position,omitempty"`
	Balance    float64     `json:"balance"`
	RealizedPL float64     `json:"realizedPl"`
}

// Account is a point-in-time view of the ledger marked to a price.
type Account struct {
	Balance      float64   `json:"balance"`
	Equity       float64   `json:"equity"`
	UnrealizedPL float64   `json:"unrealizedPl"`
	MarginUsed   float64   `json:"marginUsed"`
	TradeCount   int       `json:"tradeCount"`
	Position     *Position `json:"position,omitempty"`
}

// Stats are totals over closed fills.
type Stats struct {
	RealizedPL float64 `json:"realizedPl"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
}

type Ledger struct {
	mu        sync.Mutex
	start     float64
	balance   float64
	position  *Position
	trades    []Trade
	sessionID string
	journal   journal.Journal
	log       *slog.Logger
}

// NewLedger returns a flat ledger. A nil journal records nothing.
func NewLedger(startBalance float64, j journal.Journal) *Ledger {
	if j == nil {
		j = journal.Nop{}
	}
	return &Ledger{
		start:   startBalance,
		balance: startBalance,
		journal: j,
		log:     slog.Default(),
	}
}

// SetSession tags subsequent journal rows.
func (l *Ledger) SetSession(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessionID = sessionID
}

func (l *Ledger) SetLogger(log *slog.Logger) {
	if log == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.log = log
}

// Reset returns the ledger to its starting balance with no position or
// trades.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balance = l.start
	l.position = nil
	l.trades = nil
}

// ExecuteTrade fills qty in direction dir at price. A rejected trade
// leaves the ledger untouched.
func (l *Ledger) ExecuteTrade(instr market.Instrument, dir Direction, qty int, price float64, t int64) (Outcome, error) {
	if qty < 1 {
		return Outcome{}, fmt.Errorf("%w: %d", ErrInvalidQuantity, qty)
	}
	if !dir.Valid() {
		return Outcome{}, fmt.Errorf("%w: %d", ErrInvalidDirection, int(dir))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	pos := l.position
	if pos != nil && pos.Instrument != instr.Code {
		return Outcome{}, fmt.Errorf("%w: holding %s, trading %s", ErrInstrumentMismatch, pos.Instrument, instr.Code)
	}

	switch {
	case pos != nil && pos.Side() != dir && qty > pos.Size():
		return l.reverseLocked(instr, dir, qty, price, t)
	case pos == nil || pos.Side() == dir:
		return l.openLocked(instr, dir, qty, price, t)
	default:
		return l.reduceLocked(instr, dir, qty, price, t, false)
	}
}

// CloseAll flattens the open position at price.
func (l *Ledger) CloseAll(instr market.Instrument, price float64, t int64) (Outcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.position == nil {
		return Outcome{}, ErrNoOpenPosition
	}
	if l.position.Instrument != instr.Code {
		return Outcome{}, fmt.Errorf("%w: holding %s, closing %s", ErrInstrumentMismatch, l.position.Instrument, instr.Code)
	}
	return l.reduceLocked(instr, -l.position.Side(), l.position.Size(), price, t, true)
}

func (l *Ledger) openLocked(instr market.Instrument, dir Direction, qty int, price float64, t int64) (Outcome, error) {
	required := RequiredMargin(price, qty, instr)
	if l.balance < required {
		return Outcome{}, &MarginError{Required: required, Available: l.balance}
	}

	kind := Opened
	next := Position{Instrument: instr.Code, Quantity: int(dir) * qty, EntryPrice: price}
	if old := l.position; old != nil {
		kind = Added
		size := old.Size()
		next.Quantity = old.Quantity + int(dir)*qty
		next.EntryPrice = (float64(size)*old.EntryPrice + float64(qty)*price) / float64(size+qty)
	}
	l.position = &next

	tr := l.appendLocked(instr.Code, t, price, qty, dir, Open, nil)
	return Outcome{
		Kind:     kind,
		Trades:   []Trade{tr},
		Markers:  []Marker{arrowMarker(t, dir, "O")},
		Position: l.positionCopyLocked(),
		Balance:  l.balance,
	}, nil
}

// reduceLocked closes up to the whole position without reversing.
func (l *Ledger) reduceLocked(instr market.Instrument, dir Direction, qty int, price float64, t int64, all bool) (Outcome, error) {
	pos := l.position
	closeQty := min(pos.Size(), qty)
	pl := RealizedPL(pos.Side(), pos.EntryPrice, price, closeQty, instr.Multiplier)

	l.balance += pl
	kind := Reduced
	if closeQty == pos.Size() {
		kind = Closed
		l.position = nil
	} else {
		l.position = &Position{
			Instrument: pos.Instrument,
			Quantity:   pos.Quantity - int(pos.Side())*closeQty,
			EntryPrice: pos.EntryPrice,
		}
	}

	tr := l.appendLocked(instr.Code, t, price, closeQty, dir, Close, &pl)
	marker := arrowMarker(t, dir, "C")
	if all {
		marker = circleMarker(t, dir, "Close")
	}
	return Outcome{
		Kind:       kind,
		Trades:     []Trade{tr},
		Markers:    []Marker{marker},
		Position:   l.positionCopyLocked(),
		Balance:    l.balance,
		RealizedPL: pl,
	}, nil
}

func (l *Ledger) reverseLocked(instr market.Instrument, dir Direction, qty int, price float64, t int64) (Outcome, error) {
	pos := l.position
	closeQty := pos.Size()
	openQty := qty - closeQty
	pl := RealizedPL(pos.Side(), pos.EntryPrice, price, closeQty, instr.Multiplier)

	required := RequiredMargin(price, openQty, instr)
	if available := l.balance + pl; available < required {
		return Outcome{}, &MarginError{Required: required, Available: available}
	}

	l.balance += pl
	closeTr := l.appendLocked(instr.Code, t, price, closeQty, dir, Close, &pl)
	l.position = &Position{Instrument: instr.Code, Quantity: int(dir) * openQty, EntryPrice: price}
	openTr := l.appendLocked(instr.Code, t, price, openQty, dir, Open, nil)

	return Outcome{
		Kind:       Reversed,
		Trades:     []Trade{closeTr, openTr},
		Markers:    []Marker{circleMarker(t, dir, "Rev")},
		Position:   l.positionCopyLocked(),
		Balance:    l.balance,
		RealizedPL: pl,
	}, nil
}

func (l *Ledger) appendLocked(code string, t int64, price float64, qty int, dir Direction, action Action, pl *float64) Trade {
	tr := Trade{
		ID:         id.New(),
		Instrument: code,
		Time:       t,
		Price:      price,
		Quantity:   qty,
		Direction:  dir,
		Action:     action,
	}
	rec := journal.TradeRecord{
		SessionID:  l.sessionID,
		TradeID:    tr.ID,
		Instrument: code,
		Time:       tr.Timestamp(),
		Action:     string(action),
		Direction:  int(dir),
		Quantity:   qty,
		Price:      price,
	}
	if pl != nil {
		v := *pl
		tr.RealizedPL = &v
		rec.RealizedPL = v
	}
	l.trades = append(l.trades, tr)

	if err := l.journal.RecordTrade(rec); err != nil {
		l.log.Error("journal trade", "trade_id", tr.ID, "error", err)
	}
	return tr
}

func (l *Ledger) positionCopyLocked() *Position {
	if l.position == nil {
		return nil
	}
	p := *l.position
	return &p
}

// Snapshot marks the ledger to last. Equity is balance plus unrealized PL.
func (l *Ledger) Snapshot(instr market.Instrument, last float64) Account {
	l.mu.Lock()
	defer l.mu.Unlock()

	a := Account{
		Balance:    l.balance,
		TradeCount: len(l.trades),
		Position:   l.positionCopyLocked(),
	}
	if l.position != nil {
		a.UnrealizedPL = UnrealizedPL(l.position, last, instr.Multiplier)
		a.MarginUsed = RequiredMargin(last, l.position.Quantity, instr)
	}
	a.Equity = a.Balance + a.UnrealizedPL
	return a
}

// RecordEquity journals the account marked to the bar at t.
func (l *Ledger) RecordEquity(instr market.Instrument, last float64, t int64) {
	a := l.Snapshot(instr, last)

	l.mu.Lock()
	sessionID, log := l.sessionID, l.log
	l.mu.Unlock()

	err := l.journal.RecordEquity(journal.EquitySnapshot{
		SessionID:    sessionID,
		Time:         time.Unix(t, 0).UTC(),
		Price:        last,
		Balance:      a.Balance,
		Equity:       a.Equity,
		UnrealizedPL: a.UnrealizedPL,
		MarginUsed:   a.MarginUsed,
	})
	if err != nil {
		log.Error("journal equity", "error", err)
	}
}

func (l *Ledger) Balance() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

func (l *Ledger) StartingBalance() float64 { return l.start }

func (l *Ledger) Position() *Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.positionCopyLocked()
}

// Trades returns a copy of the trade log.
func (l *Ledger) Trades() []Trade {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

func (l *Ledger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	var s Stats
	for _, t := range l.trades {
		if t.RealizedPL == nil {
			continue
		}
		pl := *t.RealizedPL
		s.RealizedPL += pl
		switch {
		case pl > 0:
			s.Wins++
		case pl < 0:
			s.Losses++
		}
	}
	return s
}
