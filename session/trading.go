package session

import (
	"fmt"
	"time"

	"github.com/rustyeddy/replaysim/alert"
	"github.com/rustyeddy/replaysim/journal"
	"github.com/rustyeddy/replaysim/market"
	"github.com/rustyeddy/replaysim/sim"
)

// ExecuteTrade fills qty at the close of the last visible bar.
func (s *Session) ExecuteTrade(dir sim.Direction, qty int) (sim.Outcome, error) {
	return s.fill(func(instr market.Instrument, bar market.Bar) (sim.Outcome, error) {
		return s.ledger.ExecuteTrade(instr, dir, qty, bar.Close, bar.Time)
	})
}

// CloseAll flattens the position at the close of the last visible bar.
func (s *Session) CloseAll() (sim.Outcome, error) {
	return s.fill(func(instr market.Instrument, bar market.Bar) (sim.Outcome, error) {
		return s.ledger.CloseAll(instr, bar.Close, bar.Time)
	})
}

func (s *Session) fill(do func(market.Instrument, market.Bar) (sim.Outcome, error)) (sim.Outcome, error) {
	s.mu.Lock()
	bar, ok := s.ctrl.Current()
	if !ok {
		s.mu.Unlock()
		s.emit([]Event{s.rejected(TradeRejected, ErrNotLoaded)})
		return sim.Outcome{}, ErrNotLoaded
	}
	instr := s.ctrl.Instrument()
	cursor := s.ctrl.Cursor()

	out, err := do(instr, bar)
	if err != nil {
		s.mu.Unlock()
		s.emit([]Event{s.rejected(TradeRejected, err)})
		return sim.Outcome{}, err
	}

	s.markers = append(s.markers, out.Markers...)
	for _, tr := range out.Trades {
		s.metrics.Trade(string(tr.Action))
	}
	acct := s.ledger.Snapshot(instr, bar.Close)
	s.metrics.Account(acct.Balance, acct.Equity)
	s.log.Info("trade accepted",
		"session", s.id,
		"kind", string(out.Kind),
		"price", bar.Close,
		"balance", out.Balance,
		"realized_pl", out.RealizedPL,
	)
	s.mu.Unlock()

	s.emit([]Event{{Kind: TradeAccepted, Cursor: cursor, Outcome: &out}})
	return out, nil
}

// Account marks the ledger to the last visible close.
func (s *Session) Account() sim.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accountLocked()
}

func (s *Session) accountLocked() sim.Account {
	bar, _ := s.ctrl.Current()
	return s.ledger.Snapshot(s.ctrl.Instrument(), bar.Close)
}

// Trades returns the trade log.
func (s *Session) Trades() []sim.Trade { return s.ledger.Trades() }

// Markers returns every fill marker of the session in order.
func (s *Session) Markers() []sim.Marker {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sim.Marker, len(s.markers))
	copy(out, s.markers)
	return out
}

func (s *Session) AddAlert(price float64) (alert.Alert, error) {
	a, err := s.alerts.Add(price)
	if err != nil {
		s.emit([]Event{s.rejected(CommandRejected, err)})
		return alert.Alert{}, err
	}
	s.log.Debug("alert added", "alert", a.ID, "price", a.Price)
	return a, nil
}

func (s *Session) RemoveAlert(id int) error {
	if err := s.alerts.Remove(id); err != nil {
		s.emit([]Event{s.rejected(CommandRejected, err)})
		return err
	}
	return nil
}

func (s *Session) Alerts() []alert.Alert { return s.alerts.List() }

// Summary reports the session so far, marked to the last visible close.
func (s *Session) Summary() journal.SessionReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaryLocked()
}

func (s *Session) summaryLocked() journal.SessionReport {
	rep := journal.SessionReport{
		SessionID:    s.id,
		Created:      s.created,
		Instrument:   s.ctrl.Instrument().Code,
		Timeframe:    s.ctrl.Timeframe().Label,
		Seed:         s.seed,
		StartBalance: s.ledger.StartingBalance(),
	}

	equity := make([]journal.EquitySnapshot, len(s.equity), len(s.equity)+1)
	copy(equity, s.equity)
	if bar, ok := s.ctrl.Current(); ok {
		equity = append(equity, equitySnapshot(s.id, bar, s.accountLocked()))
	}
	rep.Summarize(tradeRecords(s.id, s.ledger.Trades()), equity)

	if pos := s.ledger.Position(); pos != nil {
		rep.Notes = append(rep.Notes, "position still open: "+positionNote(pos))
	}
	return rep
}

func equitySnapshot(sessionID string, bar market.Bar, a sim.Account) journal.EquitySnapshot {
	return journal.EquitySnapshot{
		SessionID:    sessionID,
		Time:         time.Unix(bar.Time, 0).UTC(),
		Price:        bar.Close,
		Balance:      a.Balance,
		Equity:       a.Equity,
		UnrealizedPL: a.UnrealizedPL,
		MarginUsed:   a.MarginUsed,
	}
}

func tradeRecords(sessionID string, trades []sim.Trade) []journal.TradeRecord {
	out := make([]journal.TradeRecord, 0, len(trades))
	for _, t := range trades {
		rec := journal.TradeRecord{
			SessionID:  sessionID,
			TradeID:    t.ID,
			Instrument: t.Instrument,
			Time:       t.Timestamp(),
			Action:     string(t.Action),
			Direction:  int(t.Direction),
			Quantity:   t.Quantity,
			Price:      t.Price,
		}
		if t.RealizedPL != nil {
			rec.RealizedPL = *t.RealizedPL
		}
		out = append(out, rec)
	}
	return out
}

func positionNote(p *sim.Position) string {
	return fmt.Sprintf("%s %d %s @ %s", p.Side(), p.Size(), p.Instrument, market.FormatMoney(p.EntryPrice))
}
