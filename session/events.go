package session

import (
	"errors"

	"github.com/rustyeddy/replaysim/alert"
	"github.com/rustyeddy/replaysim/drawing"
	"github.com/rustyeddy/replaysim/journal"
	"github.com/rustyeddy/replaysim/market"
	"github.com/rustyeddy/replaysim/replay"
	"github.com/rustyeddy/replaysim/sim"
)

// EventKind names a notification sent to subscribers.
type EventKind string

const (
	TradeAccepted   EventKind = "trade_accepted"
	TradeRejected   EventKind = "trade_rejected"
	CommandRejected EventKind = "command_rejected"
	AlertFired      EventKind = "alert_fired"
	SessionEnded    EventKind = "session_ended"
	WindowUpdated   EventKind = "window_updated"
)

// Event is delivered to listeners after the session lock is released.
type Event struct {
	Kind    EventKind              `json:"kind"`
	Cursor  int                    `json:"cursor"`
	Outcome *sim.Outcome           `json:"outcome,omitempty"`
	Alert   *alert.Alert           `json:"alert,omitempty"`
	Reason  string                 `json:"reason,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Summary *journal.SessionReport `json:"summary,omitempty"`
}

// Listener receives events. It must not block for long; ticks wait on it.
type Listener func(Event)

type subscriber struct {
	id int
	fn Listener
}

// Subscribe registers l and returns a function that removes it.
func (s *Session) Subscribe(l Listener) func() {
	s.lmu.Lock()
	defer s.lmu.Unlock()

	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscriber{id: id, fn: l})
	return func() {
		s.lmu.Lock()
		defer s.lmu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *Session) emit(evs []Event) {
	if len(evs) == 0 {
		return
	}
	s.lmu.Lock()
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.lmu.Unlock()

	for _, ev := range evs {
		for _, sub := range subs {
			sub.fn(ev)
		}
	}
}

// rejectReason is the short machine-readable cause of a rejected command.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, sim.ErrInsufficientMargin):
		return "insufficient_margin"
	case errors.Is(err, sim.ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, sim.ErrInvalidDirection):
		return "invalid_direction"
	case errors.Is(err, sim.ErrNoOpenPosition):
		return "no_open_position"
	case errors.Is(err, sim.ErrInstrumentMismatch):
		return "instrument_mismatch"
	case errors.Is(err, ErrNotLoaded):
		return "not_loaded"
	case errors.Is(err, alert.ErrInvalidPrice):
		return "invalid_price"
	case errors.Is(err, alert.ErrNotFound):
		return "alert_not_found"
	case errors.Is(err, drawing.ErrNotFound):
		return "drawing_not_found"
	case errors.Is(err, drawing.ErrInvalidStyle), errors.Is(err, drawing.ErrNoPoints):
		return "invalid_drawing"
	case errors.Is(err, drawing.ErrRangeOnContinuous):
		return "range_on_continuous"
	case errors.Is(err, drawing.ErrInvalidMode):
		return "invalid_mode"
	case errors.Is(err, market.ErrInvalidInstrument):
		return "invalid_instrument"
	case errors.Is(err, market.ErrInvalidTimeframe):
		return "invalid_timeframe"
	case errors.Is(err, replay.ErrInvalidInterval):
		return "invalid_speed"
	default:
		return "invalid_command"
	}
}
