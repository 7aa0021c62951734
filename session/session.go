// Package session is the simulation state behind one chart: the replay
// controller, the paper ledger, alerts, drawings and the measurement tool,
// serialised behind a single lock.
//
// Every user intent enters through a Session method. Listeners are told
// what happened after the lock is released, so a listener may call back
// into the session.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/rustyeddy/replaysim/alert"
	"github.com/rustyeddy/replaysim/drawing"
	"github.com/rustyeddy/replaysim/internal/metrics"
	"github.com/rustyeddy/replaysim/journal"
	"github.com/rustyeddy/replaysim/market"
	"github.com/rustyeddy/replaysim/pkg/id"
	"github.com/rustyeddy/replaysim/replay"
	"github.com/rustyeddy/replaysim/sim"
)

const (
	DefaultStartingBalance = 100_000.0
	DepthLevels            = 5
)

// ErrNotLoaded is returned by commands that need a history before Load.
var ErrNotLoaded = errors.New("no history loaded")

type Config struct {
	StartingBalance float64
	Bars            int
	Warmup          int
	Interval        time.Duration

	// Seed drives every random draw. Zero picks one from the clock.
	Seed int64

	Instruments *market.Registry
	Journal     journal.Journal
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	Now         func() time.Time
}

type Session struct {
	mu sync.Mutex

	cfg     Config
	seed    int64
	id      string
	created time.Time
	ended   bool

	ctrl      *replay.Controller
	alerts    *alert.Monitor
	ledger    *sim.Ledger
	board     *drawing.Board
	measure   *drawing.Measurement
	crosshair drawing.Crosshair
	markers   []sim.Marker
	equity    []journal.EquitySnapshot
	bookRng   *rand.Rand

	metrics *metrics.Metrics
	log     *slog.Logger

	lmu     sync.Mutex
	subs    []subscriber
	nextSub int
}

// New returns a session with nothing loaded.
func New(cfg Config) (*Session, error) {
	if cfg.StartingBalance == 0 {
		cfg.StartingBalance = DefaultStartingBalance
	}
	if cfg.StartingBalance < 0 {
		return nil, fmt.Errorf("starting balance must be positive, got %v", cfg.StartingBalance)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Instruments == nil {
		reg, err := market.NewRegistry()
		if err != nil {
			return nil, err
		}
		cfg.Instruments = reg
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = cfg.Now().UnixNano()
	}

	alerts := alert.NewMonitor()
	ledger := sim.NewLedger(cfg.StartingBalance, cfg.Journal)
	ledger.SetLogger(cfg.Logger)

	s := &Session{
		cfg:  cfg,
		seed: seed,
		ctrl: replay.NewController(rand.New(rand.NewSource(seed)), alerts, replay.Options{
			Bars:     cfg.Bars,
			Warmup:   cfg.Warmup,
			Interval: cfg.Interval,
			Now:      cfg.Now,
		}),
		alerts:    alerts,
		ledger:    ledger,
		board:     drawing.NewBoard(),
		measure:   drawing.NewMeasurement(),
		crosshair: drawing.Free,
		bookRng:   rand.New(rand.NewSource(seed + 1)),
		metrics:   cfg.Metrics,
		log:       cfg.Logger,
	}
	return s, nil
}

// Load generates a fresh history for code at the tfLabel timeframe and
// clears the fill markers. A new instrument starts a new session: the
// ledger, alerts, drawings and overlay are cleared too. A timeframe change
// alone keeps them.
func (s *Session) Load(code, tfLabel string) error {
	s.mu.Lock()
	err := s.loadLocked(code, tfLabel)
	cursor := s.ctrl.Cursor()
	s.mu.Unlock()

	if err != nil {
		s.emit([]Event{s.rejected(CommandRejected, err)})
		return err
	}
	s.emit([]Event{{Kind: WindowUpdated, Cursor: cursor}})
	return nil
}

func (s *Session) loadLocked(code, tfLabel string) error {
	instr, err := s.cfg.Instruments.Lookup(code)
	if err != nil {
		return err
	}
	tf, err := market.ParseTimeframe(tfLabel)
	if err != nil {
		return err
	}

	if prev := s.ctrl.Instrument(); prev.Code != instr.Code {
		s.ledger.Reset()
		s.alerts.Reset()
		s.board.Reset()
		s.measure.Cancel()
		s.ctrl.ClearOverlay()
		s.equity = nil
		s.id = id.New()
		s.created = s.cfg.Now()
		s.ledger.SetSession(s.id)
	}
	s.ctrl.Load(instr, tf)
	s.markers = nil
	s.ended = false

	s.metrics.SessionLoaded()
	s.metrics.Seek(s.ctrl.Cursor())
	s.log.Info("history loaded",
		"session", s.id,
		"instrument", instr.Code,
		"timeframe", tf.Label,
		"bars", s.ctrl.Len(),
		"cursor", s.ctrl.Cursor(),
	)
	return nil
}

func (s *Session) loaded() bool { return s.ctrl.Len() > 0 }

func (s *Session) Play() {
	s.ctrl.Play()
}

func (s *Session) Pause() {
	s.ctrl.Pause()
}

func (s *Session) Playing() bool { return s.ctrl.Playing() }

func (s *Session) Interval() time.Duration { return s.ctrl.Interval() }

func (s *Session) SpeedChanged() <-chan struct{} { return s.ctrl.SpeedChanged() }

// SetSpeed sets the tick period in milliseconds.
func (s *Session) SetSpeed(ms int) error {
	err := s.ctrl.SetSpeed(time.Duration(ms) * time.Millisecond)
	if err != nil {
		s.emit([]Event{s.rejected(CommandRejected, err)})
	}
	return err
}

// Tick advances one bar, firing alerts and journaling equity.
func (s *Session) Tick() (replay.TickResult, error) {
	s.mu.Lock()
	res, evs, err := s.tickLocked()
	s.mu.Unlock()

	s.emit(evs)
	return res, err
}

// Step ticks once; it lets a replay.Driver run the session.
func (s *Session) Step() error {
	_, err := s.Tick()
	return err
}

// AdvanceBy ticks up to n times, stopping at the end of the history.
func (s *Session) AdvanceBy(n int) ([]replay.TickResult, error) {
	s.mu.Lock()
	var (
		out []replay.TickResult
		evs []Event
		err error
	)
	for i := 0; i < n; i++ {
		var (
			res replay.TickResult
			e   []Event
		)
		res, e, err = s.tickLocked()
		evs = append(evs, e...)
		if err != nil {
			break
		}
		out = append(out, res)
		if !res.Advanced {
			break
		}
	}
	s.mu.Unlock()

	s.emit(evs)
	return out, err
}

func (s *Session) tickLocked() (replay.TickResult, []Event, error) {
	start := time.Now()
	res, err := s.ctrl.Tick()
	if err != nil {
		s.log.Error("tick", "session", s.id, "error", err)
		return res, nil, err
	}

	var evs []Event
	if res.Advanced {
		instr := s.ctrl.Instrument()
		s.ledger.RecordEquity(instr, res.Next.Close, res.Next.Time)
		acct := s.ledger.Snapshot(instr, res.Next.Close)
		s.equity = append(s.equity, equitySnapshot(s.id, res.Next, acct))

		s.metrics.Tick(res.Cursor, time.Since(start))
		s.metrics.Account(acct.Balance, acct.Equity)

		for _, a := range res.Fired {
			a := a
			s.metrics.AlertFired()
			s.log.Info("alert fired", "session", s.id, "alert", a.ID, "price", a.Price, "close", res.Next.Close)
			evs = append(evs, Event{Kind: AlertFired, Cursor: res.Cursor, Alert: &a})
		}
		evs = append(evs, Event{Kind: WindowUpdated, Cursor: res.Cursor})
	}

	if res.Ended && !s.ended {
		s.ended = true
		s.metrics.SessionEnded()
		rep := s.summaryLocked()
		st := s.ledger.Stats()
		s.log.Info("replay ended",
			"session", s.id,
			"equity", rep.EndEquity,
			"trades", rep.Trades,
			"wins", st.Wins,
			"losses", st.Losses,
			"realized_pl", st.RealizedPL,
		)
		evs = append(evs, Event{Kind: SessionEnded, Cursor: res.Cursor, Summary: &rep})
	}
	return res, evs, nil
}

// Seek jumps to bar i, clamped to the history. Alerts between the old and
// new cursor are not evaluated.
func (s *Session) Seek(i int) int {
	s.mu.Lock()
	cursor := s.ctrl.Seek(i)
	if cursor < s.ctrl.Len()-1 {
		s.ended = false
	}
	s.metrics.Seek(cursor)
	s.mu.Unlock()

	s.emit([]Event{{Kind: WindowUpdated, Cursor: cursor}})
	return cursor
}

// Status is a cheap description of where the replay stands.
type Status struct {
	SessionID  string `json:"sessionId"`
	Instrument string `json:"instrument"`
	Timeframe  string `json:"timeframe"`
	Continuous bool   `json:"continuous"`
	Cursor     int    `json:"cursor"`
	Bars       int    `json:"bars"`
	Playing    bool   `json:"playing"`
	IntervalMS int64  `json:"intervalMs"`
	Ended      bool   `json:"ended"`
	Seed       int64  `json:"seed"`
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	tf := s.ctrl.Timeframe()
	return Status{
		SessionID:  s.id,
		Instrument: s.ctrl.Instrument().Code,
		Timeframe:  tf.Label,
		Continuous: tf.Continuous(),
		Cursor:     s.ctrl.Cursor(),
		Bars:       s.ctrl.Len(),
		Playing:    s.ctrl.Playing(),
		IntervalMS: s.ctrl.Interval().Milliseconds(),
		Ended:      s.ended,
		Seed:       s.seed,
	}
}

func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func (s *Session) rejected(kind EventKind, err error) Event {
	reason := rejectReason(err)
	s.metrics.Rejected(reason)
	s.log.Warn("command rejected", "kind", string(kind), "reason", reason, "error", err)
	return Event{Kind: kind, Cursor: s.ctrl.Cursor(), Reason: reason, Error: err.Error()}
}
