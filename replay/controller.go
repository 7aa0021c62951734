// Package replay steps through a generated bar history one bar at a time.
//
// A Controller owns the bar sequence, the cursor and the playback state.
// The visible window is always the inclusive prefix bars[0..cursor].
// Tick is the only operation that evaluates alerts; Seek never does.
package replay

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rustyeddy/replaysim/alert"
	"github.com/rustyeddy/replaysim/market"
)

const (
	DefaultBars     = 3000
	DefaultWarmup   = 200
	DefaultInterval = time.Second
)

var ErrInvalidInterval = errors.New("interval must be positive")

// State is the playback state.
type State int

const (
	Stopped State = iota
	Playing
)

func (s State) String() string {
	if s == Playing {
		return "playing"
	}
	return "stopped"
}

// AlertEvaluator is told about every bar boundary a tick crosses.
type AlertEvaluator interface {
	Evaluate(prevClose, nextClose float64) []alert.Alert
}

// Options configures a Controller. Zero values take the defaults.
type Options struct {
	Bars     int
	Warmup   int
	Interval time.Duration
	Now      func() time.Time
}

func (o *Options) setDefaults() {
	if o.Bars == 0 {
		o.Bars = DefaultBars
	}
	if o.Warmup == 0 {
		o.Warmup = DefaultWarmup
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// TickResult describes one tick.
type TickResult struct {
	Advanced bool          `json:"advanced"`
	Ended    bool          `json:"ended"`
	Cursor   int           `json:"cursor"`
	Prev     market.Bar    `json:"prev"`
	Next     market.Bar    `json:"next"`
	Fired    []alert.Alert `json:"fired,omitempty"`
}

type Controller struct {
	mu       sync.Mutex
	opts     Options
	rng      *rand.Rand
	alerts   AlertEvaluator
	instr    market.Instrument
	tf       market.Timeframe
	bars     []market.Bar
	cursor   int
	state    State
	interval time.Duration
	overlay  *Overlay
	speedc   chan struct{}
}

// NewController returns an empty, stopped controller. Every random draw
// it makes comes from rng.
func NewController(rng *rand.Rand, alerts AlertEvaluator, opts Options) *Controller {
	opts.setDefaults()
	return &Controller{
		opts:     opts,
		rng:      rng,
		alerts:   alerts,
		interval: opts.Interval,
		speedc:   make(chan struct{}, 1),
	}
}

// Load regenerates the history for instr at tf and rewinds to the warm-up
// offset. Playback stops first; bars, cursor and overlay are replaced
// together.
func (c *Controller) Load(instr market.Instrument, tf market.Timeframe) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = Stopped
	now := c.opts.Now()
	bars := market.Generate(instr, c.opts.Bars, tf.Minutes, c.rng, now)

	cursor := min(c.opts.Warmup, len(bars)-1)
	if cursor < 0 {
		cursor = 0
	}

	var overlay *Overlay
	if c.overlay != nil {
		overlay = newOverlay(c.overlay.Instrument, market.Generate(c.overlay.Instrument, len(bars), tf.Minutes, c.rng, now), cursor+1)
	}

	c.instr, c.tf = instr, tf
	c.bars, c.cursor = bars, cursor
	c.overlay = overlay
}

// SetSpeed changes the tick period without touching the cursor.
func (c *Controller) SetSpeed(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, d)
	}
	c.mu.Lock()
	c.interval = d
	c.mu.Unlock()

	select {
	case c.speedc <- struct{}{}:
	default:
	}
	return nil
}

// SpeedChanged receives after every SetSpeed. Signals coalesce.
func (c *Controller) SpeedChanged() <-chan struct{} { return c.speedc }

func (c *Controller) Interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

func (c *Controller) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Playing
}

func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Stopped
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Playing() bool { return c.State() == Playing }

// Tick advances the cursor by one bar. At the last bar it stops playback
// and reports Ended instead. Alerts see the exact pair of closes crossed.
func (c *Controller) Tick() (TickResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tickLocked()
}

func (c *Controller) tickLocked() (TickResult, error) {
	if len(c.bars) == 0 {
		return TickResult{}, nil
	}
	if c.cursor >= len(c.bars)-1 {
		c.state = Stopped
		return TickResult{Ended: true, Cursor: c.cursor}, nil
	}
	if c.overlay != nil {
		if err := c.overlay.check(c.cursor + 1); err != nil {
			return TickResult{}, err
		}
	}

	prev := c.bars[c.cursor]
	c.cursor++
	next := c.bars[c.cursor]

	res := TickResult{Advanced: true, Cursor: c.cursor, Prev: prev, Next: next}
	if c.alerts != nil {
		res.Fired = c.alerts.Evaluate(prev.Close, next.Close)
	}
	if c.overlay != nil {
		c.overlay.advance(next.Time, c.rng)
	}
	return res, nil
}

// AdvanceBy runs up to n ticks, stopping early at the end of the history.
func (c *Controller) AdvanceBy(n int) ([]TickResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []TickResult
	for i := 0; i < n; i++ {
		res, err := c.tickLocked()
		if err != nil {
			return out, err
		}
		out = append(out, res)
		if !res.Advanced {
			break
		}
	}
	return out, nil
}

// Step ticks once, for use by a Driver.
func (c *Controller) Step() error {
	_, err := c.Tick()
	return err
}

// Seek moves the cursor to i, clamped to the history. Alerts for skipped
// bars are not evaluated.
func (c *Controller) Seek(i int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.bars) == 0 {
		return 0
	}
	c.cursor = max(0, min(i, len(c.bars)-1))
	if c.overlay != nil {
		c.overlay.syncTo(c.bars[:c.cursor+1], c.rng)
	}
	return c.cursor
}

// Window is the visible prefix bars[0..cursor]. Callers must not modify it.
func (c *Controller) Window() []market.Bar {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.bars) == 0 {
		return nil
	}
	return c.bars[: c.cursor+1 : c.cursor+1]
}

// View is the visible window with the instrument and timeframe it was
// generated for.
type View struct {
	Instrument market.Instrument
	Timeframe  market.Timeframe
	Window     []market.Bar
}

// View reads the window and what it belongs to under one lock, so a
// concurrent Load cannot pair one series with another's instrument.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := View{Instrument: c.instr, Timeframe: c.tf}
	if len(c.bars) > 0 {
		v.Window = c.bars[: c.cursor+1 : c.cursor+1]
	}
	return v
}

// Current is the last visible bar.
func (c *Controller) Current() (market.Bar, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.bars) == 0 {
		return market.Bar{}, false
	}
	return c.bars[c.cursor], true
}

func (c *Controller) Cursor() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// Len is the full history length, visible or not.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.bars)
}

func (c *Controller) Instrument() market.Instrument {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.instr
}

func (c *Controller) Timeframe() market.Timeframe {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tf
}

// SetOverlay starts a comparison series for instr, aligned to the current
// window.
func (c *Controller) SetOverlay(instr market.Instrument) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.bars)
	full := market.Generate(instr, n, c.tf.Minutes, c.rng, c.opts.Now())
	visible := 0
	if n > 0 {
		visible = c.cursor + 1
	}
	c.overlay = newOverlay(instr, full, visible)
}

func (c *Controller) ClearOverlay() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overlay = nil
}

// Overlay returns the comparison series, or nil when none is set.
func (c *Controller) Overlay() *Overlay {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.overlay == nil {
		return nil
	}
	return c.overlay.clone()
}
