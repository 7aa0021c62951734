package drawing

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/replaysim/geometry"
	"github.com/rustyeddy/replaysim/market"
)

var (
	ErrRangeOnContinuous = errors.New("range measurement needs a candle chart")
	ErrInvalidMode       = errors.New("invalid mode")
)

// Mode selects what a measurement computes.
type Mode string

const (
	ModeRange  Mode = "range"
	ModeVector Mode = "vector"
)

// Result is a completed or previewed measurement. Exactly one of Range and
// Vector is set.
type Result struct {
	Mode   Mode                  `json:"mode"`
	From   geometry.Point        `json:"from"`
	To     geometry.Point        `json:"to"`
	Range  *geometry.RangeStats  `json:"range,omitempty"`
	Vector *geometry.VectorStats `json:"vector,omitempty"`
}

// Measurement is the in-progress two-click measurement. The anchor lives
// between the first and second click.
type Measurement struct {
	mode   Mode
	anchor *geometry.Point
}

func NewMeasurement() *Measurement {
	return &Measurement{mode: ModeRange}
}

func (m *Measurement) Mode() Mode { return m.mode }

// SetMode switches mode and discards any anchor.
func (m *Measurement) SetMode(mode Mode) error {
	if mode != ModeRange && mode != ModeVector {
		return fmt.Errorf("%w: measure mode %q", ErrInvalidMode, mode)
	}
	m.mode = mode
	m.anchor = nil
	return nil
}

// Click records the anchor on the first click and completes on the second.
// continuous marks a line chart, where range measurement is refused.
func (m *Measurement) Click(p geometry.Point, bars []market.Bar, continuous bool) (Result, bool, error) {
	if continuous && m.mode == ModeRange {
		m.anchor = nil
		return Result{}, false, ErrRangeOnContinuous
	}
	if m.anchor == nil {
		anchor := p
		m.anchor = &anchor
		return Result{}, false, nil
	}
	res, ok := m.measure(*m.anchor, p, bars)
	m.anchor = nil
	return res, ok, nil
}

// Preview measures from the anchor to p without completing.
func (m *Measurement) Preview(p geometry.Point, bars []market.Bar) (Result, bool) {
	if m.anchor == nil {
		return Result{}, false
	}
	return m.measure(*m.anchor, p, bars)
}

// Pending returns the anchor, if the first click has happened.
func (m *Measurement) Pending() (geometry.Point, bool) {
	if m.anchor == nil {
		return geometry.Point{}, false
	}
	return *m.anchor, true
}

func (m *Measurement) Cancel() { m.anchor = nil }

func (m *Measurement) measure(from, to geometry.Point, bars []market.Bar) (Result, bool) {
	res := Result{Mode: m.mode, From: from, To: to}
	switch m.mode {
	case ModeRange:
		rs, ok := geometry.Range(bars, from.Index, to.Index)
		if !ok {
			return Result{}, false
		}
		res.Range = &rs
	default:
		v := geometry.Vector(from, to)
		res.Vector = &v
	}
	return res, true
}
