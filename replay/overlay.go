package replay

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/rustyeddy/replaysim/market"
)

var ErrOverlayDiverged = errors.New("overlay length diverged from primary window")

// Overlay is a second instrument's series shown against the primary. Its
// length always equals the primary window's.
type Overlay struct {
	Instrument market.Instrument `json:"instrument"`
	Bars       []market.Bar      `json:"bars"`
}

func newOverlay(instr market.Instrument, full []market.Bar, visible int) *Overlay {
	visible = max(0, min(visible, len(full)))
	bars := make([]market.Bar, visible)
	copy(bars, full[:visible])
	return &Overlay{Instrument: instr, Bars: bars}
}

func (o *Overlay) check(want int) error {
	if len(o.Bars) != want {
		return fmt.Errorf("%w: overlay %d, window %d", ErrOverlayDiverged, len(o.Bars), want)
	}
	return nil
}

// advance appends one continuation bar stamped at t.
func (o *Overlay) advance(t int64, rng *rand.Rand) {
	if len(o.Bars) == 0 {
		return
	}
	o.Bars = append(o.Bars, market.Continue(o.Bars[len(o.Bars)-1], t, rng))
}

// syncTo truncates or extends the series to match window.
func (o *Overlay) syncTo(window []market.Bar, rng *rand.Rand) {
	if len(o.Bars) >= len(window) {
		o.Bars = o.Bars[:len(window)]
		return
	}
	if len(o.Bars) == 0 {
		return
	}
	for i := len(o.Bars); i < len(window); i++ {
		o.advance(window[i].Time, rng)
	}
}

func (o *Overlay) clone() *Overlay {
	bars := make([]market.Bar, len(o.Bars))
	copy(bars, o.Bars)
	return &Overlay{Instrument: o.Instrument, Bars: bars}
}
