// Package indicators computes technical indicators over bar sequences.
//
// The batch functions (SMA, EMA, RSI, MACD) are pure: they hold no state
// between calls and recompute the whole series on demand. The streaming
// types (SimpleMA, ExponentialMA) are the incremental building blocks the
// batch functions are written on.
package indicators

import "github.com/rustyeddy/replaysim/market"

// Indicator consumes bars one at a time.
type Indicator interface {
	// Name returns a stable identifier like "MA(5)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next closed bar.
	Update(b market.Bar)

	// Ready reports whether Value() is meaningful.
	Ready() bool

	// Value returns the current value, or 0 when not ready.
	Value() float64
}

// Kind selects the lower indicator pane.
type Kind string

const (
	KindVolume Kind = "VOL"
	KindMACD   Kind = "MACD"
	KindRSI    Kind = "RSI"
)

// ParseKind maps a pane name to a Kind, defaulting to volume.
func ParseKind(s string) Kind {
	switch Kind(s) {
	case KindMACD, KindRSI:
		return Kind(s)
	default:
		return KindVolume
	}
}

// Point is one indicator sample. Valid is false during warm-up, where the
// value is undefined.
type Point struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
	Valid bool    `json:"valid"`
}

// Series is an indicator aligned index-for-index with its bars.
type Series []Point

func newSeries(bars []market.Bar) Series {
	s := make(Series, len(bars))
	for i, b := range bars {
		s[i].Time = b.Time
	}
	return s
}

// Last returns the final defined sample.
func (s Series) Last() (Point, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Valid {
			return s[i], true
		}
	}
	return Point{}, false
}

// Volume returns the bars' volumes as an always-defined series.
func Volume(bars []market.Bar) Series {
	s := newSeries(bars)
	for i, b := range bars {
		s[i].Value = float64(b.Volume)
		s[i].Valid = true
	}
	return s
}
