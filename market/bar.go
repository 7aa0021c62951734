package market

import (
	"fmt"
	"math"
	"time"
)

// Bar is one OHLCV candle. Time is the bar's open in unix seconds.
type Bar struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// Timestamp returns the bar open as a UTC time.
func (b Bar) Timestamp() time.Time {
	return time.Unix(b.Time, 0).UTC()
}

// Valid reports whether the OHLC envelope holds: low <= min(open,close) <= max(open,close) <= high.
func (b Bar) Valid() bool {
	if b.Volume < 0 {
		return false
	}
	return b.Low <= math.Min(b.Open, b.Close) && math.Max(b.Open, b.Close) <= b.High
}

// ValidateSeries checks every bar's envelope and that times strictly increase.
func ValidateSeries(bars []Bar) error {
	for i, b := range bars {
		if !b.Valid() {
			return fmt.Errorf("bar %d: invalid OHLC envelope o=%g h=%g l=%g c=%g v=%d",
				i, b.Open, b.High, b.Low, b.Close, b.Volume)
		}
		if i > 0 && b.Time <= bars[i-1].Time {
			return fmt.Errorf("bar %d: time %d not after %d", i, b.Time, bars[i-1].Time)
		}
	}
	return nil
}

// Closes extracts the close prices in order.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
