package market

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTimeframe is returned for unknown timeframe labels.
var ErrInvalidTimeframe = errors.New("invalid timeframe")

// Timeframe is a bar interval.
type Timeframe struct {
	Label   string `json:"label"`
	Minutes int    `json:"minutes"`
}

// Timeframes lists the supported intervals in display order.
var Timeframes = []Timeframe{
	{Label: "1m", Minutes: 1},
	{Label: "5m", Minutes: 5},
	{Label: "15m", Minutes: 15},
	{Label: "30m", Minutes: 30},
	{Label: "1D", Minutes: 1440},
}

// ParseTimeframe maps a label like "5m" or "1D" to its Timeframe.
func ParseTimeframe(label string) (Timeframe, error) {
	l := strings.TrimSpace(label)
	for _, tf := range Timeframes {
		if strings.EqualFold(tf.Label, l) {
			return tf, nil
		}
	}
	return Timeframe{}, fmt.Errorf("%w: %q", ErrInvalidTimeframe, label)
}

// Seconds is the bar spacing in seconds.
func (tf Timeframe) Seconds() int64 {
	return int64(tf.Minutes) * 60
}

// Continuous is the display hint for a line (intraday tick-like) chart
// rather than discrete candles.
func (tf Timeframe) Continuous() bool {
	return tf.Minutes == 1
}

func (tf Timeframe) String() string { return tf.Label }
