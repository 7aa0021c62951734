package indicators

import "github.com/rustyeddy/replaysim/market"

// Conventional MACD periods.
const (
	DefaultMACDFast   = 12
	DefaultMACDSlow   = 26
	DefaultMACDSignal = 9
)

// MACDPoint holds the three MACD series at one bar.
type MACDPoint struct {
	Time      int64   `json:"time"`
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// MACD computes macd = EMA(fast) - EMA(slow), signal = EMA(macd, signal)
// and histogram = macd - signal. Every EMA is seeded with its first input,
// so all three lines are defined at every index.
func MACD(bars []market.Bar, fast, slow, signal int) []MACDPoint {
	if len(bars) == 0 {
		return nil
	}
	closes := market.Closes(bars)
	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)

	line := make([]float64, len(bars))
	for i := range line {
		line[i] = emaFast[i] - emaSlow[i]
	}
	sig := EMA(line, signal)

	out := make([]MACDPoint, len(bars))
	for i, b := range bars {
		out[i] = MACDPoint{
			Time:      b.Time,
			MACD:      line[i],
			Signal:    sig[i],
			Histogram: line[i] - sig[i],
		}
	}
	return out
}
