package indicators

import "github.com/rustyeddy/replaysim/market"

// DefaultRSIPeriod is the conventional Wilder period.
const DefaultRSIPeriod = 14

// rsiEpsilon replaces a zero average loss.
const rsiEpsilon = 0.0001

// RSI computes Wilder's relative strength index over closes.
//
// The first period close-to-close deltas (indices 1..period) seed simple
// averages of gains and losses; the first value is emitted at index
// period. Later indices apply Wilder smoothing with factor 1/period.
// Indices before period are undefined.
func RSI(bars []market.Bar, period int) Series {
	s := newSeries(bars)
	if period < 1 || len(bars) <= period {
		return s
	}

	p := float64(period)
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		g, l := gainLoss(bars[i-1].Close, bars[i].Close)
		avgGain += g
		avgLoss += l
	}
	avgGain /= p
	avgLoss /= p
	s[period] = Point{Time: bars[period].Time, Value: rsiValue(avgGain, avgLoss), Valid: true}

	for i := period + 1; i < len(bars); i++ {
		g, l := gainLoss(bars[i-1].Close, bars[i].Close)
		avgGain = (avgGain*(p-1) + g) / p
		avgLoss = (avgLoss*(p-1) + l) / p
		s[i] = Point{Time: bars[i].Time, Value: rsiValue(avgGain, avgLoss), Valid: true}
	}
	return s
}

func gainLoss(prev, cur float64) (gain, loss float64) {
	d := cur - prev
	if d > 0 {
		return d, 0
	}
	return 0, -d
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		avgLoss = rsiEpsilon
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
