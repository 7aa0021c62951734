package indicators

import "github.com/rustyeddy/replaysim/market"

// SMA returns the simple moving average of closes. The value at i is the
// mean of closes [i-period+1, i] and is undefined for i < period-1.
func SMA(bars []market.Bar, period int) Series {
	s := newSeries(bars)
	if period < 1 {
		return s
	}
	ma := NewMA(period)
	for i, b := range bars {
		ma.Update(b)
		if ma.Ready() {
			s[i].Value = ma.Value()
			s[i].Valid = true
		}
	}
	return s
}

// EMA returns the exponential moving average of values, seeded with
// values[0]. Every index is defined.
func EMA(values []float64, period int) []float64 {
	if len(values) == 0 {
		return nil
	}
	ema := NewEMA(period)
	out := make([]float64, len(values))
	for i, v := range values {
		ema.Add(v)
		out[i] = ema.Value()
	}
	return out
}
