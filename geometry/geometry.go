// Package geometry maps chart coordinates to bars and measures price
// movement between points.
package geometry

import (
	"sort"

	"github.com/rustyeddy/replaysim/market"
)

// SnapPrice snaps a price to the nearest of the open, high, low and close
// of the bar at time t. It returns the price unchanged when no bar has
// that exact time.
func SnapPrice(bars []market.Bar, t int64, price float64) float64 {
	i, ok := IndexOf(bars, t)
	if !ok {
		return price
	}
	b := bars[i]
	best := b.Open
	bestDist := abs(price - best)
	for _, c := range []float64{b.High, b.Low, b.Close} {
		if d := abs(price - c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// IndexOf finds the bar with time t. Bars must be ascending by time.
func IndexOf(bars []market.Bar, t int64) (int, bool) {
	i := sort.Search(len(bars), func(i int) bool { return bars[i].Time >= t })
	if i < len(bars) && bars[i].Time == t {
		return i, true
	}
	return 0, false
}

// NearestIndex returns the index of the bar whose time is closest to t.
func NearestIndex(bars []market.Bar, t int64) int {
	if len(bars) == 0 {
		return -1
	}
	i := sort.Search(len(bars), func(i int) bool { return bars[i].Time >= t })
	switch {
	case i == 0:
		return 0
	case i == len(bars):
		return len(bars) - 1
	case t-bars[i-1].Time <= bars[i].Time-t:
		return i - 1
	default:
		return i
	}
}

// RangeStats summarises the bars between two indices, inclusive.
type RangeStats struct {
	From          int     `json:"from"`
	To            int     `json:"to"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	Count         int     `json:"count"`
}

// Range measures bars[min(a,b)..max(a,b)]. Indices are clamped to the
// slice; it reports false only when bars is empty.
func Range(bars []market.Bar, a, b int) (RangeStats, bool) {
	if len(bars) == 0 {
		return RangeStats{}, false
	}
	a, b = clamp(a, len(bars)), clamp(b, len(bars))
	if a > b {
		a, b = b, a
	}

	first, last := bars[a], bars[b]
	rs := RangeStats{
		From:   a,
		To:     b,
		High:   first.High,
		Low:    first.Low,
		Change: last.Close - first.Open,
		Count:  b - a + 1,
	}
	for _, bar := range bars[a : b+1] {
		if bar.High > rs.High {
			rs.High = bar.High
		}
		if bar.Low < rs.Low {
			rs.Low = bar.Low
		}
	}
	if first.Open != 0 {
		rs.ChangePercent = rs.Change / first.Open * 100
	}
	return rs, true
}

// Point is a chart coordinate. Index is the bar index the time falls on.
type Point struct {
	Time  int64   `json:"time"`
	Price float64 `json:"price"`
	Index int     `json:"index"`
}

// VectorStats is the price change and bar distance between two points.
type VectorStats struct {
	PriceDelta float64 `json:"priceDelta"`
	Percent    float64 `json:"percent"`
	Bars       int     `json:"bars"`
}

// Vector measures from p1 to p2. Percent is 0 when p1's price is 0.
func Vector(p1, p2 Point) VectorStats {
	v := VectorStats{
		PriceDelta: p2.Price - p1.Price,
		Bars:       p2.Index - p1.Index,
	}
	if v.Bars < 0 {
		v.Bars = -v.Bars
	}
	if p1.Price != 0 {
		v.Percent = v.PriceDelta / p1.Price * 100
	}
	return v
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
