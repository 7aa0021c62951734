package market

import (
	"math"
	"math/rand"
	"time"
)

// Generate produces barCount synthetic bars for instr as a random walk
// starting at instr.BasePrice.
//
// Determinism comes only from rng: the same seed, instrument, count,
// timeframe and now always yield the same series. Bars are spaced by
// tfMinutes*60 seconds and the last bar's interval closes at now.
// A timeframe below one minute is treated as one minute.
func Generate(instr Instrument, barCount int, tfMinutes int, rng *rand.Rand, now time.Time) []Bar {
	if barCount <= 0 {
		return []Bar{}
	}
	if tfMinutes < 1 {
		tfMinutes = 1
	}

	step := int64(tfMinutes) * 60
	end := now.Unix() - now.Unix()%step
	t := end - int64(barCount)*step

	// Session bias, fixed for the whole call.
	drift := (rng.Float64() - 0.5) * 0.0001
	vol := instr.Volatility * math.Sqrt(float64(tfMinutes)/1440)

	bars := make([]Bar, barCount)
	price := instr.BasePrice
	for i := range bars {
		shock := rng.Float64()*2 - 1
		closePx := price * (1 + drift + vol*shock)

		wick := vol * price * 0.5
		high := math.Max(price, closePx) + rng.Float64()*wick
		low := math.Min(price, closePx) - rng.Float64()*wick

		body := math.Abs(closePx - price)
		volume := int64(rng.Float64()*1000 + (body/price)*1_000_000)
		if volume < 0 {
			volume = -volume
		}

		bars[i] = Bar{
			Time:   t,
			Open:   price,
			High:   high,
			Low:    low,
			Close:  closePx,
			Volume: volume,
		}
		price = closePx
		t += step
	}
	return bars
}

// Continue derives the next comparison bar from last, stamped at t.
// The close moves by at most +/-0.05%.
func Continue(last Bar, t int64, rng *rand.Rand) Bar {
	closePx := last.Close * (1 + (rng.Float64()-0.5)*0.001)
	return Bar{
		Time:   t,
		Open:   last.Close,
		High:   math.Max(last.Close, closePx),
		Low:    math.Min(last.Close, closePx),
		Close:  closePx,
		Volume: last.Volume,
	}
}
