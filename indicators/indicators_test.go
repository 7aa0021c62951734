package indicators

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/rustyeddy/replaysim/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generated(t *testing.T, n int) []market.Bar {
	t.Helper()
	reg, err := market.NewRegistry()
	require.NoError(t, err)
	instr, err := reg.Lookup("rb2501")
	require.NoError(t, err)
	now := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	return market.Generate(instr, n, 5, rand.New(rand.NewSource(7)), now)
}

func TestSMA(t *testing.T) {
	t.Parallel()
	bars := closesToBars(1, 2, 3, 4, 5)

	s := SMA(bars, 3)
	require.Len(t, s, 5)
	assert.False(t, s[0].Valid)
	assert.False(t, s[1].Valid)
	assert.True(t, s[2].Valid)
	assert.InDelta(t, 2.0, s[2].Value, 1e-9)
	assert.InDelta(t, 3.0, s[3].Value, 1e-9)
	assert.InDelta(t, 4.0, s[4].Value, 1e-9)
	for i := range bars {
		assert.Equal(t, bars[i].Time, s[i].Time)
	}

	last, ok := s.Last()
	require.True(t, ok)
	assert.InDelta(t, 4.0, last.Value, 1e-9)
}

func TestSMAShortInput(t *testing.T) {
	t.Parallel()
	s := SMA(closesToBars(1, 2), 5)
	require.Len(t, s, 2)
	_, ok := s.Last()
	assert.False(t, ok)

	assert.Empty(t, SMA(nil, 5))
}

func TestEMA(t *testing.T) {
	t.Parallel()
	out := EMA([]float64{10, 20, 20}, 3)
	assert.InDeltaSlice(t, []float64{10, 15, 17.5}, out, 1e-9)
	assert.Nil(t, EMA(nil, 3))
}

func TestRSI(t *testing.T) {
	t.Parallel()

	t.Run("undefined before period", func(t *testing.T) {
		bars := closesToBars(1, 2, 3, 4, 5, 6)
		s := RSI(bars, 3)
		for i := 0; i < 3; i++ {
			assert.False(t, s[i].Valid, "index %d", i)
		}
		assert.True(t, s[3].Valid)
	})

	t.Run("monotonic rise is near 100", func(t *testing.T) {
		bars := closesToBars(1, 2, 3, 4, 5, 6)
		s := RSI(bars, 3)
		// avgLoss is 0 and replaced by the epsilon.
		assert.InDelta(t, 100-100/(1+1/rsiEpsilon), s[3].Value, 1e-9)
		assert.Greater(t, s[5].Value, 99.9)
	})

	t.Run("known values", func(t *testing.T) {
		// deltas: +2, -1, +1, -2
		bars := closesToBars(10, 12, 11, 12, 10)
		s := RSI(bars, 3)

		// seed: gain 3/3 = 1, loss 1/3
		assert.InDelta(t, 75.0, s[3].Value, 1e-9)

		// smoothed: gain (1*2+0)/3 = 2/3, loss (1/3*2+2)/3 = 8/9
		rs := (2.0 / 3.0) / (8.0 / 9.0)
		assert.InDelta(t, 100-100/(1+rs), s[4].Value, 1e-9)
	})

	t.Run("flat series", func(t *testing.T) {
		s := RSI(closesToBars(5, 5, 5, 5), 2)
		assert.InDelta(t, 0.0, s[2].Value, 1e-9)
	})

	t.Run("too short", func(t *testing.T) {
		s := RSI(closesToBars(1, 2, 3), 3)
		_, ok := s.Last()
		assert.False(t, ok)
	})

	t.Run("bounded and idempotent", func(t *testing.T) {
		bars := generated(t, 300)
		a := RSI(bars, DefaultRSIPeriod)
		b := RSI(bars, DefaultRSIPeriod)
		assert.Equal(t, a, b)
		for _, p := range a {
			if !p.Valid {
				continue
			}
			assert.GreaterOrEqual(t, p.Value, 0.0)
			assert.LessOrEqual(t, p.Value, 100.0)
		}
	})
}

func TestMACD(t *testing.T) {
	t.Parallel()
	bars := generated(t, 200)

	m := MACD(bars, DefaultMACDFast, DefaultMACDSlow, DefaultMACDSignal)
	require.Len(t, m, len(bars))

	// Every EMA is seeded with the first close, so the first sample is zero.
	assert.Equal(t, 0.0, m[0].MACD)
	assert.Equal(t, 0.0, m[0].Signal)

	for i, p := range m {
		assert.Equal(t, bars[i].Time, p.Time)
		assert.False(t, math.IsNaN(p.MACD))
		assert.InDelta(t, p.MACD-p.Signal, p.Histogram, 1e-12)
	}

	assert.Nil(t, MACD(nil, 12, 26, 9))
}

func TestVolumeAndKind(t *testing.T) {
	t.Parallel()
	bars := closesToBars(1, 2)
	v := Volume(bars)
	require.Len(t, v, 2)
	assert.True(t, v[0].Valid)
	assert.Equal(t, 100.0, v[1].Value)

	assert.Equal(t, KindRSI, ParseKind("RSI"))
	assert.Equal(t, KindMACD, ParseKind("MACD"))
	assert.Equal(t, KindVolume, ParseKind("bogus"))
}
