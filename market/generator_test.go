package market

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

func rb(t *testing.T) Instrument {
	t.Helper()
	r, err := NewRegistry()
	require.NoError(t, err)
	in, err := r.Lookup("rb2501")
	require.NoError(t, err)
	return in
}

func TestGenerateShape(t *testing.T) {
	t.Parallel()

	instr := rb(t)
	for _, tf := range Timeframes {
		tf := tf
		t.Run(tf.Label, func(t *testing.T) {
			t.Parallel()
			bars := Generate(instr, 500, tf.Minutes, rand.New(rand.NewSource(7)), testNow)
			require.Len(t, bars, 500)
			require.NoError(t, ValidateSeries(bars))

			assert.Equal(t, instr.BasePrice, bars[0].Open)
			for i := 1; i < len(bars); i++ {
				assert.Equal(t, tf.Seconds(), bars[i].Time-bars[i-1].Time)
				assert.Equal(t, bars[i-1].Close, bars[i].Open)
			}
			last := bars[len(bars)-1]
			assert.LessOrEqual(t, last.Time+tf.Seconds(), testNow.Unix())
			assert.Greater(t, last.Time+2*tf.Seconds(), testNow.Unix())
		})
	}
}

func TestGenerateDeterministic(t *testing.T) {
	t.Parallel()

	instr := rb(t)
	a := Generate(instr, 300, 5, rand.New(rand.NewSource(42)), testNow)
	b := Generate(instr, 300, 5, rand.New(rand.NewSource(42)), testNow)
	c := Generate(instr, 300, 5, rand.New(rand.NewSource(43)), testNow)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestGenerateEmpty(t *testing.T) {
	t.Parallel()

	bars := Generate(rb(t), 0, 5, rand.New(rand.NewSource(1)), testNow)
	assert.NotNil(t, bars)
	assert.Empty(t, bars)
}

func TestGenerateZeroVolatility(t *testing.T) {
	t.Parallel()

	instr := Instrument{Code: "FLAT", BasePrice: 100, Multiplier: 1, MarginRate: 0.1}
	bars := Generate(instr, 50, 5, rand.New(rand.NewSource(3)), testNow)
	require.NoError(t, ValidateSeries(bars))
	for _, b := range bars {
		assert.InDelta(t, 100, b.Close, 0.5)
	}
}

func TestContinue(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(9))
	last := Bar{Time: 100, Open: 10, High: 11, Low: 9, Close: 10, Volume: 5}
	for i := 0; i < 100; i++ {
		next := Continue(last, last.Time+60, rng)
		assert.True(t, next.Valid())
		assert.Equal(t, last.Time+60, next.Time)
		assert.InDelta(t, last.Close, next.Close, last.Close*0.0005+1e-12)
		last = next
	}
}

func TestValidateSeriesRejects(t *testing.T) {
	t.Parallel()

	bad := []Bar{{Time: 1, Open: 10, High: 9, Low: 8, Close: 9}}
	assert.Error(t, ValidateSeries(bad))

	unordered := []Bar{
		{Time: 2, Open: 1, High: 1, Low: 1, Close: 1},
		{Time: 2, Open: 1, High: 1, Low: 1, Close: 1},
	}
	assert.Error(t, ValidateSeries(unordered))
}
