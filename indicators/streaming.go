package indicators

import (
	"fmt"

	"github.com/rustyeddy/replaysim/market"
)

// SimpleMA is a streaming simple moving average of closes.
type SimpleMA struct {
	period int
	window []float64
	sum    float64
}

// NewMA creates a streaming simple moving average with the given period.
func NewMA(period int) *SimpleMA {
	if period < 1 {
		period = 1
	}
	return &SimpleMA{
		period: period,
		window: make([]float64, 0, period),
	}
}

func (m *SimpleMA) Name() string { return fmt.Sprintf("MA(%d)", m.period) }
func (m *SimpleMA) Warmup() int  { return m.period }

func (m *SimpleMA) Reset() {
	m.window = m.window[:0]
	m.sum = 0
}

func (m *SimpleMA) Update(b market.Bar) { m.Add(b.Close) }

// Add pushes a raw value.
func (m *SimpleMA) Add(x float64) {
	m.window = append(m.window, x)
	m.sum += x
	if len(m.window) > m.period {
		m.sum -= m.window[0]
		m.window = m.window[1:]
	}
}

func (m *SimpleMA) Ready() bool { return len(m.window) >= m.period }

func (m *SimpleMA) Value() float64 {
	if !m.Ready() {
		return 0
	}
	// Re-sum the window so rounding drift from the running total cannot accumulate.
	sum := 0.0
	for _, x := range m.window {
		sum += x
	}
	return sum / float64(m.period)
}

// ExponentialMA is a streaming EMA with smoothing k = 2/(n+1), seeded with
// the first value it sees. Because of the seed it is defined from the first
// update; Ready only reports that the nominal period has elapsed.
type ExponentialMA struct {
	period int
	k      float64
	seen   int
	value  float64
}

// NewEMA creates a streaming exponential moving average.
func NewEMA(period int) *ExponentialMA {
	if period < 1 {
		period = 1
	}
	return &ExponentialMA{
		period: period,
		k:      2.0 / float64(period+1),
	}
}

func (e *ExponentialMA) Name() string { return fmt.Sprintf("EMA(%d)", e.period) }
func (e *ExponentialMA) Warmup() int  { return e.period }

func (e *ExponentialMA) Reset() {
	e.seen = 0
	e.value = 0
}

func (e *ExponentialMA) Update(b market.Bar) { e.Add(b.Close) }

// Add pushes a raw value.
func (e *ExponentialMA) Add(x float64) {
	e.seen++
	if e.seen == 1 {
		e.value = x
		return
	}
	e.value = x*e.k + e.value*(1-e.k)
}

func (e *ExponentialMA) Ready() bool    { return e.seen >= e.period }
func (e *ExponentialMA) Value() float64 { return e.value }
