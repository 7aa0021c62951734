package session

import (
	"github.com/rustyeddy/replaysim/drawing"
	"github.com/rustyeddy/replaysim/geometry"
	"github.com/rustyeddy/replaysim/indicators"
	"github.com/rustyeddy/replaysim/market"
	"github.com/rustyeddy/replaysim/replay"
)

// Moving averages drawn on the price pane.
const (
	FastMA = 5
	SlowMA = 10
)

// Window is the visible prefix of the history. Callers must not modify it.
func (s *Session) Window() []market.Bar {
	return s.ctrl.Window()
}

// Continuous reports whether the chart draws as a line rather than candles.
func (s *Session) Continuous() bool {
	return s.ctrl.Timeframe().Continuous()
}

// Indicators holds the price-pane averages and the selected lower pane.
type Indicators struct {
	Kind   indicators.Kind        `json:"kind"`
	MA5    indicators.Series      `json:"ma5"`
	MA10   indicators.Series      `json:"ma10"`
	Volume indicators.Series      `json:"volume,omitempty"`
	RSI    indicators.Series      `json:"rsi,omitempty"`
	MACD   []indicators.MACDPoint `json:"macd,omitempty"`
}

// Indicators recomputes everything over the visible window.
func (s *Session) Indicators(kind indicators.Kind) Indicators {
	bars := s.ctrl.View().Window
	out := Indicators{
		Kind: kind,
		MA5:  indicators.SMA(bars, FastMA),
		MA10: indicators.SMA(bars, SlowMA),
	}
	switch kind {
	case indicators.KindRSI:
		out.RSI = indicators.RSI(bars, indicators.DefaultRSIPeriod)
	case indicators.KindMACD:
		out.MACD = indicators.MACD(bars, indicators.DefaultMACDFast, indicators.DefaultMACDSlow, indicators.DefaultMACDSignal)
	default:
		out.Kind = indicators.KindVolume
		out.Volume = indicators.Volume(bars)
	}
	return out
}

// Market is the quote header for the last visible bar.
func (s *Session) Market() market.Snapshot {
	v := s.ctrl.View()
	return market.SnapshotOf(v.Window, v.Instrument, s.cfg.Now())
}

// OrderBook draws a fresh display-only depth around the last close.
func (s *Session) OrderBook() market.Depth {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.ctrl.View()
	bar := market.CurrentBar(v.Window, v.Instrument, s.cfg.Now())
	return market.GenerateDepth(bar.Close, DepthLevels, s.bookRng)
}

// SnapPrice snaps price to the nearest OHLC value of the visible bar at t.
func (s *Session) SnapPrice(t int64, price float64) float64 {
	return geometry.SnapPrice(s.ctrl.Window(), t, price)
}

func (s *Session) MeasureRange(i, j int) (geometry.RangeStats, bool) {
	return geometry.Range(s.ctrl.Window(), i, j)
}

func (s *Session) MeasureVector(p1, p2 geometry.Point) geometry.VectorStats {
	return geometry.Vector(p1, p2)
}

// point resolves a chart click through the crosshair mode.
func (s *Session) pointLocked(p drawing.ChartPoint) geometry.Point {
	bars := s.ctrl.Window()
	return geometry.Point{
		Time:  p.Time,
		Price: s.crosshair.Resolve(bars, p.Time, p.Price),
		Index: geometry.NearestIndex(bars, p.Time),
	}
}

// AddDrawing adds a line or ray. In magnet mode every point is snapped.
func (s *Session) AddDrawing(points []drawing.ChartPoint, style drawing.Style) (drawing.Drawing, error) {
	s.mu.Lock()
	snapped := make([]drawing.ChartPoint, len(points))
	for i, p := range points {
		gp := s.pointLocked(p)
		snapped[i] = drawing.ChartPoint{Time: gp.Time, Price: gp.Price}
	}
	d, err := s.board.Add(snapped, style)
	s.mu.Unlock()

	if err != nil {
		s.emit([]Event{s.rejected(CommandRejected, err)})
		return drawing.Drawing{}, err
	}
	return d, nil
}

func (s *Session) UpdateDrawing(id int, p drawing.Patch) (drawing.Drawing, error) {
	s.mu.Lock()
	d, err := s.board.Update(id, p)
	s.mu.Unlock()

	if err != nil {
		s.emit([]Event{s.rejected(CommandRejected, err)})
		return drawing.Drawing{}, err
	}
	return d, nil
}

// ClearUnlockedDrawings removes every unlocked drawing and reports how
// many went.
func (s *Session) ClearUnlockedDrawings() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.ClearUnlocked()
}

func (s *Session) Drawings() []drawing.Drawing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.List()
}

func (s *Session) SetCrosshairMode(mode string) error {
	c, err := drawing.ParseCrosshair(mode)
	if err != nil {
		s.emit([]Event{s.rejected(CommandRejected, err)})
		return err
	}
	s.mu.Lock()
	s.crosshair = c
	s.mu.Unlock()
	return nil
}

func (s *Session) CrosshairMode() drawing.Crosshair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.crosshair
}

// SetMeasureMode switches between range and vector, dropping any pending
// first click.
func (s *Session) SetMeasureMode(mode string) error {
	s.mu.Lock()
	err := s.measure.SetMode(drawing.Mode(mode))
	s.mu.Unlock()

	if err != nil {
		s.emit([]Event{s.rejected(CommandRejected, err)})
	}
	return err
}

// MeasureClick feeds one click to the measurement tool. The second click
// completes it and ok is true.
func (s *Session) MeasureClick(p drawing.ChartPoint) (drawing.Result, bool, error) {
	s.mu.Lock()
	res, ok, err := s.measure.Click(s.pointLocked(p), s.ctrl.Window(), s.ctrl.Timeframe().Continuous())
	s.mu.Unlock()

	if err != nil {
		s.emit([]Event{s.rejected(CommandRejected, err)})
	}
	return res, ok, err
}

// MeasurePreview is the live result from the pending first click to p.
// ok is false when no measurement is in progress.
func (s *Session) MeasurePreview(p drawing.ChartPoint) (drawing.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.measure.Preview(s.pointLocked(p), s.ctrl.Window())
}

// CancelMeasure drops a pending first click.
func (s *Session) CancelMeasure() {
	s.mu.Lock()
	s.measure.Cancel()
	s.mu.Unlock()
}

// SetOverlay compares the chart against code's generated series.
func (s *Session) SetOverlay(code string) error {
	s.mu.Lock()
	err := s.setOverlayLocked(code)
	s.mu.Unlock()

	if err != nil {
		s.emit([]Event{s.rejected(CommandRejected, err)})
	}
	return err
}

func (s *Session) setOverlayLocked(code string) error {
	if !s.loaded() {
		return ErrNotLoaded
	}
	instr, err := s.cfg.Instruments.Lookup(code)
	if err != nil {
		return err
	}
	s.ctrl.SetOverlay(instr)
	s.log.Debug("overlay set", "session", s.id, "instrument", instr.Code)
	return nil
}

func (s *Session) ClearOverlay() {
	s.ctrl.ClearOverlay()
}

// Overlay returns the comparison series, or nil.
func (s *Session) Overlay() *replay.Overlay {
	return s.ctrl.Overlay()
}
