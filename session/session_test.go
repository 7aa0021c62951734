package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rustyeddy/replaysim/alert"
	"github.com/rustyeddy/replaysim/drawing"
	"github.com/rustyeddy/replaysim/geometry"
	"github.com/rustyeddy/replaysim/indicators"
	"github.com/rustyeddy/replaysim/internal/logger"
	"github.com/rustyeddy/replaysim/internal/metrics"
	"github.com/rustyeddy/replaysim/journal"
	"github.com/rustyeddy/replaysim/market"
	"github.com/rustyeddy/replaysim/replay"
	"github.com/rustyeddy/replaysim/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

type memJournal struct {
	mu     sync.Mutex
	trades []journal.TradeRecord
	equity []journal.EquitySnapshot
}

func (j *memJournal) RecordTrade(rec journal.TradeRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.trades = append(j.trades, rec)
	return nil
}

func (j *memJournal) RecordEquity(rec journal.EquitySnapshot) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.equity = append(j.equity, rec)
	return nil
}

func (j *memJournal) Close() error { return nil }

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) listen(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) kind(k EventKind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Kind == k {
			out = append(out, ev)
		}
	}
	return out
}

func testConfig(bars, warmup int) Config {
	return Config{
		Bars:    bars,
		Warmup:  warmup,
		Seed:    1,
		Journal: &memJournal{},
		Logger:  logger.Discard(),
		Now:     func() time.Time { return testNow },
	}
}

func newTestSession(t *testing.T, cfg Config) (*Session, *recorder) {
	t.Helper()
	s, err := New(cfg)
	require.NoError(t, err)
	rec := &recorder{}
	s.Subscribe(rec.listen)
	require.NoError(t, s.Load("rb2501", "5m"))
	return s, rec
}

func lastClose(t *testing.T, s *Session) market.Bar {
	t.Helper()
	w := s.Window()
	require.NotEmpty(t, w)
	return w[len(w)-1]
}

func TestLoad(t *testing.T) {
	t.Parallel()
	s, rec := newTestSession(t, testConfig(300, 50))

	st := s.Status()
	assert.Equal(t, "rb2501", st.Instrument)
	assert.Equal(t, "5m", st.Timeframe)
	assert.Equal(t, 50, st.Cursor)
	assert.Equal(t, 300, st.Bars)
	assert.False(t, st.Playing)
	assert.Equal(t, int64(1000), st.IntervalMS)
	assert.NotEmpty(t, st.SessionID)
	assert.Len(t, s.Window(), 51)
	assert.False(t, s.Continuous())
	assert.Len(t, rec.kind(WindowUpdated), 1)
}

func TestLoadRejectsUnknownInstrumentAndTimeframe(t *testing.T) {
	t.Parallel()
	s, rec := newTestSession(t, testConfig(300, 50))

	err := s.Load("nope", "5m")
	assert.ErrorIs(t, err, market.ErrInvalidInstrument)
	err = s.Load("rb2501", "2h")
	assert.ErrorIs(t, err, market.ErrInvalidTimeframe)

	got := rec.kind(CommandRejected)
	require.Len(t, got, 2)
	assert.Equal(t, "invalid_instrument", got[0].Reason)
	assert.Equal(t, "invalid_timeframe", got[1].Reason)

	// The loaded history is untouched.
	assert.Equal(t, "rb2501", s.Status().Instrument)
	assert.Equal(t, 50, s.Status().Cursor)
}

func TestNoTradesKeepsEquityAtBalance(t *testing.T) {
	t.Parallel()
	cfg := testConfig(300, 50)
	j := cfg.Journal.(*memJournal)
	s, _ := newTestSession(t, cfg)

	res, err := s.AdvanceBy(20)
	require.NoError(t, err)
	require.Len(t, res, 20)

	acct := s.Account()
	assert.Equal(t, 100000.0, acct.Balance)
	assert.Equal(t, 100000.0, acct.Equity)
	assert.Zero(t, acct.TradeCount)

	require.Len(t, j.equity, 20)
	for _, e := range j.equity {
		assert.Equal(t, 100000.0, e.Equity)
		assert.Equal(t, s.ID(), e.SessionID)
	}

	sum := s.Summary()
	assert.Equal(t, 0.0, sum.NetPL)
	assert.Equal(t, 100000.0, sum.EndEquity)
	assert.Zero(t, sum.Trades)
}

func TestExecuteTradeFillsAtLastClose(t *testing.T) {
	t.Parallel()
	s, rec := newTestSession(t, testConfig(300, 50))
	bar := lastClose(t, s)

	out, err := s.ExecuteTrade(sim.Buy, 2)
	require.NoError(t, err)
	assert.Equal(t, sim.Opened, out.Kind)
	require.Len(t, out.Trades, 1)
	assert.Equal(t, bar.Close, out.Trades[0].Price)
	assert.Equal(t, bar.Time, out.Trades[0].Time)

	markers := s.Markers()
	require.Len(t, markers, 1)
	assert.Equal(t, "O", markers[0].Text)
	assert.Equal(t, sim.BelowBar, markers[0].Position)

	got := rec.kind(TradeAccepted)
	require.Len(t, got, 1)
	assert.Equal(t, sim.Opened, got[0].Outcome.Kind)
	assert.Equal(t, 50, got[0].Cursor)

	acct := s.Account()
	require.NotNil(t, acct.Position)
	assert.Equal(t, 2, acct.Position.Quantity)
	assert.InDelta(t, acct.Balance, acct.Equity, 1e-9)
}

func TestTradeBeforeLoad(t *testing.T) {
	t.Parallel()
	s, err := New(testConfig(300, 50))
	require.NoError(t, err)
	rec := &recorder{}
	s.Subscribe(rec.listen)

	_, err = s.ExecuteTrade(sim.Buy, 1)
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = s.CloseAll()
	assert.ErrorIs(t, err, ErrNotLoaded)

	got := rec.kind(TradeRejected)
	require.Len(t, got, 2)
	assert.Equal(t, "not_loaded", got[0].Reason)
}

func TestMarginRejectionLeavesLedgerAlone(t *testing.T) {
	t.Parallel()
	cfg := testConfig(300, 50)
	cfg.StartingBalance = 1000
	m := metrics.New(nil)
	cfg.Metrics = m
	s, rec := newTestSession(t, cfg)

	_, err := s.ExecuteTrade(sim.Buy, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sim.ErrInsufficientMargin))

	var me *sim.MarginError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, 1000.0, me.Available)

	assert.Equal(t, 1000.0, s.Account().Balance)
	assert.Empty(t, s.Trades())
	assert.Empty(t, s.Markers())

	got := rec.kind(TradeRejected)
	require.Len(t, got, 1)
	assert.Equal(t, "insufficient_margin", got[0].Reason)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RejectionsTotal.WithLabelValues("insufficient_margin")))
}

func TestCloseAllSettlesEquityToBalance(t *testing.T) {
	t.Parallel()
	s, _ := newTestSession(t, testConfig(300, 50))

	_, err := s.ExecuteTrade(sim.Sell, 3)
	require.NoError(t, err)
	_, err = s.AdvanceBy(10)
	require.NoError(t, err)

	out, err := s.CloseAll()
	require.NoError(t, err)
	assert.Equal(t, sim.Closed, out.Kind)
	require.Len(t, out.Markers, 1)
	assert.Equal(t, "Close", out.Markers[0].Text)

	acct := s.Account()
	assert.Nil(t, acct.Position)
	assert.Equal(t, acct.Balance, acct.Equity)
	assert.InDelta(t, 100000+out.RealizedPL, acct.Balance, 1e-6)

	sum := s.Summary()
	assert.Equal(t, 2, sum.Trades)
	assert.InDelta(t, acct.Balance, sum.EndEquity, 1e-6)
	assert.Empty(t, sum.Notes)

	_, err = s.CloseAll()
	assert.ErrorIs(t, err, sim.ErrNoOpenPosition)
}

func TestAlertFiresOnTick(t *testing.T) {
	t.Parallel()
	s, rec := newTestSession(t, testConfig(300, 50))
	twin, _ := newTestSession(t, testConfig(300, 50))

	peek, err := twin.Tick()
	require.NoError(t, err)
	require.True(t, peek.Advanced)
	if peek.Prev.Close == peek.Next.Close {
		t.Skip("flat bar")
	}

	a, err := s.AddAlert(peek.Next.Close)
	require.NoError(t, err)

	res, err := s.Tick()
	require.NoError(t, err)
	require.Len(t, res.Fired, 1)
	assert.Equal(t, a.ID, res.Fired[0].ID)

	got := rec.kind(AlertFired)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].Alert.ID)

	alerts := s.Alerts()
	require.Len(t, alerts, 1)
	assert.False(t, alerts[0].Active)

	_, err = s.AddAlert(-5)
	assert.ErrorIs(t, err, alert.ErrInvalidPrice)
	assert.ErrorIs(t, s.RemoveAlert(99), alert.ErrNotFound)
	require.NoError(t, s.RemoveAlert(a.ID))
	assert.Empty(t, s.Alerts())
}

func TestSeekDoesNotEvaluateAlerts(t *testing.T) {
	t.Parallel()
	s, rec := newTestSession(t, testConfig(300, 50))
	c := lastClose(t, s).Close

	for _, p := range []float64{c * 0.995, c * 0.999, c * 1.001, c * 1.005} {
		_, err := s.AddAlert(p)
		require.NoError(t, err)
	}

	assert.Equal(t, 299, s.Seek(1000))
	assert.Equal(t, 0, s.Seek(-4))
	assert.Equal(t, 250, s.Seek(250))

	assert.Empty(t, rec.kind(AlertFired))
	for _, a := range s.Alerts() {
		assert.True(t, a.Active)
	}
	assert.Len(t, s.Window(), 251)
}

func TestSessionEndsOnce(t *testing.T) {
	t.Parallel()
	s, rec := newTestSession(t, testConfig(60, 50))
	s.Play()

	res, err := s.AdvanceBy(20)
	require.NoError(t, err)
	require.Len(t, res, 10)
	assert.True(t, res[9].Ended)
	assert.False(t, s.Playing())

	_, err = s.Tick()
	require.NoError(t, err)

	got := rec.kind(SessionEnded)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Summary)
	assert.Equal(t, 100000.0, got[0].Summary.EndEquity)
	assert.True(t, s.Status().Ended)

	// Seeking back re-arms the end notification.
	s.Seek(55)
	assert.False(t, s.Status().Ended)
	_, err = s.AdvanceBy(10)
	require.NoError(t, err)
	assert.Len(t, rec.kind(SessionEnded), 2)
}

func TestInstrumentChangeStartsFreshSession(t *testing.T) {
	t.Parallel()
	s, _ := newTestSession(t, testConfig(300, 50))
	first := s.ID()

	_, err := s.ExecuteTrade(sim.Buy, 1)
	require.NoError(t, err)
	_, err = s.AddAlert(1)
	require.NoError(t, err)
	_, err = s.AddDrawing([]drawing.ChartPoint{{Time: lastClose(t, s).Time, Price: 3300}}, drawing.Style{})
	require.NoError(t, err)
	require.NoError(t, s.SetOverlay("ag2512"))

	// Timeframe only: the ledger survives, the markers do not.
	require.NotEmpty(t, s.Markers())
	require.NoError(t, s.Load("rb2501", "15m"))
	assert.Equal(t, first, s.ID())
	assert.Len(t, s.Trades(), 1)
	assert.Empty(t, s.Markers())
	assert.Len(t, s.Alerts(), 1)
	assert.NotNil(t, s.Overlay())

	require.NoError(t, s.Load("ag2512", "5m"))
	assert.NotEqual(t, first, s.ID())
	assert.Empty(t, s.Trades())
	assert.Empty(t, s.Markers())
	assert.Empty(t, s.Alerts())
	assert.Empty(t, s.Drawings())
	assert.Nil(t, s.Overlay())
	assert.Equal(t, 100000.0, s.Account().Balance)
}

func TestIndicators(t *testing.T) {
	t.Parallel()
	s, _ := newTestSession(t, testConfig(300, 50))
	n := len(s.Window())

	vol := s.Indicators(indicators.ParseKind("VOL"))
	assert.Equal(t, indicators.KindVolume, vol.Kind)
	assert.Len(t, vol.MA5, n)
	assert.Len(t, vol.MA10, n)
	assert.Len(t, vol.Volume, n)
	assert.Nil(t, vol.RSI)

	rsi := s.Indicators(indicators.KindRSI)
	assert.Len(t, rsi.RSI, n)
	assert.Nil(t, rsi.Volume)

	macd := s.Indicators(indicators.KindMACD)
	assert.Len(t, macd.MACD, n)
}

func TestMarketAndOrderBook(t *testing.T) {
	t.Parallel()
	a, _ := newTestSession(t, testConfig(300, 50))
	b, _ := newTestSession(t, testConfig(300, 50))

	snap := a.Market()
	bar := lastClose(t, a)
	assert.Equal(t, bar.Close, snap.Price)
	assert.Equal(t, bar.Time, snap.Time)

	book := a.OrderBook()
	assert.Equal(t, book, b.OrderBook())
	require.Len(t, book.Asks, DepthLevels)
	require.Len(t, book.Bids, DepthLevels)
	assert.Greater(t, book.Asks[DepthLevels-1].Price, bar.Close)
	assert.Less(t, book.Bids[0].Price, bar.Close)
}

func TestMagnetSnapsDrawingsAndMeasurements(t *testing.T) {
	t.Parallel()
	s, _ := newTestSession(t, testConfig(300, 50))
	bar := lastClose(t, s)

	require.Error(t, s.SetCrosshairMode("sticky"))
	require.NoError(t, s.SetCrosshairMode("magnet"))
	assert.Equal(t, drawing.Magnet, s.CrosshairMode())

	d, err := s.AddDrawing([]drawing.ChartPoint{
		{Time: bar.Time, Price: bar.High + 0.5},
		{Time: bar.Time + 3600, Price: 1},
	}, drawing.Style{Kind: drawing.Ray})
	require.NoError(t, err)
	assert.Equal(t, bar.High, d.Points[0].Price)
	assert.Equal(t, 1.0, d.Points[1].Price)
	assert.Equal(t, drawing.DefaultColor, d.Color)

	require.NoError(t, s.SetMeasureMode("vector"))
	_, ok, err := s.MeasureClick(drawing.ChartPoint{Time: bar.Time, Price: bar.Low - 0.5})
	require.NoError(t, err)
	assert.False(t, ok)
	res, ok, err := s.MeasureClick(drawing.ChartPoint{Time: s.Window()[40].Time, Price: 3000})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, bar.Low, res.From.Price)
	require.NotNil(t, res.Vector)
	assert.Equal(t, 10, res.Vector.Bars)
}

func TestDrawingCommands(t *testing.T) {
	t.Parallel()
	s, rec := newTestSession(t, testConfig(300, 50))
	bar := lastClose(t, s)
	pts := []drawing.ChartPoint{{Time: bar.Time, Price: bar.Close}}

	d1, err := s.AddDrawing(pts, drawing.Style{})
	require.NoError(t, err)
	_, err = s.AddDrawing(pts, drawing.Style{})
	require.NoError(t, err)

	locked := true
	_, err = s.UpdateDrawing(d1.ID, drawing.Patch{Locked: &locked})
	require.NoError(t, err)

	width := 9
	_, err = s.UpdateDrawing(d1.ID, drawing.Patch{LineWidth: &width})
	assert.ErrorIs(t, err, drawing.ErrInvalidStyle)
	_, err = s.AddDrawing(nil, drawing.Style{})
	assert.ErrorIs(t, err, drawing.ErrNoPoints)

	assert.Equal(t, 1, s.ClearUnlockedDrawings())
	left := s.Drawings()
	require.Len(t, left, 1)
	assert.Equal(t, d1.ID, left[0].ID)

	got := rec.kind(CommandRejected)
	require.Len(t, got, 2)
	assert.Equal(t, "invalid_drawing", got[0].Reason)
}

func TestRangeMeasurementRefusedOnContinuousChart(t *testing.T) {
	t.Parallel()
	s, _ := newTestSession(t, testConfig(300, 50))
	require.NoError(t, s.Load("rb2501", "1m"))
	require.True(t, s.Continuous())

	_, _, err := s.MeasureClick(drawing.ChartPoint{Time: lastClose(t, s).Time, Price: 3300})
	assert.ErrorIs(t, err, drawing.ErrRangeOnContinuous)

	require.Error(t, s.SetMeasureMode("area"))
}

func TestMeasureRangeAndVector(t *testing.T) {
	t.Parallel()
	s, _ := newTestSession(t, testConfig(300, 50))
	w := s.Window()

	rs, ok := s.MeasureRange(30, 10)
	require.True(t, ok)
	assert.Equal(t, 10, rs.From)
	assert.Equal(t, 30, rs.To)
	assert.Equal(t, 21, rs.Count)
	assert.InDelta(t, w[30].Close-w[10].Open, rs.Change, 1e-9)

	assert.Equal(t, w[7].High, s.SnapPrice(w[7].Time, w[7].High+0.01))

	v := s.MeasureVector(geometry.Point{Index: 10, Price: 100}, geometry.Point{Index: 14, Price: 110})
	assert.Equal(t, 10.0, v.PriceDelta)
	assert.Equal(t, 4, v.Bars)
}

func TestMeasurePreviewAndCancel(t *testing.T) {
	t.Parallel()
	s, _ := newTestSession(t, testConfig(300, 50))
	w := s.Window()

	_, ok := s.MeasurePreview(drawing.ChartPoint{Time: w[20].Time, Price: w[20].Close})
	assert.False(t, ok)

	_, done, err := s.MeasureClick(drawing.ChartPoint{Time: w[10].Time, Price: w[10].Close})
	require.NoError(t, err)
	require.False(t, done)

	res, ok := s.MeasurePreview(drawing.ChartPoint{Time: w[20].Time, Price: w[20].Close})
	require.True(t, ok)
	require.NotNil(t, res.Range)
	assert.Equal(t, 11, res.Range.Count)

	s.CancelMeasure()
	_, ok = s.MeasurePreview(drawing.ChartPoint{Time: w[20].Time, Price: w[20].Close})
	assert.False(t, ok)
}

func TestOverlayTracksCursor(t *testing.T) {
	t.Parallel()
	s, rec := newTestSession(t, testConfig(300, 50))

	assert.Error(t, s.SetOverlay("missing"))
	require.Len(t, rec.kind(CommandRejected), 1)

	require.NoError(t, s.SetOverlay("ag2512"))
	ov := s.Overlay()
	require.NotNil(t, ov)
	assert.Equal(t, "ag2512", ov.Instrument.Code)
	assert.Len(t, ov.Bars, 51)

	_, err := s.AdvanceBy(3)
	require.NoError(t, err)
	assert.Len(t, s.Overlay().Bars, 54)

	s.Seek(20)
	assert.Len(t, s.Overlay().Bars, 21)

	s.ClearOverlay()
	assert.Nil(t, s.Overlay())
}

func TestSetSpeed(t *testing.T) {
	t.Parallel()
	s, rec := newTestSession(t, testConfig(300, 50))

	require.NoError(t, s.SetSpeed(200))
	assert.Equal(t, 200*time.Millisecond, s.Interval())

	assert.ErrorIs(t, s.SetSpeed(0), replay.ErrInvalidInterval)
	assert.Equal(t, 200*time.Millisecond, s.Interval())
	got := rec.kind(CommandRejected)
	require.Len(t, got, 1)
	assert.Equal(t, "invalid_speed", got[0].Reason)
}

func TestUnsubscribe(t *testing.T) {
	t.Parallel()
	s, _ := newTestSession(t, testConfig(300, 50))

	var n int
	cancel := s.Subscribe(func(Event) { n++ })
	s.Seek(60)
	cancel()
	s.Seek(70)
	assert.Equal(t, 1, n)
}

func TestDriverRunsSession(t *testing.T) {
	t.Parallel()
	s, _ := newTestSession(t, testConfig(300, 50))
	require.NoError(t, s.SetSpeed(5))
	s.Play()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- replay.NewDriver(s, logger.Discard()).Run(ctx) }()

	require.Eventually(t, func() bool { return s.Status().Cursor >= 55 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestDriverFollowsSpeedChange(t *testing.T) {
	t.Parallel()
	var _ replay.SpeedSignaler = (*Session)(nil)

	s, _ := newTestSession(t, testConfig(300, 50))
	require.NoError(t, s.SetSpeed(60_000))
	s.Play()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = replay.NewDriver(s, logger.Discard()).Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.SetSpeed(2))
	require.Eventually(t, func() bool { return s.Status().Cursor >= 53 }, time.Second, 2*time.Millisecond)
}

func TestRunScript(t *testing.T) {
	t.Parallel()
	s, rec := newTestSession(t, testConfig(300, 50))

	script := strings.Join([]string{
		"ticks,event,arg",
		"5,BUY,1",
		"3,SELL,1",
		"# comment rows are skipped",
		"2,ALERT,1",
		"0,SEEK,100",
		"1,CLOSE_ALL,",
		"4,,",
	}, "\n")

	st, err := s.RunScript(context.Background(), strings.NewReader(script))
	require.NoError(t, err)
	assert.Equal(t, 6, st.Rows)
	assert.Equal(t, 15, st.Ticks)
	assert.Equal(t, 2, st.Accepted)
	assert.Equal(t, 1, st.Rejected)
	assert.Equal(t, 105, s.Status().Cursor)

	trades := s.Trades()
	require.Len(t, trades, 2)
	assert.Equal(t, sim.Open, trades[0].Action)
	assert.Equal(t, sim.Close, trades[1].Action)
	assert.Len(t, s.Alerts(), 1)
	assert.Len(t, rec.kind(TradeRejected), 1)
}

func TestRunScriptStopsOnBadRow(t *testing.T) {
	t.Parallel()
	s, _ := newTestSession(t, testConfig(300, 50))

	_, err := s.RunScript(context.Background(), strings.NewReader("1,BUY,1\n2,DANCE,\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
	assert.Contains(t, err.Error(), "DANCE")

	_, err = s.RunScript(context.Background(), strings.NewReader("x,BUY,1\n"))
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.RunScript(ctx, strings.NewReader("1,,\n"))
	assert.ErrorIs(t, err, context.Canceled)
}
