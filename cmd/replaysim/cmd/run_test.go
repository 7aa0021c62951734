package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/rustyeddy/replaysim/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testApp(t *testing.T, bars, warmup int) *app {
	t.Helper()
	cfg := config.Default()
	cfg.Journal.Type = "none"
	cfg.Session.Bars = bars
	cfg.Session.Warmup = warmup
	cfg.Session.SpeedMS = 5
	cfg.Session.Seed = 9
	cfg.Log.Level = "error"
	require.NoError(t, cfg.Validate())

	a, err := newApp(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestPlayToEndReturnsWhenAlreadyEnded(t *testing.T) {
	a := testApp(t, 30, 5)
	_, err := a.sess.AdvanceBy(100)
	require.NoError(t, err)
	require.True(t, a.sess.Status().Ended)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	require.NoError(t, playToEnd(ctx, a))
	assert.Less(t, time.Since(start), time.Second)
	assert.NoError(t, ctx.Err())
	assert.False(t, a.sess.Playing())
}

func TestPlayToEndPlaysToLastBar(t *testing.T) {
	a := testApp(t, 30, 5)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, playToEnd(ctx, a))
	assert.NoError(t, ctx.Err())

	st := a.sess.Status()
	assert.True(t, st.Ended)
	assert.Equal(t, st.Bars-1, st.Cursor)
}
