package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCSV(t *testing.T) (*CSVJournal, string, string) {
	t.Helper()
	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.csv")
	equityPath := filepath.Join(dir, "equity.csv")

	j, err := NewCSV(tradesPath, equityPath)
	require.NoError(t, err)
	return j, tradesPath, equityPath
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVJournalHeaders(t *testing.T) {
	t.Parallel()

	j, tradesPath, equityPath := newTestCSV(t)
	require.NoError(t, j.Close())

	trades := readCSV(t, tradesPath)
	require.Len(t, trades, 1)
	assert.Equal(t, []string{"session_id", "trade_id", "instrument", "time", "action", "direction", "quantity", "price", "realized_pl"}, trades[0])

	equity := readCSV(t, equityPath)
	require.Len(t, equity, 1)
	assert.Equal(t, []string{"session_id", "time", "price", "balance", "equity", "unrealized_pl", "margin_used"}, equity[0])
}

func TestCSVJournalRecordTrade(t *testing.T) {
	t.Parallel()

	j, tradesPath, _ := newTestCSV(t)
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, j.RecordTrade(TradeRecord{
		SessionID:  "S1",
		TradeID:    "T1",
		Instrument: "rb2501",
		Time:       ts,
		Action:     ActionOpen,
		Direction:  1,
		Quantity:   3,
		Price:      3500,
		RealizedPL: 99, // ignored for opens
	}))
	require.NoError(t, j.RecordTrade(TradeRecord{
		SessionID:  "S1",
		TradeID:    "T2",
		Instrument: "rb2501",
		Time:       ts.Add(time.Minute),
		Action:     ActionClose,
		Direction:  -1,
		Quantity:   3,
		Price:      3490.5,
		RealizedPL: -315,
	}))
	require.NoError(t, j.Close())

	rows := readCSV(t, tradesPath)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"S1", "T1", "rb2501", ts.Format(time.RFC3339), "OPEN", "1", "3", "3500.000000", ""}, rows[1])
	assert.Equal(t, []string{"S1", "T2", "rb2501", ts.Add(time.Minute).Format(time.RFC3339), "CLOSE", "-1", "3", "3490.500000", "-315.000000"}, rows[2])
}

func TestCSVJournalRecordEquity(t *testing.T) {
	t.Parallel()

	j, _, equityPath := newTestCSV(t)
	ts := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)

	require.NoError(t, j.RecordEquity(EquitySnapshot{
		SessionID:    "S1",
		Time:         ts,
		Price:        3501,
		Balance:      100000,
		Equity:       100030,
		UnrealizedPL: 30,
		MarginUsed:   5251.5,
	}))
	require.NoError(t, j.Close())

	rows := readCSV(t, equityPath)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"S1", ts.Format(time.RFC3339), "3501.000000", "100000.000000", "100030.000000", "30.000000", "5251.500000"}, rows[1])
}

func TestNopJournal(t *testing.T) {
	t.Parallel()
	var j Journal = Nop{}
	assert.NoError(t, j.RecordTrade(TradeRecord{}))
	assert.NoError(t, j.RecordEquity(EquitySnapshot{}))
	assert.NoError(t, j.Close())
}
