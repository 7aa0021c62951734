package market

import "time"

// Snapshot is the quote header shown for the latest visible bar.
type Snapshot struct {
	Time          int64   `json:"time"`
	Price         float64 `json:"price"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Volume        int64   `json:"volume"`
}

// CurrentBar returns the last bar of window. With an empty window it
// returns a flat bar at the instrument's base price stamped at now.
func CurrentBar(window []Bar, instr Instrument, now time.Time) Bar {
	if len(window) == 0 {
		return Bar{
			Time:  now.Unix(),
			Open:  instr.BasePrice,
			High:  instr.BasePrice,
			Low:   instr.BasePrice,
			Close: instr.BasePrice,
		}
	}
	return window[len(window)-1]
}

// SnapshotOf summarises the last bar of window; change is measured
// against the previous bar's close.
func SnapshotOf(window []Bar, instr Instrument, now time.Time) Snapshot {
	cur := CurrentBar(window, instr, now)
	s := Snapshot{
		Time:   cur.Time,
		Price:  cur.Close,
		Open:   cur.Open,
		High:   cur.High,
		Low:    cur.Low,
		Volume: cur.Volume,
	}
	if len(window) > 1 {
		prev := window[len(window)-2].Close
		s.Change = cur.Close - prev
		if prev != 0 {
			s.ChangePercent = s.Change / prev * 100
		}
	}
	return s
}
