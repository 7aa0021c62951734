package session

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rustyeddy/replaysim/sim"
)

// ScriptStats counts what a script did.
type ScriptStats struct {
	Rows     int `json:"rows"`
	Ticks    int `json:"ticks"`
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

// RunScriptFile opens path and runs it with RunScript.
func (s *Session) RunScriptFile(ctx context.Context, path string) (ScriptStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return ScriptStats{}, err
	}
	defer f.Close()
	return s.RunScript(ctx, f)
}

// RunScript drives the session from CSV rows of the form
//
//	ticks,event,arg
//
// Each row first advances ticks bars, then applies the event:
//
//	BUY:          arg=quantity
//	SELL:         arg=quantity
//	CLOSE_ALL
//	ALERT:        arg=price
//	REMOVE_ALERT: arg=alert id
//	SEEK:         arg=bar index
//
// An empty event only advances. A header row starting with "ticks" is
// skipped. Trades the ledger refuses are counted as rejected and the
// script carries on; malformed rows stop it.
func (s *Session) RunScript(ctx context.Context, r io.Reader) (ScriptStats, error) {
	var st ScriptStats

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'

	line := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return st, nil
		}
		if err != nil {
			return st, err
		}
		line++
		if len(row) == 0 {
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "ticks") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return st, err
		}

		st.Rows++
		if err := s.scriptRow(row, &st); err != nil {
			return st, fmt.Errorf("script row %d: %w", line, err)
		}
	}
}

func (s *Session) scriptRow(row []string, st *ScriptStats) error {
	for i := range row {
		row[i] = strings.TrimSpace(row[i])
	}

	if row[0] != "" {
		n, err := strconv.Atoi(row[0])
		if err != nil || n < 0 {
			return fmt.Errorf("bad ticks %q", row[0])
		}
		res, err := s.AdvanceBy(n)
		if err != nil {
			return err
		}
		for _, r := range res {
			if r.Advanced {
				st.Ticks++
			}
		}
	}

	event, arg := "", ""
	if len(row) >= 2 {
		event = strings.ToUpper(row[1])
	}
	if len(row) >= 3 {
		arg = row[2]
	}
	return s.scriptEvent(event, arg, st)
}

func (s *Session) scriptEvent(event, arg string, st *ScriptStats) error {
	var err error
	switch event {
	case "":
		return nil

	case "BUY", "SELL":
		// BUY,5
		qty, perr := strconv.Atoi(arg)
		if perr != nil {
			return fmt.Errorf("%s: bad quantity %q", event, arg)
		}
		dir := sim.Buy
		if event == "SELL" {
			dir = sim.Sell
		}
		_, err = s.ExecuteTrade(dir, qty)

	case "CLOSE_ALL":
		_, err = s.CloseAll()

	case "ALERT":
		// ALERT,3312.5
		price, perr := strconv.ParseFloat(arg, 64)
		if perr != nil {
			return fmt.Errorf("ALERT: bad price %q", arg)
		}
		_, err = s.AddAlert(price)
		return err

	case "REMOVE_ALERT":
		id, perr := strconv.Atoi(arg)
		if perr != nil {
			return fmt.Errorf("REMOVE_ALERT: bad id %q", arg)
		}
		return s.RemoveAlert(id)

	case "SEEK":
		i, perr := strconv.Atoi(arg)
		if perr != nil {
			return fmt.Errorf("SEEK: bad index %q", arg)
		}
		s.Seek(i)
		return nil

	default:
		return fmt.Errorf("unknown event %q", event)
	}

	if err == nil {
		st.Accepted++
		return nil
	}
	if tradeRefusal(err) {
		st.Rejected++
		return nil
	}
	return err
}

// tradeRefusal reports ledger rejections that a script tolerates.
func tradeRefusal(err error) bool {
	return errors.Is(err, sim.ErrInsufficientMargin) ||
		errors.Is(err, sim.ErrNoOpenPosition) ||
		errors.Is(err, sim.ErrInvalidQuantity)
}
