package gateway

import (
	"fmt"

	"github.com/rustyeddy/replaysim/drawing"
	"github.com/rustyeddy/replaysim/geometry"
	"github.com/rustyeddy/replaysim/sim"
)

// Command is a user intent sent by a chart. Only the fields its Type
// needs are read.
type Command struct {
	Type string `json:"type"`

	Code      string  `json:"code,omitempty"`
	Timeframe string  `json:"timeframe,omitempty"`
	SpeedMS   int     `json:"speedMs,omitempty"`
	Index     int     `json:"index,omitempty"`
	N         int     `json:"n,omitempty"`
	Direction string  `json:"direction,omitempty"`
	Quantity  int     `json:"quantity,omitempty"`
	Price     float64 `json:"price,omitempty"`
	ID        int     `json:"id,omitempty"`
	Mode      string  `json:"mode,omitempty"`

	Time   int64                `json:"time,omitempty"`
	From   int                  `json:"from,omitempty"`
	To     int                  `json:"to,omitempty"`
	P1     geometry.Point       `json:"p1,omitempty"`
	P2     geometry.Point       `json:"p2,omitempty"`
	Point  drawing.ChartPoint   `json:"point,omitempty"`
	Points []drawing.ChartPoint `json:"points,omitempty"`
	Style  drawing.Style        `json:"style,omitempty"`
	Patch  drawing.Patch        `json:"patch,omitempty"`
}

// Dispatch runs cmd against the session and builds the reply.
func (h *Hub) Dispatch(cmd Command) Envelope {
	data, err := h.dispatch(cmd)
	env := Envelope{Type: TypeReply, Command: cmd.Type, OK: err == nil, Data: data}
	if err != nil {
		env.Error = err.Error()
		env.Data = nil
	}
	return env
}

func (h *Hub) dispatch(cmd Command) (any, error) {
	s := h.sess
	switch cmd.Type {
	case "load":
		if err := s.Load(cmd.Code, cmd.Timeframe); err != nil {
			return nil, err
		}
		return s.Status(), nil
	case "play":
		s.Play()
		return s.Status(), nil
	case "pause":
		s.Pause()
		return s.Status(), nil
	case "speed":
		if err := s.SetSpeed(cmd.SpeedMS); err != nil {
			return nil, err
		}
		return s.Status(), nil
	case "seek":
		return s.Seek(cmd.Index), nil
	case "tick":
		return s.Tick()
	case "advance":
		return s.AdvanceBy(cmd.N)

	case "trade":
		dir, err := sim.ParseDirection(cmd.Direction)
		if err != nil {
			return nil, err
		}
		return s.ExecuteTrade(dir, cmd.Quantity)
	case "close_all":
		return s.CloseAll()

	case "add_alert":
		return s.AddAlert(cmd.Price)
	case "remove_alert":
		return nil, s.RemoveAlert(cmd.ID)

	case "snap":
		return s.SnapPrice(cmd.Time, cmd.Price), nil
	case "measure_range":
		rs, ok := s.MeasureRange(cmd.From, cmd.To)
		if !ok {
			return nil, fmt.Errorf("nothing to measure")
		}
		return rs, nil
	case "measure_vector":
		return s.MeasureVector(cmd.P1, cmd.P2), nil
	case "measure_mode":
		return nil, s.SetMeasureMode(cmd.Mode)
	case "measure_click":
		res, done, err := s.MeasureClick(cmd.Point)
		if err != nil || !done {
			return nil, err
		}
		return res, nil
	case "measure_preview":
		res, ok := s.MeasurePreview(cmd.Point)
		if !ok {
			return nil, nil
		}
		return res, nil
	case "measure_cancel":
		s.CancelMeasure()
		return nil, nil
	case "crosshair":
		return nil, s.SetCrosshairMode(cmd.Mode)

	case "add_drawing":
		return s.AddDrawing(cmd.Points, cmd.Style)
	case "update_drawing":
		return s.UpdateDrawing(cmd.ID, cmd.Patch)
	case "clear_drawings":
		return s.ClearUnlockedDrawings(), nil

	case "set_overlay":
		return nil, s.SetOverlay(cmd.Code)
	case "clear_overlay":
		s.ClearOverlay()
		return nil, nil
	}
	return nil, fmt.Errorf("unknown command %q", cmd.Type)
}
