package sim

import (
	"fmt"
	"strings"
	"time"
)

// Direction is the side of an order.
type Direction int

const (
	Buy  Direction = 1
	Sell Direction = -1
)

func (d Direction) Valid() bool { return d == Buy || d == Sell }

func (d Direction) String() string {
	switch d {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ParseDirection accepts buy/sell or long/short in any case, or +1/-1.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "long", "1", "+1":
		return Buy, nil
	case "sell", "short", "-1":
		return Sell, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// Action says whether a fill opened or closed exposure.
type Action string

const (
	Open  Action = "OPEN"
	Close Action = "CLOSE"
)

// Trade is one fill in the append-only trade log. RealizedPL is set only
// for Close fills.
type Trade struct {
	ID         string    `json:"id"`
	Instrument string    `json:"instrument"`
	Time       int64     `json:"time"`
	Price      float64   `json:"price"`
	Quantity   int       `json:"quantity"`
	Direction  Direction `json:"direction"`
	Action     Action    `json:"action"`
	RealizedPL *float64  `json:"realizedPl,omitempty"`
}

func (t Trade) Timestamp() time.Time { return time.Unix(t.Time, 0).UTC() }
