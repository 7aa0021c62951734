package drawing

import (
	"fmt"

	"github.com/rustyeddy/replaysim/geometry"
	"github.com/rustyeddy/replaysim/market"
)

// Crosshair controls how a clicked price is interpreted.
type Crosshair string

const (
	Free   Crosshair = "free"
	Magnet Crosshair = "magnet"
)

func ParseCrosshair(s string) (Crosshair, error) {
	switch Crosshair(s) {
	case Free, Magnet:
		return Crosshair(s), nil
	}
	return "", fmt.Errorf("%w: crosshair %q", ErrInvalidMode, s)
}

// Resolve returns the price a click at (t, price) lands on. Magnet snaps
// to the nearest OHLC value of the bar at t.
func (c Crosshair) Resolve(bars []market.Bar, t int64, price float64) float64 {
	if c != Magnet {
		return price
	}
	return geometry.SnapPrice(bars, t, price)
}
