package sim

// Marker placement relative to the bar.
const (
	BelowBar = "belowBar"
	AboveBar = "aboveBar"
)

// Marker shapes.
const (
	ShapeArrowUp   = "arrowUp"
	ShapeArrowDown = "arrowDown"
	ShapeCircle    = "circle"
)

const (
	colorBuy  = "#ff3b30"
	colorSell = "#34c759"
	colorGold = "#d4af37"
)

// Marker is a chart annotation for a fill. It is output only; the ledger
// does not keep it.
type Marker struct {
	Time     int64  `json:"time"`
	Position string `json:"position"`
	Shape    string `json:"shape"`
	Color    string `json:"color"`
	Text     string `json:"text"`
}

func placement(d Direction) string {
	if d == Buy {
		return BelowBar
	}
	return AboveBar
}

func arrowMarker(t int64, d Direction, text string) Marker {
	m := Marker{Time: t, Position: placement(d), Text: text}
	if d == Buy {
		m.Shape, m.Color = ShapeArrowUp, colorBuy
	} else {
		m.Shape, m.Color = ShapeArrowDown, colorSell
	}
	return m
}

func circleMarker(t int64, d Direction, text string) Marker {
	return Marker{Time: t, Position: placement(d), Shape: ShapeCircle, Color: colorGold, Text: text}
}
