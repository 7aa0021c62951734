// Package drawing keeps user chart annotations and the two-click
// measurement tool. Neither type is safe for concurrent use; the session
// serialises access.
package drawing

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	ErrNotFound     = errors.New("drawing not found")
	ErrInvalidStyle = errors.New("invalid drawing style")
	ErrNoPoints     = errors.New("drawing needs at least one point")
)

// Kind is the line type.
type Kind string

const (
	Line Kind = "line"
	Ray  Kind = "ray"
)

const (
	DefaultColor     = "#0a84ff"
	DefaultLineWidth = 2
	MinLineWidth     = 1
	MaxLineWidth     = 5
)

var colorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ChartPoint is a (time, price) coordinate on the chart.
type ChartPoint struct {
	Time  int64   `json:"time"`
	Price float64 `json:"price"`
}

// Style is how a new drawing looks. Zero fields take the defaults.
type Style struct {
	Kind      Kind   `json:"kind,omitempty"`
	Color     string `json:"color,omitempty"`
	LineWidth int    `json:"lineWidth,omitempty"`
}

func (s Style) withDefaults() Style {
	if s.Kind == "" {
		s.Kind = Line
	}
	if s.Color == "" {
		s.Color = DefaultColor
	}
	if s.LineWidth == 0 {
		s.LineWidth = DefaultLineWidth
	}
	return s
}

func (s Style) validate() error {
	if s.Kind != Line && s.Kind != Ray {
		return fmt.Errorf("%w: kind %q", ErrInvalidStyle, s.Kind)
	}
	if err := validColor(s.Color); err != nil {
		return err
	}
	return validWidth(s.LineWidth)
}

func validColor(c string) error {
	if !colorRe.MatchString(c) {
		return fmt.Errorf("%w: color %q", ErrInvalidStyle, c)
	}
	return nil
}

func validWidth(w int) error {
	if w < MinLineWidth || w > MaxLineWidth {
		return fmt.Errorf("%w: line width %d not in [%d,%d]", ErrInvalidStyle, w, MinLineWidth, MaxLineWidth)
	}
	return nil
}

type Drawing struct {
	ID        int          `json:"id"`
	Kind      Kind         `json:"kind"`
	Points    []ChartPoint `json:"points"`
	Color     string       `json:"color"`
	LineWidth int          `json:"lineWidth"`
	Locked    bool         `json:"locked"`
}

// Patch edits a drawing. Nil fields are left alone.
type Patch struct {
	Color     *string `json:"color,omitempty"`
	LineWidth *int    `json:"lineWidth,omitempty"`
	Locked    *bool   `json:"locked,omitempty"`
}

// Board holds drawings in creation order.
type Board struct {
	nextID   int
	drawings []Drawing
}

func NewBoard() *Board {
	return &Board{nextID: 1}
}

// Add creates an unlocked drawing.
func (b *Board) Add(points []ChartPoint, style Style) (Drawing, error) {
	if len(points) == 0 {
		return Drawing{}, ErrNoPoints
	}
	style = style.withDefaults()
	if err := style.validate(); err != nil {
		return Drawing{}, err
	}

	d := Drawing{
		ID:        b.nextID,
		Kind:      style.Kind,
		Points:    append([]ChartPoint(nil), points...),
		Color:     style.Color,
		LineWidth: style.LineWidth,
	}
	b.nextID++
	b.drawings = append(b.drawings, d)
	return d.clone(), nil
}

// Update applies p to drawing id. An invalid patch changes nothing.
func (b *Board) Update(id int, p Patch) (Drawing, error) {
	i := b.index(id)
	if i < 0 {
		return Drawing{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if p.Color != nil {
		if err := validColor(*p.Color); err != nil {
			return Drawing{}, err
		}
	}
	if p.LineWidth != nil {
		if err := validWidth(*p.LineWidth); err != nil {
			return Drawing{}, err
		}
	}

	d := &b.drawings[i]
	if p.Color != nil {
		d.Color = *p.Color
	}
	if p.LineWidth != nil {
		d.LineWidth = *p.LineWidth
	}
	if p.Locked != nil {
		d.Locked = *p.Locked
	}
	return d.clone(), nil
}

// ClearUnlocked removes every unlocked drawing and reports how many went.
func (b *Board) ClearUnlocked() int {
	kept := b.drawings[:0]
	for _, d := range b.drawings {
		if d.Locked {
			kept = append(kept, d)
		}
	}
	removed := len(b.drawings) - len(kept)
	b.drawings = kept
	return removed
}

func (b *Board) List() []Drawing {
	out := make([]Drawing, len(b.drawings))
	for i, d := range b.drawings {
		out[i] = d.clone()
	}
	return out
}

// Reset removes every drawing, locked or not.
func (b *Board) Reset() {
	b.drawings = nil
}

func (b *Board) index(id int) int {
	for i, d := range b.drawings {
		if d.ID == id {
			return i
		}
	}
	return -1
}

func (d Drawing) clone() Drawing {
	d.Points = append([]ChartPoint(nil), d.Points...)
	return d
}
