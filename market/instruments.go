// market/instruments.go
package market

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidInstrument is returned when an instrument code is unknown.
var ErrInvalidInstrument = errors.New("invalid instrument")

// Instrument is the static contract definition of a tradable symbol.
type Instrument struct {
	Code       string  `json:"code" yaml:"code"`
	Name       string  `json:"name" yaml:"name"`
	BasePrice  float64 `json:"base_price" yaml:"base_price"`
	Volatility float64 `json:"volatility" yaml:"volatility"` // daily
	Multiplier float64 `json:"multiplier" yaml:"multiplier"` // contract value per price unit per lot
	MarginRate float64 `json:"margin_rate" yaml:"margin_rate"`
	Hot        bool    `json:"hot,omitempty" yaml:"hot,omitempty"`
}

// Validate checks the instrument invariants.
func (i Instrument) Validate() error {
	if i.Code == "" {
		return fmt.Errorf("instrument code is required")
	}
	if i.BasePrice <= 0 {
		return fmt.Errorf("instrument %s: base_price must be positive", i.Code)
	}
	if i.Volatility < 0 {
		return fmt.Errorf("instrument %s: volatility must not be negative", i.Code)
	}
	if i.Multiplier <= 0 {
		return fmt.Errorf("instrument %s: multiplier must be positive", i.Code)
	}
	if i.MarginRate <= 0 || i.MarginRate > 1 {
		return fmt.Errorf("instrument %s: margin_rate must be in (0,1]", i.Code)
	}
	return nil
}

// Instruments is the built-in contract table, hot symbols first.
var Instruments = []Instrument{
	{Code: "rb2501", Name: "Rebar 2501", BasePrice: 3300, Volatility: 0.008, Multiplier: 10, MarginRate: 0.1, Hot: true},
	{Code: "ag2512", Name: "Silver 2512", BasePrice: 7100, Volatility: 0.012, Multiplier: 15, MarginRate: 0.12, Hot: true},
	{Code: "eth_usdt", Name: "ETH Perpetual", BasePrice: 2800, Volatility: 0.025, Multiplier: 1, MarginRate: 0.02, Hot: true},
	{Code: "sc2501", Name: "Crude Oil 2501", BasePrice: 530, Volatility: 0.020, Multiplier: 1000, MarginRate: 0.15, Hot: true},
	{Code: "IF2501", Name: "CSI 300 2501", BasePrice: 3900, Volatility: 0.015, Multiplier: 300, MarginRate: 0.12, Hot: true},

	{Code: "au2512", Name: "Gold 2512", BasePrice: 600, Volatility: 0.006, Multiplier: 1000, MarginRate: 0.08},
	{Code: "cu2501", Name: "Copper 2501", BasePrice: 68000, Volatility: 0.008, Multiplier: 5, MarginRate: 0.1},
	{Code: "al2501", Name: "Aluminium 2501", BasePrice: 19500, Volatility: 0.007, Multiplier: 5, MarginRate: 0.1},
	{Code: "zn2501", Name: "Zinc 2501", BasePrice: 21000, Volatility: 0.009, Multiplier: 5, MarginRate: 0.1},

	{Code: "fu2501", Name: "Fuel Oil 2501", BasePrice: 3000, Volatility: 0.015, Multiplier: 10, MarginRate: 0.15},
	{Code: "pg2501", Name: "LPG 2501", BasePrice: 4800, Volatility: 0.018, Multiplier: 20, MarginRate: 0.15},
	{Code: "p2501", Name: "Palm Oil 2501", BasePrice: 7500, Volatility: 0.012, Multiplier: 10, MarginRate: 0.1},
	{Code: "m2501", Name: "Soybean Meal 2501", BasePrice: 3100, Volatility: 0.008, Multiplier: 10, MarginRate: 0.08},
	{Code: "y2501", Name: "Soybean Oil 2501", BasePrice: 8200, Volatility: 0.010, Multiplier: 10, MarginRate: 0.08},

	{Code: "lh2501", Name: "Live Hogs 2501", BasePrice: 14500, Volatility: 0.015, Multiplier: 16, MarginRate: 0.1},
	{Code: "jd2501", Name: "Eggs 2501", BasePrice: 3600, Volatility: 0.010, Multiplier: 10, MarginRate: 0.09},
	{Code: "FG2501", Name: "Glass 2501", BasePrice: 1600, Volatility: 0.020, Multiplier: 20, MarginRate: 0.15},
	{Code: "SA2501", Name: "Soda Ash 2501", BasePrice: 1800, Volatility: 0.025, Multiplier: 20, MarginRate: 0.15},
}

// Registry resolves instrument codes. It is immutable after construction.
type Registry struct {
	byCode map[string]Instrument
	order  []string
}

// NewRegistry builds a registry from the built-in table plus extra
// definitions. An extra entry with an existing code replaces it.
func NewRegistry(extra ...Instrument) (*Registry, error) {
	r := &Registry{byCode: make(map[string]Instrument)}
	for _, in := range Instruments {
		r.add(in)
	}
	for _, in := range extra {
		if err := in.Validate(); err != nil {
			return nil, err
		}
		r.add(in)
	}
	return r, nil
}

func (r *Registry) add(in Instrument) {
	if _, ok := r.byCode[in.Code]; !ok {
		r.order = append(r.order, in.Code)
	}
	r.byCode[in.Code] = in
}

// Lookup returns the instrument for code.
func (r *Registry) Lookup(code string) (Instrument, error) {
	in, ok := r.byCode[code]
	if !ok {
		return Instrument{}, fmt.Errorf("%w: %q", ErrInvalidInstrument, code)
	}
	return in, nil
}

// List returns all instruments, hot ones first, otherwise in registration order.
func (r *Registry) List() []Instrument {
	out := make([]Instrument, 0, len(r.order))
	for _, code := range r.order {
		out = append(out, r.byCode[code])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Hot && !out[j].Hot })
	return out
}
