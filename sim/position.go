package sim

// Position is the single open position. Quantity is signed: positive is
// long, negative is short. A flat ledger has no Position at all.
type Position struct {
	Instrument string  `json:"instrument"`
	Quantity   int     `json:"quantity"`
	EntryPrice float64 `json:"entryPrice"`
}

// Side returns +1 for long and -1 for short.
func (p Position) Side() Direction {
	if p.Quantity < 0 {
		return Sell
	}
	return Buy
}

// Size is the absolute quantity.
func (p Position) Size() int {
	if p.Quantity < 0 {
		return -p.Quantity
	}
	return p.Quantity
}
