package sim

// RealizedPL is the profit booked when closing qty units of a position
// with the given side. A closed long gains when exit > entry.
func RealizedPL(side Direction, entry, exit float64, qty int, multiplier float64) float64 {
	return (exit - entry) * float64(qty) * float64(side) * multiplier
}

// UnrealizedPL marks a position to last. A nil position has none.
func UnrealizedPL(p *Position, last, multiplier float64) float64 {
	if p == nil {
		return 0
	}
	return (last - p.EntryPrice) * float64(p.Quantity) * multiplier
}
