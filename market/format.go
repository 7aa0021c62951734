package market

import "github.com/shopspring/decimal"

// PriceDecimals picks display precision from the instrument's price magnitude.
func PriceDecimals(instr Instrument) int32 {
	switch {
	case instr.BasePrice < 10:
		return 4
	case instr.BasePrice < 1000:
		return 2
	default:
		return 0
	}
}

// FormatPrice renders p with the instrument's display precision.
func FormatPrice(p float64, instr Instrument) string {
	return decimal.NewFromFloat(p).StringFixed(PriceDecimals(instr))
}

// FormatMoney renders an account amount truncated to whole units.
func FormatMoney(v float64) string {
	return decimal.NewFromFloat(v).Truncate(0).String()
}
