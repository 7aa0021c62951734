package sim

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/replaysim/market"
)

var ErrInsufficientMargin = errors.New("insufficient margin")

// MarginError reports a margin rejection with the numbers behind it.
type MarginError struct {
	Required  float64
	Available float64
}

func (e *MarginError) Error() string {
	return fmt.Sprintf("insufficient margin: required %s, available %s",
		market.FormatMoney(e.Required), market.FormatMoney(e.Available))
}

func (e *MarginError) Is(target error) bool { return target == ErrInsufficientMargin }

// RequiredMargin is the collateral needed to hold qty at price.
func RequiredMargin(price float64, qty int, instr market.Instrument) float64 {
	return price * float64(abs(qty)) * instr.Multiplier * instr.MarginRate
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
