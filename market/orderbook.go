package market

import "math/rand"

// Level is one price level of the simulated book.
type Level struct {
	Price  float64 `json:"price"`
	Volume int     `json:"volume"`
}

// Depth holds asks (highest first) and bids (highest first) around a price.
type Depth struct {
	Asks []Level `json:"asks"`
	Bids []Level `json:"bids"`
}

// GenerateDepth builds a display-only book of n levels per side. The spread
// step is 2bp of price; every level carries up to half a step of jitter and a
// volume in [1,50].
func GenerateDepth(price float64, n int, rng *rand.Rand) Depth {
	if n <= 0 {
		return Depth{}
	}
	spread := price * 0.0002
	asks := make([]Level, n)
	bids := make([]Level, n)
	for i := 1; i <= n; i++ {
		asks[n-i] = Level{
			Price:  price + float64(i)*spread + rng.Float64()*spread*0.5,
			Volume: rng.Intn(50) + 1,
		}
		bids[i-1] = Level{
			Price:  price - float64(i)*spread - rng.Float64()*spread*0.5,
			Volume: rng.Intn(50) + 1,
		}
	}
	return Depth{Asks: asks, Bids: bids}
}
