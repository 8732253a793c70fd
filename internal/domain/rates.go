package domain

// RateSnapshot is the current per-gram price of each metal in whole rupees
// per gram, shared across all customers and replaced wholesale on refresh.
type RateSnapshot struct {
	GoldPerGram     float64
	SilverPerGram   float64
	PlatinumPerGram float64
	Source          RateOrigin
	FetchedAt       Timestamp
}

// RateFor returns the per-gram price for the given metal.
func (r RateSnapshot) RateFor(m Metal) float64 {
	switch m {
	case MetalSilver:
		return r.SilverPerGram
	case MetalPlatinum:
		return r.PlatinumPerGram
	default:
		return r.GoldPerGram
	}
}
