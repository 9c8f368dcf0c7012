// Package pricing is the single authoritative source for consultation
// amounts and the professional/platform revenue split. Every flow that needs
// a price imports this package instead of re-deriving the formula.
package pricing

import (
	"math"

	"quickconnect/internal/models"
)

// DefaultRate substitutes for a missing or non-positive hourly rate.
const DefaultRate = 1000

// Revenue split shares for display purposes. The authoritative ledger split
// lives upstream.
const (
	ProfessionalShare = 0.85
	PlatformShare     = 0.15
)

// Multiplier returns the per-type price multiplier. Unknown types price as chat.
func Multiplier(t models.ConsultationType) float64 {
	switch t {
	case models.TypeAudio:
		return 1.5
	case models.TypeVideo:
		return 2.0
	default:
		return 1.0
	}
}

// Amount computes the integer consultation price in currency units from a
// professional's hourly rate and the consultation type. Deterministic and
// idempotent.
func Amount(rate float64, t models.ConsultationType) int64 {
	if rate <= 0 || math.IsNaN(rate) {
		rate = DefaultRate
	}
	return int64(math.Round(rate * Multiplier(t)))
}

// Split is the display breakdown of a total session cost.
type Split struct {
	Professional float64 `json:"professional"`
	Platform     float64 `json:"platform"`
}

// CostSplit derives the professional payout and platform fee from a total.
// The two shares sum back to the total within display rounding.
func CostSplit(total float64) Split {
	return Split{
		Professional: total * ProfessionalShare,
		Platform:     total * PlatformShare,
	}
}
