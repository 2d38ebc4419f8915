// Package pricing resolves the effective entry charge from a base product
// price and an optional invite record.
package pricing

import (
	"math"

	"github.com/seedlabs/entrygate/types"
)

// DefaultBaseUSD is charged when no product price is available at all.
const DefaultBaseUSD = 4.0

// Resolve computes the effective USD charge. Precedence, first match wins:
// invite.PriceOverride, invite.EntryPriceCents/100, invite.EntryPrice, then
// the base price. A resolved 0 is valid and means free access. The result is
// never negative.
func Resolve(invite *types.InviteRecord, baseUSD float64) float64 {
	fallback := baseUSD
	if math.IsNaN(fallback) || math.IsInf(fallback, 0) || fallback < 0 {
		fallback = DefaultBaseUSD
	}

	if invite == nil {
		return fallback
	}

	if v := invite.PriceOverride; v != nil && isNumeric(*v) {
		return clamp(*v)
	}
	if c := invite.EntryPriceCents; c != nil {
		return clamp(float64(*c) / 100)
	}
	if v := invite.EntryPrice; v != nil && isNumeric(*v) {
		return clamp(*v)
	}
	return fallback
}

// IsFree reports whether the resolved price grants free activation, in which
// case no transaction builder is invoked at all.
func IsFree(priceUSD float64) bool {
	return priceUSD == 0
}

func isNumeric(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
