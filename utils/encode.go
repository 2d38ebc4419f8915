// Package utils provides amount encoding and request validation shared by
// the transaction builders and the verification gateway.
package utils

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/seedlabs/entrygate/types"
)

// Token amounts are encoded without arbitrary-precision integers: with
// decimals capped at 9 and USD amounts capped below, the scaled value always
// stays inside the float64 safe-integer range (2^53-1).
const (
	MaxTokenDecimals = 9
	MaxAmountUSD     = 1_000_000_000
	maxSafeInteger   = 1<<53 - 1
)

// EncodeTokenAmount scales a USD amount into the token's smallest unit,
// rounded to the nearest integer. Zero is a valid ("free") amount. Negative
// or non-finite amounts, decimals outside [0, MaxTokenDecimals], and results
// above the safe-integer bound are rejected.
func EncodeTokenAmount(amountUSD float64, decimals int) (uint64, error) {
	if math.IsNaN(amountUSD) || math.IsInf(amountUSD, 0) {
		return 0, types.Errorf(types.ErrInvalidAmount, "amount is not a finite number")
	}
	if amountUSD < 0 {
		return 0, types.Errorf(types.ErrInvalidAmount, "amount %v is negative", amountUSD)
	}
	if amountUSD > MaxAmountUSD {
		return 0, types.Errorf(types.ErrInvalidAmount, "amount %v exceeds the supported maximum", amountUSD)
	}
	if decimals < 0 || decimals > MaxTokenDecimals {
		return 0, types.Errorf(types.ErrInvalidAmount, "token decimals %d outside supported range 0..%d", decimals, MaxTokenDecimals)
	}

	scaled := decimal.NewFromFloat(amountUSD).
		Shift(int32(decimals)).
		Round(0)

	if !scaled.IsInteger() || scaled.Cmp(decimal.NewFromInt(maxSafeInteger)) > 0 {
		return 0, types.Errorf(types.ErrInvalidAmount, "encoded amount exceeds the safe integer bound")
	}
	return uint64(scaled.IntPart()), nil
}

// LovelaceFromUSD converts a USD amount into lovelace at the given USD/ADA
// rate. Lovelace has 6 decimal places.
func LovelaceFromUSD(amountUSD, usdPerADA float64) (uint64, error) {
	if usdPerADA <= 0 || math.IsNaN(usdPerADA) || math.IsInf(usdPerADA, 0) {
		return 0, types.Errorf(types.ErrInvalidAmount, "invalid USD/ADA rate %v", usdPerADA)
	}
	if math.IsNaN(amountUSD) || math.IsInf(amountUSD, 0) || amountUSD < 0 {
		return 0, types.Errorf(types.ErrInvalidAmount, "invalid amount %v", amountUSD)
	}

	ada := decimal.NewFromFloat(amountUSD).Div(decimal.NewFromFloat(usdPerADA))
	lovelace := ada.Shift(6).Round(0)
	if lovelace.Cmp(decimal.NewFromInt(maxSafeInteger)) > 0 {
		return 0, types.Errorf(types.ErrInvalidAmount, "lovelace amount exceeds the safe integer bound")
	}
	return uint64(lovelace.IntPart()), nil
}
