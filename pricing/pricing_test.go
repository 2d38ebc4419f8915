package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/seedlabs/entrygate/types"
)

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

func TestResolve_NoInvite(t *testing.T) {
	assert.Equal(t, 4.0, Resolve(nil, 4.0))
}

func TestResolve_FallbackWhenBaseInvalid(t *testing.T) {
	assert.Equal(t, DefaultBaseUSD, Resolve(nil, math.NaN()))
	assert.Equal(t, DefaultBaseUSD, Resolve(nil, math.Inf(1)))
	assert.Equal(t, DefaultBaseUSD, Resolve(nil, -1))
}

// All 8 combinations of the three pricing fields being set or unset.
// PriceOverride always beats EntryPriceCents, which beats EntryPrice,
// which beats the base price.
func TestResolve_PrecedenceGrid(t *testing.T) {
	const base = 4.0
	cases := []struct {
		name     string
		override *float64
		cents    *int64
		price    *float64
		want     float64
	}{
		{"none set", nil, nil, nil, base},
		{"price only", nil, nil, f64(2.5), 2.5},
		{"cents only", nil, i64(150), nil, 1.5},
		{"cents beats price", nil, i64(150), f64(2.5), 1.5},
		{"override only", f64(3), nil, nil, 3},
		{"override beats price", f64(3), nil, f64(2.5), 3},
		{"override beats cents", f64(3), i64(150), nil, 3},
		{"override beats all", f64(3), i64(150), f64(2.5), 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			invite := &types.InviteRecord{
				Type:            types.InviteStandard,
				PriceOverride:   tc.override,
				EntryPriceCents: tc.cents,
				EntryPrice:      tc.price,
			}
			assert.Equal(t, tc.want, Resolve(invite, base))
		})
	}
}

func TestResolve_EntryPriceCentsScenario(t *testing.T) {
	invite := &types.InviteRecord{EntryPriceCents: i64(150)}
	assert.Equal(t, 1.5, Resolve(invite, 4.0))
}

func TestResolve_WhitelistZeroOverrideIsFree(t *testing.T) {
	invite := &types.InviteRecord{Type: types.InviteWhitelist, PriceOverride: f64(0)}
	price := Resolve(invite, 4.0)
	assert.Equal(t, 0.0, price)
	assert.True(t, IsFree(price))
}

func TestResolve_NaNOverrideFallsThrough(t *testing.T) {
	invite := &types.InviteRecord{
		PriceOverride: f64(math.NaN()),
		EntryPrice:    f64(2),
	}
	assert.Equal(t, 2.0, Resolve(invite, 4.0))
}

func TestResolve_NegativeClampedToZero(t *testing.T) {
	invite := &types.InviteRecord{PriceOverride: f64(-5)}
	assert.Equal(t, 0.0, Resolve(invite, 4.0))
}
