package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDisplayUnit(t *testing.T) {
	tests := []struct {
		amount string
		unit   string
		want   string
	}{
		{"260", "gram", "grams"},
		{"1", "cup", "cup"},
		{"0.5", "cup", "cup"},
		{"0", "cup", "cup"},
		{"1.01", "cup", "cups"},
		{"3", "none", "none"},
		{"3", "", ""},
		{"2", "inch", "inches"},
		{"2", "pinch", "pinches"},
		{"4", "foot", "feet"},
	}
	for _, tt := range tests {
		t.Run(tt.amount+" "+tt.unit, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayUnit(decimal.RequireFromString(tt.amount), tt.unit))
		})
	}
}

func TestConversion(t *testing.T) {
	var zero Conversion
	assert.False(t, zero.Resolved())
	assert.Equal(t, PathUnresolvable, zero.Path())
	_, ok := zero.Amount()
	assert.False(t, ok)

	c := Resolved(decimal.NewFromInt(240), PathDensity)
	v, ok := c.Amount()
	assert.True(t, ok)
	assert.True(t, v.Equal(decimal.NewFromInt(240)))
	assert.Equal(t, PathDensity, c.Path())
	assert.Empty(t, c.Reason())

	u := Unresolvable("no density entry")
	assert.False(t, u.Resolved())
	assert.Equal(t, "no density entry", u.Reason())
}

func TestDensityKey(t *testing.T) {
	assert.Equal(t, "brown sugar", DensityKey("  Brown Sugar "))
	assert.NotEqual(t, DensityKey("flour"), DensityKey("flours"))
}

func TestRoundAmount(t *testing.T) {
	assert.Equal(t, "0.13", RoundAmount(decimal.RequireFromString("0.125")).StringFixed(2))
	assert.Equal(t, "260.00", RoundAmount(decimal.RequireFromString("260.004")).StringFixed(2))
}

func TestStoredIngredientDepleted(t *testing.T) {
	assert.True(t, StoredIngredient{Amount: decimal.Zero}.Depleted())
	assert.False(t, StoredIngredient{Amount: decimal.RequireFromString("0.01")}.Depleted())
}
