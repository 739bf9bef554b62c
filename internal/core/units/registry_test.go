package units

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_Aliases(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		token string
		want  string
	}{
		{"cup", "cup"},
		{"cups", "cup"},
		{"Cups ", "cup"},
		{"tbsp", "tablespoon"},
		{"tablespoons", "tablespoon"},
		{"tsp", "teaspoon"},
		{"g", "gram"},
		{"grams", "gram"},
		{"oz", "ounce"},
		{"ounces", "ounce"},
		{"fl oz", "fluid_ounce"},
		{"fl. oz.", "fluid_ounce"},
		{"fluid ounces", "fluid_ounce"},
		{"lbs", "pound"},
		{"pounds", "pound"},
		{"kg", "kilogram"},
		{"ml", "milliliter"},
		{"inches", "inch"},
		{"pieces", "piece"},
		{"none", "none"},
		{"", "none"},
		{"T", "tablespoon"},
		{"T.", "tablespoon"},
		{"Tbsp", "tablespoon"},
		{"t", "teaspoon"},
		{"pinches", "pinch"},
		{"dash", "dash"},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := r.Canonical(tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLookup_Unknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.Lookup("handful")
	assert.True(t, errors.Is(err, ErrUnknownUnit))
}

func TestSingular(t *testing.T) {
	tests := map[string]string{
		"Cloves":   "clove",
		"clove":    "clove",
		"bunches":  "bunch",
		"glasses":  "glass",
		"boxes":    "box",
		"sprigs":   "sprig",
		"glass":    "glass",
		"Big Cans": "big_can",
		"s":        "s",
	}
	for in, want := range tests {
		assert.Equal(t, want, Singular(in), in)
	}
}

func TestConvertible(t *testing.T) {
	r := NewRegistry()

	assert.True(t, r.Convertible("cup", "milliliter"))
	assert.True(t, r.Convertible("grams", "pound"))
	assert.True(t, r.Convertible("none", "dozen"))
	assert.True(t, r.Convertible("inch", "cm"))
	assert.False(t, r.Convertible("cup", "gram"))
	assert.False(t, r.Convertible("ounce", "fluid_ounce"))
	assert.False(t, r.Convertible("none", "cup"))
	assert.False(t, r.Convertible("handful", "cup"))
}

func TestConvert(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name   string
		amount string
		from   string
		to     string
		want   string
	}{
		{"cup to tablespoon", "1", "cup", "tablespoon", "16"},
		{"tablespoon to teaspoon", "2", "tbsp", "tsp", "6"},
		{"gallon to quart", "1", "gallon", "quart", "4"},
		{"kilogram to gram", "1.5", "kg", "g", "1500"},
		{"pound to ounce", "1", "lb", "oz", "16"},
		{"ounce to gram", "1", "ounce", "gram", "28.349523125"},
		{"dozen to none", "2", "dozen", "none", "24"},
		{"foot to inch", "1", "foot", "inch", "12"},
		{"same unit", "3.333", "cup", "cups", "3.333"},
		{"T is a tablespoon", "1", "T", "t", "3"},
		{"teaspoon to pinch", "1", "tsp", "pinch", "16"},
		{"dash to pinch", "1", "dash", "pinch", "2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Convert(decimal.RequireFromString(tt.amount), tt.from, tt.to)
			require.NoError(t, err)
			want := decimal.RequireFromString(tt.want)
			assert.True(t, got.Round(9).Equal(want), "got %s, want %s", got, want)
		})
	}
}

func TestConvert_Incompatible(t *testing.T) {
	r := NewRegistry()

	_, err := r.Convert(decimal.NewFromInt(3), "cup", "ounce")
	assert.True(t, errors.Is(err, ErrIncompatibleUnits))

	_, err = r.Convert(decimal.NewFromInt(3), "cup", "handful")
	assert.True(t, errors.Is(err, ErrUnknownUnit))
}

func TestConvert_RoundTrip(t *testing.T) {
	r := NewRegistry()
	amounts := []string{"0", "0.25", "1", "2.5", "17", "1234.56"}

	for _, fam := range []Family{Volume, Mass, Length, Count} {
		var names []string
		for _, d := range definitions {
			if d.family == fam {
				names = append(names, d.name)
			}
		}
		for _, a := range names {
			for _, b := range names {
				for _, s := range amounts {
					amount := decimal.RequireFromString(s)
					there, err := r.Convert(amount, a, b)
					require.NoError(t, err)
					back, err := r.Convert(there, b, a)
					require.NoError(t, err)
					assert.True(t, back.Round(6).Equal(amount),
						"%s %s -> %s -> %s gave %s", s, a, b, a, back)
				}
			}
		}
	}
}
