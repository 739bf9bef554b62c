package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// UnitNone marks a unit-less count ("3 eggs").
const UnitNone = "none"

// AmountPlaces is the number of decimal places kept for stored amounts.
const AmountPlaces = 2

type StoredIngredient struct {
	OwnerID   string
	Name      string
	Amount    decimal.Decimal
	Unit      string
	Version   int // optimistic locking
	UpdatedAt time.Time
}

// Depleted reports whether nothing is left on hand.
func (s StoredIngredient) Depleted() bool {
	return !s.Amount.IsPositive()
}

// DensityEntry says that ReferenceMass of ReferenceMassUnit occupies
// ReferenceVolume of ReferenceVolumeUnit for one ingredient.
type DensityEntry struct {
	IngredientName      string
	ReferenceMass       decimal.Decimal
	ReferenceMassUnit   string
	ReferenceVolume     decimal.Decimal
	ReferenceVolumeUnit string
}

// DensityKey is the lookup key for density entries. Matching is exact apart
// from case and surrounding whitespace.
func DensityKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// irregularPlurals covers canonical unit tokens where appending "s" reads wrong.
var irregularPlurals = map[string]string{
	"inch":  "inches",
	"pinch": "pinches",
	"dash":  "dashes",
	"foot":  "feet",
}

// DisplayUnit returns the unit as it should be shown next to amount. Stored
// units stay singular; only amounts above one of a real unit are pluralized.
func DisplayUnit(amount decimal.Decimal, unit string) string {
	if unit == UnitNone || unit == "" || amount.LessThanOrEqual(decimal.NewFromInt(1)) {
		return unit
	}
	if p, ok := irregularPlurals[unit]; ok {
		return p
	}
	return unit + "s"
}

// RoundAmount applies the persistence rounding rule.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountPlaces)
}
