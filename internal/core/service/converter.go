package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rl1809/pantry/internal/core/domain"
	"github.com/rl1809/pantry/internal/core/units"
	"github.com/rl1809/pantry/internal/logging"
	"github.com/rl1809/pantry/internal/metrics"
	"github.com/rl1809/pantry/internal/port"
)

// UnitRegistry is the dimensional unit system the converter relies on.
type UnitRegistry interface {
	Lookup(token string) (units.Unit, error)
	Convertible(a, b string) bool
	Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

// UnitConverter reconciles a consumed amount with the unit an ingredient is
// stored in, falling back to ingredient density across volume and mass.
type UnitConverter struct {
	registry  UnitRegistry
	densities port.DensityRepository
}

func NewUnitConverter(registry UnitRegistry, densities port.DensityRepository) *UnitConverter {
	return &UnitConverter{registry: registry, densities: densities}
}

// Convert expresses amount of fromUnit in toUnit for the named ingredient.
// It never returns an error: every failure becomes an Unresolvable result.
func (c *UnitConverter) Convert(ctx context.Context, name string, amount decimal.Decimal, fromUnit, toUnit string) domain.Conversion {
	conv := c.convert(ctx, name, amount, fromUnit, toUnit)
	metrics.RecordConversion(string(conv.Path()))
	return conv
}

func (c *UnitConverter) convert(ctx context.Context, name string, amount decimal.Decimal, fromUnit, toUnit string) domain.Conversion {
	fromUnit = canonicalUnit(c.registry, fromUnit)
	toUnit = canonicalUnit(c.registry, toUnit)
	if fromUnit == toUnit {
		return domain.Resolved(amount, domain.PathIdentity)
	}

	if c.registry.Convertible(fromUnit, toUnit) {
		v, err := c.registry.Convert(amount, fromUnit, toUnit)
		if err != nil {
			return domain.Unresolvable(err.Error())
		}
		return domain.Resolved(v, domain.PathDirect)
	}

	entry, err := c.densities.GetDensityEntry(ctx, name)
	if errors.Is(err, domain.ErrDensityNotFound) {
		v, err := c.registry.Convert(amount, fromUnit, toUnit)
		if err != nil {
			return domain.Unresolvable(fmt.Sprintf("no density entry for %q: %v", name, err))
		}
		return domain.Resolved(v, domain.PathDirect)
	}
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("ingredient", name).Msg("density lookup failed")
		return domain.Unresolvable(fmt.Sprintf("density lookup failed: %v", err))
	}

	v, err := c.viaDensity(*entry, amount, fromUnit, toUnit)
	if err != nil {
		return domain.Unresolvable(err.Error())
	}
	return domain.Resolved(v, domain.PathDensity)
}

// viaDensity bridges volume and mass with the entry's reference ratio.
// Intermediate values are not rounded.
func (c *UnitConverter) viaDensity(e domain.DensityEntry, amount decimal.Decimal, fromUnit, toUnit string) (decimal.Decimal, error) {
	from, err := c.registry.Lookup(fromUnit)
	if err != nil {
		return decimal.Zero, err
	}
	to, err := c.registry.Lookup(toUnit)
	if err != nil {
		return decimal.Zero, err
	}

	switch {
	case from.Family == units.Volume && to.Family == units.Mass:
		if e.ReferenceVolume.IsZero() {
			return decimal.Zero, fmt.Errorf("density entry for %q has zero reference volume", e.IngredientName)
		}
		volume := amount
		if from.Name != e.ReferenceVolumeUnit {
			if volume, err = c.registry.Convert(amount, from.Name, e.ReferenceVolumeUnit); err != nil {
				return decimal.Zero, err
			}
		}
		mass := volume.Mul(e.ReferenceMass).Div(e.ReferenceVolume)
		return c.registry.Convert(mass, e.ReferenceMassUnit, to.Name)

	case from.Family == units.Mass && to.Family == units.Volume:
		if e.ReferenceMass.IsZero() {
			return decimal.Zero, fmt.Errorf("density entry for %q has zero reference mass", e.IngredientName)
		}
		mass := amount
		if from.Name != e.ReferenceMassUnit {
			if mass, err = c.registry.Convert(amount, from.Name, e.ReferenceMassUnit); err != nil {
				return decimal.Zero, err
			}
		}
		volume := mass.Mul(e.ReferenceVolume).Div(e.ReferenceMass)
		return c.registry.Convert(volume, e.ReferenceVolumeUnit, to.Name)
	}

	return decimal.Zero, fmt.Errorf("%w: density cannot bridge %s (%s) to %s (%s)",
		units.ErrIncompatibleUnits, from.Name, from.Family, to.Name, to.Family)
}
