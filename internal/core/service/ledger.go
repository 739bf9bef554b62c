package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/pantry/internal/core/domain"
	"github.com/rl1809/pantry/internal/core/units"
	"github.com/rl1809/pantry/internal/logging"
	"github.com/rl1809/pantry/internal/metrics"
	"github.com/rl1809/pantry/internal/port"
)

const DefaultMaxRetries = 5

// InventoryLedger owns every mutation of stored ingredient amounts. Each
// update is a versioned read-modify-write on one (owner, name) row, retried
// on conflict, so concurrent writers to the same row never lose an update
// while writers to different rows never wait on each other.
type InventoryLedger struct {
	repo       port.InventoryRepository
	registry   UnitRegistry
	maxRetries int
	now        func() time.Time
}

func NewInventoryLedger(repo port.InventoryRepository, registry UnitRegistry, maxRetries int) *InventoryLedger {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &InventoryLedger{
		repo:       repo,
		registry:   registry,
		maxRetries: maxRetries,
		now:        time.Now,
	}
}

// ConvertFunc expresses a consumed amount in storedUnit, the unit the
// ingredient row holds at the moment it is read.
type ConvertFunc func(storedUnit string) domain.Conversion

// Decremented is the outcome of one Decrement. Amount and Unit describe the
// row after the write and are only set when Applied.
type Decremented struct {
	Amount     decimal.Decimal
	Unit       string
	Conversion domain.Conversion
	Applied    bool
}

// Decrement subtracts the consumed amount from the stored amount, clamping
// at zero and rounding to two places. convert runs on every attempt against
// the unit just read, so a concurrent restock that changes the unit is
// never mixed with an amount converted for the old one. An Unresolvable
// conversion leaves the row untouched and reports Applied == false.
func (l *InventoryLedger) Decrement(ctx context.Context, ownerID, name string, convert ConvertFunc) (Decremented, error) {
	var out Decremented
	err := l.withRetry(ctx, func() error {
		out = Decremented{}
		ing, err := l.repo.GetStoredIngredient(ctx, ownerID, name)
		if err != nil {
			return err
		}

		out.Conversion = convert(ing.Unit)
		used, ok := out.Conversion.Amount()
		if !ok {
			return nil
		}
		if used.IsNegative() {
			return domain.ErrInvalidAmount
		}

		newAmount := domain.RoundAmount(decimal.Max(ing.Amount.Sub(used), decimal.Zero))
		if err := l.repo.SetStoredIngredient(ctx, ownerID, name, newAmount, ing.Version); err != nil {
			return err
		}
		out.Amount = newAmount
		out.Unit = ing.Unit
		out.Applied = true
		return nil
	})
	if err != nil {
		return Decremented{}, err
	}

	if out.Applied {
		used, _ := out.Conversion.Amount()
		logging.Ctx(ctx).Debug().
			Str("owner", ownerID).
			Str("ingredient", name).
			Str("used", used.String()).
			Str("amount", out.Amount.StringFixed(domain.AmountPlaces)).
			Str("unit", out.Unit).
			Msg("ingredient decremented")
	}
	return out, nil
}

// Restock adds amount of unit to the owner's ingredient, creating it on
// first add. The stored unit becomes unit; an existing amount in another
// unit of the same family is converted first.
func (l *InventoryLedger) Restock(ctx context.Context, ownerID, name string, amount decimal.Decimal, unit string) (domain.StoredIngredient, error) {
	if amount.IsNegative() {
		return domain.StoredIngredient{}, domain.ErrInvalidAmount
	}
	unit = canonicalUnit(l.registry, unit)

	var saved domain.StoredIngredient
	err := l.withRetry(ctx, func() error {
		ing, err := l.repo.GetStoredIngredient(ctx, ownerID, name)
		switch {
		case errors.Is(err, domain.ErrIngredientNotFound):
			ing = &domain.StoredIngredient{OwnerID: ownerID, Name: name, Amount: decimal.Zero, Unit: unit}
		case err != nil:
			return err
		}

		current := ing.Amount
		if ing.Unit != unit && !current.IsZero() {
			if current, err = l.registry.Convert(current, ing.Unit, unit); err != nil {
				return fmt.Errorf("restock %s from %s to %s: %w", name, ing.Unit, unit, err)
			}
		}

		saved = *ing
		saved.Amount = domain.RoundAmount(current.Add(amount))
		saved.Unit = unit
		saved.UpdatedAt = l.now().UTC()
		return l.repo.SaveStoredIngredient(ctx, saved)
	})
	if err != nil {
		return domain.StoredIngredient{}, err
	}
	saved.Version++
	return saved, nil
}

// Available lists the owner's ingredients that are not depleted.
func (l *InventoryLedger) Available(ctx context.Context, ownerID string) ([]domain.StoredIngredient, error) {
	all, err := l.repo.ListStoredIngredients(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.StoredIngredient, 0, len(all))
	for _, ing := range all {
		if !ing.Depleted() {
			out = append(out, ing)
		}
	}
	return out, nil
}

// Depleted returns the names of ingredients that have run out, i.e. the
// owner's grocery list.
func (l *InventoryLedger) Depleted(ctx context.Context, ownerID string) ([]string, error) {
	all, err := l.repo.ListStoredIngredients(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, ing := range all {
		if ing.Depleted() {
			names = append(names, ing.Name)
		}
	}
	return names, nil
}

// canonicalUnit is the single spelling of a unit used for storage and
// comparison. Unknown tokens are kept, singular, so identical units still
// reconcile.
func canonicalUnit(registry UnitRegistry, unit string) string {
	if strings.TrimSpace(unit) == "" {
		return domain.UnitNone
	}
	if u, err := registry.Lookup(unit); err == nil {
		return u.Name
	}
	return units.Singular(unit)
}

func (l *InventoryLedger) withRetry(ctx context.Context, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if !errors.Is(err, domain.ErrVersionConflict) {
			return err
		}
		if attempt >= l.maxRetries {
			return fmt.Errorf("gave up after %d attempts: %w", attempt+1, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		metrics.LedgerRetries.Inc()
	}
}

var _ UnitRegistry = (*units.Registry)(nil)
