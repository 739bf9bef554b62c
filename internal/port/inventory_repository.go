package port

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/rl1809/pantry/internal/core/domain"
)

type InventoryRepository interface {
	// GetStoredIngredient returns domain.ErrIngredientNotFound when the owner does not track name
	GetStoredIngredient(ctx context.Context, ownerID, name string) (*domain.StoredIngredient, error)

	// SetStoredIngredient writes a new amount if the row is still at version,
	// otherwise returns domain.ErrVersionConflict
	SetStoredIngredient(ctx context.Context, ownerID, name string, amount decimal.Decimal, version int) error

	// SaveStoredIngredient inserts ing when ing.Version is 0, otherwise overwrites amount and unit
	// if the row is still at ing.Version. Both paths return domain.ErrVersionConflict on a lost race
	SaveStoredIngredient(ctx context.Context, ing domain.StoredIngredient) error

	// ListStoredIngredients returns every ingredient tracked for the owner, ordered by name
	ListStoredIngredients(ctx context.Context, ownerID string) ([]domain.StoredIngredient, error)
}
