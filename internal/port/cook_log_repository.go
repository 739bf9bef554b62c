package port

import (
	"context"

	"github.com/rl1809/pantry/internal/core/domain"
)

type CookLogRepository interface {
	// AppendCooked records that a recipe was cooked. Records are never updated
	AppendCooked(ctx context.Context, rec domain.CookedRecipe) error
}

type IdempotencyStore interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)
}
