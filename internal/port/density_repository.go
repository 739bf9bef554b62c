package port

import (
	"context"

	"github.com/rl1809/pantry/internal/core/domain"
)

type DensityRepository interface {
	// GetDensityEntry returns domain.ErrDensityNotFound when no entry exists for name
	GetDensityEntry(ctx context.Context, name string) (*domain.DensityEntry, error)
}

// DensityWriter is implemented by stores that accept seed data.
type DensityWriter interface {
	PutDensityEntry(ctx context.Context, entry domain.DensityEntry) error
}
