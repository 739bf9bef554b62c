package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rl1809/pantry/internal/core/domain"
)

type ingredientKey struct{ owner, name string }

// Mock InventoryRepository
type mockInventoryRepo struct {
	mu    sync.Mutex
	rows  map[ingredientKey]domain.StoredIngredient
	sets  int
	getFn func() error // optional failure injection
	// conflicts makes the next n SetStoredIngredient calls fail with a version conflict
	conflicts int
	// beforeSet runs under the lock at the start of SetStoredIngredient
	beforeSet func()
}

func newMockInventoryRepo() *mockInventoryRepo {
	return &mockInventoryRepo{rows: make(map[ingredientKey]domain.StoredIngredient)}
}

func (m *mockInventoryRepo) put(owner, name, amount, unit string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[ingredientKey{owner, name}] = domain.StoredIngredient{
		OwnerID: owner,
		Name:    name,
		Amount:  decimal.RequireFromString(amount),
		Unit:    unit,
		Version: 1,
	}
}

func (m *mockInventoryRepo) amount(owner, name string) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[ingredientKey{owner, name}].Amount
}

func (m *mockInventoryRepo) GetStoredIngredient(ctx context.Context, ownerID, name string) (*domain.StoredIngredient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getFn != nil {
		if err := m.getFn(); err != nil {
			return nil, err
		}
	}
	ing, ok := m.rows[ingredientKey{ownerID, name}]
	if !ok {
		return nil, domain.ErrIngredientNotFound
	}
	return &ing, nil
}

func (m *mockInventoryRepo) SetStoredIngredient(ctx context.Context, ownerID, name string, amount decimal.Decimal, version int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.beforeSet != nil {
		m.beforeSet()
	}
	if m.conflicts > 0 {
		m.conflicts--
		return domain.ErrVersionConflict
	}
	key := ingredientKey{ownerID, name}
	ing, ok := m.rows[key]
	if !ok {
		return domain.ErrIngredientNotFound
	}
	if ing.Version != version {
		return domain.ErrVersionConflict
	}
	ing.Amount = amount
	ing.Version++
	m.rows[key] = ing
	return nil
}

func (m *mockInventoryRepo) SaveStoredIngredient(ctx context.Context, ing domain.StoredIngredient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := ingredientKey{ing.OwnerID, ing.Name}
	cur, ok := m.rows[key]
	if ing.Version == 0 {
		if ok {
			return domain.ErrVersionConflict
		}
		ing.Version = 1
		m.rows[key] = ing
		return nil
	}
	if !ok || cur.Version != ing.Version {
		return domain.ErrVersionConflict
	}
	ing.Version++
	m.rows[key] = ing
	return nil
}

func (m *mockInventoryRepo) ListStoredIngredients(ctx context.Context, ownerID string) ([]domain.StoredIngredient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.StoredIngredient
	for k, ing := range m.rows {
		if k.owner == ownerID {
			out = append(out, ing)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Mock DensityRepository
type mockDensityRepo struct {
	entries map[string]domain.DensityEntry
	err     error
}

func newMockDensityRepo(entries ...domain.DensityEntry) *mockDensityRepo {
	m := &mockDensityRepo{entries: make(map[string]domain.DensityEntry)}
	for _, e := range entries {
		m.entries[domain.DensityKey(e.IngredientName)] = e
	}
	return m
}

func (m *mockDensityRepo) GetDensityEntry(ctx context.Context, name string) (*domain.DensityEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	e, ok := m.entries[domain.DensityKey(name)]
	if !ok {
		return nil, domain.ErrDensityNotFound
	}
	return &e, nil
}

// Mock CookLogRepository
type mockCookLog struct {
	mu      sync.Mutex
	records []domain.CookedRecipe
	fail    bool
}

func (m *mockCookLog) AppendCooked(ctx context.Context, rec domain.CookedRecipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("log unavailable")
	}
	m.records = append(m.records, rec)
	return nil
}

// Mock IdempotencyStore
type mockIdempotency struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (m *mockIdempotency) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

func flourDensity() domain.DensityEntry {
	return domain.DensityEntry{
		IngredientName:      "flour",
		ReferenceMass:       decimal.NewFromInt(120),
		ReferenceMassUnit:   "gram",
		ReferenceVolume:     decimal.NewFromInt(1),
		ReferenceVolumeUnit: "cup",
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
