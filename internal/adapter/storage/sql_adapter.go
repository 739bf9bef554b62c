package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/pantry/internal/core/domain"
	"github.com/rl1809/pantry/internal/port"
)

// SQLAdapter persists ingredients, density entries and the cooked-recipe log.
type SQLAdapter struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

func NewSQLAdapter(db *sql.DB, dialect Dialect) *SQLAdapter {
	return &SQLAdapter{db: db, dialect: dialect, now: time.Now}
}

func NewMySQLAdapter(db *sql.DB) *SQLAdapter {
	return NewSQLAdapter(db, DialectMySQL)
}

func NewSQLiteAdapter(db *sql.DB) *SQLAdapter {
	return NewSQLAdapter(db, DialectSQLite)
}

func (s *SQLAdapter) GetStoredIngredient(ctx context.Context, ownerID, name string) (*domain.StoredIngredient, error) {
	var ing domain.StoredIngredient
	err := s.db.QueryRowContext(ctx, `
		SELECT owner_id, name, amount, unit, version, updated_at
		FROM ingredients WHERE owner_id = ? AND name = ?`, ownerID, name,
	).Scan(&ing.OwnerID, &ing.Name, &ing.Amount, &ing.Unit, &ing.Version, &ing.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrIngredientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query ingredient: %w", err)
	}
	return &ing, nil
}

func (s *SQLAdapter) SetStoredIngredient(ctx context.Context, ownerID, name string, amount decimal.Decimal, version int) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE ingredients
		SET amount = ?, version = version + 1, updated_at = ?
		WHERE owner_id = ? AND name = ? AND version = ?`,
		amount.StringFixed(domain.AmountPlaces), s.now().UTC(), ownerID, name, version,
	)
	if err != nil {
		return fmt.Errorf("update ingredient: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrVersionConflict
	}
	return nil
}

func (s *SQLAdapter) SaveStoredIngredient(ctx context.Context, ing domain.StoredIngredient) error {
	updatedAt := ing.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = s.now().UTC()
	}
	amount := ing.Amount.StringFixed(domain.AmountPlaces)

	var (
		result sql.Result
		err    error
	)
	if ing.Version == 0 {
		result, err = s.db.ExecContext(ctx, s.insertIgnore()+` ingredients
			(owner_id, name, amount, unit, version, updated_at)
			VALUES (?, ?, ?, ?, 1, ?)`,
			ing.OwnerID, ing.Name, amount, ing.Unit, updatedAt,
		)
	} else {
		result, err = s.db.ExecContext(ctx, `
			UPDATE ingredients
			SET amount = ?, unit = ?, version = version + 1, updated_at = ?
			WHERE owner_id = ? AND name = ? AND version = ?`,
			amount, ing.Unit, updatedAt, ing.OwnerID, ing.Name, ing.Version,
		)
	}
	if err != nil {
		return fmt.Errorf("save ingredient: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrVersionConflict
	}
	return nil
}

func (s *SQLAdapter) ListStoredIngredients(ctx context.Context, ownerID string) ([]domain.StoredIngredient, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT owner_id, name, amount, unit, version, updated_at
		FROM ingredients WHERE owner_id = ? ORDER BY name`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}
	defer rows.Close()

	var out []domain.StoredIngredient
	for rows.Next() {
		var ing domain.StoredIngredient
		if err := rows.Scan(&ing.OwnerID, &ing.Name, &ing.Amount, &ing.Unit, &ing.Version, &ing.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan ingredient: %w", err)
		}
		out = append(out, ing)
	}
	return out, rows.Err()
}

func (s *SQLAdapter) GetDensityEntry(ctx context.Context, name string) (*domain.DensityEntry, error) {
	var e domain.DensityEntry
	err := s.db.QueryRowContext(ctx, `
		SELECT name, reference_mass, reference_mass_unit, reference_volume, reference_volume_unit
		FROM ingredient_measurements WHERE name = ?`, domain.DensityKey(name),
	).Scan(&e.IngredientName, &e.ReferenceMass, &e.ReferenceMassUnit, &e.ReferenceVolume, &e.ReferenceVolumeUnit)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrDensityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query density: %w", err)
	}
	return &e, nil
}

func (s *SQLAdapter) PutDensityEntry(ctx context.Context, e domain.DensityEntry) error {
	query := `
		INSERT INTO ingredient_measurements
		(name, reference_mass, reference_mass_unit, reference_volume, reference_volume_unit)
		VALUES (?, ?, ?, ?, ?)`
	if s.dialect == DialectMySQL {
		query += ` ON DUPLICATE KEY UPDATE
			reference_mass = VALUES(reference_mass),
			reference_mass_unit = VALUES(reference_mass_unit),
			reference_volume = VALUES(reference_volume),
			reference_volume_unit = VALUES(reference_volume_unit)`
	} else {
		query += ` ON CONFLICT(name) DO UPDATE SET
			reference_mass = excluded.reference_mass,
			reference_mass_unit = excluded.reference_mass_unit,
			reference_volume = excluded.reference_volume,
			reference_volume_unit = excluded.reference_volume_unit`
	}

	_, err := s.db.ExecContext(ctx, query,
		domain.DensityKey(e.IngredientName), e.ReferenceMass.String(), e.ReferenceMassUnit,
		e.ReferenceVolume.String(), e.ReferenceVolumeUnit,
	)
	if err != nil {
		return fmt.Errorf("put density: %w", err)
	}
	return nil
}

func (s *SQLAdapter) AppendCooked(ctx context.Context, rec domain.CookedRecipe) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cooked_recipes (id, owner_id, recipe_id, created_at)
		VALUES (?, ?, ?, ?)`,
		rec.ID, rec.OwnerID, rec.RecipeID, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert cooked recipe: %w", err)
	}
	return nil
}

func (s *SQLAdapter) insertIgnore() string {
	if s.dialect == DialectMySQL {
		return "INSERT IGNORE INTO"
	}
	return "INSERT OR IGNORE INTO"
}

var (
	_ port.InventoryRepository = (*SQLAdapter)(nil)
	_ port.DensityRepository   = (*SQLAdapter)(nil)
	_ port.DensityWriter       = (*SQLAdapter)(nil)
	_ port.CookLogRepository   = (*SQLAdapter)(nil)
)
