package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/rl1809/pantry/internal/adapter/storage"
	"github.com/rl1809/pantry/internal/core/domain"
	"github.com/rl1809/pantry/internal/core/service"
	"github.com/rl1809/pantry/internal/core/units"
	"github.com/rl1809/pantry/internal/logging"
)

const (
	ownerID       = "stress-owner"
	ingredient    = "flour"
	initialGrams  = 1000
	totalCooks    = 20
	totalRestocks = 20
	cupsPerCook   = "0.25"
	maxRetries    = 100
	gramsPerCup   = 120
	expectedGrams = "400.00"
)

func main() {
	ctx := context.Background()
	logging.Init(logging.Config{Level: "error"})

	dir, err := os.MkdirTemp("", "pantry-stress")
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create temp dir")
	}
	defer os.RemoveAll(dir)

	// Initialize SQLite
	dsn := "file:" + filepath.Join(dir, "stress.db") + "?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open sqlite")
	}
	defer db.Close()
	db.SetMaxOpenConns(8)

	if err := storage.Migrate(ctx, db); err != nil {
		logging.Fatal().Err(err).Msg("failed to migrate")
	}

	store := storage.NewSQLiteAdapter(db)
	if err := store.PutDensityEntry(ctx, domain.DensityEntry{
		IngredientName:      ingredient,
		ReferenceMass:       decimal.NewFromInt(gramsPerCup),
		ReferenceMassUnit:   "gram",
		ReferenceVolume:     decimal.NewFromInt(1),
		ReferenceVolumeUnit: "cup",
	}); err != nil {
		logging.Fatal().Err(err).Msg("failed to seed density")
	}

	// Initialize services
	registry := units.NewRegistry()
	ledger := service.NewInventoryLedger(store, registry, maxRetries)
	converter := service.NewUnitConverter(registry, store)
	consumption := service.NewConsumptionService(store, nil, converter, ledger)

	if _, err := ledger.Restock(ctx, ownerID, ingredient, decimal.NewFromInt(initialGrams), "grams"); err != nil {
		logging.Fatal().Err(err).Msg("failed to stock pantry")
	}

	// Counters
	var decremented atomic.Int32
	var failed atomic.Int32
	var restockFailed atomic.Int32

	// Spawn concurrent cook events
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalCooks; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			report := consumption.RecordCooked(ctx, ownerID, fmt.Sprintf("recipe-%d", n), []domain.LineItem{
				{Name: ingredient, Amount: decimal.RequireFromString(cupsPerCook), Unit: "cups"},
			})
			if report.Count(domain.OutcomeDecremented) == 1 {
				decremented.Add(1)
			} else {
				failed.Add(1)
			}
		}(i)
	}

	// Interleave restocks that add nothing but flip the stored unit
	for i := 0; i < totalRestocks; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			unit := "grams"
			if n%2 == 0 {
				unit = "kilograms"
			}
			if _, err := ledger.Restock(ctx, ownerID, ingredient, decimal.Zero, unit); err != nil {
				restockFailed.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	ok := decremented.Load()
	bad := failed.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Flour:    %d grams\n", initialGrams)
	fmt.Printf("Cook Events:      %d x %s cup\n", totalCooks, cupsPerCook)
	fmt.Printf("Decremented:      %d\n", ok)
	fmt.Printf("Failed:           %d\n", bad)
	fmt.Printf("Unit Restocks:    %d (%d failed)\n", totalRestocks, restockFailed.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if ok == totalCooks && bad == 0 && restockFailed.Load() == 0 {
		fmt.Printf("PASS: All %d cook events decremented alongside %d restocks\n", totalCooks, totalRestocks)
	} else {
		fmt.Printf("FAIL: Expected %d decremented, got %d (%d failed)\n", totalCooks, ok, bad)
	}

	// Verify no lost updates
	stored, err := store.GetStoredIngredient(ctx, ownerID, ingredient)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to read final amount")
	}
	fmt.Printf("Final Flour:      %s %s\n", stored.Amount.StringFixed(domain.AmountPlaces), stored.Unit)

	grams, err := registry.Convert(stored.Amount, stored.Unit, "gram")
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to express final amount in grams")
	}
	final := grams.StringFixed(domain.AmountPlaces)

	if final == expectedGrams {
		fmt.Printf("PASS: Flour at %s grams\n", expectedGrams)
	} else {
		fmt.Printf("FAIL: Expected %s grams, got %s\n", expectedGrams, final)
	}
}
