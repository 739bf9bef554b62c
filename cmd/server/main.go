package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"github.com/rl1809/pantry/internal/adapter/handler"
	"github.com/rl1809/pantry/internal/adapter/storage"
	"github.com/rl1809/pantry/internal/config"
	"github.com/rl1809/pantry/internal/core/service"
	"github.com/rl1809/pantry/internal/core/units"
	"github.com/rl1809/pantry/internal/logging"
	"github.com/rl1809/pantry/internal/port"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	dialect := storage.Dialect(cfg.Database.Driver)
	driver, err := storage.DriverName(dialect)
	if err != nil {
		logging.Fatal().Err(err).Msg("unsupported database")
	}
	db, err := sql.Open(driver, cfg.Database.DSN)
	if err != nil {
		logging.Fatal().Err(err).Str("driver", driver).Msg("failed to open database")
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		logging.Fatal().Err(err).Str("driver", driver).Msg("failed to ping database")
	}
	logging.Info().Str("driver", driver).Msg("connected to database")

	if cfg.Database.AutoMigrate {
		if err := storage.Migrate(ctx, db); err != nil {
			logging.Fatal().Err(err).Msg("failed to migrate schema")
		}
	}

	store := storage.NewSQLAdapter(db, dialect)
	registry := units.NewRegistry()

	// Seed density entries
	if err := seedDensities(ctx, store, registry, cfg.Densities); err != nil {
		logging.Fatal().Err(err).Msg("failed to seed densities")
	}
	logging.Info().Int("count", len(cfg.Densities)).Msg("seeded density entries")

	// Initialize Redis
	var (
		densities   port.DensityRepository = store
		idempotency port.IdempotencyStore
		rdb         *redis.Client
	)
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logging.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("failed to connect redis")
		}
		logging.Info().Str("addr", cfg.Redis.Addr).Msg("connected to redis")

		densities = storage.NewCachedDensityRepository(rdb, store, cfg.Redis.DensityTTL)
		idempotency = storage.NewRedisAdapter(rdb, cfg.Redis.IdempotencyTTL)
	}

	// Initialize services
	converter := service.NewUnitConverter(registry, densities)
	ledger := service.NewInventoryLedger(store, registry, cfg.Ledger.MaxRetries)
	consumption := service.NewConsumptionService(store, idempotency, converter, ledger)

	// Start gRPC server
	grpcServer := handler.NewGRPCServer()
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logging.Fatal().Err(err).Str("addr", cfg.Server.GRPCAddr).Msg("failed to listen")
	}

	go func() {
		logging.Info().Str("addr", cfg.Server.GRPCAddr).Msg("gRPC server listening")
		if err := grpcServer.Server.Serve(lis); err != nil {
			logging.Error().Err(err).Msg("gRPC server error")
		}
	}()

	// Start HTTP server
	httpServer := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: handler.NewHTTPHandler(consumption, ledger,
			handler.WithRateLimit(cfg.Server.RateLimit, cfg.Server.RateWindow),
			handler.WithCORS(cfg.Server.CORSOrigins),
		).Routes(),
	}

	go func() {
		logging.Info().Str("addr", cfg.Server.HTTPAddr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logging.Error().Err(err).Msg("HTTP server error")
		}
	}()
	grpcServer.SetServing(true)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info().Msg("shutting down...")
	grpcServer.SetServing(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("HTTP shutdown error")
	}
	logging.Info().Msg("HTTP server stopped")

	grpcServer.Stop()
	logging.Info().Msg("gRPC server stopped")

	if rdb != nil {
		rdb.Close()
	}
	db.Close()
	logging.Info().Msg("connections closed")
}

// seedDensities upserts configured density entries with canonical unit names.
func seedDensities(ctx context.Context, w port.DensityWriter, registry *units.Registry, seeds []config.DensitySeed) error {
	for _, seed := range seeds {
		entry := seed.Entry()
		if u, err := registry.Lookup(entry.ReferenceMassUnit); err == nil {
			entry.ReferenceMassUnit = u.Name
		}
		if u, err := registry.Lookup(entry.ReferenceVolumeUnit); err == nil {
			entry.ReferenceVolumeUnit = u.Name
		}
		if err := w.PutDensityEntry(ctx, entry); err != nil {
			return fmt.Errorf("seed %s: %w", entry.IngredientName, err)
		}
	}
	return nil
}
