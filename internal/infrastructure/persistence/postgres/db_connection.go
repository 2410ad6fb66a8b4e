// Package postgres is the system of record: gorm repositories over a pgx
// connection pool.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/turtacn/sixcities/internal/config"
	"github.com/turtacn/sixcities/internal/domain/models"
	"github.com/turtacn/sixcities/pkg/errors"
	"github.com/turtacn/sixcities/pkg/logger"
)

// DBConnection manages the PostgreSQL pool and the gorm handle built on it.
type DBConnection struct {
	pool   *pgxpool.Pool
	db     *gorm.DB
	config *config.DatabaseConfig
	logger logger.Logger
}

// NewDBConnection opens the pool, wraps it in gorm and pings the server.
func NewDBConnection(ctx context.Context, cfg *config.DatabaseConfig, log logger.Logger) (*DBConnection, error) {
	if cfg == nil {
		return nil, errors.ErrInvalidConfig.WithMessage("database config is nil")
	}
	log = log.WithComponent("postgres")

	log.Info(ctx, "Initializing PostgreSQL connection pool",
		logger.String("host", cfg.Host),
		logger.Int("port", cfg.Port),
		logger.String("database", cfg.Database),
		logger.Int("max_conns", cfg.MaxConns),
	)

	poolConfig, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		return nil, errors.ErrInvalidConfig.WithError(err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = time.Duration(cfg.MaxConnLifetime) * time.Minute
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create database pool: %w", err)
	}

	gdb, err := OpenGorm(postgres.New(postgres.Config{Conn: stdlib.OpenDBFromPool(pool)}))
	if err != nil {
		pool.Close()
		return nil, err
	}

	conn := &DBConnection{pool: pool, db: gdb, config: cfg, logger: log}
	if err := conn.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := AutoMigrate(gdb); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info(ctx, "Database schema migrated")
	}

	log.Info(ctx, "PostgreSQL connection pool initialized",
		logger.Int("total_conns", int(pool.Stat().TotalConns())),
	)
	return conn, nil
}

// OpenGorm opens gorm over any dialector with duplicate-key translation on.
func OpenGorm(dialector gorm.Dialector) (*gorm.DB, error) {
	gdb, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	return gdb, nil
}

// AutoMigrate creates or updates the tables for every entity.
func AutoMigrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.City{},
		&models.User{},
		&models.Offer{},
		&models.Comment{},
		&models.Favorite{},
	)
}

// DB returns the gorm handle used by the repositories.
func (db *DBConnection) DB() *gorm.DB {
	return db.db
}

// Ping verifies database connectivity.
func (db *DBConnection) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	startTime := time.Now()
	if err := db.pool.Ping(pingCtx); err != nil {
		db.logger.Error(ctx, "Database ping failed", err)
		return fmt.Errorf("database ping: %w", err)
	}

	if latency := time.Since(startTime); latency > 100*time.Millisecond {
		db.logger.Warn(ctx, "High database latency detected", logger.Int64("latency_ms", latency.Milliseconds()))
	}
	return nil
}

// Close shuts the pool down.
func (db *DBConnection) Close() {
	db.pool.Close()
	db.logger.Info(context.Background(), "PostgreSQL connection pool closed")
}
