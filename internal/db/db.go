package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"textilserver/internal/config"
	"textilserver/internal/models"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrNotFound is returned by FetchOne when no row matches.
var ErrNotFound = errors.New("record not found")

// Gateway is the only way the application reaches the database.
// Every value travels as a bind argument; query, expr and orderBy strings
// are fixed fragments written in code, never user input.
type Gateway struct {
	db  *gorm.DB
	log zerolog.Logger
}

// Identifiable is implemented by every persisted entity.
type Identifiable interface {
	PrimaryKey() uint
}

// Open connects to the configured store, migrates the schema and seeds
// reference data.
func Open(cfg config.DatabaseConfig, log zerolog.Logger) (*Gateway, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(gormWriter{log}, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	if cfg.Driver == "sqlite" {
		// sqlite serialises writers; a single connection keeps transactions from
		// failing with "database is locked".
		sqlDB.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	log.Info().Str("driver", cfg.Driver).Msg("database connection established")

	g := New(gdb, log)
	if err := g.Migrate(); err != nil {
		return nil, err
	}
	if err := g.SeedCategories(context.Background()); err != nil {
		return nil, err
	}
	return g, nil
}

// New wraps an existing gorm handle.
func New(gdb *gorm.DB, log zerolog.Logger) *Gateway {
	return &Gateway{db: gdb, log: log}
}

func (g *Gateway) Migrate() error {
	err := g.db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Company{},
		&models.Listing{},
		&models.PointTransaction{},
	)
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	g.log.Info().Msg("database migration completed")
	return nil
}

func (g *Gateway) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping is used by the health endpoint.
func (g *Gateway) Ping(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// DB exposes the raw handle for queries the gateway does not cover.
func (g *Gateway) DB(ctx context.Context) *gorm.DB {
	return g.db.WithContext(ctx)
}

// Exec runs a statement and reports the number of affected rows.
func (g *Gateway) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	res := g.db.WithContext(ctx).Exec(sql, args...)
	return res.RowsAffected, res.Error
}

// FetchOne loads the first row matching query into dest.
func (g *Gateway) FetchOne(ctx context.Context, dest any, query string, args ...any) error {
	q := g.db.WithContext(ctx)
	if query != "" {
		q = q.Where(query, args...)
	}
	err := q.Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (g *Gateway) FetchByID(ctx context.Context, dest any, id uint) error {
	return g.FetchOne(ctx, dest, "id = ?", id)
}

// FetchMany loads every row matching query into dest, a pointer to a slice.
func (g *Gateway) FetchMany(ctx context.Context, dest any, orderBy, query string, args ...any) error {
	return g.LatestBy(ctx, dest, 0, orderBy, query, args...)
}

// LatestBy is FetchMany with a row limit. limit <= 0 means no limit.
func (g *Gateway) LatestBy(ctx context.Context, dest any, limit int, orderBy, query string, args ...any) error {
	q := g.db.WithContext(ctx)
	if query != "" {
		q = q.Where(query, args...)
	}
	if orderBy != "" {
		q = q.Order(orderBy)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	return q.Find(dest).Error
}

// Page loads one page of rows and the total count for the same filter.
func (g *Gateway) Page(ctx context.Context, model, dest any, page, perPage int, orderBy, query string, args ...any) (int64, error) {
	if page < 1 {
		page = 1
	}
	total, err := g.CountWhere(ctx, model, query, args...)
	if err != nil {
		return 0, err
	}
	q := g.db.WithContext(ctx).Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	if orderBy != "" {
		q = q.Order(orderBy)
	}
	err = q.Offset((page - 1) * perPage).Limit(perPage).Find(dest).Error
	return total, err
}

// InsertReturningID inserts row and returns its generated primary key.
func (g *Gateway) InsertReturningID(ctx context.Context, row Identifiable) (uint, error) {
	if err := g.db.WithContext(ctx).Create(row).Error; err != nil {
		return 0, err
	}
	return row.PrimaryKey(), nil
}

// UpdateWhere applies values to every row of model matching query.
// Callers use the affected row count to detect lost conditional updates.
func (g *Gateway) UpdateWhere(ctx context.Context, model any, values map[string]any, query string, args ...any) (int64, error) {
	if query == "" {
		return 0, errors.New("update without condition")
	}
	res := g.db.WithContext(ctx).Model(model).Where(query, args...).Updates(values)
	return res.RowsAffected, res.Error
}

func (g *Gateway) CountWhere(ctx context.Context, model any, query string, args ...any) (int64, error) {
	var count int64
	q := g.db.WithContext(ctx).Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	err := q.Count(&count).Error
	return count, err
}

// SumWhere returns SUM(expr) over matching rows, 0 when none match.
func (g *Gateway) SumWhere(ctx context.Context, model any, expr, query string, args ...any) (int64, error) {
	var total int64
	q := g.db.WithContext(ctx).Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	err := q.Select("COALESCE(SUM(" + expr + "), 0)").Scan(&total).Error
	return total, err
}

// Transaction runs fn inside one database transaction. A returned error or a
// panic rolls everything back.
func (g *Gateway) Transaction(ctx context.Context, fn func(tx *Gateway) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Gateway{db: tx, log: g.log})
	})
}

type gormWriter struct {
	log zerolog.Logger
}

func (w gormWriter) Printf(format string, args ...any) {
	w.log.Warn().Str("component", "gorm").Msgf(format, args...)
}
