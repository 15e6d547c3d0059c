// Package db is the persistence gateway. It owns the relational schema,
// translates driver errors into the service taxonomy and seeds the fixed
// reference data.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	e "github.com/gartstein/safework/internal/safework/errors"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Repository struct {
	db *gorm.DB
}

type Config struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	// Path is the SQLite database file, ":memory:" for a throwaway database.
	Path string
}

// NewRepository connects to the configured database and applies the schema.
func NewRepository(ctx context.Context, cfg *Config) (*Repository, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", DriverPostgres:
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		return OpenSQLite(ctx, cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repo := &Repository{db: db}
	if err := repo.Migrate(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

// OpenSQLite opens a SQLite database with foreign keys enforced and applies
// the schema. SQLite serialises writers, so the pool holds one connection;
// this also keeps a ":memory:" database alive for the life of the repository.
func OpenSQLite(ctx context.Context, path string) (*Repository, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=on"), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	repo := &Repository{db: db}
	if err := repo.Migrate(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *Repository) WithTransaction(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) Exec(ctx context.Context, query string, params ...interface{}) error {
	return translateError(r.db.WithContext(ctx).Exec(query, params...).Error)
}

// Ping checks that the database answers.
func (r *Repository) Ping(ctx context.Context) error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return db.PingContext(pingCtx)
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

// translateError maps driver and gorm errors onto the service taxonomy.
// Constraint names are not exposed to callers.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return e.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: a record with the same unique key already exists", e.ErrReferentialIntegrity)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: referenced record does not exist or is still referenced", e.ErrReferentialIntegrity)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint"), strings.Contains(msg, "duplicate key"):
		return fmt.Errorf("%w: a record with the same unique key already exists", e.ErrReferentialIntegrity)
	case strings.Contains(msg, "foreign key"):
		return fmt.Errorf("%w: referenced record does not exist or is still referenced", e.ErrReferentialIntegrity)
	case strings.Contains(msg, "check constraint"):
		return fmt.Errorf("%w: record violates a schema constraint", e.ErrValidation)
	}
	return err
}

// The helpers below hold the row mechanics shared by every table.

func create[T any](ctx context.Context, db *gorm.DB, v *T) error {
	return translateError(db.WithContext(ctx).Omit(clause.Associations).Create(v).Error)
}

func get[T any](ctx context.Context, db *gorm.DB, id uuid.UUID, preload ...string) (*T, error) {
	var v T
	q := db.WithContext(ctx)
	for _, p := range preload {
		q = q.Preload(p)
	}
	if err := q.First(&v, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &v, nil
}

// update writes every column of v except its id and creation time.
func update[T any](ctx context.Context, db *gorm.DB, v *T) error {
	result := db.WithContext(ctx).Model(v).
		Select("*").
		Omit("id", "created_at", clause.Associations).
		Updates(v)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func remove[T any](ctx context.Context, db *gorm.DB, id uuid.UUID) error {
	result := db.WithContext(ctx).Delete(new(T), "id = ?", id)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func exists[T any](ctx context.Context, db *gorm.DB, query string, args ...interface{}) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(new(T)).Where(query, args...).Limit(1).Count(&count).Error
	return count > 0, translateError(err)
}
