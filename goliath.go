// Package goliath persists entity graphs described by a mapping model. A DB
// owns the connection pool and the compiled-statement cache; a Session owns
// one connection, its transaction, and runs the statement trees the sqlgen
// package builds.
package goliath

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"sync"

	"github.com/malweka/GoliathData-sub001/accessor"
	"github.com/malweka/GoliathData-sub001/config"
	"github.com/malweka/GoliathData-sub001/dialect"
	"github.com/malweka/GoliathData-sub001/hydrate"
	"github.com/malweka/GoliathData-sub001/internal/stmt_store"
	"github.com/malweka/GoliathData-sub001/logger"
	"github.com/malweka/GoliathData-sub001/mapping"
	"github.com/malweka/GoliathData-sub001/sqlgen"
)

// ErrModelRequired Open was given no mapping model
var ErrModelRequired = errors.New("mapping model required")

// Config goliath config
type Config struct {
	// Model mapping model of the persisted entities
	Model *mapping.Model
	// Logger
	Logger logger.Interface
	// CommandTimeout seconds allowed to every command, zero for no deadline
	CommandTimeout int
	// StatementCacheSize compiled statements kept, zero for the default
	StatementCacheSize int
	// Accessors accessor cache shared with other DBs over the same types
	Accessors *accessor.Cache
	// Converters hydration type converters
	Converters *hydrate.Converters
}

// DB a connection pool bound to a mapping model and a dialect. Safe for
// concurrent use; Sessions are not.
type DB struct {
	*Config
	Dialect dialect.Dialect

	sqlDB    *sql.DB
	builder  *sqlgen.Builder
	stmts    stmt_store.Store
	mu       sync.RWMutex
	bindings map[reflect.Type]*mapping.Entity
}

// Open opens dsn with the dialect's driver
func Open(d dialect.Dialect, dsn string, config *Config) (*DB, error) {
	sqlDB, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, err
	}
	db, err := OpenDB(d, sqlDB, config)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// OpenDB wraps an existing pool
func OpenDB(d dialect.Dialect, sqlDB *sql.DB, config *Config) (*DB, error) {
	if config == nil || config.Model == nil {
		return nil, ErrModelRequired
	}
	if err := config.Model.Validate(); err != nil {
		return nil, err
	}

	if config.Logger == nil {
		config.Logger = logger.Default
	}

	if config.Accessors == nil {
		config.Accessors = accessor.NewCache()
	}

	if config.Converters == nil {
		config.Converters = hydrate.NewConverters()
	}

	db := &DB{
		Config:   config,
		Dialect:  d,
		sqlDB:    sqlDB,
		builder:  sqlgen.NewBuilder(config.Model, d, config.Accessors),
		stmts:    stmt_store.New(config.StatementCacheSize, 0),
		bindings: map[reflect.Type]*mapping.Entity{},
	}

	for _, stmt := range config.Model.Statements() {
		db.stmts.Compile(stmt.Body, d)
	}
	return db, nil
}

// OpenConfig loads the mapping and metadata files named by cfg and opens its database
func OpenConfig(cfg *config.Config) (*DB, error) {
	d, err := dialect.Get(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}

	l, err := cfg.Logger.New()
	if err != nil {
		return nil, err
	}

	model, err := loadModel(cfg.MappingFile)
	if err != nil {
		return nil, err
	}

	if cfg.MetadataFile != "" {
		f, err := os.Open(cfg.MetadataFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		entries, err := mapping.LoadMetadata(f)
		if err != nil {
			return nil, err
		}
		l.Info(context.Background(), "merged %d metadata attributes from %s", model.MergeMetadata(entries), cfg.MetadataFile)
	}

	db, err := Open(d, cfg.Database.DSN, &Config{
		Model:              model,
		Logger:             l,
		CommandTimeout:     cfg.CommandTimeout,
		StatementCacheSize: cfg.StatementCacheSize,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Database.MaxOpenConns > 0 {
		db.sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns > 0 {
		db.sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}
	return db, nil
}

func loadModel(path string) (*mapping.Model, error) {
	if path == "" {
		return nil, ErrModelRequired
	}
	return mapping.LoadFile(path)
}

// DB returns the underlying pool
func (db *DB) DB() *sql.DB {
	return db.sqlDB
}

// Close closes the pool
func (db *DB) Close() error {
	return db.sqlDB.Close()
}

// Builder statement builder over the model and dialect
func (db *DB) Builder() *sqlgen.Builder {
	return db.builder
}

// Bind maps the type of prototype to the entity named name. Unbound types
// resolve to the entity carrying their type name.
func (db *DB) Bind(name string, prototype interface{}) error {
	e, err := db.Model.ResolveEntity(name)
	if err != nil {
		return err
	}
	t := structType(reflect.TypeOf(prototype))
	if t == nil {
		return fmt.Errorf("%w: %T", ErrInvalidData, prototype)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	db.bindings[t] = e
	return nil
}

// RegisterStatement adds a mapped statement to the model and compiles it
func (db *DB) RegisterStatement(stmt *mapping.Statement) error {
	if stmt.ResultMap != "" {
		if _, err := db.Model.ResolveEntity(stmt.ResultMap); err != nil {
			return err
		}
	}

	db.mu.Lock()
	db.Model.AddStatement(stmt)
	db.mu.Unlock()

	db.stmts.Compile(stmt.Body, db.Dialect)
	return nil
}

func (db *DB) statement(name string) (*mapping.Statement, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if stmt, ok := db.Model.GetStatement(name); ok {
		return stmt, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownStatement, name)
}

// EntityOf resolves the entity of value, a struct, a struct pointer or a
// slice of either
func (db *DB) EntityOf(value interface{}) (*mapping.Entity, error) {
	t := structType(reflect.TypeOf(value))
	if t == nil {
		return nil, fmt.Errorf("%w: %T", ErrInvalidData, value)
	}

	db.mu.RLock()
	e, ok := db.bindings[t]
	db.mu.RUnlock()
	if ok {
		return e, nil
	}

	if e, ok := db.Model.GetEntity(t.Name()); ok {
		return e, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownEntity, t)
}

func structType(t reflect.Type) reflect.Type {
	for t != nil {
		switch t.Kind() {
		case reflect.Ptr, reflect.Slice, reflect.Array:
			t = t.Elem()
		case reflect.Struct:
			return t
		default:
			return nil
		}
	}
	return nil
}
