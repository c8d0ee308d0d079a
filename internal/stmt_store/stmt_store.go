package stmt_store

import (
	"sync"
	"time"

	"github.com/malweka/GoliathData-sub001/dialect"
	"github.com/malweka/GoliathData-sub001/internal/lru"
	"github.com/malweka/GoliathData-sub001/sqlgen"
)

// Stmt a statement whose named markers were compiled for one dialect
type Stmt struct {
	sqlgen.Compiled
	Dialect string
}

// Store compiled statements keyed by dialect and statement text
type Store interface {
	Compile(text string, d dialect.Dialect) *Stmt
	Keys() []string
	Get(key string) (*Stmt, bool)
	Set(key string, value *Stmt)
	Delete(key string)
	Len() int
}

const (
	defaultMaxSize = 1024
	defaultTTL     = time.Hour * 24
)

// New returns a store bounded to size entries that expire after ttl
func New(size int, ttl time.Duration) Store {
	if size <= 0 {
		size = defaultMaxSize
	}

	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &lruStore{lru: lru.NewLRU[string, *Stmt](size, nil, ttl)}
}

type lruStore struct {
	lru *lru.LRU[string, *Stmt]
	mu  sync.Mutex
}

// Key cache key of text compiled for d
func Key(text string, d dialect.Dialect) string {
	return d.Name() + "\x00" + text
}

func (s *lruStore) Keys() []string {
	return s.lru.Keys()
}

func (s *lruStore) Get(key string) (*Stmt, bool) {
	return s.lru.Get(key)
}

func (s *lruStore) Set(key string, value *Stmt) {
	s.lru.Add(key, value)
}

func (s *lruStore) Delete(key string) {
	s.lru.Remove(key)
}

func (s *lruStore) Len() int {
	return s.lru.Len()
}

// Compile returns the cached compilation of text, compiling it on a miss
func (s *lruStore) Compile(text string, d dialect.Dialect) *Stmt {
	key := Key(text, d)
	if stmt, ok := s.Get(key); ok {
		return stmt
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if stmt, ok := s.lru.Peek(key); ok {
		return stmt
	}
	stmt := &Stmt{Compiled: sqlgen.Compile(text, d), Dialect: d.Name()}
	s.Set(key, stmt)
	return stmt
}
