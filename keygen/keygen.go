// Package keygen holds primary key generation strategies and the registry
// they are looked up from by name.
package keygen

import (
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/malweka/GoliathData-sub001/dialect"
)

var (
	// ErrRegistered a generator already uses the name
	ErrRegistered = errors.New("key generator registered")
	// ErrUnknownGenerator no generator registered under the name
	ErrUnknownGenerator = errors.New("unknown key generator")
	// ErrUnsupportedType generator cannot produce a value of the key type
	ErrUnsupportedType = errors.New("unsupported key type")
)

// Timing when a generator produces its value
type Timing int

const (
	// ClientSide values are computed in process before the statement is built
	ClientSide Timing = iota
	// BeforeInsert values are fetched from the database before the insert
	BeforeInsert
	// AfterInsert values are produced by the insert itself
	AfterInsert
)

func (t Timing) String() string {
	switch t {
	case ClientSide:
		return "ClientSide"
	case BeforeInsert:
		return "BeforeInsert"
	case AfterInsert:
		return "AfterInsert"
	}
	return fmt.Sprintf("Timing(%d)", int(t))
}

// Generator a named key generation strategy
type Generator interface {
	Name() string
	Timing() Timing
}

// ClientGenerator computes a key value of the target type
type ClientGenerator interface {
	Generator
	Generate(target reflect.Type) (interface{}, error)
}

// DatabaseGenerator produces the query reading the generated key. An empty
// query for an AfterInsert generator means the driver result or a
// RETURNING clause carries the value.
type DatabaseGenerator interface {
	Generator
	Query(d dialect.Dialect, table, column string) string
}

// Registry generators by name, safe for concurrent use
type Registry struct {
	mu         sync.RWMutex
	generators map[string]Generator
}

// NewRegistry returns a registry holding gens
func NewRegistry(gens ...Generator) *Registry {
	r := &Registry{generators: map[string]Generator{}}
	for _, g := range gens {
		r.generators[strings.ToLower(g.Name())] = g
	}
	return r
}

// NewDefaultRegistry returns a registry holding the builtin generators
func NewDefaultRegistry() *Registry {
	return NewRegistry(Defaults()...)
}

// Defaults builtin generators
func Defaults() []Generator {
	return []Generator{
		GUID{}, SequentialGUID{}, Random{},
		Identity{GeneratorName: "identity"}, Identity{GeneratorName: "autoincrement"},
		Sequence{},
	}
}

// Register adds g unless its name is taken
func (r *Registry) Register(g Generator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := strings.ToLower(g.Name())
	if _, ok := r.generators[name]; ok {
		return fmt.Errorf("%w: %s", ErrRegistered, g.Name())
	}
	r.generators[name] = g
	return nil
}

// Get looks a generator up by name, case-insensitively
func (r *Registry) Get(name string) (Generator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if g, ok := r.generators[strings.ToLower(name)]; ok {
		return g, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownGenerator, name)
}

// Names registered names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.generators))
	for name := range r.generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var uuidType = reflect.TypeOf(uuid.UUID{})

func fromUUID(id uuid.UUID, target reflect.Type) (interface{}, error) {
	indirect := target
	for indirect.Kind() == reflect.Ptr {
		indirect = indirect.Elem()
	}
	switch {
	case indirect == uuidType:
		return id, nil
	case indirect.Kind() == reflect.String:
		return id.String(), nil
	case indirect.Kind() == reflect.Slice && indirect.Elem().Kind() == reflect.Uint8:
		return id[:], nil
	case indirect.Kind() == reflect.Array && indirect.Len() == 16 && indirect.Elem().Kind() == reflect.Uint8:
		return [16]byte(id), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnsupportedType, target)
}

// GUID random (version 4) identifier
type GUID struct{}

func (GUID) Name() string   { return "guid" }
func (GUID) Timing() Timing { return ClientSide }

func (GUID) Generate(target reflect.Type) (interface{}, error) {
	return fromUUID(uuid.New(), target)
}

// SequentialGUID time ordered (version 7) identifier, friendly to clustered indexes
type SequentialGUID struct{}

func (SequentialGUID) Name() string   { return "comb" }
func (SequentialGUID) Timing() Timing { return ClientSide }

func (SequentialGUID) Generate(target reflect.Type) (interface{}, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	return fromUUID(id, target)
}

// Random positive integer identifier
type Random struct{}

func (Random) Name() string   { return "random" }
func (Random) Timing() Timing { return ClientSide }

func (Random) Generate(target reflect.Type) (interface{}, error) {
	indirect := target
	for indirect.Kind() == reflect.Ptr {
		indirect = indirect.Elem()
	}
	switch indirect.Kind() {
	case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint64:
		return rand.Int63(), nil
	case reflect.Int32, reflect.Uint32:
		return int64(rand.Int31()), nil
	case reflect.String:
		return fmt.Sprint(rand.Int63()), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnsupportedType, target)
}

// Identity database assigned value read back after the insert
type Identity struct {
	GeneratorName string
}

func (i Identity) Name() string { return i.GeneratorName }
func (Identity) Timing() Timing { return AfterInsert }

func (Identity) Query(d dialect.Dialect, table, column string) string {
	if d.SupportsLastInsertID() || d.Returning(column) != "" {
		return ""
	}
	return d.LastIdentitySQL(table, column)
}

// Sequence value fetched before the insert. The sequence is named
// "<table>_<column>_seq" unless Format overrides it.
type Sequence struct {
	Format func(table, column string) string
}

func (Sequence) Name() string   { return "sequence" }
func (Sequence) Timing() Timing { return BeforeInsert }

func (s Sequence) Query(d dialect.Dialect, table, column string) string {
	name := table + "_" + column + "_seq"
	if s.Format != nil {
		name = s.Format(table, column)
	}
	return d.NextSequenceSQL(name)
}
