// Package sqlgen builds the statement trees for inserting, updating and
// deleting mapped entities, the SELECT statements hydration reads from, and
// compiles named parameter markers into dialect placeholders.
package sqlgen

import (
	"fmt"
	"sort"

	"github.com/malweka/GoliathData-sub001/keygen"
	"github.com/malweka/GoliathData-sub001/mapping"
)

// Priority orders operations inside one batch node; lower runs first
type Priority int

const (
	Low Priority = iota
	Medium
	High
	Highest
)

func (p Priority) String() string {
	switch p {
	case Low:
		return "Low"
	case Medium:
		return "Medium"
	case High:
		return "High"
	case Highest:
		return "Highest"
	}
	return fmt.Sprintf("Priority(%d)", int(p))
}

// OperationKind statement category
type OperationKind string

const (
	InsertOperation OperationKind = "INSERT"
	UpdateOperation OperationKind = "UPDATE"
	DeleteOperation OperationKind = "DELETE"
)

// Param a named statement parameter. Lazy parameters read their value when
// the statement executes, after the keys they depend on were generated.
type Param struct {
	Name  string
	Value interface{}
	Lazy  func() (interface{}, error)
}

// Resolve returns the parameter value
func (p Param) Resolve() (interface{}, error) {
	if p.Lazy != nil {
		return p.Lazy()
	}
	return p.Value, nil
}

// SqlOperation one statement with named parameter markers
type SqlOperation struct {
	SQL      string
	Params   []Param
	Priority Priority
	Kind     OperationKind
	Entity   *mapping.Entity

	// GeneratedKey is captured from this statement's result
	GeneratedKey *KeyGenOperationInfo
	// ReturnsKey the statement ends with a RETURNING clause yielding the key
	ReturnsKey bool
}

// Param returns the named parameter
func (op *SqlOperation) Param(name string) (Param, bool) {
	for _, p := range op.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// KeyGenOperationInfo a pending database key generation step
type KeyGenOperationInfo struct {
	ParamName string
	Entity    *mapping.Entity
	Key       *mapping.PrimaryKeyProperty
	Generator keygen.Generator
	Priority  Priority
	// Query reads the generated value; empty when the owning statement's
	// result carries it
	Query string
	// Instance receives the generated value
	Instance interface{}

	apply func(interface{}) error
	value interface{}
	done  bool
}

// Timing when the generator produces its value
func (k *KeyGenOperationInfo) Timing() keygen.Timing {
	return k.Generator.Timing()
}

// Apply writes the generated value into the instance
func (k *KeyGenOperationInfo) Apply(v interface{}) error {
	if k.apply != nil {
		if err := k.apply(v); err != nil {
			return err
		}
	}
	k.value, k.done = v, true
	return nil
}

// Value returns the applied value
func (k *KeyGenOperationInfo) Value() (interface{}, bool) {
	return k.value, k.done
}

// Done reports whether a value was applied
func (k *KeyGenOperationInfo) Done() bool {
	return k.done
}

// BatchSqlOperation a node of the statement tree. Its key generation steps run
// before its operations, which run before its sub operations.
type BatchSqlOperation struct {
	Operations              []*SqlOperation
	Priority                Priority
	KeyGenerationOperations map[string]*KeyGenOperationInfo
	SubOperations           []*BatchSqlOperation

	keyOrder []string
}

// NewBatch returns an empty node
func NewBatch(priority Priority) *BatchSqlOperation {
	return &BatchSqlOperation{
		Priority:                priority,
		KeyGenerationOperations: map[string]*KeyGenOperationInfo{},
	}
}

// Add appends operations to the node
func (b *BatchSqlOperation) Add(ops ...*SqlOperation) {
	b.Operations = append(b.Operations, ops...)
}

// AddKeyGeneration registers a key generation step under its parameter name
func (b *BatchSqlOperation) AddKeyGeneration(info *KeyGenOperationInfo) {
	if _, ok := b.KeyGenerationOperations[info.ParamName]; !ok {
		b.keyOrder = append(b.keyOrder, info.ParamName)
	}
	b.KeyGenerationOperations[info.ParamName] = info
}

// AddSub appends a child node
func (b *BatchSqlOperation) AddSub(sub *BatchSqlOperation) {
	if sub != nil {
		b.SubOperations = append(b.SubOperations, sub)
	}
}

// KeyGenSteps key generation steps in registration order, stably sorted by priority
func (b *BatchSqlOperation) KeyGenSteps() []*KeyGenOperationInfo {
	steps := make([]*KeyGenOperationInfo, 0, len(b.keyOrder))
	for _, name := range b.keyOrder {
		steps = append(steps, b.KeyGenerationOperations[name])
	}
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].Priority < steps[j].Priority
	})
	return steps
}

// SortedOperations the node's operations stably sorted by priority
func (b *BatchSqlOperation) SortedOperations() []*SqlOperation {
	ops := make([]*SqlOperation, len(b.Operations))
	copy(ops, b.Operations)
	sort.SliceStable(ops, func(i, j int) bool {
		return ops[i].Priority < ops[j].Priority
	})
	return ops
}

// Step one unit of execution: a statement or a key generation step
type Step struct {
	Operation *SqlOperation
	KeyGen    *KeyGenOperationInfo
}

// Steps flattens the tree in execution order: the node's BeforeInsert key
// steps, its operations (each followed by the key it generates), then its sub
// operations in append order
func (b *BatchSqlOperation) Steps() []Step {
	var steps []Step
	for _, k := range b.KeyGenSteps() {
		if k.Timing() != keygen.AfterInsert {
			steps = append(steps, Step{KeyGen: k})
		}
	}
	for _, op := range b.SortedOperations() {
		steps = append(steps, Step{Operation: op})
		if op.GeneratedKey != nil {
			steps = append(steps, Step{KeyGen: op.GeneratedKey})
		}
	}
	for _, sub := range b.SubOperations {
		steps = append(steps, sub.Steps()...)
	}
	return steps
}

// Statements the statements of the tree in execution order
func (b *BatchSqlOperation) Statements() []*SqlOperation {
	var ops []*SqlOperation
	for _, step := range b.Steps() {
		if step.Operation != nil {
			ops = append(ops, step.Operation)
		}
	}
	return ops
}

// Empty reports whether the tree holds no statement
func (b *BatchSqlOperation) Empty() bool {
	if len(b.Operations) > 0 {
		return false
	}
	for _, sub := range b.SubOperations {
		if !sub.Empty() {
			return false
		}
	}
	return true
}
