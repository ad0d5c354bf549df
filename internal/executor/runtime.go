package executor

import (
	"context"
	"sync"

	future "github.com/dohyun-p/queryrun/internal/future"
	language "github.com/dohyun-p/queryrun/internal/language"
)

// ResolveInfo describes the field being resolved. It is passed to every
// resolver alongside the parent value and the coerced arguments.
type ResolveInfo struct {
	// ObjectType is the GraphQL type name owning the field (for root
	// fields, the root operation type name, e.g. "Query").
	ObjectType string
	// FieldName is the schema field name (not the alias).
	FieldName string
	// Path is the response path of the field being resolved.
	Path Path
	// Schema is the schema the request executes against.
	Schema *language.Schema
	// Operation is the selected operation definition.
	Operation *language.OperationDefinition
}

// ResolveFunc resolves one field. source is the parent value (the
// request's root value for root fields). A ResolveFunc may return a
// *future.Value to suspend: the engine parks that field and keeps
// executing siblings, awaiting the pending value once the current
// depth has been expanded.
type ResolveFunc func(ctx context.Context, source any, args map[string]any, info ResolveInfo) (any, error)

// Runtime is the host integration surface for the engine.
//
//   - Resolve produces a field's raw value. Errors become located
//     response errors; they never abort sibling fields.
//   - ResolveType names the concrete object type for a value of an
//     interface or union type.
//   - SerializeLeaf coerces a scalar or enum value into a JSON-safe Go
//     value.
//
// Implementations must be safe for concurrent use; the engine may run
// many requests against one Runtime.
type Runtime interface {
	Resolve(ctx context.Context, source any, args map[string]any, info ResolveInfo) (any, error)
	ResolveType(ctx context.Context, abstractType string, value any) (string, error)
	SerializeLeaf(ctx context.Context, typeName string, value any) (any, error)
}

// MapRuntime is the default Runtime: an explicit resolver registry
// keyed "Type.field", falling back to key lookup on map-shaped parent
// values. With no registered resolvers it resolves purely from the
// root value, which is what the CLI's data-file mode and the simplest
// callers rely on.
type MapRuntime struct {
	mu        sync.RWMutex
	resolvers map[string]ResolveFunc

	typeResolver func(value any) (string, error)
	serializer   func(typeName string, value any) (any, error)
}

// NewMapRuntime creates a MapRuntime with the provided resolvers.
// Keys are of the form "ObjectType.field". A nil map is allowed.
func NewMapRuntime(resolvers map[string]ResolveFunc) *MapRuntime {
	m := &MapRuntime{resolvers: make(map[string]ResolveFunc)}
	for k, v := range resolvers {
		m.resolvers[k] = v
	}
	return m
}

// SetResolver registers or replaces the resolver for objectType.field.
func (m *MapRuntime) SetResolver(objectType, field string, fn ResolveFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolvers[objectType+"."+field] = fn
}

// SetTypeResolver replaces the abstract-type resolution hook.
func (m *MapRuntime) SetTypeResolver(fn func(value any) (string, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.typeResolver = fn
}

// SetSerializer replaces the leaf serialization hook.
func (m *MapRuntime) SetSerializer(fn func(typeName string, value any) (any, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.serializer = fn
}

// Resolve implements Runtime. Registered resolvers win; otherwise the
// field is read off the parent value: map key lookup, with values of
// type func() (any, error) invoked lazily.
func (m *MapRuntime) Resolve(ctx context.Context, source any, args map[string]any, info ResolveInfo) (any, error) {
	m.mu.RLock()
	fn := m.resolvers[info.ObjectType+"."+info.FieldName]
	m.mu.RUnlock()
	if fn != nil {
		return fn(ctx, source, args, info)
	}
	return defaultResolve(source, info.FieldName)
}

func defaultResolve(source any, fieldName string) (any, error) {
	switch s := source.(type) {
	case map[string]any:
		v := s[fieldName]
		switch fv := v.(type) {
		case func() (any, error):
			return fv()
		case func() any:
			return fv(), nil
		case *future.Value:
			return fv, nil
		default:
			return v, nil
		}
	default:
		return nil, nil
	}
}

// ResolveType implements Runtime using the "__typename" key of
// map-shaped values unless a custom hook was set.
func (m *MapRuntime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	m.mu.RLock()
	fn := m.typeResolver
	m.mu.RUnlock()
	if fn != nil {
		return fn(value)
	}
	if mv, ok := value.(map[string]any); ok {
		if tn, ok := mv["__typename"].(string); ok {
			return tn, nil
		}
	}
	return "", &abstractTypeError{abstractType: abstractType}
}

type abstractTypeError struct{ abstractType string }

func (e *abstractTypeError) Error() string {
	return "cannot resolve concrete type for abstract type " + e.abstractType
}

// SerializeLeaf implements Runtime with the built-in scalar rules
// unless a custom hook was set. Unknown scalars pass through.
func (m *MapRuntime) SerializeLeaf(ctx context.Context, typeName string, value any) (any, error) {
	m.mu.RLock()
	fn := m.serializer
	m.mu.RUnlock()
	if fn != nil {
		return fn(typeName, value)
	}
	return serializeBuiltinLeaf(typeName, value)
}
