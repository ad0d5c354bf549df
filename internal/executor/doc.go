// Package executor implements the GraphQL execution engine queryrun
// dispatches to: a field-by-field walk of one selected operation
// against a gqlparser schema, with cooperative suspension for resolvers
// that return pending values.
//
// # Execution model
//
// Execution expands selection sets synchronously. When a resolver
// returns a *future.Value the field is parked: a placeholder is written
// at its response path, the pending value is queued, and siblings keep
// executing. Once the current depth has been fully expanded, the engine
// awaits the queued futures (each parked field blocks only its own
// await; the futures settle concurrently on whatever goroutines their
// creators chose) and completes the settled values in place, which may
// park further fields for the next depth. The loop ends when no fields
// are pending.
//
// # Value completion
//
// Completion follows the GraphQL rules: Non-Null unwrapping with null
// propagation to the nearest top-level field (recording a located
// error), lists with index-aware paths, scalar/enum serialization via
// Runtime.SerializeLeaf, abstract types via Runtime.ResolveType, and
// objects via recursive selection-set execution. Paths nullified by
// Non-Null propagation are tombstoned so queued work beneath them is
// dropped instead of resurrecting discarded subtrees.
//
// # Errors and partial success
//
// Resolver errors and recovered resolver panics become located errors
// in the result; they never abort sibling fields. Panics keep the
// failure-site stack on the error for diagnostic sinks upstream; the
// stack never appears in the marshaled result.
//
// Variable coercion (CoerceVariableValues) and operation selection
// (GetOperation) are exported separately so the orchestration layer can
// run them as distinct pipeline stages and short-circuit before
// execution starts.
package executor
