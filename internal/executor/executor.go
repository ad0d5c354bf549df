package executor

import (
	"context"
	"fmt"
	"reflect"
	"runtime/debug"

	future "github.com/dohyun-p/queryrun/internal/future"
	language "github.com/dohyun-p/queryrun/internal/language"
)

// Executor walks a selected operation's field tree against a schema,
// calling the Runtime for every field and completing values per the
// GraphQL rules (non-null propagation, lists, leafs, abstract types).
// Fields whose resolver returned a *future.Value are parked and awaited
// depth by depth, so one suspended field never blocks its siblings.
type Executor struct {
	runtime Runtime
	schema  *language.Schema
}

func New(runtime Runtime, schema *language.Schema) *Executor {
	return &Executor{runtime: runtime, schema: schema}
}

// executionState holds per-request execution state.
type executionState struct {
	runtime        Runtime
	schema         *language.Schema
	document       *language.QueryDocument
	operation      *language.OperationDefinition
	variableValues map[string]any
	ctx            context.Context
	pending        []pendingField
	errors         []Error
	// response-path prefixes nullified by non-null propagation
	nullifiedPrefix map[string]struct{}
}

// pendingField is a suspended field awaiting its future.
type pendingField struct {
	fut       *future.Value
	path      Path
	fieldType *language.Type
	fields    []*language.Field
}

// pendingMarker is the placeholder written where a suspended field's
// value will land once its future settles.
type pendingMarker struct{}

// GetOperation selects the operation to execute: the sole operation
// when no name is given, otherwise the operation with that name. A nil
// result means selection failed.
func GetOperation(document *language.QueryDocument, operationName string) *language.OperationDefinition {
	if operationName == "" {
		if len(document.Operations) == 1 {
			return document.Operations[0]
		}
		return nil
	}
	return document.Operations.ForName(operationName)
}

// ExecuteRequest executes the selected operation. variableValues must
// already be coerced (see CoerceVariableValues); rootValue seeds the
// root fields' source. The result always carries whatever partial data
// was produced alongside the accumulated errors.
func (e *Executor) ExecuteRequest(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	rootValue any,
) *ExecutionResult {
	operation := GetOperation(document, operationName)
	if operation == nil {
		if operationName == "" {
			return &ExecutionResult{Errors: []Error{{Message: "Must provide operation name if query contains multiple operations."}}}
		}
		return &ExecutionResult{Errors: []Error{{Message: fmt.Sprintf("Unknown operation named %q.", operationName)}}}
	}

	var rootDef *language.Definition
	switch operation.Operation {
	case language.Query:
		rootDef = e.schema.Query
	case language.Mutation:
		rootDef = e.schema.Mutation
	case language.Subscription:
		rootDef = e.schema.Subscription
	}
	if rootDef == nil {
		return &ExecutionResult{Errors: []Error{{Message: fmt.Sprintf("schema is not configured for %s operations", operation.Operation)}}}
	}

	state := &executionState{
		runtime:         e.runtime,
		schema:          e.schema,
		document:        document,
		operation:       operation,
		variableValues:  variableValues,
		ctx:             ctx,
		nullifiedPrefix: make(map[string]struct{}),
	}

	responseRoot := make(map[string]any)
	for k, v := range executeSelectionSet(state, rootDef, operation.SelectionSet, rootValue, Path{}) {
		responseRoot[k] = v
	}

	// Await suspended fields one depth at a time. Completing an awaited
	// object value may park further fields for the next depth.
	for len(state.pending) > 0 {
		batch := state.pending
		state.pending = nil
		for _, pf := range batch {
			if state.hasNullifiedPrefix(pf.path) {
				continue
			}
			val, err := pf.fut.Await(ctx)
			state.completePendingField(pf, val, err, responseRoot)
		}
	}

	return &ExecutionResult{Data: responseRoot, Errors: state.errors}
}

// executeSelectionSet expands one object's selection set. Suspended
// fields leave a pendingMarker and are filled in later through
// setValueAtPath.
func executeSelectionSet(state *executionState, objectDef *language.Definition, selectionSet language.SelectionSet, objectValue any, path Path) map[string]any {
	grouped := collectFields(state, objectDef, selectionSet)
	resultMap := make(map[string]any)

	for _, group := range grouped.ordered() {
		fieldPath := appendPath(path, group.ResponseName)
		fieldResult := executeFieldGroup(state, objectDef, objectValue, group.Fields, fieldPath)

		if group.Fields[0].Name == "__typename" {
			resultMap[group.ResponseName] = fieldResult
			continue
		}

		fieldDef := objectDef.Fields.ForName(group.Fields[0].Name)
		if fieldDef == nil {
			// Unknown field; error already recorded.
			continue
		}

		if _, suspended := fieldResult.(pendingMarker); suspended {
			resultMap[group.ResponseName] = fieldResult
			continue
		}

		if fieldDef.Type.NonNull && isNullish(fieldResult) {
			if len(path) > 0 {
				return nil
			}
			// Root level: record the null and keep going.
			resultMap[group.ResponseName] = nil
			continue
		}

		if isNullish(fieldResult) {
			resultMap[group.ResponseName] = nil
		} else {
			resultMap[group.ResponseName] = fieldResult
		}
	}

	return resultMap
}

func executeFieldGroup(state *executionState, objectDef *language.Definition, objectValue any, fields []*language.Field, path Path) any {
	field := fields[0]

	if field.Name == "__typename" {
		return objectDef.Name
	}

	fieldDef := objectDef.Fields.ForName(field.Name)
	if fieldDef == nil {
		state.addError(fmt.Sprintf("Cannot query field %q on type %q", field.Name, objectDef.Name), path)
		return nil
	}

	argumentValues := coerceArgumentValues(state, fieldDef, field.Arguments, path)

	resolved, err := state.resolveField(objectDef.Name, field.Name, objectValue, argumentValues, path)
	if err != nil {
		state.errors = append(state.errors, newResolverError(err, fields, path))
		return nil
	}
	return completeValue(state, fieldDef.Type, fields, resolved, path)
}

// resolveField invokes the runtime, converting panics into errors that
// preserve the failure-site stack.
func (s *executionState) resolveField(objectType, fieldName string, source any, args map[string]any, path Path) (val any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &future.PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	info := ResolveInfo{
		ObjectType: objectType,
		FieldName:  fieldName,
		Path:       path,
		Schema:     s.schema,
		Operation:  s.operation,
	}
	return s.runtime.Resolve(s.ctx, source, args, info)
}

// completePendingField settles one awaited field into the response
// tree, applying non-null propagation and pruning exactly as the
// synchronous path does.
func (s *executionState) completePendingField(pf pendingField, val any, err error, responseRoot map[string]any) {
	path := pf.path
	if err != nil {
		s.errors = append(s.errors, newResolverError(err, pf.fields, path))
		if pf.fieldType.NonNull {
			top := topLevelFieldPath(path)
			setValueAtPath(responseRoot, top, nil)
			s.markNullifiedPrefix(top)
			return
		}
		setValueAtPath(responseRoot, path, nil)
		return
	}

	completed := completeValue(s, pf.fieldType, pf.fields, val, path)
	if _, suspended := completed.(pendingMarker); suspended {
		return
	}

	if pf.fieldType.NonNull && isNullish(completed) {
		top := topLevelFieldPath(path)
		setValueAtPath(responseRoot, top, nil)
		s.markNullifiedPrefix(top)
		return
	}

	if isNullish(completed) {
		setValueAtPath(responseRoot, path, nil)
	} else {
		setValueAtPath(responseRoot, path, completed)
	}
}

// completeValue completes a resolved value against its schema type.
// A *future.Value parks the field and returns a pendingMarker.
func completeValue(state *executionState, fieldType *language.Type, fields []*language.Field, result any, path Path) any {
	if fut, ok := result.(*future.Value); ok {
		state.pending = append(state.pending, pendingField{
			fut:       fut,
			path:      path,
			fieldType: fieldType,
			fields:    fields,
		})
		return pendingMarker{}
	}

	if fieldType.NonNull {
		if isNullish(result) {
			if !state.hasErrorAtPath(path) {
				state.addError(fmt.Sprintf("Cannot return null for non-nullable field %s", pathToString(path)), path)
			}
			return nil
		}
		completed := completeValue(state, unwrapNonNull(fieldType), fields, result, path)
		if _, suspended := completed.(pendingMarker); suspended {
			return completed
		}
		if isNullish(completed) {
			// Error already recorded at this path; propagate only.
			return nil
		}
		return completed
	}

	if isNullish(result) {
		return nil
	}

	if isListType(fieldType) {
		return completeListValue(state, fieldType, fields, result, path)
	}

	name := namedTypeOf(fieldType)
	def := lookupType(state.schema, name)
	if def == nil {
		state.addError(fmt.Sprintf("Unknown type: %s", name), path)
		return nil
	}

	switch def.Kind {
	case language.Scalar, language.Enum:
		serialized, err := state.runtime.SerializeLeaf(state.ctx, name, result)
		if err != nil {
			state.addError(err.Error(), path)
			return nil
		}
		return serialized
	case language.Object:
		return completeObjectValue(state, def, fields, result, path)
	case language.Interface, language.Union:
		return completeAbstractValue(state, name, fields, result, path)
	default:
		state.addError(fmt.Sprintf("Cannot complete value of unexpected kind: %s", def.Kind), path)
		return nil
	}
}

func completeListValue(state *executionState, listType *language.Type, fields []*language.Field, result any, path Path) any {
	var items []any
	if direct, ok := result.([]any); ok {
		items = direct
	} else {
		rv := reflect.ValueOf(result)
		if rv.Kind() != reflect.Slice {
			state.addError(fmt.Sprintf("Expected list value, got %T", result), path)
			return nil
		}
		items = make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			items[i] = rv.Index(i).Interface()
		}
	}

	inner := listType.Elem
	completed := make([]any, len(items))
	for i, item := range items {
		p := appendPath(path, i)
		v := completeValue(state, inner, fields, item, p)
		if _, suspended := v.(pendingMarker); suspended {
			completed[i] = v
			continue
		}
		if inner.NonNull && isNullish(v) {
			// Null element under non-null inner type nullifies the list.
			return nil
		}
		completed[i] = v
	}
	return completed
}

func completeObjectValue(state *executionState, objectDef *language.Definition, fields []*language.Field, result any, path Path) any {
	sub := mergeSelectionSets(fields)
	return executeSelectionSet(state, objectDef, sub, result, path)
}

func completeAbstractValue(state *executionState, abstractTypeName string, fields []*language.Field, result any, path Path) any {
	typeName, err := state.runtime.ResolveType(state.ctx, abstractTypeName, result)
	if err != nil {
		state.addError(err.Error(), path)
		return nil
	}
	objectDef := lookupType(state.schema, typeName)
	if objectDef == nil || objectDef.Kind != language.Object {
		state.addError(fmt.Sprintf("Abstract type %s must resolve to an Object type at runtime. Got: %s", abstractTypeName, typeName), path)
		return nil
	}
	return completeObjectValue(state, objectDef, fields, result, path)
}

// ---- type helpers over gqlparser's ast.Type ----

func unwrapNonNull(t *language.Type) *language.Type {
	return &language.Type{NamedType: t.NamedType, Elem: t.Elem}
}

func isListType(t *language.Type) bool {
	return t.NamedType == "" && t.Elem != nil
}

func namedTypeOf(t *language.Type) string {
	for t.NamedType == "" && t.Elem != nil {
		t = t.Elem
	}
	return t.NamedType
}

// ---- path helpers ----

func pathToString(path Path) string {
	out := ""
	for i, elem := range path {
		switch v := elem.(type) {
		case string:
			if i > 0 {
				out += "."
			}
			out += v
		case int:
			out += fmt.Sprintf("[%d]", v)
		}
	}
	return out
}

func appendPath(path Path, elem PathElement) Path {
	next := make(Path, len(path)+1)
	copy(next, path)
	next[len(path)] = elem
	return next
}

func topLevelFieldPath(p Path) Path {
	for _, elem := range p {
		if name, ok := elem.(string); ok {
			return Path{name}
		}
	}
	return Path{}
}

func (s *executionState) markNullifiedPrefix(p Path) {
	if key := pathToString(p); key != "" {
		s.nullifiedPrefix[key] = struct{}{}
	}
}

func (s *executionState) hasNullifiedPrefix(p Path) bool {
	if len(s.nullifiedPrefix) == 0 {
		return false
	}
	cur := Path{}
	for _, elem := range p {
		cur = append(cur, elem)
		if _, ok := s.nullifiedPrefix[pathToString(cur)]; ok {
			return true
		}
	}
	return false
}

func (s *executionState) addError(message string, path Path) {
	s.errors = append(s.errors, Error{Message: message, Path: path})
}

func (s *executionState) hasErrorAtPath(path Path) bool {
	for _, err := range s.errors {
		if reflect.DeepEqual(err.Path, path) {
			return true
		}
	}
	return false
}

// setValueAtPath writes value into the response tree at path,
// materializing intermediate containers as needed.
func setValueAtPath(responseRoot map[string]any, path Path, value any) {
	if len(path) == 0 {
		return
	}
	if len(path) == 1 {
		if key, ok := path[0].(string); ok {
			responseRoot[key] = value
		}
		return
	}
	current := any(responseRoot)
	for _, elem := range path[:len(path)-1] {
		switch e := elem.(type) {
		case string:
			m, ok := current.(map[string]any)
			if !ok {
				return
			}
			next, exists := m[e]
			if !exists {
				next = make(map[string]any)
				m[e] = next
			}
			current = next
		case int:
			slice, ok := current.([]any)
			if !ok {
				return
			}
			if e >= len(slice) {
				return
			}
			if slice[e] == nil {
				slice[e] = make(map[string]any)
			}
			current = slice[e]
		}
	}
	switch fe := path[len(path)-1].(type) {
	case string:
		if m, ok := current.(map[string]any); ok {
			m[fe] = value
		}
	case int:
		if slice, ok := current.([]any); ok && fe < len(slice) {
			slice[fe] = value
		}
	}
}

func mergeSelectionSets(fields []*language.Field) language.SelectionSet {
	var merged language.SelectionSet
	for _, f := range fields {
		merged = append(merged, f.SelectionSet...)
	}
	return merged
}

// isNullish reports nil interfaces and typed nils.
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
