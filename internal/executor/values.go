package executor

import (
	"fmt"
	"strconv"

	language "github.com/dohyun-p/queryrun/internal/language"
)

// CoerceVariableValues coerces the raw variable map against the
// operation's variable definitions. It is the caller's pre-execution
// step: any error here means the request must not execute. A nil raw
// map is treated as empty.
//
// Message families are stable and match the diagnostics callers key on:
//
//	Variable "$name" of required type "T!" was not provided.
//	Variable "$name" of non-null type "T!" must not be null.
//	Variable "$name" got invalid value v; expected type "T".
func CoerceVariableValues(
	sch *language.Schema,
	operation *language.OperationDefinition,
	variableValues map[string]any,
) (map[string]any, error) {
	if variableValues == nil {
		variableValues = map[string]any{}
	}
	coerced := make(map[string]any)
	for _, varDef := range operation.VariableDefinitions {
		name := varDef.Variable
		t := varDef.Type
		val, ok := variableValues[name]
		if !ok {
			if varDef.DefaultValue != nil {
				coerced[name] = astValueToGo(varDef.DefaultValue)
				continue
			}
			if t.NonNull {
				return nil, fmt.Errorf("Variable \"$%s\" of required type \"%s\" was not provided.", name, t.String())
			}
			continue
		}
		if val == nil && t.NonNull {
			return nil, fmt.Errorf("Variable \"$%s\" of non-null type \"%s\" must not be null.", name, t.String())
		}
		cv, err := coerceValue(sch, val, t)
		if err != nil {
			return nil, fmt.Errorf("Variable \"$%s\" got invalid value %v; expected type \"%s\".", name, val, t.String())
		}
		coerced[name] = cv
	}
	return coerced, nil
}

// coerceArgumentValues coerces the argument list of one field against
// its definition, substituting variables. Coercion failures are
// recorded as located errors and the argument is omitted.
func coerceArgumentValues(
	state *executionState,
	fieldDef *language.FieldDefinition,
	arguments language.ArgumentList,
	path Path,
) map[string]any {
	coerced := make(map[string]any)
	for _, arg := range arguments {
		argDef := fieldDef.Arguments.ForName(arg.Name)
		if argDef == nil {
			continue
		}
		val := valueFromASTWithVars(arg.Value, state.variableValues)
		cv, err := coerceValue(state.schema, val, argDef.Type)
		if err != nil {
			state.addError(fmt.Sprintf("argument %q cannot be coerced: %v", arg.Name, err), path)
			continue
		}
		coerced[arg.Name] = cv
	}
	for _, argDef := range fieldDef.Arguments {
		if _, ok := coerced[argDef.Name]; ok {
			continue
		}
		if argDef.DefaultValue != nil {
			coerced[argDef.Name] = astValueToGo(argDef.DefaultValue)
		} else if argDef.Type.NonNull {
			state.addError(fmt.Sprintf("argument %q of required type %q was not provided", argDef.Name, argDef.Type.String()), path)
		}
	}
	return coerced
}

// valueFromASTWithVars converts an AST value to a runtime value,
// substituting variables from the coerced variable map.
func valueFromASTWithVars(value *language.Value, variableValues map[string]any) any {
	if value == nil {
		return nil
	}
	if value.Kind == language.Variable {
		return variableValues[value.Raw]
	}
	return astValueToGo(value)
}

// astValueToGo converts a literal AST value to a Go value.
func astValueToGo(value *language.Value) any {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case language.IntValue:
		iv, _ := strconv.Atoi(value.Raw)
		return iv
	case language.FloatValue:
		fv, _ := strconv.ParseFloat(value.Raw, 64)
		return fv
	case language.StringValue, language.BlockValue:
		return value.Raw
	case language.BooleanValue:
		return value.Raw == "true"
	case language.NullValue:
		return nil
	case language.EnumValue:
		return value.Raw
	case language.ListValue:
		out := make([]any, len(value.Children))
		for i, c := range value.Children {
			out[i] = astValueToGo(c.Value)
		}
		return out
	case language.ObjectValue:
		m := make(map[string]any)
		for _, f := range value.Children {
			m[f.Name] = astValueToGo(f.Value)
		}
		return m
	default:
		return nil
	}
}

// coerceValue coerces a runtime value to a schema type, recursing
// through Non-Null and List wrappers.
func coerceValue(sch *language.Schema, value any, t *language.Type) (any, error) {
	if t.NonNull {
		if value == nil {
			return nil, fmt.Errorf("cannot provide null for non-null type %q", t.String())
		}
		return coerceValue(sch, value, unwrapNonNull(t))
	}
	if value == nil {
		return nil, nil
	}
	if isListType(t) {
		return coerceListValue(sch, value, t)
	}

	name := t.NamedType
	switch name {
	case "Int":
		return coerceToInt(value)
	case "Float":
		return coerceToFloat(value)
	case "String":
		return coerceToString(value)
	case "Boolean":
		return coerceToBoolean(value)
	case "ID":
		return coerceToID(value)
	}

	def := lookupType(sch, name)
	if def == nil {
		// Unknown to the schema; pass through untouched.
		return value, nil
	}
	switch def.Kind {
	case language.Enum:
		return coerceToEnum(def, value)
	case language.InputObject:
		return coerceInputObject(sch, def, value)
	default:
		// Custom scalars are opaque at this layer.
		return value, nil
	}
}

func coerceListValue(sch *language.Schema, value any, listType *language.Type) (any, error) {
	inner := listType.Elem
	if slice, ok := value.([]any); ok {
		out := make([]any, len(slice))
		for i, item := range slice {
			cv, err := coerceValue(sch, item, inner)
			if err != nil {
				return nil, err
			}
			out[i] = cv
		}
		return out, nil
	}
	// A single value coerces to a list of one.
	cv, err := coerceValue(sch, value, inner)
	if err != nil {
		return nil, err
	}
	return []any{cv}, nil
}

func coerceInputObject(sch *language.Schema, def *language.Definition, value any) (any, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected input object for type %q, got %T", def.Name, value)
	}
	out := make(map[string]any)
	for _, f := range def.Fields {
		fv, present := m[f.Name]
		if !present {
			if f.DefaultValue != nil {
				out[f.Name] = astValueToGo(f.DefaultValue)
				continue
			}
			if f.Type.NonNull {
				return nil, fmt.Errorf("required field %q of input type %q was not provided", f.Name, def.Name)
			}
			continue
		}
		cv, err := coerceValue(sch, fv, f.Type)
		if err != nil {
			return nil, err
		}
		out[f.Name] = cv
	}
	return out, nil
}

func coerceToEnum(def *language.Definition, value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("cannot coerce %v (%T) to enum %s", value, value, def.Name)
	}
	for _, ev := range def.EnumValues {
		if ev.Name == s {
			return s, nil
		}
	}
	return nil, fmt.Errorf("value %q is not a member of enum %s", s, def.Name)
}

func coerceToInt(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case float32:
		return int(v), nil
	case string:
		if iv, err := strconv.Atoi(v); err == nil {
			return iv, nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to Int", value, value)
}

func coerceToFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		if fv, err := strconv.ParseFloat(v, 64); err == nil {
			return fv, nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to Float", value, value)
}

func coerceToString(value any) (any, error) {
	if v, ok := value.(string); ok {
		return v, nil
	}
	return fmt.Sprintf("%v", value), nil
}

func coerceToBoolean(value any) (any, error) {
	if v, ok := value.(bool); ok {
		return v, nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to Boolean", value, value)
}

func coerceToID(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	default:
		return fmt.Sprintf("%v", value), nil
	}
}

// serializeBuiltinLeaf is the default leaf serialization used by
// MapRuntime: built-in scalars coerce, everything else passes through.
func serializeBuiltinLeaf(typeName string, value any) (any, error) {
	switch typeName {
	case "Int":
		return coerceToInt(value)
	case "Float":
		return coerceToFloat(value)
	case "String":
		return coerceToString(value)
	case "Boolean":
		return coerceToBoolean(value)
	case "ID":
		return coerceToID(value)
	default:
		return value, nil
	}
}
