package executor

import (
	"testing"

	"github.com/stretchr/testify/require"

	language "github.com/dohyun-p/queryrun/internal/language"
)

const variablesSDL = `
type Query {
  calc(value: Int!): Int
  find(where: Filter): [String]
  mood(kind: Mood): String
}

input Filter {
  name: String!
  limit: Int = 10
}

enum Mood {
  HAPPY
  GRUMPY
}
`

func variablesSchema(t *testing.T) *language.Schema {
	t.Helper()
	sch, err := language.BuildSchema(variablesSDL)
	require.NoError(t, err)
	return sch
}

func operationOf(t *testing.T, query string) *language.OperationDefinition {
	t.Helper()
	doc := mustParseQuery(t, query)
	require.Len(t, doc.Operations, 1)
	return doc.Operations[0]
}

func TestCoerceVariableValues(t *testing.T) {
	sch := variablesSchema(t)

	t.Run("RequiredNotProvided", func(t *testing.T) {
		op := operationOf(t, `query Q($v: Int!) { calc(value: $v) }`)
		_, err := CoerceVariableValues(sch, op, map[string]any{})
		require.EqualError(t, err, `Variable "$v" of required type "Int!" was not provided.`)
	})

	t.Run("NullForNonNull", func(t *testing.T) {
		op := operationOf(t, `query Q($v: Int!) { calc(value: $v) }`)
		_, err := CoerceVariableValues(sch, op, map[string]any{"v": nil})
		require.EqualError(t, err, `Variable "$v" of non-null type "Int!" must not be null.`)
	})

	t.Run("InvalidValue", func(t *testing.T) {
		op := operationOf(t, `query Q($v: Int!) { calc(value: $v) }`)
		_, err := CoerceVariableValues(sch, op, map[string]any{"v": "abc"})
		require.EqualError(t, err, `Variable "$v" got invalid value abc; expected type "Int!".`)
	})

	t.Run("DefaultApplied", func(t *testing.T) {
		op := operationOf(t, `query Q($v: Int = 7) { calc(value: $v) }`)
		coerced, err := CoerceVariableValues(sch, op, map[string]any{})
		require.NoError(t, err)
		require.Equal(t, map[string]any{"v": 7}, coerced)
	})

	t.Run("OptionalAbsentStaysAbsent", func(t *testing.T) {
		op := operationOf(t, `query Q($k: Mood) { mood(kind: $k) }`)
		coerced, err := CoerceVariableValues(sch, op, map[string]any{})
		require.NoError(t, err)
		_, present := coerced["k"]
		require.False(t, present)
	})

	t.Run("StringCoercesToInt", func(t *testing.T) {
		op := operationOf(t, `query Q($v: Int!) { calc(value: $v) }`)
		coerced, err := CoerceVariableValues(sch, op, map[string]any{"v": "12"})
		require.NoError(t, err)
		require.Equal(t, map[string]any{"v": 12}, coerced)
	})

	t.Run("InputObject", func(t *testing.T) {
		op := operationOf(t, `query Q($w: Filter) { find(where: $w) }`)
		coerced, err := CoerceVariableValues(sch, op, map[string]any{
			"w": map[string]any{"name": "n"},
		})
		require.NoError(t, err)
		require.Equal(t, map[string]any{"w": map[string]any{"name": "n", "limit": 10}}, coerced)
	})

	t.Run("InputObjectMissingRequiredField", func(t *testing.T) {
		op := operationOf(t, `query Q($w: Filter) { find(where: $w) }`)
		_, err := CoerceVariableValues(sch, op, map[string]any{
			"w": map[string]any{"limit": 3},
		})
		require.Error(t, err)
		require.Contains(t, err.Error(), `got invalid value`)
	})

	t.Run("EnumMembership", func(t *testing.T) {
		op := operationOf(t, `query Q($k: Mood) { mood(kind: $k) }`)
		coerced, err := CoerceVariableValues(sch, op, map[string]any{"k": "HAPPY"})
		require.NoError(t, err)
		require.Equal(t, map[string]any{"k": "HAPPY"}, coerced)

		_, err = CoerceVariableValues(sch, op, map[string]any{"k": "SLEEPY"})
		require.Error(t, err)
	})

	t.Run("SingleValueCoercesToList", func(t *testing.T) {
		op := operationOf(t, `query Q($vs: [Int]) { calc(value: 1) }`)
		coerced, err := CoerceVariableValues(sch, op, map[string]any{"vs": 5})
		require.NoError(t, err)
		require.Equal(t, map[string]any{"vs": []any{5}}, coerced)
	})
}
