package language

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sdl = `
type Query {
  hello: String
  calc(value: Int!): Int
}
`

func TestParseQuery(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		doc, err := ParseQuery(`{ hello }`)
		require.NoError(t, err)
		require.Len(t, doc.Operations, 1)
	})

	t.Run("SyntaxError", func(t *testing.T) {
		_, err := ParseQuery(`{ hello `)
		require.Error(t, err)

		var ge *Error
		require.ErrorAs(t, err, &ge)
		require.NotEmpty(t, ge.Locations)
	})
}

func TestBuildSchema(t *testing.T) {
	sch, err := BuildSchema(sdl)
	require.NoError(t, err)
	require.NotNil(t, sch.Query)
	require.NotNil(t, sch.Types["Query"].Fields.ForName("hello"))

	_, err = BuildSchema(`type Query { broken: Missing }`)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	sch := MustBuildSchema(sdl)

	t.Run("Valid", func(t *testing.T) {
		doc, err := ParseQuery(`{ hello }`)
		require.NoError(t, err)
		require.Nil(t, Validate(sch, doc))
	})

	t.Run("UnknownField", func(t *testing.T) {
		doc, err := ParseQuery(`{ missing }`)
		require.NoError(t, err)
		errs := Validate(sch, doc)
		require.NotEmpty(t, errs)
		require.Contains(t, errs[0].Message, "missing")
	})

	t.Run("VariableTypeMismatch", func(t *testing.T) {
		doc, err := ParseQuery(`query Q($v: String) { calc(value: $v) }`)
		require.NoError(t, err)
		errs := Validate(sch, doc)
		require.NotEmpty(t, errs)
		require.Contains(t, errs[0].Message, "used in position expecting type")
	})
}
