// Package language adapts the gqlparser toolchain (parser, schema
// loader, validator) behind the small surface the rest of queryrun
// consumes. The AST itself is gqlparser's; see ast.go for the aliases.
package language

import (
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"
)

// ParseQuery parses an executable GraphQL document from source text.
// On failure the returned error is a *Error carrying the grammar
// diagnostic and source location.
func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// BuildSchema loads a type-checked schema from SDL, including the
// standard prelude (built-in scalars and directives).
func BuildSchema(sdl string) (*Schema, error) {
	return gqlparser.LoadSchema(&ast.Source{Name: "schema.graphql", Input: sdl})
}

// MustBuildSchema is BuildSchema for fixtures; it panics on error.
func MustBuildSchema(sdl string) *Schema {
	sch, err := BuildSchema(sdl)
	if err != nil {
		panic(err)
	}
	return sch
}

// Validate runs the standard validation rules for doc against schema.
// A nil result means the document is valid.
func Validate(schema *Schema, doc *QueryDocument) []*Error {
	errs := validator.Validate(schema, doc)
	if len(errs) == 0 {
		return nil
	}
	return []*Error(errs)
}
