package executor

import (
	"testing"

	language "github.com/dohyun-p/queryrun/internal/language"
)

// mustParseQuery parses a GraphQL query and fails the test on error.
func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return d
}

// testSchema is the shared fixture schema for executor tests.
const testSchemaSDL = `
type Query {
  hello: String
  num: Int
  obj: Obj
  objs: [Obj]
  must: String!
  box: Box
  node: Node
  pet: Pet
  add(a: Int!, b: Int = 2): Int
}

type Obj {
  a: String
  b: String
}

type Box {
  must: String!
  opt: String
}

interface Node {
  id: ID
}

type User implements Node {
  id: ID
  name: String
}

union Pet = Dog | Cat

type Dog {
  name: String
  bark: String
}

type Cat {
  name: String
  meow: String
}
`

func testSchema(t *testing.T) *language.Schema {
	t.Helper()
	sch, err := language.BuildSchema(testSchemaSDL)
	if err != nil {
		t.Fatalf("build schema: %v", err)
	}
	return sch
}
