package executor

import (
	language "github.com/dohyun-p/queryrun/internal/language"
)

// groupedFieldSet preserves the response order of the original query
// while merging selections that share a response name.
type groupedFieldSet struct {
	groups []fieldGroup
	index  map[string]int
}

type fieldGroup struct {
	ResponseName string
	Fields       []*language.Field
}

func newGroupedFieldSet() *groupedFieldSet {
	return &groupedFieldSet{index: make(map[string]int)}
}

func (g *groupedFieldSet) add(responseName string, field *language.Field) {
	if idx, ok := g.index[responseName]; ok {
		g.groups[idx].Fields = append(g.groups[idx].Fields, field)
		return
	}
	g.index[responseName] = len(g.groups)
	g.groups = append(g.groups, fieldGroup{ResponseName: responseName, Fields: []*language.Field{field}})
}

func (g *groupedFieldSet) ordered() []fieldGroup { return g.groups }

// collectFields flattens a selection set for one concrete object type,
// expanding fragments and honoring @skip/@include.
func collectFields(state *executionState, objectDef *language.Definition, selectionSet language.SelectionSet) *groupedFieldSet {
	grouped := newGroupedFieldSet()
	visited := make(map[string]bool)
	collectFieldsInto(state, objectDef, selectionSet, grouped, visited)
	return grouped
}

func collectFieldsInto(state *executionState, objectDef *language.Definition, selectionSet language.SelectionSet, grouped *groupedFieldSet, visitedFragments map[string]bool) {
	for _, selection := range selectionSet {
		switch sel := selection.(type) {
		case *language.Field:
			if !shouldIncludeNode(state, sel.Directives) {
				continue
			}
			responseName := sel.Alias
			if responseName == "" {
				responseName = sel.Name
			}
			grouped.add(responseName, sel)

		case *language.InlineFragment:
			if !shouldIncludeNode(state, sel.Directives) {
				continue
			}
			if !typeConditionMatches(state, sel.TypeCondition, objectDef) {
				continue
			}
			collectFieldsInto(state, objectDef, sel.SelectionSet, grouped, visitedFragments)

		case *language.FragmentSpread:
			if !shouldIncludeNode(state, sel.Directives) {
				continue
			}
			if visitedFragments[sel.Name] {
				continue
			}
			visitedFragments[sel.Name] = true

			fragment := state.document.Fragments.ForName(sel.Name)
			if fragment == nil {
				continue
			}
			if !typeConditionMatches(state, fragment.TypeCondition, objectDef) {
				continue
			}
			if !shouldIncludeNode(state, fragment.Directives) {
				continue
			}
			collectFieldsInto(state, objectDef, fragment.SelectionSet, grouped, visitedFragments)
		}
	}
}

// typeConditionMatches reports whether a fragment with the given type
// condition applies to the concrete object type: the condition is the
// type itself, an interface it implements, or a union containing it.
func typeConditionMatches(state *executionState, condition string, objectDef *language.Definition) bool {
	if condition == "" || condition == objectDef.Name {
		return true
	}
	for _, iface := range objectDef.Interfaces {
		if iface == condition {
			return true
		}
	}
	if condDef := lookupType(state.schema, condition); condDef != nil && condDef.Kind == language.Union {
		for _, member := range condDef.Types {
			if member == objectDef.Name {
				return true
			}
		}
	}
	return false
}

// shouldIncludeNode evaluates @skip and @include against the coerced
// variable values.
func shouldIncludeNode(state *executionState, directives language.DirectiveList) bool {
	if skip := directives.ForName("skip"); skip != nil {
		if v, ok := directiveBoolArg(state, skip, "if"); ok && v {
			return false
		}
	}
	if include := directives.ForName("include"); include != nil {
		if v, ok := directiveBoolArg(state, include, "if"); ok && !v {
			return false
		}
	}
	return true
}

func directiveBoolArg(state *executionState, directive *language.Directive, name string) (bool, bool) {
	for _, arg := range directive.Arguments {
		if arg.Name == name {
			v := valueFromASTWithVars(arg.Value, state.variableValues)
			b, ok := v.(bool)
			return b, ok
		}
	}
	return false, false
}

func lookupType(sch *language.Schema, name string) *language.Definition {
	if sch == nil || sch.Types == nil {
		return nil
	}
	return sch.Types[name]
}
