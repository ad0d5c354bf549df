package runner

import (
	"errors"
	"fmt"
	"strings"

	executor "github.com/dohyun-p/queryrun/internal/executor"
	language "github.com/dohyun-p/queryrun/internal/language"
)

// Classification is the single place errors from any stage are turned
// into response-ready entries. Each classified error carries its full
// diagnostic detail privately; Run decides (per the request's debug
// flag) whether that detail reaches the diagnostic sink.

func fromSyntaxError(err error) *Error {
	e := &Error{Message: err.Error()}
	var ge *language.Error
	if errors.As(err, &ge) {
		e.Message = ge.Message
		e.Locations = fromGQLLocations(ge.Locations)
	}
	if !strings.Contains(e.Message, "Syntax Error") {
		e.Message = "Syntax Error: " + e.Message
	}
	e.debugDetail = fmt.Sprintf("parse failed: %s%s", e.Message, locationSuffix(e.Locations))
	return e
}

func fromValidationError(ge *language.Error) *Error {
	e := &Error{
		Message:   ge.Message,
		Locations: fromGQLLocations(ge.Locations),
	}
	detail := fmt.Sprintf("validation failed: %s%s", ge.Message, locationSuffix(e.Locations))
	if ge.Rule != "" {
		detail += " [rule " + ge.Rule + "]"
	}
	e.debugDetail = detail
	return e
}

func fromCoercionError(err error) *Error {
	return &Error{
		Message:     err.Error(),
		debugDetail: "variable coercion failed: " + err.Error(),
	}
}

func fromExecutionError(xe executor.Error) *Error {
	e := &Error{Message: xe.Message}
	for _, loc := range xe.Locations {
		e.Locations = append(e.Locations, Location{Line: loc.Line, Column: loc.Column})
	}
	for _, elem := range xe.Path {
		e.Path = append(e.Path, elem)
	}
	detail := "execution error"
	if len(e.Path) > 0 {
		detail += " at " + pathString(e.Path)
	}
	detail += ": " + xe.Message
	if xe.Stack != "" {
		detail += "\n" + xe.Stack
	}
	e.debugDetail = detail
	return e
}

func fromGQLLocations(locs []language.ErrorLocation) []Location {
	out := make([]Location, 0, len(locs))
	for _, l := range locs {
		out = append(out, Location{Line: l.Line, Column: l.Column})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func locationSuffix(locs []Location) string {
	if len(locs) == 0 {
		return ""
	}
	return fmt.Sprintf(" (line %d, column %d)", locs[0].Line, locs[0].Column)
}

func pathString(path []any) string {
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
		default:
			out += fmt.Sprintf("%v", v)
		}
	}
	return out
}
