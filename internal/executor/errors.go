package executor

import (
	"errors"

	future "github.com/dohyun-p/queryrun/internal/future"
	language "github.com/dohyun-p/queryrun/internal/language"
)

// Path locates a field in the response tree: string elements are
// response names, int elements are list indices.
type Path []PathElement

type PathElement any

// Error is a located execution error. Stack carries the failure-site
// goroutine stack when the error came from a recovered panic; it is
// diagnostic detail only and never marshaled.
type Error struct {
	Message   string                   `json:"message"`
	Locations []language.ErrorLocation `json:"locations,omitempty"`
	Path      Path                     `json:"path,omitempty"`
	Stack     string                   `json:"-"`
}

func (e Error) Error() string { return e.Message }

// ExecutionResult is the engine's output: a (possibly partial) data
// tree plus the located errors accumulated while producing it.
type ExecutionResult struct {
	Data   any     `json:"data"`
	Errors []Error `json:"errors,omitempty"`
}

// newResolverError builds a located Error from a resolver failure,
// lifting the stack out of recovered panics.
func newResolverError(err error, fields []*language.Field, path Path) Error {
	e := Error{Message: err.Error(), Path: path}
	var pe *future.PanicError
	if errors.As(err, &pe) {
		e.Stack = string(pe.Stack)
	}
	if len(fields) > 0 && fields[0].Position != nil {
		e.Locations = []language.ErrorLocation{{
			Line:   fields[0].Position.Line,
			Column: fields[0].Position.Column,
		}}
	}
	return e
}
