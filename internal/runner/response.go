package runner

// Location is a line/column position inside the original query source.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Error is one entry of Response.Errors. The debug detail attached
// during classification (stack trace or equivalent) lives in an
// unexported field: it is written to the request's diagnostic sink
// under debug mode and never appears in the marshaled error.
type Error struct {
	Message   string     `json:"message"`
	Locations []Location `json:"locations,omitempty"`
	Path      []any      `json:"path,omitempty"`

	debugDetail string
}

func (e *Error) Error() string { return e.Message }

// Response is the normalized outcome of a query run: data, errors, or
// both. Data is absent when the pipeline failed before execution
// produced any field. Extensions is the top-level extension area a
// FormatResponse hook may populate.
type Response struct {
	Data       any            `json:"data,omitempty"`
	Errors     []*Error       `json:"errors,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// HasErrors reports whether the response carries any error.
func (r *Response) HasErrors() bool { return len(r.Errors) > 0 }

// RequestScope is the read-only view of request configuration handed
// to the FormatResponse hook.
type RequestScope struct {
	// Context is the request's application context value, unchanged.
	Context any
}
