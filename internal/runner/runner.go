// Package runner orchestrates one GraphQL request end to end: intake
// normalization, conditional parse and validation, variable coercion,
// operation selection, execution dispatch, error classification with
// per-request debug policy, and the response formatting hook. Run is
// the only entry point and never fails: every outcome, including a
// panicking resolver, comes back as a Response.
package runner

import (
	"context"
	"fmt"
	"time"

	eventbus "github.com/dohyun-p/queryrun/internal/eventbus"
	events "github.com/dohyun-p/queryrun/internal/events"
	executor "github.com/dohyun-p/queryrun/internal/executor"
	language "github.com/dohyun-p/queryrun/internal/language"
)

// Query is the request's query in one of its two intake forms: source
// text owned by this pipeline, or a document the caller parsed
// themselves. The form is matched exactly once, at intake.
type Query struct {
	text string
	doc  *language.QueryDocument
}

// Text wraps raw query source. The pipeline will parse and validate it.
func Text(source string) Query { return Query{text: source} }

// Parsed wraps a pre-built document. The pipeline skips parsing AND
// validation for this form: variable usage is not checked against
// declared types, so type-incompatible but representable variable
// values are silently coerced at their usage sites. Long-standing
// intake shortcut; callers own the document's validity.
func Parsed(doc *language.QueryDocument) Query { return Query{doc: doc} }

// PreParsed reports whether the caller supplied the document form.
func (q Query) PreParsed() bool { return q.doc != nil }

// Source returns the raw text for the text form, or "" for documents.
func (q Query) Source() string { return q.text }

// statusData is what the "query" status event reports: the original
// text, or the caller's document for the pre-parsed form.
func (q Query) statusData() any {
	if q.doc != nil {
		return q.doc
	}
	return q.text
}

// Request is one query run's configuration. It is read-only to the
// pipeline; the zero value of every optional field selects a default.
type Request struct {
	// Schema is the schema to execute against. Required.
	Schema *language.Schema
	// Query is the query, as text or as a pre-parsed document. Required.
	Query Query
	// RootValue seeds the root fields' parent value.
	RootValue any
	// Context is an application value delivered unchanged to resolvers
	// (via ContextValue) and to the FormatResponse hook.
	Context any
	// Variables are the raw, untyped variable values.
	Variables map[string]any
	// OperationName selects the operation when the document holds more
	// than one.
	OperationName string
	// Debug routes full error diagnostics to DebugSink.
	Debug bool
	// LogFunc receives the request's lifecycle events. Nil disables.
	LogFunc LogFunc
	// DebugSink receives diagnostic detail under debug mode. Nil
	// disables.
	DebugSink func(detail string)
	// FormatResponse, when set, transforms the finished response; its
	// return value is what Run returns. In-place mutation is allowed.
	FormatResponse func(*Response, *RequestScope) *Response
	// Runtime resolves fields. Nil selects a MapRuntime resolving from
	// the root value alone.
	Runtime executor.Runtime
}

type contextValueKey struct{}

// WithContextValue stores an application context value for resolvers.
func WithContextValue(ctx context.Context, v any) context.Context {
	return context.WithValue(ctx, contextValueKey{}, v)
}

// ContextValue returns the application context value of the current
// request, or nil.
func ContextValue(ctx context.Context) any {
	return ctx.Value(contextValueKey{})
}

// Run executes one request through the full pipeline and returns its
// normalized response. Run never panics past this boundary and never
// returns nil: parse, validation, and coercion failures short-circuit
// into errors-only responses; execution errors coexist with whatever
// partial data the engine produced. The request-end log event is
// emitted unconditionally, after the FormatResponse hook.
func Run(ctx context.Context, req Request) (resp *Response) {
	logf := req.LogFunc
	if logf == nil {
		logf = func(LogEvent) {}
	}
	sink := req.DebugSink
	if sink == nil {
		sink = func(string) {}
	}

	defer func() {
		if r := recover(); r != nil {
			resp = &Response{Errors: []*Error{{
				Message:     fmt.Sprintf("internal error: %v", r),
				debugDetail: fmt.Sprintf("orchestrator panic: %v", r),
			}}}
			func() {
				defer func() { recover() }()
				if req.Debug {
					sink(resp.Errors[0].debugDetail)
				}
				logf(LogEvent{Action: ActionRequest, Step: StepEnd})
			}()
		}
	}()

	finish := func(r *Response) *Response {
		// Diagnostic writes are ordered before the response is final:
		// exactly one per error, only under debug.
		if req.Debug {
			for _, e := range r.Errors {
				if e.debugDetail != "" {
					sink(e.debugDetail)
				}
			}
		}
		if req.FormatResponse != nil {
			if formatted := req.FormatResponse(r, &RequestScope{Context: req.Context}); formatted != nil {
				r = formatted
			}
		}
		logf(LogEvent{Action: ActionRequest, Step: StepEnd})
		return r
	}

	variables := req.Variables
	if variables == nil {
		variables = map[string]any{}
	}

	logf(LogEvent{Action: ActionRequest, Step: StepStart})
	logf(LogEvent{Action: ActionRequest, Step: StepStatus, Key: "query", Data: req.Query.statusData()})
	logf(LogEvent{Action: ActionRequest, Step: StepStatus, Key: "variables", Data: variables})
	logf(LogEvent{Action: ActionRequest, Step: StepStatus, Key: "operationName", Data: operationNameStatus(req.OperationName)})

	if req.Schema == nil {
		return finish(&Response{Errors: []*Error{{
			Message:     "no schema provided",
			debugDetail: "request rejected: no schema provided",
		}}})
	}

	// Intake: the document form skips both parse and validation.
	doc := req.Query.doc
	if !req.Query.PreParsed() {
		logf(LogEvent{Action: ActionParse, Step: StepStart})
		parsed, perr := language.ParseQuery(req.Query.text)
		logf(LogEvent{Action: ActionParse, Step: StepEnd})
		if perr != nil {
			return finish(&Response{Errors: []*Error{fromSyntaxError(perr)}})
		}
		doc = parsed

		logf(LogEvent{Action: ActionValidation, Step: StepStart})
		verrs := language.Validate(req.Schema, doc)
		logf(LogEvent{Action: ActionValidation, Step: StepEnd})
		if len(verrs) > 0 {
			out := &Response{}
			for _, ve := range verrs {
				out.Errors = append(out.Errors, fromValidationError(ve))
			}
			return finish(out)
		}
	}

	// Variable coercion runs against the selected operation. A failed
	// selection is not fatal here: the engine surfaces it as its own
	// error, keeping selection semantics in one place.
	coerced := map[string]any{}
	operation := executor.GetOperation(doc, req.OperationName)
	if operation != nil {
		var cerr error
		coerced, cerr = executor.CoerceVariableValues(req.Schema, operation, variables)
		if cerr != nil {
			return finish(&Response{Errors: []*Error{fromCoercionError(cerr)}})
		}
	}

	runtime := req.Runtime
	if runtime == nil {
		runtime = executor.NewMapRuntime(nil)
	}

	ectx := WithContextValue(ctx, req.Context)
	started := time.Now()
	eventbus.Publish(ectx, events.QueryStart{
		Query:         req.Query.Source(),
		OperationName: req.OperationName,
		OperationType: operationType(operation),
		PreParsed:     req.Query.PreParsed(),
		Debug:         req.Debug,
	})

	logf(LogEvent{Action: ActionExecute, Step: StepStart})
	result := executor.New(runtime, req.Schema).ExecuteRequest(ectx, doc, req.OperationName, coerced, req.RootValue)
	logf(LogEvent{Action: ActionExecute, Step: StepEnd})

	out := &Response{Data: result.Data}
	execErrs := make([]error, 0, len(result.Errors))
	for _, xe := range result.Errors {
		ce := fromExecutionError(xe)
		out.Errors = append(out.Errors, ce)
		execErrs = append(execErrs, ce)
	}
	eventbus.Publish(ectx, events.QueryFinish{
		Query:         req.Query.Source(),
		OperationName: req.OperationName,
		OperationType: operationType(operation),
		Errors:        execErrs,
		Duration:      time.Since(started),
	})

	return finish(out)
}

func operationNameStatus(name string) any {
	if name == "" {
		return nil
	}
	return name
}

func operationType(op *language.OperationDefinition) string {
	if op == nil {
		return ""
	}
	return string(op.Operation)
}
