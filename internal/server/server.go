// Package server exposes the query runner over HTTP: POST (single and
// batched) and GET per the usual GraphQL serving conventions, with
// CORS, body limits, per-request timeouts, Prometheus metrics, and
// lifecycle events on the process bus.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	eventbus "github.com/dohyun-p/queryrun/internal/eventbus"
	events "github.com/dohyun-p/queryrun/internal/events"
	executor "github.com/dohyun-p/queryrun/internal/executor"
	language "github.com/dohyun-p/queryrun/internal/language"
	logging "github.com/dohyun-p/queryrun/internal/logging"
	metrics "github.com/dohyun-p/queryrun/internal/metrics"
	reqid "github.com/dohyun-p/queryrun/internal/reqid"
	runner "github.com/dohyun-p/queryrun/internal/runner"
)

// Handler is an http.Handler serving a GraphQL endpoint backed by the
// query runner.
type Handler struct {
	schema *language.Schema
	opt    Options
}

type Options struct {
	// Timeout sets a default deadline when the incoming request context
	// has none. 0 disables.
	Timeout time.Duration

	// Pretty enables indented JSON responses.
	Pretty bool

	// MaxBodyBytes limits the request body size. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. Empty AllowedOrigins disables CORS handling.
	CORS CORSOptions

	// Debug enables debug-mode query runs: full error diagnostics go to
	// the logger.
	Debug bool

	// RootValue seeds every request's root fields.
	RootValue any

	// Runtime resolves fields; nil selects the default map runtime.
	Runtime executor.Runtime

	// Logger receives request logs and debug diagnostics. Nil disables.
	Logger *logging.Logger

	// Metrics, when set, records request and query observations.
	Metrics *metrics.Set
}

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }

func WithPretty() Option { return func(o *Options) { o.Pretty = true } }

func WithMaxBodyBytes(n int64) Option { return func(o *Options) { o.MaxBodyBytes = n } }

func WithCORS(origins ...string) Option { return func(o *Options) { o.CORS.AllowedOrigins = origins } }

func WithDebug(enable bool) Option { return func(o *Options) { o.Debug = enable } }

func WithRootValue(v any) Option { return func(o *Options) { o.RootValue = v } }

func WithRuntime(rt executor.Runtime) Option { return func(o *Options) { o.Runtime = rt } }

func WithLogger(l *logging.Logger) Option { return func(o *Options) { o.Logger = l } }

func WithMetrics(m *metrics.Set) Option { return func(o *Options) { o.Metrics = m } }

// New creates a handler executing against schema.
func New(schema *language.Schema, opts ...Option) *Handler {
	op := Options{Timeout: 10 * time.Second}
	for _, f := range opts {
		f(&op)
	}
	return &Handler{schema: schema, opt: op}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	ctx, _ = reqid.NewContext(ctx)
	status := http.StatusOK
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		if h.opt.Metrics != nil {
			h.opt.Metrics.ObserveHTTP(status)
		}
		eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: status, Duration: time.Since(start)})
	}()

	if r.Method == http.MethodOptions {
		if len(h.opt.CORS.AllowedOrigins) > 0 {
			setCORSHeaders(w, r, h.opt.CORS)
		}
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	}

	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		status = http.StatusMethodNotAllowed
		h.writeJSON(w, status, errorResponse("method not allowed"))
		return
	}

	req, batch, berr := parseRequest(r, h.opt.MaxBodyBytes)
	if berr != "" {
		status = http.StatusBadRequest
		if berr == errBodyTooLargeMessage {
			status = http.StatusRequestEntityTooLarge
		}
		h.writeJSON(w, status, errorResponse(berr))
		return
	}

	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(w, r, h.opt.CORS)
	}

	if batch != nil {
		out := make([]*runner.Response, len(batch))
		for i := range batch {
			out[i] = h.runOne(ctx, batch[i])
		}
		h.writeJSON(w, status, out)
		return
	}

	h.writeJSON(w, status, h.runOne(ctx, req))
}

// runOne maps one wire request onto the runner.
func (h *Handler) runOne(ctx context.Context, req graphQLRequest) *runner.Response {
	rr := runner.Request{
		Schema:        h.schema,
		Query:         runner.Text(req.Query),
		RootValue:     h.opt.RootValue,
		Variables:     req.Variables,
		OperationName: req.OperationName,
		Debug:         h.opt.Debug,
		Runtime:       h.opt.Runtime,
	}
	if h.opt.Logger != nil {
		rr.DebugSink = h.opt.Logger.DebugSink()
		logger := h.opt.Logger
		rr.LogFunc = func(e runner.LogEvent) {
			logger.Debug("query lifecycle",
				"action", string(e.Action), "step", string(e.Step), "key", e.Key)
		}
	}

	started := time.Now()
	resp := runner.Run(ctx, rr)
	if h.opt.Metrics != nil {
		h.opt.Metrics.ObserveQuery(!resp.HasErrors(), time.Since(started))
	}
	return resp
}

// ------------------ Request parsing ------------------

type graphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

const errBodyTooLargeMessage = "body too large"

func parseRequest(r *http.Request, maxBody int64) (graphQLRequest, []graphQLRequest, string) {
	if r.Method == http.MethodGet {
		q := r.URL.Query().Get("query")
		if q == "" {
			return graphQLRequest{}, nil, "missing 'query'"
		}
		vars := map[string]any{}
		if v := r.URL.Query().Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &vars); err != nil {
				return graphQLRequest{}, nil, "invalid 'variables' JSON"
			}
		}
		op := r.URL.Query().Get("operationName")
		return graphQLRequest{Query: q, Variables: vars, OperationName: op}, nil, ""
	}

	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" && !strings.HasPrefix(ct, "application/json;") {
		return graphQLRequest{}, nil, "unsupported Content-Type"
	}

	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return graphQLRequest{}, nil, "failed to read body"
	}
	defer r.Body.Close()
	if maxBody > 0 && int64(len(body)) > maxBody {
		return graphQLRequest{}, nil, errBodyTooLargeMessage
	}

	if len(body) > 0 && body[0] == '[' {
		var arr []graphQLRequest
		if err := json.Unmarshal(body, &arr); err != nil {
			return graphQLRequest{}, nil, "invalid JSON"
		}
		if len(arr) == 0 {
			return graphQLRequest{}, nil, "empty batch"
		}
		return graphQLRequest{}, arr, ""
	}

	var req graphQLRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return graphQLRequest{}, nil, "invalid JSON"
	}
	if req.Query == "" {
		return graphQLRequest{}, nil, "missing 'query'"
	}
	return req, nil, ""
}

// ------------------ Response writing ------------------

func errorResponse(message string) *runner.Response {
	return &runner.Response{Errors: []*runner.Error{{Message: message}}}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if h.opt.Pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	allowed := false
	wildcard := false
	for _, o := range opts.AllowedOrigins {
		if o == "*" {
			allowed, wildcard = true, true
			break
		}
		if o == origin {
			allowed = true
			break
		}
	}
	if !allowed {
		return
	}
	if wildcard {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	}
}
