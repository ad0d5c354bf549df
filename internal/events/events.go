// Package events declares the lifecycle events queryrun publishes on
// the process event bus. Observers (tracing, logging) subscribe via
// the eventbus package.
package events

import (
	"net/http"
	"time"
)

// HTTPStart is published when the HTTP endpoint accepts a request.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is published after the HTTP response has been written.
type HTTPFinish struct {
	Request  *http.Request
	Status   int
	Duration time.Duration
}

// QueryStart is published before a query run begins executing.
type QueryStart struct {
	Query         string
	OperationName string
	OperationType string
	PreParsed     bool
	Debug         bool
}

// QueryFinish is published after a query run completes, whether it
// produced data, errors, or both.
type QueryFinish struct {
	Query         string
	OperationName string
	OperationType string
	Errors        []error
	Duration      time.Duration
}
