package runner

// LogAction names the pipeline stage an event belongs to.
type LogAction string

// LogStep names the moment within a stage.
type LogStep string

const (
	ActionRequest    LogAction = "request"
	ActionParse      LogAction = "parse"
	ActionValidation LogAction = "validation"
	ActionExecute    LogAction = "execute"

	StepStart  LogStep = "start"
	StepStatus LogStep = "status"
	StepEnd    LogStep = "end"
)

// LogEvent is one entry of a request's lifecycle log. Events are
// delivered synchronously to the request's LogFunc in the exact order
// produced; the runner retains none of them.
type LogEvent struct {
	Action LogAction `json:"action"`
	Step   LogStep   `json:"step"`
	Key    string    `json:"key,omitempty"`
	Data   any       `json:"data,omitempty"`
}

// LogFunc receives lifecycle events for one request. A nil LogFunc
// disables instrumentation without affecting the request.
type LogFunc func(LogEvent)
