package harness

import "github.com/roach88/wizard/internal/value"

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq     int64       `json:"seq"`
	Action  string      `json:"action"`
	Field   string      `json:"field,omitempty"`
	Value   value.Value `json:"value,omitempty"`
	Outcome string      `json:"outcome"`
	State   string      `json:"state"`
	Invalid []string    `json:"invalid,omitempty"`
	Changed *bool       `json:"changed,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace lists the executed steps in order, starting with init.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Context is the final data context, nil if uninitialized.
	Context value.Record `json:"context"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace, numbering it.
func (r *Result) AddTrace(ev TraceEvent) {
	ev.Seq = int64(len(r.Trace) + 1)
	r.Trace = append(r.Trace, ev)
}
