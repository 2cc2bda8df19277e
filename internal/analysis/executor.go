package analysis

import (
	"log"

	"github.com/anawil7349-cpu/my-wind-ai/internal/models"
)

// NoResult is returned when a query ran to completion without assigning the
// result slot.
const NoResult = "the query ran but assigned no result; assign the final value to result"

// Executor runs queries against whatever snapshot the provider returns at
// call time. The provider is expected to be cheap (a pointer load).
type Executor struct {
	snapshot func() []models.TelemetryRecord
}

func NewExecutor(snapshot func() []models.TelemetryRecord) *Executor {
	return &Executor{snapshot: snapshot}
}

// Run executes one query and always returns a printable string: the rendered
// result, NoResult, the SecurityAlert refusal, or an error description.
// It never returns an error to the caller.
func (e *Executor) Run(code string) string {
	if violatesPolicy(code) {
		log.Printf("analysis: query rejected by policy")
		return SecurityAlert
	}

	stmts, err := parse(code)
	if err != nil {
		return "error: " + err.Error()
	}

	df := tableFromRecords(e.snapshot())
	out, err := evaluate(stmts, df)
	if err != nil {
		return "error: " + err.Error()
	}
	if out == nil {
		return NoResult
	}
	return render(out)
}
