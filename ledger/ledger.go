package ledger

import (
	"context"
	"fmt"

	"github.com/vinayprograms/oraclekit/tasks"
)

// Call is one state-transition submission.
type Call struct {
	// TaskID is the ledger object reference of the task.
	TaskID string

	// Sender is the consumer's own account address.
	Sender string

	// Function is the qualified entry-function selector, treated as opaque.
	Function string

	// Payload is the human-readable progress message (start), the result
	// body (resolve), or the error message (fail).
	Payload string
}

// Gateway is the external collaborator contract the consumer requires.
type Gateway interface {
	// ListPending returns a snapshot of tasks addressed to the configured
	// agent that are still eligible for execution. The returned list may
	// include tasks already claimed or completed by a racing consumer.
	ListPending(ctx context.Context) ([]tasks.Task, error)

	// SubmitTransition submits one state transition. A rejection because
	// the task is already in a terminal state surfaces as an error for
	// which errors.IsAlreadyTerminal reports true; callers treat it as a
	// benign no-op.
	SubmitTransition(ctx context.Context, call Call) error
}

// Selectors holds the entry-function selectors for the three transitions.
// They are configuration, not interpreted beyond string concatenation.
type Selectors struct {
	Start   string
	Resolve string
	Fail    string
}

// DefaultSelectors returns the task_entry selectors for a deployed package.
func DefaultSelectors(packageID string) Selectors {
	return Selectors{
		Start:   packageID + "::task_entry::start_task",
		Resolve: packageID + "::task_entry::resolve_task_and_call_agent",
		Fail:    packageID + "::task_entry::fail_task",
	}
}

// For maps a lifecycle transition to its selector.
func (s Selectors) For(tr tasks.Transition) (string, error) {
	switch tr {
	case tasks.TransitionStart:
		return s.Start, nil
	case tasks.TransitionResolve:
		return s.Resolve, nil
	case tasks.TransitionFail:
		return s.Fail, nil
	default:
		return "", fmt.Errorf("no selector for transition %s", tr)
	}
}
