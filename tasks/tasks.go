package tasks

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	// ErrInvalidTransition indicates a transition the lifecycle forbids.
	ErrInvalidTransition = errors.New("invalid task transition")

	// ErrTerminal indicates the task is already in a terminal state.
	ErrTerminal = errors.New("task in terminal state")
)

// Status mirrors the ledger-side task status encoding.
type Status int

const (
	// StatusPending indicates the task is waiting for a consumer.
	StatusPending Status = 0

	// StatusStarted indicates a consumer has acknowledged the task.
	StatusStarted Status = 1

	// StatusResolved indicates the task completed with a result.
	StatusResolved Status = 2

	// StatusFailed indicates the task completed with an error.
	StatusFailed Status = 3
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusStarted:
		return "started"
	case StatusResolved:
		return "resolved"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// IsTerminal returns true if the status has no successors.
func (s Status) IsTerminal() bool {
	return s == StatusResolved || s == StatusFailed
}

// Eligible returns true if a consumer may still execute the task.
func (s Status) Eligible() bool {
	return s == StatusPending || s == StatusStarted
}

// Task is one unit of work discovered on the ledger.
type Task struct {
	// ID is the ledger object reference.
	ID string

	// Name is the qualified task kind, e.g. "task::webpage_summary".
	// Only tasks whose name matches a registered handler are processed.
	Name string

	// Status is the ledger-side state at the time of the list snapshot.
	Status Status

	// Arguments is the raw serialized payload, interpreted per Name.
	Arguments string

	// Resolver is the account expected to resolve the task.
	// Passed through to ledger calls, never interpreted locally.
	Resolver string

	// ResponseChannel is the creator's response channel object reference.
	// Passed through to ledger calls, never interpreted locally.
	ResponseChannel string
}

// Validate checks the fields the consumer depends on.
func (t *Task) Validate() error {
	if t.ID == "" {
		return errors.New("task missing object ID")
	}
	if t.Name == "" {
		return errors.New("task missing name")
	}
	return nil
}

// Transition is one lifecycle step reported to the ledger.
type Transition int

const (
	// TransitionStart marks the task as being worked on.
	TransitionStart Transition = iota

	// TransitionResolve completes the task with a result payload.
	TransitionResolve

	// TransitionFail completes the task with an error message.
	TransitionFail
)

// String returns the transition name.
func (tr Transition) String() string {
	switch tr {
	case TransitionStart:
		return "start"
	case TransitionResolve:
		return "resolve"
	case TransitionFail:
		return "fail"
	default:
		return fmt.Sprintf("unknown(%d)", int(tr))
	}
}

// Target returns the status a transition moves the task into.
func (tr Transition) Target() Status {
	switch tr {
	case TransitionStart:
		return StatusStarted
	case TransitionResolve:
		return StatusResolved
	default:
		return StatusFailed
	}
}

// CanTransition reports whether the lifecycle permits moving from to the
// target status of tr. Pending may jump directly to a terminal state; the
// start acknowledgment is not a prerequisite.
func CanTransition(from Status, tr Transition) bool {
	if from.IsTerminal() {
		return false
	}
	switch tr {
	case TransitionStart:
		return from == StatusPending
	case TransitionResolve, TransitionFail:
		return from == StatusPending || from == StatusStarted
	default:
		return false
	}
}

// Apply validates and performs a transition on the local task copy.
// The ledger submit is the caller's responsibility; this only tracks the
// consumer's view within a single dispatch.
func (t *Task) Apply(tr Transition) error {
	if t.Status.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", ErrTerminal, t.ID, t.Status)
	}
	if !CanTransition(t.Status, tr) {
		return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, tr, t.Status)
	}
	t.Status = tr.Target()
	return nil
}
