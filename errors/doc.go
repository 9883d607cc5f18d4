// Package errors provides structured errors for the oracle task consumer.
//
// Every failure in the consumer is classified by an ErrorCode and an
// ErrorCategory. The category decides where a failure is routed:
//
//   - CategoryValidation: the task itself is bad (malformed arguments,
//     unsafe URL). Never retried; routed to a Failed transition.
//   - CategoryExecution: the backend failed while doing the work. Routed
//     to a Failed transition; not retried within a cycle.
//   - CategoryGateway: a ledger call failed. A benign idempotent rejection
//     (task already in a terminal state) is treated as success; true faults
//     leave the task for a later poll cycle.
//   - CategoryFatal: startup problems (missing config, no usable sender
//     account, backend cannot be opened). Abort the process.
//
// Errors carry optional metadata (task ID, URL) for log correlation.
package errors
