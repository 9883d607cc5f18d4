// Package tasks defines the on-chain task model and its lifecycle.
//
// A Task mirrors a ledger object of type <package>::task::Task. The consumer
// is never the sole writer: another consumer instance may race on the same
// object, so the ledger remains the source of truth for terminal state and
// tasks are rebuilt fresh from ledger data on every poll cycle.
//
// The lifecycle is Pending → Started → {Resolved, Failed}. A Pending task may
// also jump straight to a terminal state when execution completes before the
// start acknowledgment lands (the start write is a separate network call that
// can fail or be skipped). Resolved and Failed have no successors.
package tasks
