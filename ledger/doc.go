// Package ledger is the read/write façade over the on-chain task store.
//
// The consumer talks to the ledger through the Gateway interface: a snapshot
// list of pending tasks and a submit call per state transition. The list is
// only a snapshot; it may contain tasks a racing consumer has already
// claimed or completed, so callers must treat a rejected terminal submit
// ("already in terminal state") as a benign no-op rather than a fault.
//
// The production implementation shells out to the rooch CLI, which signs and
// submits transactions with the local keystore. Exactly-once application of a
// transition is the ledger's job; the gateway invokes each transition call at
// most once per logical attempt.
package ledger
