package errors

// ErrorCategory classifies errors by where their handling belongs.
type ErrorCategory string

// Error categories define how the consumer routes a failure.
const (
	// CategoryValidation indicates the task content is invalid.
	// Examples: malformed arguments JSON, URL that fails the safety check.
	CategoryValidation ErrorCategory = "validation"

	// CategoryExecution indicates the execution backend failed.
	// Examples: page fetch error, LLM call failure, backend timeout.
	CategoryExecution ErrorCategory = "execution"

	// CategoryGateway indicates a ledger call failed.
	// Examples: CLI exit error, unreachable node, transaction rejected.
	CategoryGateway ErrorCategory = "gateway"

	// CategoryFatal indicates a startup problem that must abort the process.
	// Examples: missing required config, no usable sender account.
	CategoryFatal ErrorCategory = "fatal"
)

// String returns the string representation of the category.
func (c ErrorCategory) String() string {
	return string(c)
}

// FailsTask returns true if errors in this category are reported to the
// ledger as a Failed transition.
func (c ErrorCategory) FailsTask() bool {
	return c == CategoryValidation || c == CategoryExecution
}

// ErrorCode identifies specific failure types within categories.
type ErrorCode string

// Error codes for the consumer's failure scenarios.
const (
	// Validation errors
	ErrCodeBadArguments ErrorCode = "BAD_ARGUMENTS" // Task arguments failed to decode
	ErrCodeUnsafeURL    ErrorCode = "UNSAFE_URL"    // URL rejected by the safety check
	ErrCodeNoHandler    ErrorCode = "NO_HANDLER"    // No handler registered for task name

	// Execution errors
	ErrCodeFetchFailed   ErrorCode = "FETCH_FAILED"   // Page fetch failed
	ErrCodeBackendFailed ErrorCode = "BACKEND_FAILED" // LLM backend call failed
	ErrCodeTimeout       ErrorCode = "TIMEOUT"        // Execution exceeded its deadline
	ErrCodePanic         ErrorCode = "PANIC"          // Recovered from a handler panic

	// Gateway errors
	ErrCodeAlreadyTerminal ErrorCode = "ALREADY_TERMINAL" // Task already resolved or failed on-chain
	ErrCodeLedgerRejected  ErrorCode = "LEDGER_REJECTED"  // Transaction aborted for another reason
	ErrCodeLedgerFault     ErrorCode = "LEDGER_FAULT"     // CLI or node unreachable, bad output
	ErrCodeDecodeFailed    ErrorCode = "DECODE_FAILED"    // Ledger object failed to decode

	// Fatal errors
	ErrCodeConfig    ErrorCode = "CONFIG"     // Missing or invalid configuration
	ErrCodeNoAccount ErrorCode = "NO_ACCOUNT" // No usable sender account
	ErrCodeStartup   ErrorCode = "STARTUP"    // Backend or resource failed to open
)

// String returns the string representation of the error code.
func (c ErrorCode) String() string {
	return string(c)
}

// DefaultCategory returns the default category for an error code.
func (c ErrorCode) DefaultCategory() ErrorCategory {
	switch c {
	case ErrCodeBadArguments, ErrCodeUnsafeURL, ErrCodeNoHandler:
		return CategoryValidation

	case ErrCodeFetchFailed, ErrCodeBackendFailed, ErrCodeTimeout, ErrCodePanic:
		return CategoryExecution

	case ErrCodeAlreadyTerminal, ErrCodeLedgerRejected, ErrCodeLedgerFault, ErrCodeDecodeFailed:
		return CategoryGateway

	case ErrCodeConfig, ErrCodeNoAccount, ErrCodeStartup:
		return CategoryFatal

	default:
		return CategoryExecution
	}
}

// codeDescriptions provides human-readable descriptions for error codes.
var codeDescriptions = map[ErrorCode]string{
	ErrCodeBadArguments:    "task arguments failed to decode",
	ErrCodeUnsafeURL:       "URL rejected by safety check",
	ErrCodeNoHandler:       "no handler registered for task",
	ErrCodeFetchFailed:     "page fetch failed",
	ErrCodeBackendFailed:   "execution backend failed",
	ErrCodeTimeout:         "execution timed out",
	ErrCodePanic:           "recovered from panic",
	ErrCodeAlreadyTerminal: "task already in terminal state",
	ErrCodeLedgerRejected:  "transaction rejected by ledger",
	ErrCodeLedgerFault:     "ledger unreachable or returned bad output",
	ErrCodeDecodeFailed:    "ledger object failed to decode",
	ErrCodeConfig:          "missing or invalid configuration",
	ErrCodeNoAccount:       "no usable sender account",
	ErrCodeStartup:         "startup failure",
}

// Description returns a human-readable description for the error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}
