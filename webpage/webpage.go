// Package webpage implements the webpage_summary task handler.
//
// The handler owns everything between a raw ledger task and a submit-ready
// payload: argument decoding, the URL safety gate, and delegation to the
// summarization backend. The safety gate runs before the backend is touched,
// so an unsafe URL never reaches the network through this path.
package webpage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vinayprograms/oraclekit/agent"
	oraclerr "github.com/vinayprograms/oraclekit/errors"
	"github.com/vinayprograms/oraclekit/logging"
	"github.com/vinayprograms/oraclekit/safety"
	"github.com/vinayprograms/oraclekit/tasks"
)

// TaskName is the qualified task kind this handler serves.
const TaskName = "task::webpage_summary"

// DefaultLanguage is used when a task omits the lang argument.
const DefaultLanguage = "en"

// Args is the decoded task argument payload.
type Args struct {
	// URL is the page to summarize. Required.
	URL string `json:"url"`

	// Lang is the output language code. Optional.
	Lang string `json:"lang"`
}

// Recorder persists resolved summaries for local search. Implementations
// must tolerate failure being ignored; a record error never fails the task.
type Recorder interface {
	Record(ctx context.Context, taskID, url, language, summary string) error
}

// Config configures the handler.
type Config struct {
	// Checker validates URLs before any fetch. Required.
	Checker *safety.Checker

	// Backend produces the summary. Required.
	Backend agent.Backend

	// DefaultLanguage is used when the task omits lang. Default: "en".
	DefaultLanguage string

	// Recorder optionally archives resolved summaries.
	Recorder Recorder

	// Logger for handler diagnostics.
	Logger *logging.Logger
}

// Handler processes webpage_summary tasks.
type Handler struct {
	checker     *safety.Checker
	backend     agent.Backend
	defaultLang string
	recorder    Recorder
	log         *logging.Logger
}

// NewHandler creates a webpage summary handler.
func NewHandler(cfg Config) (*Handler, error) {
	if cfg.Checker == nil {
		return nil, oraclerr.New(oraclerr.ErrCodeStartup, "safety checker is required")
	}
	if cfg.Backend == nil {
		return nil, oraclerr.New(oraclerr.ErrCodeStartup, "summarization backend is required")
	}

	lang := cfg.DefaultLanguage
	if lang == "" {
		lang = DefaultLanguage
	}
	log := cfg.Logger
	if log == nil {
		log = logging.New()
	}

	return &Handler{
		checker:     cfg.Checker,
		backend:     cfg.Backend,
		defaultLang: lang,
		recorder:    cfg.Recorder,
		log:         log.WithComponent("webpage"),
	}, nil
}

// Name implements the handler contract.
func (h *Handler) Name() string {
	return TaskName
}

// Validate decodes the task arguments and applies the safety gate. On
// success it returns the start acknowledgment message. On failure the
// returned error's message is the fail payload, and the backend is never
// consulted.
func (h *Handler) Validate(ctx context.Context, task tasks.Task) (string, error) {
	args, err := decodeArgs(task.Arguments)
	if err != nil {
		return "", oraclerr.BadArguments(task.ID, err)
	}

	verdict := h.checker.Check(ctx, args.URL)
	if !verdict.Safe {
		h.log.SecurityBlock(args.URL, verdict.Reason)
		return "", oraclerr.UnsafeURL(args.URL, verdict.Reason)
	}

	return "Processing webpage: " + args.URL, nil
}

// Execute runs the summarization backend for an already-validated task and
// returns the resolve payload.
func (h *Handler) Execute(ctx context.Context, task tasks.Task) (string, error) {
	args, err := decodeArgs(task.Arguments)
	if err != nil {
		return "", oraclerr.BadArguments(task.ID, err)
	}

	lang := args.Lang
	if lang == "" {
		lang = h.defaultLang
	}

	summary, err := h.backend.Summarize(ctx, agent.Request{URL: args.URL, Language: lang})
	if err != nil {
		return "", oraclerr.BackendFailed(args.URL, err)
	}

	if h.recorder != nil {
		if err := h.recorder.Record(ctx, task.ID, args.URL, lang, summary); err != nil {
			h.log.Warn("archive_write_failed", map[string]interface{}{
				"task":  task.ID,
				"error": err.Error(),
			})
		}
	}
	return summary, nil
}

// decodeArgs parses the raw argument string carried by the task object.
func decodeArgs(raw string) (Args, error) {
	var args Args
	if raw == "" {
		return args, errors.New("empty arguments")
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return args, fmt.Errorf("decode arguments: %w", err)
	}
	if args.URL == "" {
		return args, errors.New("missing url argument")
	}
	return args, nil
}
