package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	oraclerr "github.com/vinayprograms/oraclekit/errors"
	"github.com/vinayprograms/oraclekit/logging"
	"github.com/vinayprograms/oraclekit/tasks"
)

// runFunc executes the ledger CLI and returns its stdout.
type runFunc func(ctx context.Context, args ...string) ([]byte, error)

// RoochConfig configures the CLI-backed gateway.
type RoochConfig struct {
	// PackageID is the deployed task package, e.g. "0x1234".
	PackageID string

	// AgentAddress is the account tasks are addressed to.
	AgentAddress string

	// Binary is the CLI executable. Default: "rooch".
	Binary string

	// Logger for command diagnostics. Default: a fresh logger.
	Logger *logging.Logger
}

// Validate checks required fields.
func (c *RoochConfig) Validate() error {
	if c.PackageID == "" {
		return oraclerr.Config("package_id is required")
	}
	if c.AgentAddress == "" {
		return oraclerr.Config("agent_address is required")
	}
	return nil
}

// RoochClient implements Gateway by shelling out to the rooch CLI.
// The CLI signs submissions with the local keystore; this client never
// handles key material itself.
type RoochClient struct {
	packageID string
	agent     string
	bin       string
	log       *logging.Logger
	run       runFunc
}

// NewRoochClient creates a CLI-backed gateway.
func NewRoochClient(cfg RoochConfig) (*RoochClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	bin := cfg.Binary
	if bin == "" {
		bin = "rooch"
	}
	log := cfg.Logger
	if log == nil {
		log = logging.New()
	}

	c := &RoochClient{
		packageID: cfg.PackageID,
		agent:     cfg.AgentAddress,
		bin:       bin,
		log:       log.WithComponent("ledger"),
	}
	c.run = c.execCLI
	return c, nil
}

// objectType returns the fully qualified task object type.
func (c *RoochClient) objectType() string {
	return c.packageID + "::task::Task"
}

// ListPending implements Gateway.
func (c *RoochClient) ListPending(ctx context.Context) ([]tasks.Task, error) {
	out, err := c.run(ctx,
		"object",
		"--object-type", c.objectType(),
		"--owner", c.agent,
		"--descending-order",
	)
	if err != nil {
		return nil, oraclerr.LedgerFault("list pending tasks", err)
	}

	list, err := parseTaskObjects(out)
	if err != nil {
		return nil, oraclerr.Wrap(oraclerr.ErrCodeDecodeFailed, "decode task objects", err)
	}
	return list, nil
}

// SubmitTransition implements Gateway.
func (c *RoochClient) SubmitTransition(ctx context.Context, call Call) error {
	out, err := c.run(ctx,
		"move", "run",
		"--sender", call.Sender,
		"--function", call.Function,
		"--args", "object:"+call.TaskID,
		"--args", "string:"+call.Payload,
		"--json",
	)
	if err != nil {
		return oraclerr.LedgerFault(fmt.Sprintf("submit %s", call.Function), err)
	}

	return classifyRunOutput(call.TaskID, out)
}

// Object fetches one object's raw JSON by ID. Used by inspection tooling;
// the poll loop itself only ever lists.
func (c *RoochClient) Object(ctx context.Context, objectID string) (json.RawMessage, error) {
	out, err := c.run(ctx, "object", "--id", objectID)
	if err != nil {
		return nil, oraclerr.LedgerFault(fmt.Sprintf("fetch object %s", objectID), err)
	}
	if !json.Valid(out) {
		return nil, oraclerr.Newf(oraclerr.ErrCodeDecodeFailed, "object %s: not valid JSON", objectID)
	}
	return json.RawMessage(out), nil
}

// execCLI runs the ledger binary and returns stdout.
func (c *RoochClient) execCLI(ctx context.Context, args ...string) ([]byte, error) {
	c.log.Debug("cli_exec", map[string]interface{}{
		"cmd": c.bin + " " + strings.Join(args, " "),
	})

	cmd := exec.CommandContext(ctx, c.bin, args...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%s: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, err
	}
	return out, nil
}

// --- CLI output decoding ---

type objectListJSON struct {
	Data []objectEntryJSON `json:"data"`
}

type objectEntryJSON struct {
	ID           string `json:"id"`
	DecodedValue struct {
		Type  string        `json:"type"`
		Value taskValueJSON `json:"value"`
	} `json:"decoded_value"`
}

type taskValueJSON struct {
	Name              string `json:"name"`
	Status            int    `json:"status"`
	Arguments         string `json:"arguments"`
	Resolver          string `json:"resolver"`
	ResponseChannelID string `json:"response_channel_id"`
}

// parseTaskObjects decodes an object-list response into eligible tasks.
// Objects of other types and tasks already in a terminal state are skipped.
func parseTaskObjects(data []byte) ([]tasks.Task, error) {
	var list objectListJSON
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}

	var out []tasks.Task
	for _, obj := range list.Data {
		if !strings.HasSuffix(obj.DecodedValue.Type, "::task::Task") {
			continue
		}
		status := tasks.Status(obj.DecodedValue.Value.Status)
		if !status.Eligible() {
			continue
		}
		out = append(out, tasks.Task{
			ID:              obj.ID,
			Name:            obj.DecodedValue.Value.Name,
			Status:          status,
			Arguments:       obj.DecodedValue.Value.Arguments,
			Resolver:        obj.DecodedValue.Value.Resolver,
			ResponseChannel: obj.DecodedValue.Value.ResponseChannelID,
		})
	}
	return out, nil
}

type runOutputJSON struct {
	Output struct {
		Status struct {
			Type      string `json:"type"`
			AbortCode string `json:"abort_code"`
		} `json:"status"`
	} `json:"output"`
}

// classifyRunOutput maps a transaction result to the gateway error taxonomy.
//
// The task_entry functions only abort on a status conflict (the task moved
// on without us), so a moveabort on a transition is the idempotent rejection
// the poll loop treats as success-no-op. Everything else non-executed is a
// real rejection.
func classifyRunOutput(taskID string, out []byte) error {
	var result runOutputJSON
	if err := json.Unmarshal(out, &result); err != nil {
		return oraclerr.Wrap(oraclerr.ErrCodeDecodeFailed, "decode transaction output", err)
	}

	switch result.Output.Status.Type {
	case "executed":
		return nil
	case "moveabort":
		return oraclerr.AlreadyTerminal(taskID)
	default:
		return oraclerr.Newf(oraclerr.ErrCodeLedgerRejected,
			"transaction failed with status %q", result.Output.Status.Type)
	}
}
