package builtin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/flemzord/fitagent/internal/tool"
)

// Terminate ends the task. The agent finishes the run as soon as this
// tool's response is observed.
type Terminate struct{}

// Name implements tool.Tool.
func (*Terminate) Name() string { return TerminateName }

// Description implements tool.Tool.
func (*Terminate) Description() string {
	return "Terminate the interaction when the request is met or cannot be served any further."
}

// Schema implements tool.Tool.
func (*Terminate) Schema() json.RawMessage {
	return json.RawMessage(`{
	"type": "object",
	"properties": {
		"status": {
			"type": "string",
			"enum": ["success", "failure"],
			"description": "The finish status of the interaction."
		}
	},
	"required": ["status"]
}`)
}

// Capabilities implements tool.Tool.
func (*Terminate) Capabilities() tool.Capabilities {
	return tool.Capabilities{IsTerminal: true}
}

// Execute implements tool.Tool.
func (*Terminate) Execute(_ context.Context, args json.RawMessage, _ tool.ExecutionEnv) (tool.Output, error) {
	var in struct {
		Status string `json:"status"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return tool.Output{}, err
	}
	if in.Status == "" {
		in.Status = "success"
	}
	return tool.Output{
		Content: fmt.Sprintf("The interaction has been completed with status: %s", in.Status),
	}, nil
}
