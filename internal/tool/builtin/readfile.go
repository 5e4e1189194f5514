package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/flemzord/fitagent/internal/tool"
)

// DefaultReadLimit bounds the bytes read_file returns.
const DefaultReadLimit = 256 << 10 // 256 KiB

// ReadFile reads a text file inside the workspace. Paths escaping the
// workspace are rejected.
type ReadFile struct {
	MaxBytes int64
}

// Name implements tool.Tool.
func (*ReadFile) Name() string { return ReadFileName }

// Description implements tool.Tool.
func (*ReadFile) Description() string {
	return "Read a text document (training log, nutrition plan, knowledge base entry) from the workspace."
}

// Schema implements tool.Tool.
func (*ReadFile) Schema() json.RawMessage {
	return json.RawMessage(`{
	"type": "object",
	"properties": {
		"path": {"type": "string", "minLength": 1, "description": "Path relative to the workspace."}
	},
	"required": ["path"]
}`)
}

// Capabilities implements tool.Tool.
func (*ReadFile) Capabilities() tool.Capabilities {
	return tool.Capabilities{ReadsContent: true}
}

// Execute implements tool.Tool.
func (r *ReadFile) Execute(_ context.Context, args json.RawMessage, env tool.ExecutionEnv) (tool.Output, error) {
	var in struct {
		Path string `json:"path"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return tool.Output{}, err
	}
	if env.Workspace == "" {
		return tool.Output{}, ErrMissingWorkspace
	}

	root, err := os.OpenRoot(env.Workspace)
	if err != nil {
		return tool.Output{}, fmt.Errorf("opening workspace: %w", err)
	}
	defer root.Close()

	f, err := root.Open(in.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return tool.Output{Content: "Error: file not found: " + in.Path, IsError: true}, nil
	}
	if err != nil {
		return tool.Output{Content: "Error: " + err.Error(), IsError: true}, nil
	}
	defer f.Close()

	limit := r.MaxBytes
	if limit <= 0 {
		limit = DefaultReadLimit
	}
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return tool.Output{}, fmt.Errorf("reading %s: %w", in.Path, err)
	}
	content := string(data)
	if int64(len(data)) > limit {
		content = string(data[:limit]) + "\n...(truncated)"
	}
	return tool.Output{Content: content}, nil
}
