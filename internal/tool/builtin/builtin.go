// Package builtin provides the in-process tools every agent ships with:
// the terminal tool, the report writer and the workspace file reader.
package builtin

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/flemzord/fitagent/internal/tool"
)

// Tool names.
const (
	TerminateName  = "terminate"
	SaveReportName = "save_report"
	ReadFileName   = "read_file"
)

// ErrMissingWorkspace is returned by file tools run without a workspace.
var ErrMissingWorkspace = errors.New("builtin: workspace is not configured")

// Register adds all builtin tools to the registry.
func Register(r *tool.Registry) error {
	for _, t := range All() {
		if err := r.Register(t); err != nil {
			return fmt.Errorf("registering builtin %s: %w", t.Name(), err)
		}
	}
	return nil
}

// All returns a fresh instance of every builtin tool.
func All() []tool.Tool {
	return []tool.Tool{
		&Terminate{},
		&SaveReport{},
		&ReadFile{MaxBytes: DefaultReadLimit},
	}
}

func decodeArgs(args json.RawMessage, v any) error {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %w", tool.ErrInvalidArguments, err)
	}
	return nil
}
