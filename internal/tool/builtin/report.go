package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/flemzord/fitagent/internal/tool"
)

// ReportDir is the workspace subdirectory reports are written to.
const ReportDir = "reports"

// SaveReport writes a report into the workspace. Its content argument is
// also kept by the agent as the preferred final answer.
type SaveReport struct {
	// Now overrides the clock used for generated file names.
	Now func() time.Time
}

// Name implements tool.Tool.
func (*SaveReport) Name() string { return SaveReportName }

// Description implements tool.Tool.
func (*SaveReport) Description() string {
	return "Save the final report (plan, summary, analysis) as a markdown file in the workspace."
}

// Schema implements tool.Tool.
func (*SaveReport) Schema() json.RawMessage {
	return json.RawMessage(`{
	"type": "object",
	"properties": {
		"content": {"type": "string", "minLength": 1, "description": "Full report text in markdown."},
		"filename": {"type": "string", "pattern": "^[A-Za-z0-9._-]+$", "description": "Optional file name."}
	},
	"required": ["content"]
}`)
}

// Capabilities implements tool.Tool.
func (*SaveReport) Capabilities() tool.Capabilities {
	return tool.Capabilities{PersistsContent: true}
}

// Execute implements tool.Tool.
func (s *SaveReport) Execute(_ context.Context, args json.RawMessage, env tool.ExecutionEnv) (tool.Output, error) {
	var in struct {
		Content  string `json:"content"`
		Filename string `json:"filename"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return tool.Output{}, err
	}
	if env.Workspace == "" {
		return tool.Output{}, ErrMissingWorkspace
	}

	name := in.Filename
	if name == "" {
		now := time.Now
		if s.Now != nil {
			now = s.Now
		}
		name = "report-" + now().UTC().Format("20060102-150405") + ".md"
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return tool.Output{Content: "Error: invalid report file name " + name, IsError: true}, nil
	}

	root, err := os.OpenRoot(env.Workspace)
	if err != nil {
		return tool.Output{}, fmt.Errorf("opening workspace: %w", err)
	}
	defer root.Close()

	if err := root.Mkdir(ReportDir, 0o750); err != nil && !os.IsExist(err) {
		return tool.Output{}, fmt.Errorf("creating report dir: %w", err)
	}
	rel := path.Join(ReportDir, name)
	f, err := root.OpenFile(rel, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return tool.Output{}, fmt.Errorf("creating report: %w", err)
	}
	if _, err := f.WriteString(in.Content); err != nil {
		_ = f.Close()
		return tool.Output{}, fmt.Errorf("writing report: %w", err)
	}
	if err := f.Close(); err != nil {
		return tool.Output{}, fmt.Errorf("closing report: %w", err)
	}

	return tool.Output{Content: fmt.Sprintf("Report saved to %s (%d bytes)", rel, len(in.Content))}, nil
}
