package agent

import (
	"strings"
	"testing"
	"time"
)

func TestAccumulator(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("Deadlift technique notes. ", 4)

	tests := []struct {
		name     string
		result   string
		wantKind fragmentKind
		want     string
	}{
		{"reasoning", "I will check the plan.", fragmentReasoning, "I will check the plan."},
		{"long excerpt", "tool read_file returned: \"" + long + "\"", fragmentExcerpt, long},
		{"short excerpt", "tool read_file returned: tiny", fragmentNone, ""},
		{
			"excerpt followed by other report",
			"tool read_file returned: \"" + long + "\"\ntool save_report returned: saved reports/x.md",
			fragmentExcerpt, long,
		},
		{
			"other report followed by excerpt",
			"tool save_report returned: saved reports/x.md\ntool read_file returned: \"" + long + "\"",
			fragmentExcerpt, long,
		},
		{
			"two excerpts",
			"tool read_file returned: \"" + long + "\"\ntool read_file returned: '" + long + "'",
			fragmentExcerpt, long + "\n\n" + long,
		},
		{"only other reports", "tool save_report returned: ok\ntool terminate returned: done", fragmentNone, ""},
		{"other tool report", "tool terminate returned: done", fragmentNone, ""},
		{"returned result", "search returned result: 3 hits", fragmentNone, ""},
		{"think placeholder", DefaultThinkResult, fragmentNone, ""},
		{"no calls placeholder", NoToolCallsResult, fragmentNone, ""},
		{"blank", "   ", fragmentNone, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			acc := accumulator{caps: builtinCapabilities{}}
			got, kind := acc.add(tt.result)
			if kind != tt.wantKind || got != tt.want {
				t.Errorf("add = (%q, %d), want (%q, %d)", got, kind, tt.want, tt.wantKind)
			}
			if acc.String() != tt.want {
				t.Errorf("String = %q", acc.String())
			}
		})
	}
}

func TestAccumulator_JoinsWithBlankLine(t *testing.T) {
	t.Parallel()

	acc := accumulator{caps: builtinCapabilities{}}
	acc.add("first")
	acc.add("tool terminate returned: x")
	acc.add("second")
	if acc.String() != "first\n\nsecond" {
		t.Errorf("String = %q", acc.String())
	}
}

func TestResolveFinal(t *testing.T) {
	t.Parallel()

	caps := builtinCapabilities{}
	note := truncationNote(4)

	tests := []struct {
		name string
		out  outcome
		acc  string
		want string
	}{
		{"exhausted with content", outcome{exhausted: true, last: "x"}, "notes", "notes\n\n" + note},
		{"exhausted with last", outcome{exhausted: true, last: "x"}, "", "x\n\n" + note},
		{"exhausted empty", outcome{exhausted: true}, "", IncompleteResult},
		{"terminal with content", outcome{last: "tool terminate returned: ok"}, "notes", "notes"},
		{"terminal empty", outcome{last: "tool other returned: a\ntool terminate returned: ok"}, "", NoOutputResult},
		{"plain", outcome{last: "answer"}, "notes", "answer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := resolveFinal(tt.out, tt.acc, 4, caps); got != tt.want {
				t.Errorf("resolveFinal = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTimeoutAndFailureContent(t *testing.T) {
	t.Parallel()

	if got := timeoutContent("", time.Minute); got != "The task timed out after 1m0s." {
		t.Errorf("timeoutContent empty = %q", got)
	}
	if got := timeoutContent("partial", time.Minute); !strings.HasPrefix(got, "partial\n\n") {
		t.Errorf("timeoutContent = %q", got)
	}
	if got := failureContent("", errTest); got != "Error: test failure" {
		t.Errorf("failureContent empty = %q", got)
	}
	if got := apology(errTest); got != "Sorry, the task could not be completed: test failure" {
		t.Errorf("apology = %q", got)
	}
}
