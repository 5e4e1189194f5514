package agent

import (
	"fmt"
	"strings"
	"time"
)

// Final answers used when nothing better is available.
const (
	IncompleteResult = "The task could not be completed within the allowed number of steps."
	NoOutputResult   = "The task completed without extractable output."
)

// outcome is what the loop leaves behind for final-result resolution.
type outcome struct {
	lines     []string
	last      string
	exhausted bool
}

func truncationLine(maxSteps int) string {
	return fmt.Sprintf("Terminated: reached max steps (%d)", maxSteps)
}

func truncationNote(maxSteps int) string {
	return fmt.Sprintf("(Stopped after reaching the limit of %d steps.)", maxSteps)
}

// resolveFinal picks the answer of a streaming run.
func resolveFinal(out outcome, acc string, maxSteps int, caps CapabilityLookup) string {
	acc = strings.TrimSpace(acc)

	if out.exhausted {
		switch {
		case acc != "":
			return acc + "\n\n" + truncationNote(maxSteps)
		case strings.TrimSpace(out.last) != "":
			return out.last + "\n\n" + truncationNote(maxSteps)
		default:
			return IncompleteResult
		}
	}

	if isTerminalReport(out.last, caps) {
		if acc != "" {
			return acc
		}
		return NoOutputResult
	}
	return out.last
}

// timeoutContent is the best-effort answer of a run that timed out.
func timeoutContent(acc string, timeout time.Duration) string {
	acc = strings.TrimSpace(acc)
	if acc == "" {
		return fmt.Sprintf("The task timed out after %s.", timeout)
	}
	return fmt.Sprintf("%s\n\n(The task timed out after %s; the answer above may be incomplete.)", acc, timeout)
}

// failureContent is the answer of a run that failed outside a step.
func failureContent(acc string, err error) string {
	acc = strings.TrimSpace(acc)
	if acc == "" {
		return "Error: " + err.Error()
	}
	return fmt.Sprintf("%s\n\n(The task stopped early: %v)", acc, err)
}

// apology is the blocking-mode answer of a run that failed outside a step.
func apology(err error) string {
	return "Sorry, the task could not be completed: " + err.Error()
}
