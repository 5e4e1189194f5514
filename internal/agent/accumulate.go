package agent

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/flemzord/fitagent/internal/tool"
	"github.com/flemzord/fitagent/internal/tool/builtin"
)

// minExcerptRunes is the length a document excerpt must exceed to be kept.
const minExcerptRunes = 50

var (
	reportPrefix = regexp.MustCompile(`^tool (\S+) returned: `)
	reportLine   = regexp.MustCompile(`(?m)^tool (\S+) returned: `)
)

// CapabilityLookup resolves the capability tags of a tool by name.
// *tool.Registry implements it.
type CapabilityLookup interface {
	Capabilities(name string) tool.Capabilities
}

// builtinCapabilities tags the builtin tools when the agent has no catalog.
type builtinCapabilities struct{}

func (builtinCapabilities) Capabilities(name string) tool.Capabilities {
	switch name {
	case builtin.TerminateName:
		return tool.Capabilities{IsTerminal: true}
	case builtin.SaveReportName:
		return tool.Capabilities{PersistsContent: true}
	case builtin.ReadFileName:
		return tool.Capabilities{ReadsContent: true}
	}
	return tool.Capabilities{}
}

type fragmentKind int

const (
	fragmentNone fragmentKind = iota
	fragmentExcerpt
	fragmentReasoning
)

// accumulator collects the substantive text of a streaming run from its
// step results.
type accumulator struct {
	caps CapabilityLookup
	b    strings.Builder
}

// add feeds one step result and returns what, if anything, was kept.
// A result made of tool reports keeps only the long payloads of
// content-reading tools, one report at a time.
func (a *accumulator) add(result string) (string, fragmentKind) {
	if reportPrefix.MatchString(result) {
		var kept []string
		for _, r := range splitReports(result) {
			if !a.caps.Capabilities(r.tool).ReadsContent {
				continue
			}
			excerpt := unquote(r.payload)
			if utf8.RuneCountInString(excerpt) <= minExcerptRunes {
				continue
			}
			a.append(excerpt)
			kept = append(kept, excerpt)
		}
		if len(kept) == 0 {
			return "", fragmentNone
		}
		return strings.Join(kept, "\n\n"), fragmentExcerpt
	}

	if strings.Contains(result, "returned result") || isPlaceholder(result) {
		return "", fragmentNone
	}
	fragment := strings.TrimSpace(result)
	if fragment == "" {
		return "", fragmentNone
	}
	a.append(fragment)
	return fragment, fragmentReasoning
}

type toolReport struct {
	tool    string
	payload string
}

// splitReports cuts a step result into its "tool <name> returned: " lines.
// A payload runs until the next report line.
func splitReports(result string) []toolReport {
	idx := reportLine.FindAllStringSubmatchIndex(result, -1)
	reports := make([]toolReport, 0, len(idx))
	for i, m := range idx {
		end := len(result)
		if i+1 < len(idx) {
			end = idx[i+1][0]
		}
		reports = append(reports, toolReport{
			tool:    result[m[2]:m[3]],
			payload: strings.TrimSuffix(result[m[1]:end], "\n"),
		})
	}
	return reports
}

func (a *accumulator) append(s string) {
	if a.b.Len() > 0 {
		a.b.WriteString("\n\n")
	}
	a.b.WriteString(s)
}

func (a *accumulator) String() string { return a.b.String() }

func isPlaceholder(s string) bool {
	s = strings.TrimSpace(s)
	return s == DefaultThinkResult || s == NoToolCallsResult
}

// unquote strips one pair of matching surrounding quotes.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// isTerminalReport reports whether result is a tool report naming a
// terminal tool.
func isTerminalReport(result string, caps CapabilityLookup) bool {
	for _, m := range reportLine.FindAllStringSubmatch(result, -1) {
		if caps.Capabilities(m[1]).IsTerminal {
			return true
		}
	}
	return false
}
