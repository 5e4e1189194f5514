package agent

import (
	"encoding/json"

	"github.com/flemzord/fitagent/internal/provider"
)

// DefaultRepeatThreshold is how many identical tool calls are tolerated
// before a repetition warning is logged.
const DefaultRepeatThreshold = 3

// repeatDetector tracks repeated identical tool calls.
type repeatDetector struct {
	threshold int
	counts    map[string]int
}

func newRepeatDetector(threshold int) *repeatDetector {
	if threshold <= 0 {
		threshold = DefaultRepeatThreshold
	}
	return &repeatDetector{
		threshold: threshold,
		counts:    make(map[string]int),
	}
}

// normalizeArgs returns a canonical JSON representation of args so that
// semantically identical payloads with different key ordering produce the
// same string (e.g. {"a":1,"b":2} and {"b":2,"a":1}).
func normalizeArgs(args json.RawMessage) string {
	var m any
	if err := json.Unmarshal(args, &m); err != nil {
		return string(args)
	}
	normalized, err := json.Marshal(m)
	if err != nil {
		return string(args)
	}
	return string(normalized)
}

// record registers a tool call and reports whether the threshold has been
// reached for this exact call signature.
func (d *repeatDetector) record(name string, args json.RawMessage) bool {
	key := name + ":" + normalizeArgs(args)
	d.counts[key]++
	return d.counts[key] >= d.threshold
}

func (d *repeatDetector) reset() {
	clear(d.counts)
}

// usageTracker accumulates token usage across the LLM calls of one run.
// It is owned by the goroutine driving the run.
type usageTracker struct {
	usage provider.TokenUsage
	calls int
}

func (t *usageTracker) add(u provider.TokenUsage) {
	t.usage = t.usage.Add(u)
	t.calls++
}

func (t *usageTracker) total() provider.TokenUsage {
	return t.usage
}
