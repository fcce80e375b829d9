package agent

import (
	"encoding/json"
	"fmt"

	"github.com/fdadevices/openfda-agent/internal/model"
)

// loopRepeatLimit is deliberately tight: AgentState.MaxRetries caps PLAN at
// two re-plans (spec §4.8), so a tool+args pair seen twice already already
// means the third dispatch would be the final retry repeating itself.
const loopRepeatLimit = 2

// LoopDetector gives ASSESS a second, independent signal — beyond the
// Answer Assessor's sufficiency verdict — for when to stop retrying and
// fall through to ANSWER with whatever was gathered, rather than silently
// burning the rest of the retry budget on an unproductive repeat.
//
// Stateless: detection is based entirely on the ToolCall history passed in.
type LoopDetector struct{}

// LoopResult describes a detected repeat.
type LoopResult struct {
	Detected    bool
	ToolName    string
	Description string
}

// Check scans calls for a tool name + args pair that recurs loopRepeatLimit
// times or more. Calls that errored are still counted: a tool that keeps
// failing with the same args is as unproductive a repeat as one that keeps
// succeeding with the same args.
func (d *LoopDetector) Check(calls []model.ToolCall) LoopResult {
	freq := make(map[string]int, len(calls))
	for _, c := range calls {
		key := toolCallKey(c)
		freq[key]++
		if freq[key] >= loopRepeatLimit {
			return LoopResult{
				Detected:    true,
				ToolName:    c.ToolName,
				Description: fmt.Sprintf("%s was called %d times with the same arguments", c.ToolName, freq[key]),
			}
		}
	}
	return LoopResult{}
}

// toolCallKey deduplicates by tool name plus a canonical encoding of its
// args, so two calls only collide when they're asking for the same thing.
func toolCallKey(c model.ToolCall) string {
	encoded, err := json.Marshal(c.Args)
	if err != nil {
		return c.ToolName
	}
	return c.ToolName + ":" + string(encoded)
}
