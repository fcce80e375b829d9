package session

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fdadevices/openfda-agent/internal/llm"
	"github.com/fdadevices/openfda-agent/internal/model"
	"github.com/fdadevices/openfda-agent/internal/util"
)

// ToMessages converts a session's persisted messages into an LLM message
// list, trimming the oldest entries until the total character count is
// within budget. budget == 0 means no limit. At least the most recent
// message is always included, even when it alone exceeds the budget.
func ToMessages(messages []model.Message, budget int) []llm.Message {
	if len(messages) == 0 {
		return nil
	}

	start := 0
	if budget > 0 {
		total := 0
		for i := len(messages) - 1; i >= 0; i-- {
			cost := len([]rune(messages[i].Content))
			if total+cost > budget {
				start = i + 1
				break
			}
			total += cost
		}
		if start >= len(messages) {
			start = len(messages) - 1
		}
	}

	out := make([]llm.Message, 0, len(messages)-start)
	for _, m := range messages[start:] {
		var calls []llm.ToolCall
		for _, tc := range m.ToolCalls {
			args, _ := json.Marshal(tc.Args)
			calls = append(calls, llm.ToolCall{ID: tc.ID, Name: tc.ToolName, Arguments: args})
		}
		out = append(out, llm.Message{
			Role:       m.Role,
			Content:    m.Content,
			ToolCalls:  calls,
			ToolCallID: m.ToolCallOf,
		})
	}
	return out
}

// ToProblemPrefix formats a session's message history as a plain-text
// context preamble, used to prepend conversation context ahead of a new
// question when a provider lacks native multi-turn support.
func ToProblemPrefix(messages []model.Message, budget int) string {
	if len(messages) == 0 {
		return ""
	}

	msgs := ToMessages(messages, budget)
	if len(msgs) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("[conversation history]\n")
	round := 1
	for _, m := range msgs {
		label := "user"
		if m.Role == llm.RoleAssistant {
			label = "assistant"
		} else if m.Role == llm.RoleTool {
			label = "tool"
		}
		sb.WriteString(fmt.Sprintf("%d - %s: %s\n", round, label, util.TruncateRunes(m.Content, 500)))
		if m.Role == llm.RoleAssistant {
			round++
		}
	}
	return sb.String()
}
