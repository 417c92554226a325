package harness

import (
	"strings"

	ports "github.com/ZanzyTHEbar/context-relay/relay/harness/ports"
)

// PromptBuilder assembles the provider input for one request.
type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder { return &PromptBuilder{} }

// Build returns [system?] + history + user. The system turn is emitted only
// when system is non-empty. history is copied, never modified.
func (b *PromptBuilder) Build(system string, history []ports.Turn, user ports.Turn, meta map[string]string) ports.PromptInput {
	norm := func(s string) string { return strings.ReplaceAll(s, "\r\n", "\n") }

	messages := make([]ports.Turn, 0, len(history)+2)
	if system != "" {
		messages = append(messages, ports.Turn{Role: ports.RoleSystem, Content: norm(system)})
	}
	messages = append(messages, history...)
	messages = append(messages, user)

	return ports.PromptInput{
		Messages: messages,
		Meta:     meta,
	}
}
