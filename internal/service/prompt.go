package service

import (
	"strings"

	"github.com/inkwell-ai/ocr-gateway/internal/model"
)

// RenderPrompt flattens a conversation's history into a single prompt for
// the daemon's stateless completion endpoint, which has no notion of
// structured chat history. Each message becomes one "<Label>: <content>"
// line in append order; the trailing bare "Assistant: " cue makes the model
// continue in the assistant's voice. The function is pure: identical history
// always yields the identical string.
func RenderPrompt(history []model.Message) string {
	var b strings.Builder
	for _, msg := range history {
		switch msg.Role {
		case model.RoleSystem:
			b.WriteString("System: ")
		case model.RoleUser:
			b.WriteString("User: ")
		case model.RoleAssistant:
			b.WriteString("Assistant: ")
		default:
			continue
		}
		b.WriteString(msg.Content)
		b.WriteByte('\n')
	}
	b.WriteString("Assistant: ")
	return b.String()
}
