// Package model defines data structures for the gateway.
package model

// Role represents the role of a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a conversation. Messages are immutable once
// appended; their order within a conversation is the dialogue history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
