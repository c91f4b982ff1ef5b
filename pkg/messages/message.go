package messages

import (
	"fmt"
	"strings"
)

// Role identifies the author of a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// Message is a single entry of a conversation. The adapters treat it as
// opaque and forward it to the provider as-is.
type Message struct {
	Role       Role           `json:"role"`
	Content    ContentOrParts `json:"content"`
	Name       string         `json:"name,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

// Validate checks that the message has a known role and that tool
// messages reference the call they answer.
func (m Message) Validate() error {
	if !m.Role.Valid() {
		return fmt.Errorf("unknown message role %q", m.Role)
	}
	if m.Role == RoleTool && strings.TrimSpace(m.ToolCallID) == "" {
		return fmt.Errorf("tool message requires a tool_call_id")
	}
	return nil
}

// System creates a system message.
func System(text string) Message {
	return Message{Role: RoleSystem, Content: ContentOrParts{Content: text}}
}

// User creates a plain text user message.
func User(text string) Message {
	return Message{Role: RoleUser, Content: ContentOrParts{Content: text}}
}

// UserParts creates a user message made of several content parts.
func UserParts(parts ...ContentPart) Message {
	return Message{Role: RoleUser, Content: ContentOrParts{Parts: parts}}
}

// Assistant creates an assistant message, typically a previous model answer.
func Assistant(text string) Message {
	return Message{Role: RoleAssistant, Content: ContentOrParts{Content: text}}
}

// Tool creates a tool result message for the given call.
func Tool(toolCallID, text string) Message {
	return Message{Role: RoleTool, ToolCallID: toolCallID, Content: ContentOrParts{Content: text}}
}
