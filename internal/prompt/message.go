package prompt

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ParseRole validates a wire role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return Role(s), nil
	default:
		return "", invalidRoleError{role: s}
	}
}

// MediaKind distinguishes attachment payload types.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// Media is one attachment carried by a message.
type Media struct {
	Kind MediaKind
	// URL or data URI; the backend resolves it when preparing the prompt.
	URL string
}

// Message is one conversation turn in backend-neutral form.
type Message struct {
	Role  Role
	Text  string
	Media []Media
}

// Protected reports whether trimming must leave the message untouched.
// System and tool turns anchor the conversation, and media cannot be
// shortened token-by-token.
func (m Message) Protected() bool {
	if m.Role == RoleSystem || m.Role == RoleTool {
		return true
	}
	return len(m.Media) > 0
}
