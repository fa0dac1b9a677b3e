package domain

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of the conversation history kept by the chat widget.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ValidRole reports whether role is one the widget is allowed to send.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}

// ReplyEnvelope is the only response shape the widget understands.
type ReplyEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func Reply(message string) ReplyEnvelope {
	return ReplyEnvelope{Success: true, Message: message}
}

func Failure(text string) ReplyEnvelope {
	return ReplyEnvelope{Success: false, Error: text}
}
