package models

// Role identifies who authored a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatTurn represents a single message in a conversation.
type ChatTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Greeting is the assistant turn every session starts with and returns to on reset.
const Greeting = `Hi, I'm your personal assistant connected to a hosted language model.
How can I help you?

- Who are you?
- How do you work?
- What are the limits of your knowledge?
- Can you help me with my homework, work or studies?
- Do you have emotions or consciousness?
- Anything you like`

// PDFUploadNotice is the user turn recorded when a PDF is submitted for analysis.
const PDFUploadNotice = "I have uploaded a PDF file for you to analyze."

// SeedTurns returns a fresh turn list holding only the greeting.
func SeedTurns() []ChatTurn {
	return []ChatTurn{{Role: RoleAssistant, Content: Greeting}}
}

// SendMessageRequest is the payload sent to the messages endpoint.
type SendMessageRequest struct {
	Prompt string `json:"prompt"`
}

// SendMessageResponse carries the assistant reply and the updated transcript.
type SendMessageResponse struct {
	Reply ChatTurn   `json:"reply"`
	Turns []ChatTurn `json:"turns"`
}
