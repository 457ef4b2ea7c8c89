package core

const (
	SenderUser   = "User"
	SenderSystem = "System"
)

// ChatMessage is one turn of a conversation. History lives on the client and
// is resent with every request; the server never persists it.
type ChatMessage struct {
	Text   string `json:"text"`
	Sender string `json:"sender"` // "User" or "System"
}
