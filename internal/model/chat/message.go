package chat

import "time"

// Sender 标识消息来源。
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message persists individual turns for audit/debug.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Sender    Sender    `json:"sender"`
	Kind      string    `json:"kind,omitempty"`
	Content   string    `json:"content"`
	State     string    `json:"state,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
