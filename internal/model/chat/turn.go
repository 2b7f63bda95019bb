package chat

import "time"

// Turn is one user message paired with the reply it produced.
type Turn struct {
	ID        string    `json:"id"`
	UserText  string    `json:"userText"`
	BotText   string    `json:"botText"`
	CreatedAt time.Time `json:"createdAt"`
}
