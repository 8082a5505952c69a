package models

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single chat turn sent to the model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Exchange is one answered question kept in the optional history store.
type Exchange struct {
	ID        int64     `json:"id"`
	Query     string    `json:"query"`
	Answer    string    `json:"answer"`
	UsedNews  bool      `json:"used_news"`
	CreatedAt time.Time `json:"created_at"`
}
