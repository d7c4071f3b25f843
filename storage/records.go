package storage

import (
	"fmt"
	"time"
)

// UserAccount is the root identity. UserToken is rotated to revoke every
// outstanding session at once.
type UserAccount struct {
	ID        string    `json:"id"`
	UserToken string    `json:"user_token"`
	CreatedAt time.Time `json:"created_at"`
}

// OmiAccount links an Omi device user id to a UserAccount.
type OmiAccount struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TelegramAccount links a Telegram user id to a UserAccount.
type TelegramAccount struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	FirstName string    `json:"first_name"`
	Username  *string   `json:"username,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DefaultTelegramFirstName is the placeholder name stored before the
// user's real name is learned from a bot message.
func DefaultTelegramFirstName(id int64) string {
	return fmt.Sprintf("user %d", id)
}

// DestinationKind is the persisted discriminator for a destination chat.
type DestinationKind int

const (
	DestinationTelegramDM    DestinationKind = 1
	DestinationTelegramGroup DestinationKind = 2
)

func (k DestinationKind) Valid() bool {
	return k == DestinationTelegramDM || k == DestinationTelegramGroup
}

// Destination is a Telegram chat that actions can deliver to.
type Destination struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	ChatID    int64           `json:"chat_id"`
	Name      string          `json:"name"`
	Kind      DestinationKind `json:"kind"`
	CreatedAt time.Time       `json:"created_at"`
}

// Action sends Message to its destination whenever Prompt is heard.
type Action struct {
	ID            string    `json:"id"`
	DestinationID string    `json:"destination_id"`
	Prompt        string    `json:"prompt"`
	Message       string    `json:"message"`
	CreatedAt     time.Time `json:"created_at"`
}

// ActionWithDestination is an Action joined with the destination it targets.
type ActionWithDestination struct {
	Action
	Destination Destination `json:"destination"`
}
