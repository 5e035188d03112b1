// Package domain contains core domain types for the order assistant.
package domain

import "time"

// Role identifies the author of a transcript message.
type Role string

const (
	// RoleUser marks a message typed by the user.
	RoleUser Role = "user"
	// RoleBot marks a message authored by the assistant (or a synthetic error).
	RoleBot Role = "bot"
)

// Message is one transcript entry. Messages are never modified after they are appended.
type Message struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// IsUser reports whether the message was typed by the user.
func (m Message) IsUser() bool {
	return m.Role == RoleUser
}
