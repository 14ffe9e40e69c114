// Package chat contains core concepts of the chat client.
// This file defines Message values and related rules.
// Identifiers and timestamps are assigned by the store, never by the client.
package chat

import (
	"strings"
	"time"
)

// Message represents a persisted chat entry as delivered by the store.
type Message struct {
	ID        string // assigned by the store
	Text      string
	CreatedAt time.Time // assigned by the store
	UserID    string
	UserEmail string
}

// DisplayName is the local part of the author email.
func (m Message) DisplayName() string {
	name, _, _ := strings.Cut(m.UserEmail, "@")
	return name
}

func (m Message) IsOwnedBy(userID string) bool {
	return m.UserID == userID
}

// OutgoingMessage is the payload of an append.
// It carries neither identifier nor timestamp.
type OutgoingMessage struct {
	Text      string
	UserID    string
	UserEmail string
}
