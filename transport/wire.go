// Package transport carries the document store over HTTP and websocket,
// so several chat clients can share one feed.
// Appends are plain JSON POSTs; each subscription is one websocket connection
// on which the server pushes JSON frames.
package transport

import (
	"realtime-chat/domain/chat"
	"time"

	"github.com/samber/lo"
)

const (
	appendPath = "/api/messages"
	streamPath = "/api/messages/stream"
	healthPath = "/healthz"

	frameSnapshot = "snapshot"
	frameError    = "error"
)

type messageFrame struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UserID    string    `json:"user_id"`
	UserEmail string    `json:"user_email"`
}

// streamFrame is the only frame type sent on a stream.
// An error frame is the last one of its connection.
type streamFrame struct {
	Type     string         `json:"type"`
	Messages []messageFrame `json:"messages,omitempty"`
	Error    string         `json:"error,omitempty"`
}

type appendRequest struct {
	Text      string `json:"text" binding:"required"`
	UserID    string `json:"user_id" binding:"required"`
	UserEmail string `json:"user_email"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toFrames(messages []chat.Message) []messageFrame {
	return lo.Map(messages, func(m chat.Message, _ int) messageFrame {
		return messageFrame{
			ID:        m.ID,
			Text:      m.Text,
			CreatedAt: m.CreatedAt,
			UserID:    m.UserID,
			UserEmail: m.UserEmail,
		}
	})
}

func fromFrames(frames []messageFrame) []chat.Message {
	return lo.Map(frames, func(f messageFrame, _ int) chat.Message {
		return chat.Message{
			ID:        f.ID,
			Text:      f.Text,
			CreatedAt: f.CreatedAt,
			UserID:    f.UserID,
			UserEmail: f.UserEmail,
		}
	})
}
