// Package sender implements the optimistic send: one message in flight at a time,
// draft cleared on acceptance and given back on failure.
package sender

import (
	"context"
	"fmt"
	"log/slog"
	"realtime-chat/contract"
	"realtime-chat/domain/chat"
	"realtime-chat/errors"
	"strings"
	"sync"
)

type Coordinator struct {
	mu       sync.Mutex
	log      *slog.Logger
	store    contract.DocumentStore
	draft    *Draft
	pending  *chat.PendingSend
	// generation changes on every Reset
	generation uint64
	onChange   func()
}

// NewCoordinator builds a Coordinator. onChange, when not nil, is called after
// every PendingSend transition, outside the lock.
func NewCoordinator(log *slog.Logger, store contract.DocumentStore, draft *Draft, onChange func()) *Coordinator {
	if onChange == nil {
		onChange = func() {}
	}
	return &Coordinator{log: log, store: store, draft: draft, onChange: onChange}
}

// Send appends text on behalf of session and blocks until the store resolves.
// Only one send may be in flight; a second call fails fast with ErrSendInProgress.
// The text is appended as entered; trimming only decides whether it is empty.
func (c *Coordinator) Send(ctx context.Context, text string, session *chat.Session) error {
	return c.SendIn(ctx, c.Generation(), text, session)
}

// Generation identifies the session the coordinator currently serves.
func (c *Coordinator) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// SendIn is Send for a session read while generation was current.
// If Reset ran since, the session is gone and nothing is appended.
func (c *Coordinator) SendIn(ctx context.Context, generation uint64, text string, session *chat.Session) error {
	if strings.TrimSpace(text) == "" {
		return errors.ErrEmptyMessage
	}
	if session == nil {
		return errors.ErrNoSession
	}

	c.mu.Lock()
	if c.generation != generation {
		c.mu.Unlock()
		return errors.ErrNoSession
	}
	if c.pending != nil {
		c.mu.Unlock()
		return errors.ErrSendInProgress
	}
	pending := &chat.PendingSend{Text: text, UserID: session.UserID, Status: chat.SendSending}
	c.pending = pending
	c.draft.Set("")
	c.mu.Unlock()
	c.onChange()

	err := c.store.Append(ctx, chat.OutgoingMessage{
		Text:      text,
		UserID:    session.UserID,
		UserEmail: session.Email,
	})

	c.mu.Lock()
	owned := c.pending == pending
	if owned {
		c.pending = nil
		if err != nil {
			c.draft.Set(text)
		}
	}
	c.mu.Unlock()
	if owned {
		c.onChange()
	}

	if err != nil {
		c.log.Error("Failed to send message", "user", session.UserID, "error", err)
		return fmt.Errorf("%w: %w", errors.ErrSendFailed, err)
	}
	return nil
}

// Pending returns a copy of the in-flight send, if any.
func (c *Coordinator) Pending() (chat.PendingSend, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return chat.PendingSend{}, false
	}
	return *c.pending, true
}

func (c *Coordinator) Sending() bool {
	_, ok := c.Pending()
	return ok
}

// Reset drops the in-flight send on session teardown.
// A later resolution of the dropped append leaves state untouched.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	dropped := c.pending != nil
	c.pending = nil
	c.generation++
	c.mu.Unlock()
	if dropped {
		c.onChange()
	}
}
