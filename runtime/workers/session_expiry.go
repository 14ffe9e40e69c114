package workers

import (
	"context"
	"fmt"
	"log/slog"
	"realtime-chat/contract"
	"realtime-chat/domain/chat"
	"time"
)

var _ contract.Worker = (*SessionExpiryWorker)(nil)

// SessionWatcher is the provider side of a session: it can tell whether the
// current session is still valid and drop it when it is not.
// InvalidateIf leaves a session other than the given one in place.
type SessionWatcher interface {
	CurrentSession() (chat.Session, bool)
	ValidateSession(session chat.Session) error
	InvalidateIf(session chat.Session) bool
}

// SessionExpiryWorker invalidates the provider session once its token stops validating.
type SessionExpiryWorker struct {
	log      *slog.Logger
	watcher  SessionWatcher
	interval time.Duration
}

func NewSessionExpiryWorker(log *slog.Logger, watcher SessionWatcher, interval time.Duration) *SessionExpiryWorker {
	return &SessionExpiryWorker{log: log, watcher: watcher, interval: interval}
}

func (w *SessionExpiryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.check()
		}
	}
}

func (w *SessionExpiryWorker) check() {
	session, ok := w.watcher.CurrentSession()
	if !ok {
		return
	}
	if err := w.watcher.ValidateSession(session); err != nil {
		if w.watcher.InvalidateIf(session) {
			w.log.Info(fmt.Sprintf("Session of %s is no longer valid, invalidated", session.Email), "error", err)
		}
	}
}
