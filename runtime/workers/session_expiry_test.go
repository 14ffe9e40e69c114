package workers

import (
	"context"
	"fmt"
	"log/slog"
	"realtime-chat/domain/chat"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeWatcher struct {
	mu          sync.Mutex
	session     *chat.Session
	valid       bool
	invalidated chan struct{}
	// onValidate runs once, after the session was read
	onValidate func(f *fakeWatcher)
	validated  chan struct{}
}

func (f *fakeWatcher) CurrentSession() (chat.Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.session == nil {
		return chat.Session{}, false
	}
	return *f.session, true
}

func (f *fakeWatcher) ValidateSession(chat.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.onValidate != nil {
		f.onValidate(f)
		f.onValidate = nil
	}
	if f.valid {
		return nil
	}
	return fmt.Errorf("token is expired")
}

func (f *fakeWatcher) InvalidateIf(session chat.Session) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.validated != nil {
		close(f.validated)
		f.validated = nil
	}
	if f.session == nil || f.session.UserID != session.UserID || f.session.Token != session.Token {
		return false
	}
	f.session = nil
	close(f.invalidated)
	return true
}

func TestSessionExpiry_Invalidates_Expired_Session(t *testing.T) {
	req := require.New(t)
	watcher := &fakeWatcher{
		session:     &chat.Session{UserID: "u1", Email: "a@x.com"},
		valid:       false,
		invalidated: make(chan struct{}),
	}
	worker := NewSessionExpiryWorker(slog.Default(), watcher, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	select {
	case <-watcher.invalidated:
		_, ok := watcher.CurrentSession()
		req.False(ok)
	case <-time.After(time.Second):
		req.Fail("expired session was never invalidated")
	}
}

func TestSessionExpiry_Keeps_Valid_Session(t *testing.T) {
	req := require.New(t)
	watcher := &fakeWatcher{
		session:     &chat.Session{UserID: "u1"},
		valid:       true,
		invalidated: make(chan struct{}),
	}
	worker := NewSessionExpiryWorker(slog.Default(), watcher, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req.ErrorIs(worker.Run(ctx), context.DeadlineExceeded)

	_, ok := watcher.CurrentSession()
	req.True(ok)
}

func TestSessionExpiry_Keeps_Session_Opened_After_Check(t *testing.T) {
	req := require.New(t)
	fresh := chat.Session{UserID: "u1", Email: "a@x.com", Token: "fresh"}
	validated := make(chan struct{})
	watcher := &fakeWatcher{
		session:     &chat.Session{UserID: "u1", Email: "a@x.com", Token: "expired"},
		invalidated: make(chan struct{}),
		validated:   validated,
		// The user logs in again while the old token is being checked
		onValidate: func(f *fakeWatcher) { f.session = &fresh },
	}
	worker := NewSessionExpiryWorker(slog.Default(), watcher, time.Hour)

	worker.check()

	<-validated
	current, ok := watcher.CurrentSession()
	req.True(ok)
	req.Equal(fresh, current)
}
