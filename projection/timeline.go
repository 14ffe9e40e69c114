package projection

import (
	"context"
	"log/slog"
	"realtime-chat/contract"
	"realtime-chat/domain/chat"
	"sync"
)

var _ contract.SnapshotSink = (*Timeline)(nil)

const (
	loadingPlaceholder     = "Loading messages..."
	emptyPlaceholder       = "No messages yet. Start the conversation!"
	unavailablePlaceholder = "Feed unavailable."
)

// Timeline holds the latest authoritative snapshot and the state of the feed.
type Timeline struct {
	mu       sync.RWMutex
	log      *slog.Logger
	snapshot chat.Snapshot
	status   chat.FeedStatus
	err      error
	onChange func()
}

// NewTimeline returns a loading timeline. onChange, when set, is called after every update.
func NewTimeline(log *slog.Logger, onChange func()) *Timeline {
	return &Timeline{log: log, status: chat.FeedLoading, onChange: onChange}
}

// Consume replaces the current snapshot.
func (t *Timeline) Consume(_ context.Context, snapshot chat.Snapshot) error {
	t.mu.Lock()
	t.snapshot = snapshot
	t.status = chat.FeedReady
	t.err = nil
	t.mu.Unlock()
	t.notify()
	return nil
}

// Fail marks the feed unavailable. The last snapshot is dropped.
func (t *Timeline) Fail(err error) {
	t.mu.Lock()
	t.snapshot = chat.Snapshot{}
	t.status = chat.FeedUnavailable
	t.err = err
	t.mu.Unlock()
	t.log.Warn("Feed unavailable", "error", err)
	t.notify()
}

// Reset brings the timeline back to loading with no messages.
func (t *Timeline) Reset() {
	t.mu.Lock()
	t.snapshot = chat.Snapshot{}
	t.status = chat.FeedLoading
	t.err = nil
	t.mu.Unlock()
	t.notify()
}

func (t *Timeline) Snapshot() chat.Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshot
}

func (t *Timeline) Status() chat.FeedStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

func (t *Timeline) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

// Placeholder is the text shown in place of an empty feed.
func (t *Timeline) Placeholder() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	switch t.status {
	case chat.FeedLoading:
		return loadingPlaceholder
	case chat.FeedUnavailable:
		return unavailablePlaceholder
	default:
		return emptyPlaceholder
	}
}

func (t *Timeline) notify() {
	if t.onChange != nil {
		t.onChange()
	}
}
