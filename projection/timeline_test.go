package projection

import (
	"context"
	"fmt"
	"log/slog"
	"realtime-chat/domain/chat"
	"realtime-chat/errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTimeline_Lifecycle(t *testing.T) {
	req := require.New(t)
	changes := 0
	timeline := NewTimeline(slog.Default(), func() { changes++ })

	// Given a fresh timeline, it is loading
	req.Equal(chat.FeedLoading, timeline.Status())
	req.Equal("Loading messages...", timeline.Placeholder())

	// When an empty snapshot arrives
	req.NoError(timeline.Consume(context.Background(), chat.Snapshot{}))
	req.Equal(chat.FeedReady, timeline.Status())
	req.Equal("No messages yet. Start the conversation!", timeline.Placeholder())

	// When a snapshot with messages arrives, it replaces the previous one
	snapshot := chat.Snapshot{Messages: []chat.Message{message("1", "hi", "u1", 0)}}
	req.NoError(timeline.Consume(context.Background(), snapshot))
	req.Equal(snapshot, timeline.Snapshot())

	// When the stream fails
	timeline.Fail(fmt.Errorf("%w: transport lost", errors.ErrStreamUnavailable))
	req.Equal(chat.FeedUnavailable, timeline.Status())
	req.ErrorIs(timeline.Err(), errors.ErrStreamUnavailable)
	req.Equal(0, timeline.Snapshot().Len())
	req.Equal("Feed unavailable.", timeline.Placeholder())

	// When reset
	timeline.Reset()
	req.Equal(chat.FeedLoading, timeline.Status())
	req.NoError(timeline.Err())

	req.Equal(4, changes)
}
