package stream

import (
	"context"
	"fmt"
	"log/slog"
	"realtime-chat/contract"
	"realtime-chat/domain/chat"
	"realtime-chat/errors"
	"realtime-chat/mocks"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var (
	alice = chat.Session{UserID: "u1", Email: "a@x.com"}
	bob   = chat.Session{UserID: "u2", Email: "b@x.com"}
	hi    = chat.Snapshot{Messages: []chat.Message{{ID: "1", Text: "hi", UserID: "u2"}}}
)

// countingSink counts what reaches the reconciler side.
type countingSink struct {
	consumed atomic.Int32
	failed   atomic.Int32
	mu       sync.Mutex
	lastErr  error
}

func (c *countingSink) Consume(context.Context, chat.Snapshot) error {
	c.consumed.Add(1)
	return nil
}

func (c *countingSink) Fail(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
	c.failed.Add(1)
}

func (c *countingSink) err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *countingSink) Reset() {}

// captureSubscribe records the handlers handed to the store.
func captureSubscribe(store *mocks.MockDocumentStore, sub contract.Subscription, handlers *[]contract.SnapshotHandler) *gomock.Call {
	return store.EXPECT().
		Subscribe(gomock.Any()).
		DoAndReturn(func(h contract.SnapshotHandler) (contract.Subscription, error) {
			*handlers = append(*handlers, h)
			return sub, nil
		})
}

func TestManager_Activate_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockDocumentStore(ctrl)
	sub := mocks.NewMockSubscription(ctrl)
	sink := &countingSink{}
	var handlers []contract.SnapshotHandler

	captureSubscribe(store, sub, &handlers).Times(1)
	manager := NewManager(slog.Default(), store, sink)

	// When activating twice with the same session
	req.NoError(manager.Activate(alice))
	req.NoError(manager.Activate(alice))

	// Then a single subscription exists and a push is delivered once
	req.Len(handlers, 1)
	handlers[0].OnSnapshot(hi)
	req.Equal(int32(1), sink.consumed.Load())
	req.True(manager.Active())
}

func TestManager_Deactivate_Drops_Late_Pushes(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockDocumentStore(ctrl)
	sub := mocks.NewMockSubscription(ctrl)
	sink := &countingSink{}
	var handlers []contract.SnapshotHandler

	captureSubscribe(store, sub, &handlers).Times(1)
	sub.EXPECT().Close().Times(1)
	manager := NewManager(slog.Default(), store, sink)
	req.NoError(manager.Activate(alice))

	// When the session ends
	manager.Deactivate()
	manager.Deactivate()

	// Then a push already in flight is discarded
	handlers[0].OnSnapshot(hi)
	handlers[0].OnError(fmt.Errorf("late"))
	req.Equal(int32(0), sink.consumed.Load())
	req.Equal(int32(0), sink.failed.Load())
	req.False(manager.Active())
}

func TestManager_Deactivate_When_Inactive(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockDocumentStore(ctrl)

	manager := NewManager(slog.Default(), store, &countingSink{})
	manager.Deactivate()
	req.False(manager.Active())
}

func TestManager_Activate_Other_User_Replaces_Subscription(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockDocumentStore(ctrl)
	first := mocks.NewMockSubscription(ctrl)
	second := mocks.NewMockSubscription(ctrl)
	sink := &countingSink{}
	var handlers []contract.SnapshotHandler

	gomock.InOrder(
		captureSubscribe(store, first, &handlers),
		first.EXPECT().Close(),
		captureSubscribe(store, second, &handlers),
	)
	manager := NewManager(slog.Default(), store, sink)

	req.NoError(manager.Activate(alice))
	req.NoError(manager.Activate(bob))

	// Only the new subscription delivers
	handlers[0].OnSnapshot(hi)
	req.Equal(int32(0), sink.consumed.Load())
	handlers[1].OnSnapshot(hi)
	req.Equal(int32(1), sink.consumed.Load())
}

func TestManager_Stream_Error_Is_Terminal_Until_Next_Activate(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockDocumentStore(ctrl)
	first := mocks.NewMockSubscription(ctrl)
	second := mocks.NewMockSubscription(ctrl)
	sink := &countingSink{}
	var handlers []contract.SnapshotHandler

	gomock.InOrder(
		captureSubscribe(store, first, &handlers),
		first.EXPECT().Close(),
		captureSubscribe(store, second, &handlers),
	)
	manager := NewManager(slog.Default(), store, sink)
	req.NoError(manager.Activate(alice))

	// When the transport is lost
	handlers[0].OnError(fmt.Errorf("transport lost"))

	// Then the feed is reported unavailable and nothing is retried
	req.Equal(int32(1), sink.failed.Load())
	req.ErrorIs(sink.err(), errors.ErrStreamUnavailable)
	req.False(manager.Active())
	req.Len(handlers, 1)

	// And a later activation subscribes again
	req.NoError(manager.Activate(alice))
	req.Len(handlers, 2)
	handlers[1].OnSnapshot(hi)
	req.Equal(int32(1), sink.consumed.Load())
}

func TestManager_Subscribe_Failure(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockDocumentStore(ctrl)
	sink := mocks.NewMockSnapshotSink(ctrl)

	store.EXPECT().Subscribe(gomock.Any()).Return(nil, fmt.Errorf("connection refused"))
	sink.EXPECT().Fail(gomock.Any()).Do(func(err error) {
		req.ErrorIs(err, errors.ErrStreamUnavailable)
	}).Times(1)

	manager := NewManager(slog.Default(), store, sink)
	err := manager.Activate(alice)

	req.ErrorIs(err, errors.ErrStreamUnavailable)
	req.False(manager.Active())
}

func TestManager_Synchronous_Initial_Push_Is_Delivered(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockDocumentStore(ctrl)
	sub := mocks.NewMockSubscription(ctrl)
	sink := &countingSink{}

	store.EXPECT().
		Subscribe(gomock.Any()).
		DoAndReturn(func(h contract.SnapshotHandler) (contract.Subscription, error) {
			h.OnSnapshot(chat.Snapshot{})
			return sub, nil
		})

	manager := NewManager(slog.Default(), store, sink)
	req.NoError(manager.Activate(alice))
	req.Equal(int32(1), sink.consumed.Load())
}

func TestManager_Push_Racing_Teardown_Never_Lands_After_Deactivate(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockDocumentStore(ctrl)
	sub := mocks.NewMockSubscription(ctrl)
	sink := &countingSink{}
	var handlers []contract.SnapshotHandler

	captureSubscribe(store, sub, &handlers)
	sub.EXPECT().Close().Times(1)
	manager := NewManager(slog.Default(), store, sink)
	req.NoError(manager.Activate(alice))

	// Given a producer pushing continuously
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				handlers[0].OnSnapshot(hi)
			}
		}
	}()

	// When the subscription is torn down mid-stream
	manager.Deactivate()
	afterTeardown := sink.consumed.Load()

	// Then nothing more reaches the sink
	for i := 0; i < 1000; i++ {
		handlers[0].OnSnapshot(hi)
	}
	close(stop)
	wg.Wait()
	req.Equal(afterTeardown, sink.consumed.Load())
}
