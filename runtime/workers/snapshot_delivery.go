package workers

import (
	"context"
	"log/slog"
	"realtime-chat/contract"
	"realtime-chat/domain/chat"
)

var _ contract.Worker = (*SnapshotDeliveryWorker)(nil)

// SnapshotDeliveryWorker pushes snapshots to a single subscriber, in the order they were offered.
// Only the latest undelivered snapshot is kept: each snapshot replaces the previous one anyway.
type SnapshotDeliveryWorker struct {
	log      *slog.Logger
	handler  contract.SnapshotHandler
	queue    chan chat.Snapshot
	failures chan error
}

func NewSnapshotDeliveryWorker(log *slog.Logger, handler contract.SnapshotHandler) *SnapshotDeliveryWorker {
	return &SnapshotDeliveryWorker{
		log:      log,
		handler:  handler,
		queue:    make(chan chat.Snapshot, 1),
		failures: make(chan error, 1),
	}
}

// Offer queues a snapshot without blocking. Callers must serialise Offer.
func (w *SnapshotDeliveryWorker) Offer(snapshot chat.Snapshot) {
	select {
	case w.queue <- snapshot:
		return
	default:
	}
	// Drop the stale one
	select {
	case <-w.queue:
		w.log.Debug("Undelivered snapshot replaced")
	default:
	}
	select {
	case w.queue <- snapshot:
	default:
	}
}

// Fail queues the terminal error of the subscription.
func (w *SnapshotDeliveryWorker) Fail(err error) {
	select {
	case w.failures <- err:
	default:
	}
}

func (w *SnapshotDeliveryWorker) Run(ctx context.Context) error {
	for {
		// A queued snapshot goes out before a terminal error
		select {
		case <-ctx.Done():
			return nil
		case snapshot := <-w.queue:
			w.handler.OnSnapshot(snapshot)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			return nil
		case snapshot := <-w.queue:
			w.handler.OnSnapshot(snapshot)
		case err := <-w.failures:
			w.handler.OnError(err)
			return nil
		}
	}
}
