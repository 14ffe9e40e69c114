// Package storage provides an ordered, append-only message store with live snapshot pushes.
// It stands in for the hosted document store the chat client talks to.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"realtime-chat/contract"
	"realtime-chat/domain/chat"
	"realtime-chat/errors"
	"realtime-chat/repositories"
	"realtime-chat/runtime/workers"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

var _ contract.DocumentStore = (*MessageStore)(nil)

type MessageStore struct {
	mu            sync.Mutex
	ctx           context.Context
	log           *slog.Logger
	repository    repositories.IMessageRepository
	supervisor    contract.ISupervisor
	subscriptions map[uuid.UUID]*subscription
	lastCreatedAt time.Time
	now           func() time.Time
}

// NewMessageStore builds a store whose delivery workers live as long as ctx.
func NewMessageStore(ctx context.Context, log *slog.Logger,
	repository repositories.IMessageRepository, supervisor contract.ISupervisor) (*MessageStore, error) {
	existing, err := repository.ListMessages()
	if err != nil {
		return nil, fmt.Errorf("loading messages: %w", err)
	}
	store := &MessageStore{
		ctx:           ctx,
		log:           log,
		repository:    repository,
		supervisor:    supervisor,
		subscriptions: make(map[uuid.UUID]*subscription),
		now:           time.Now,
	}
	if len(existing) > 0 {
		store.lastCreatedAt = existing[len(existing)-1].CreatedAt
	}
	return store, nil
}

// Append assigns an identifier and a creation time, persists the message and
// pushes the new snapshot to every subscription.
// Creation times strictly increase, even if the clock goes backwards,
// so the key order matches the append order.
func (s *MessageStore) Append(ctx context.Context, message chat.OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := s.now().UTC()
	if !createdAt.After(s.lastCreatedAt) {
		createdAt = s.lastCreatedAt.Add(time.Nanosecond)
	}
	diskMessage := repositories.DiskMessage{
		ID:        uuid.New(),
		Text:      message.Text,
		UserID:    message.UserID,
		UserEmail: message.UserEmail,
		CreatedAt: createdAt,
	}
	if err := s.repository.StoreMessage(diskMessage); err != nil {
		return fmt.Errorf("storing message: %w", err)
	}
	s.lastCreatedAt = createdAt

	snapshot, err := s.snapshot()
	if err != nil {
		// The write is durable; subscribers catch up on the next push.
		s.log.Error("Snapshot after append failed", "error", err)
		return nil
	}
	for _, sub := range s.subscriptions {
		sub.worker.Offer(snapshot)
	}
	return nil
}

// Subscribe registers handler and pushes the current snapshot to it.
func (s *MessageStore) Subscribe(handler contract.SnapshotHandler) (contract.Subscription, error) {
	s.mu.Lock()
	snapshot, err := s.snapshot()
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", errors.ErrStreamUnavailable, err)
	}

	ctx, cancel := context.WithCancel(s.ctx)
	sub := &subscription{
		id:     uuid.New(),
		store:  s,
		cancel: cancel,
		worker: workers.NewSnapshotDeliveryWorker(s.log, handler),
	}
	s.subscriptions[sub.id] = sub
	sub.worker.Offer(snapshot)
	s.mu.Unlock()

	s.supervisor.Start(ctx, sub.worker)
	s.log.Debug(fmt.Sprintf("Subscription %s opened", sub.id))
	return sub, nil
}

// Fail ends every open subscription with err, as a transport loss would.
func (s *MessageStore) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sub := range s.subscriptions {
		sub.worker.Fail(err)
		delete(s.subscriptions, id)
	}
	s.log.Warn("All subscriptions failed", "error", err)
}

// SubscriptionCount reports the number of open subscriptions.
func (s *MessageStore) SubscriptionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscriptions)
}

func (s *MessageStore) unsubscribe(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscriptions, id)
}

func (s *MessageStore) snapshot() (chat.Snapshot, error) {
	diskMessages, err := s.repository.ListMessages()
	if err != nil {
		return chat.Snapshot{}, err
	}
	return chat.Snapshot{Messages: lo.Map(diskMessages, func(item repositories.DiskMessage, _ int) chat.Message {
		return chat.Message{
			ID:        item.ID.String(),
			Text:      item.Text,
			CreatedAt: item.CreatedAt,
			UserID:    item.UserID,
			UserEmail: item.UserEmail,
		}
	})}, nil
}

type subscription struct {
	id     uuid.UUID
	store  *MessageStore
	cancel context.CancelFunc
	worker *workers.SnapshotDeliveryWorker
	once   sync.Once
}

func (s *subscription) Close() {
	s.once.Do(func() {
		s.store.unsubscribe(s.id)
		s.cancel()
		s.store.log.Debug(fmt.Sprintf("Subscription %s closed", s.id))
	})
}
