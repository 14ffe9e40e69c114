// Package stream keeps the live subscription to the message stream in step with the session.
package stream

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"realtime-chat/contract"
	"realtime-chat/domain/chat"
	"realtime-chat/errors"
	"sync"
)

// Manager owns at most one subscription at a time.
// Deliveries and teardown are serialised: once Deactivate returns, no snapshot
// from any earlier subscription reaches the sink.
// Sinks must not call back into the Manager.
type Manager struct {
	mu         sync.Mutex
	log        *slog.Logger
	store      contract.DocumentStore
	sink       contract.SnapshotSink
	generation uint64
	active     *activeSubscription
}

type activeSubscription struct {
	userID       string
	generation   uint64
	subscription contract.Subscription
}

func NewManager(log *slog.Logger, store contract.DocumentStore, sink contract.SnapshotSink) *Manager {
	return &Manager{log: log, store: store, sink: sink}
}

// Activate opens the subscription for session.
// It is a no-op when a subscription for the same user is already open;
// a subscription for another user is replaced.
func (m *Manager) Activate(session chat.Session) error {
	m.mu.Lock()
	if m.active != nil && m.active.userID == session.UserID {
		m.mu.Unlock()
		return nil
	}
	m.closeLocked()
	m.generation++
	generation := m.generation
	m.active = &activeSubscription{userID: session.UserID, generation: generation}
	m.mu.Unlock()

	// The store may push synchronously from Subscribe, so no lock is held here.
	subscription, err := m.store.Subscribe(&guardedHandler{manager: m, generation: generation})

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		if m.generation == generation {
			m.active = nil
			m.sink.Fail(unavailable(err))
		}
		return unavailable(err)
	}
	if m.generation != generation || m.active == nil {
		// Deactivated, failed or replaced while subscribing
		subscription.Close()
		return nil
	}
	m.active.subscription = subscription
	m.log.Debug(fmt.Sprintf("Subscription active for %s", session.UserID))
	return nil
}

// Deactivate closes the subscription, if any. Safe to call when inactive.
func (m *Manager) Deactivate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation++
	m.closeLocked()
}

// Active reports whether a subscription is open or opening.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil
}

func (m *Manager) closeLocked() {
	if m.active == nil {
		return
	}
	if m.active.subscription != nil {
		m.active.subscription.Close()
	}
	m.log.Debug(fmt.Sprintf("Subscription closed for %s", m.active.userID))
	m.active = nil
}

func (m *Manager) deliver(generation uint64, snapshot chat.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.current(generation) {
		m.log.Debug("Dropping snapshot from a stale subscription", "generation", generation)
		return
	}
	if err := m.sink.Consume(context.Background(), snapshot); err != nil {
		m.log.Error("Snapshot rejected by sink", "error", err)
	}
}

// fail ends the subscription; recovery is left to a later Activate.
func (m *Manager) fail(generation uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.current(generation) {
		return
	}
	m.closeLocked()
	m.sink.Fail(unavailable(err))
}

func (m *Manager) current(generation uint64) bool {
	return m.active != nil && m.active.generation == generation && m.generation == generation
}

func unavailable(err error) error {
	if stderrors.Is(err, errors.ErrStreamUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", errors.ErrStreamUnavailable, err)
}

// guardedHandler tags pushes with the generation of the subscription that produced them.
type guardedHandler struct {
	manager    *Manager
	generation uint64
}

func (h *guardedHandler) OnSnapshot(snapshot chat.Snapshot) {
	h.manager.deliver(h.generation, snapshot)
}

func (h *guardedHandler) OnError(err error) {
	h.manager.fail(h.generation, err)
}
