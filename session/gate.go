// Package session tracks the authenticated session of the client.
// It is the only writer of the current session; every other component reads it
// or listens to its changes.
package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"realtime-chat/auth"
	"realtime-chat/contract"
	"realtime-chat/domain/chat"
	"realtime-chat/errors"
	"sync"
)

// Listener is called with the new session, or nil when the session is gone.
type Listener func(session *chat.Session)

type Gate struct {
	mu sync.Mutex
	// notifyMu orders transitions: a transition is recorded and heard by
	// every listener before the next one is recorded.
	notifyMu   sync.Mutex
	log        *slog.Logger
	provider   contract.IdentityProvider
	current    *chat.Session
	listeners  map[int]Listener
	nextID     int
	unregister func()
}

// NewGate builds a gate and starts following the provider's own session changes.
func NewGate(log *slog.Logger, provider contract.IdentityProvider) *Gate {
	g := &Gate{
		log:       log,
		provider:  provider,
		listeners: make(map[int]Listener),
	}
	g.unregister = provider.OnSessionChange(g.apply)
	return g
}

// Login authenticates against the provider. Empty fields fail before any call.
func (g *Gate) Login(ctx context.Context, identifier, secret string) (chat.Session, error) {
	return g.authenticate(ctx, identifier, secret, g.provider.Login)
}

// Signup registers a new identity and opens its session.
func (g *Gate) Signup(ctx context.Context, identifier, secret string) (chat.Session, error) {
	return g.authenticate(ctx, identifier, secret, g.provider.Signup)
}

func (g *Gate) authenticate(ctx context.Context, identifier, secret string,
	call func(context.Context, string, string) (chat.Session, error)) (chat.Session, error) {
	if err := auth.RequireCredentials(identifier, secret); err != nil {
		return chat.Session{}, err
	}
	session, err := call(ctx, identifier, secret)
	if err != nil {
		// Unknown failures keep their raw message for the auth form
		if !stderrors.Is(err, errors.ErrInvalidCredentials) && !stderrors.Is(err, errors.ErrIdentifierAlreadyRegistered) {
			g.log.Warn("Identity provider failed", "error", err)
		}
		return chat.Session{}, err
	}
	g.apply(&session)
	return session, nil
}

// Logout drops the session locally, then revokes it on the provider.
// A revocation failure is only logged.
func (g *Gate) Logout(ctx context.Context) {
	g.mu.Lock()
	current := g.current
	g.mu.Unlock()
	if current == nil {
		return
	}

	g.apply(nil)
	if err := g.provider.Logout(ctx, *current); err != nil {
		g.log.Warn("Provider logout failed", "user_id", current.UserID, "error", err)
	}
}

// Current returns a copy of the current session.
func (g *Gate) Current() (chat.Session, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil {
		return chat.Session{}, false
	}
	return *g.current, true
}

// OnChange registers a listener called synchronously on every session transition.
func (g *Gate) OnChange(listener Listener) (unregister func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextID
	g.nextID++
	g.listeners[id] = listener
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.listeners, id)
	}
}

// Close stops following the provider.
func (g *Gate) Close() {
	if g.unregister != nil {
		g.unregister()
	}
}

// apply records the new session and notifies listeners when the identity changed.
// Listeners may read the gate but must not change the session themselves.
func (g *Gate) apply(session *chat.Session) {
	g.notifyMu.Lock()
	defer g.notifyMu.Unlock()

	g.mu.Lock()
	changed := !chat.SameIdentity(g.current, session)
	session = clone(session)
	g.current = session
	listeners := make([]Listener, 0, len(g.listeners))
	for id := 0; id < g.nextID; id++ {
		if l, ok := g.listeners[id]; ok {
			listeners = append(listeners, l)
		}
	}
	g.mu.Unlock()

	if !changed {
		return
	}
	if session == nil {
		g.log.Info("Session ended")
	} else {
		g.log.Info(fmt.Sprintf("Session started for %s", session.Email), "user_id", session.UserID)
	}
	for _, l := range listeners {
		l(clone(session))
	}
}

func clone(session *chat.Session) *chat.Session {
	if session == nil {
		return nil
	}
	copied := *session
	return &copied
}
