//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"realtime-chat/domain/chat"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging during supervision, avoiding manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// IdentityProvider verifies credentials and issues sessions.
// OnSessionChange callbacks fire whenever the provider itself changes the session,
// including invalidations the client did not ask for.
type IdentityProvider interface {
	Login(ctx context.Context, identifier, secret string) (chat.Session, error)
	Signup(ctx context.Context, identifier, secret string) (chat.Session, error)
	Logout(ctx context.Context, session chat.Session) error
	OnSessionChange(fn func(session *chat.Session)) (unregister func())
}

// DocumentStore is the ordered, append-only message store.
// Subscriptions receive the full snapshot ordered by creation time ascending.
type DocumentStore interface {
	Subscribe(handler SnapshotHandler) (Subscription, error)
	Append(ctx context.Context, message chat.OutgoingMessage) error
}

// SnapshotHandler receives pushes for one subscription.
// OnError is terminal: no snapshot follows it.
type SnapshotHandler interface {
	OnSnapshot(snapshot chat.Snapshot)
	OnError(err error)
}

type Subscription interface {
	Close()
}

// SnapshotSink consumes the snapshots accepted by the subscription manager.
type SnapshotSink interface {
	Consume(ctx context.Context, snapshot chat.Snapshot) error
	Fail(err error)
	Reset()
}
