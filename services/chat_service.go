package services

import (
	"context"
	"log/slog"
	"realtime-chat/contract"
	"realtime-chat/domain/chat"
	"realtime-chat/projection"
	"realtime-chat/sender"
	"realtime-chat/session"
	"realtime-chat/stream"
)

// ChatService is the client façade. It binds the live feed to the session:
// a session opens the subscription, its end tears down the subscription,
// the pending send and the timeline together.
type ChatService struct {
	log         *slog.Logger
	gate        *session.Gate
	manager     *stream.Manager
	timeline    *projection.Timeline
	coordinator *sender.Coordinator
	draft       *sender.Draft
	updates     chan struct{}
	unregister  func()
}

func NewChatService(log *slog.Logger, provider contract.IdentityProvider, store contract.DocumentStore) *ChatService {
	s := &ChatService{
		log:     log,
		draft:   sender.NewDraft(),
		updates: make(chan struct{}, 1),
	}
	s.timeline = projection.NewTimeline(log, s.signal)
	s.manager = stream.NewManager(log, store, s.timeline)
	s.coordinator = sender.NewCoordinator(log, store, s.draft, s.signal)
	s.gate = session.NewGate(log, provider)
	s.unregister = s.gate.OnChange(s.onSessionChange)
	return s
}

func (s *ChatService) Login(ctx context.Context, identifier, secret string) (chat.Session, error) {
	return s.gate.Login(ctx, identifier, secret)
}

func (s *ChatService) Signup(ctx context.Context, identifier, secret string) (chat.Session, error) {
	return s.gate.Signup(ctx, identifier, secret)
}

func (s *ChatService) Logout(ctx context.Context) {
	s.gate.Logout(ctx)
}

// Send sends the current draft on behalf of the current session.
// The generation is read before the session: a logout landing in between
// resets the coordinator and the send is refused.
func (s *ChatService) Send(ctx context.Context) error {
	generation := s.coordinator.Generation()
	var current *chat.Session
	if sess, ok := s.gate.Current(); ok {
		current = &sess
	}
	return s.coordinator.SendIn(ctx, generation, s.draft.Text(), current)
}

func (s *ChatService) Draft() string {
	return s.draft.Text()
}

func (s *ChatService) SetDraft(text string) {
	s.draft.Set(text)
}

// Messages is the feed as it should be displayed: the latest snapshot
// reconciled with the pending send.
func (s *ChatService) Messages() []chat.Message {
	current, ok := s.gate.Current()
	if !ok {
		return nil
	}
	var pending *chat.PendingSend
	if p, ok := s.coordinator.Pending(); ok {
		pending = &p
	}
	return projection.Render(s.timeline.Snapshot(), pending, current.UserID)
}

func (s *ChatService) Sending() bool {
	return s.coordinator.Sending()
}

func (s *ChatService) HasSession() bool {
	_, ok := s.gate.Current()
	return ok
}

func (s *ChatService) Session() (chat.Session, bool) {
	return s.gate.Current()
}

func (s *ChatService) FeedStatus() chat.FeedStatus {
	return s.timeline.Status()
}

func (s *ChatService) Placeholder() string {
	return s.timeline.Placeholder()
}

// Updates signals that something displayed changed. Signals coalesce.
func (s *ChatService) Updates() <-chan struct{} {
	return s.updates
}

func (s *ChatService) Close() {
	s.unregister()
	s.gate.Close()
	s.manager.Deactivate()
}

func (s *ChatService) onSessionChange(current *chat.Session) {
	// Previous subscription first, so none of its pushes land after the reset
	s.manager.Deactivate()
	s.coordinator.Reset()
	s.timeline.Reset()
	if current == nil {
		return
	}
	if err := s.manager.Activate(*current); err != nil {
		s.log.Error("Unable to open the message feed", "user_id", current.UserID, "error", err)
	}
}

func (s *ChatService) signal() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}
