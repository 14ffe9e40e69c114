package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"realtime-chat/auth"
	"realtime-chat/contract"
	"realtime-chat/domain/chat"
	"realtime-chat/errors"
	"realtime-chat/repositories"
	"realtime-chat/runtime/workers"
	"strings"
	"sync"
)

var (
	_ contract.IdentityProvider = (*AuthService)(nil)
	_ workers.SessionWatcher    = (*AuthService)(nil)
)

// AuthService is the local identity provider: accounts in badger, argon2id hashes,
// JWT session tokens. It holds at most one session, like a client-side auth SDK.
type AuthService struct {
	mu             sync.Mutex
	notifyMu       sync.Mutex
	log            *slog.Logger
	userRepository repositories.IUserRepository
	tokens         *auth.TokenIssuer
	current        *chat.Session
	listeners      map[int]func(*chat.Session)
	nextID         int
}

func NewAuthService(log *slog.Logger, repo repositories.IUserRepository, tokens *auth.TokenIssuer) *AuthService {
	return &AuthService{
		log:            log,
		userRepository: repo,
		tokens:         tokens,
		listeners:      make(map[int]func(*chat.Session)),
	}
}

func (s *AuthService) Signup(ctx context.Context, identifier, secret string) (chat.Session, error) {
	if err := ctx.Err(); err != nil {
		return chat.Session{}, err
	}
	email := normalize(identifier)

	// Business rules first, before any expensive hashing
	if err := auth.ValidateCredentials(auth.Credentials{Email: email, Password: secret}); err != nil {
		return chat.Session{}, err
	}

	hashedPassword, err := auth.HashPassword(secret)
	if err != nil {
		return chat.Session{}, fmt.Errorf("hashing failed: %w", err)
	}

	userID, err := s.userRepository.CreateUser(email, hashedPassword)
	if err != nil {
		return chat.Session{}, err
	}
	s.log.Info(fmt.Sprintf("Registered %s", email), "user_id", userID)
	return s.open(userID, email)
}

func (s *AuthService) Login(ctx context.Context, identifier, secret string) (chat.Session, error) {
	if err := ctx.Err(); err != nil {
		return chat.Session{}, err
	}
	email := normalize(identifier)

	user, err := s.userRepository.GetUserByEmail(email)
	if err != nil {
		// Unknown account and wrong password look the same
		if stderrors.Is(err, errors.ErrUserNotFound) {
			return chat.Session{}, errors.ErrInvalidCredentials
		}
		return chat.Session{}, err
	}

	match, err := auth.ComparePassword(secret, user.PasswordHash)
	if err != nil || !match {
		return chat.Session{}, errors.ErrInvalidCredentials
	}
	return s.open(user.ID, user.Email)
}

// Logout drops the session when it is the current one.
func (s *AuthService) Logout(ctx context.Context, session chat.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.replace(nil, func(current *chat.Session) bool {
		return current.UserID == session.UserID
	})
	return nil
}

func (s *AuthService) OnSessionChange(fn func(session *chat.Session)) (unregister func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *AuthService) CurrentSession() (chat.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return chat.Session{}, false
	}
	return *s.current, true
}

// ValidateSession checks the token of session against the signing key and clock.
func (s *AuthService) ValidateSession(session chat.Session) error {
	claims, err := s.tokens.ValidateToken(session.Token)
	if err != nil {
		return err
	}
	if claims.UserID != session.UserID {
		return fmt.Errorf("token issued to %s, not %s", claims.UserID, session.UserID)
	}
	return nil
}

// Invalidate drops the session without the client asking for it.
func (s *AuthService) Invalidate() {
	s.set(nil)
}

// InvalidateIf drops session only if it is still the current one.
// A newer session opened meanwhile is kept.
func (s *AuthService) InvalidateIf(session chat.Session) bool {
	return s.replace(nil, func(current *chat.Session) bool {
		return current.UserID == session.UserID && current.Token == session.Token
	})
}

func (s *AuthService) open(userID, email string) (chat.Session, error) {
	token, expiresAt, err := s.tokens.GenerateToken(userID, email)
	if err != nil {
		return chat.Session{}, fmt.Errorf("%w: %w", errors.ErrTokenGeneration, err)
	}
	session := chat.Session{UserID: userID, Email: email, Token: token, ExpiresAt: expiresAt}
	s.set(&session)
	return session, nil
}

func (s *AuthService) set(session *chat.Session) {
	s.replace(session, nil)
}

// replace swaps the session when matches accepts the current one, then notifies listeners
// outside the lock. Transitions are heard in the order they were made.
func (s *AuthService) replace(session *chat.Session, matches func(current *chat.Session) bool) bool {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if s.current == nil && session == nil {
		s.mu.Unlock()
		return false
	}
	if matches != nil && (s.current == nil || !matches(s.current)) {
		s.mu.Unlock()
		return false
	}
	s.current = session
	listeners := make([]func(*chat.Session), 0, len(s.listeners))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.listeners[id]; ok {
			listeners = append(listeners, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		if session == nil {
			fn(nil)
			continue
		}
		copied := *session
		fn(&copied)
	}
	return true
}

func normalize(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}
