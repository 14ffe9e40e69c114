package services

import (
	"context"
	"fmt"
	"log/slog"
	"realtime-chat/auth"
	"realtime-chat/domain/chat"
	"realtime-chat/errors"
	"realtime-chat/mocks"
	"realtime-chat/repositories"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newAuthService(repo repositories.IUserRepository, duration time.Duration) *AuthService {
	return NewAuthService(slog.Default(), repo, auth.NewTokenIssuer([]byte("test-secret"), duration))
}

func TestAuthService_Signup(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIUserRepository(ctrl)
	svc := newAuthService(mockRepo, time.Hour)

	t.Run("should register and open a session when input is valid", func(t *testing.T) {
		req := require.New(t)
		var notified []*chat.Session
		unregister := svc.OnSessionChange(func(s *chat.Session) { notified = append(notified, s) })
		defer unregister()

		// Expect CreateUser with the normalized email and a hash, never the plain secret
		mockRepo.EXPECT().
			CreateUser("alice@example.com", gomock.Not("pw123456")).
			Return("user-uuid", nil).
			Times(1)

		session, err := svc.Signup(context.Background(), "  Alice@Example.com ", "pw123456")

		req.NoError(err)
		req.Equal("user-uuid", session.UserID)
		req.Equal("alice@example.com", session.Email)
		req.NotEmpty(session.Token)
		req.NoError(svc.ValidateSession(session))
		req.Len(notified, 1)
		req.Equal("user-uuid", notified[0].UserID)

		current, ok := svc.CurrentSession()
		req.True(ok)
		req.Equal(session, current)
	})

	t.Run("should fail validation before touching the repository", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Times(0)

		_, err := svc.Signup(context.Background(), "not-an-email", "pw123456")
		req.ErrorIs(err, errors.ErrValidation)

		_, err = svc.Signup(context.Background(), "bob@example.com", "short")
		req.ErrorIs(err, errors.ErrValidation)
	})

	t.Run("should fail when the identifier is taken", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().
			CreateUser("dup@example.com", gomock.Any()).
			Return("", errors.ErrIdentifierAlreadyRegistered).
			Times(1)

		_, err := svc.Signup(context.Background(), "dup@example.com", "pw123456")
		req.ErrorIs(err, errors.ErrIdentifierAlreadyRegistered)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIUserRepository(ctrl)
	svc := newAuthService(mockRepo, time.Hour)
	hash, err := auth.HashPassword("pw123456")
	require.NoError(t, err)
	user := repositories.User{ID: "u1", Email: "user@example.com", PasswordHash: hash}

	t.Run("should login successfully with correct credentials", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().GetUserByEmail("user@example.com").Return(user, nil).Times(1)

		session, err := svc.Login(context.Background(), "USER@example.com", "pw123456")

		req.NoError(err)
		req.Equal("u1", session.UserID)
		req.NoError(svc.ValidateSession(session))
	})

	t.Run("should fail with a wrong password", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().GetUserByEmail("user@example.com").Return(user, nil).Times(1)

		_, err := svc.Login(context.Background(), "user@example.com", "wrong-password")
		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})

	t.Run("should hide unknown accounts behind invalid credentials", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().
			GetUserByEmail("ghost@example.com").
			Return(repositories.User{}, errors.ErrUserNotFound).
			Times(1)

		_, err := svc.Login(context.Background(), "ghost@example.com", "pw123456")
		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})

	t.Run("should surface storage failures as is", func(t *testing.T) {
		req := require.New(t)
		mockRepo.EXPECT().
			GetUserByEmail("user@example.com").
			Return(repositories.User{}, fmt.Errorf("disk on fire")).
			Times(1)

		_, err := svc.Login(context.Background(), "user@example.com", "pw123456")
		req.EqualError(err, "disk on fire")
	})
}

func TestAuthService_Logout_And_Invalidate(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	mockRepo := mocks.NewMockIUserRepository(ctrl)
	svc := newAuthService(mockRepo, time.Hour)

	mockRepo.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Return("u1", nil)
	session, err := svc.Signup(context.Background(), "a@example.com", "pw123456")
	req.NoError(err)

	var notified []*chat.Session
	svc.OnSessionChange(func(s *chat.Session) { notified = append(notified, s) })

	// Logout of someone else changes nothing
	req.NoError(svc.Logout(context.Background(), chat.Session{UserID: "other"}))
	_, ok := svc.CurrentSession()
	req.True(ok)
	req.Empty(notified)

	// Invalidation is announced once
	svc.Invalidate()
	svc.Invalidate()
	req.Len(notified, 1)
	req.Nil(notified[0])

	// Logout after invalidation is harmless
	req.NoError(svc.Logout(context.Background(), session))
	req.Len(notified, 1)
}

func TestAuthService_InvalidateIf_Keeps_Newer_Session(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	mockRepo := mocks.NewMockIUserRepository(ctrl)
	svc := newAuthService(mockRepo, time.Hour)

	gomock.InOrder(
		mockRepo.EXPECT().CreateUser("a@example.com", gomock.Any()).Return("u1", nil),
		mockRepo.EXPECT().CreateUser("b@example.com", gomock.Any()).Return("u2", nil),
	)
	stale, err := svc.Signup(context.Background(), "a@example.com", "pw123456")
	req.NoError(err)

	// Given another session opened after the stale one was read
	fresh, err := svc.Signup(context.Background(), "b@example.com", "pw123456")
	req.NoError(err)

	// When the stale session is invalidated, the fresh one stays
	req.False(svc.InvalidateIf(stale))
	current, ok := svc.CurrentSession()
	req.True(ok)
	req.Equal(fresh, current)

	// The current session itself can still be invalidated
	req.True(svc.InvalidateIf(fresh))
	_, ok = svc.CurrentSession()
	req.False(ok)
	req.False(svc.InvalidateIf(fresh))
}

func TestAuthService_ValidateSession_Expired(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	mockRepo := mocks.NewMockIUserRepository(ctrl)
	svc := newAuthService(mockRepo, -time.Minute)

	mockRepo.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Return("u1", nil)
	session, err := svc.Signup(context.Background(), "a@example.com", "pw123456")
	req.NoError(err)

	req.Error(svc.ValidateSession(session))

	// A token for another user does not validate this session
	other := newAuthService(mockRepo, time.Hour)
	mockRepo.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Return("u2", nil)
	foreign, err := other.Signup(context.Background(), "b@example.com", "pw123456")
	req.NoError(err)
	foreign.UserID = "u1"
	req.Error(other.ValidateSession(foreign))
}
