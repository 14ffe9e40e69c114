package e2e

import (
	"context"
	"fmt"
	"realtime-chat/domain/chat"
	"realtime-chat/errors"
	"realtime-chat/services"
	"testing"

	"github.com/stretchr/testify/suite"
)

type FeedSuite struct {
	BaseSuite
}

func TestFeedSuite(t *testing.T) {
	suite.Run(t, new(FeedSuite))
}

var (
	alice = chat.Session{UserID: "u1", Email: "a@x.com"}
	bob   = chat.Session{UserID: "u2", Email: "b@x.com"}
)

func (s *FeedSuite) loggedIn(session chat.Session) *services.ChatService {
	return s.LoggedIn(s.Store, session)
}

func (s *FeedSuite) TestA_Login_Shows_Empty_Feed() {
	var client *services.ChatService

	s.Step("Login", func() {
		client = s.loggedIn(alice)
		current, ok := client.Session()
		s.Require().True(ok)
		s.Require().Equal("u1", current.UserID)
	})

	s.Step("Initial empty snapshot", func() {
		s.Feed(client)
		s.Require().Equal("No messages yet. Start the conversation!", client.Placeholder())
	})
}

func (s *FeedSuite) TestB_Send_Shows_Message_Exactly_Once() {
	client := s.loggedIn(alice)
	s.Feed(client)
	done := make(chan error, 1)

	s.Step("Send hello, draft clears immediately", func() {
		release := s.Store.HoldBeforeWrite()
		client.SetDraft("hello")
		go func() { done <- client.Send(context.Background()) }()

		s.Require().Eventually(client.Sending, waitFor, tick)
		s.Require().Empty(client.Draft())
		release()
	})

	s.Step("Append resolves, next snapshot has it once", func() {
		s.Require().NoError(<-done)
		messages := s.Feed(client, "hello")
		s.Require().Equal("u1", messages[0].UserID)
		s.Require().False(client.Sending())
	})
}

func (s *FeedSuite) TestC_Failed_Send_Restores_Draft() {
	client := s.loggedIn(alice)
	s.Feed(client)

	s.Step("Append fails with a network error", func() {
		s.Store.FailAppends(fmt.Errorf("network unreachable"))
		client.SetDraft("hello")

		err := client.Send(context.Background())

		s.Require().ErrorIs(err, errors.ErrSendFailed)
		s.Require().Equal("hello", client.Draft())
		s.Require().False(client.Sending())
	})

	s.Step("No message appears in later snapshots", func() {
		s.Require().NoError(s.Store.MessageStore.Append(context.Background(),
			chat.OutgoingMessage{Text: "unrelated", UserID: "u2", UserEmail: "b@x.com"}))
		s.Feed(client, "unrelated")
	})
}

func (s *FeedSuite) TestD_Foreign_Push_While_Sending() {
	first := s.loggedIn(alice)
	second := s.loggedIn(bob)
	s.Feed(first)
	s.Feed(second)
	done := make(chan error, 1)
	var release func()

	s.Step("u1 sends hi, append not yet resolved", func() {
		release = s.Store.HoldBeforeWrite()
		first.SetDraft("hi")
		go func() { done <- first.Send(context.Background()) }()
		s.Require().Eventually(first.Sending, waitFor, tick)
	})

	s.Step("A snapshot with u2's message arrives", func() {
		s.Require().NoError(s.Store.MessageStore.Append(context.Background(),
			chat.OutgoingMessage{Text: "yo", UserID: "u2", UserEmail: "b@x.com"}))
		s.Feed(first, "yo")
		s.Feed(second, "yo")
	})

	s.Step("Append resolves, both views converge", func() {
		release()
		s.Require().NoError(<-done)
		s.Feed(first, "yo", "hi")
		s.Feed(second, "yo", "hi")
	})
}

func (s *FeedSuite) TestE_Own_Echo_Hidden_Until_Ack() {
	first := s.loggedIn(alice)
	second := s.loggedIn(bob)
	s.Feed(first)
	done := make(chan error, 1)
	var release func()

	s.Step("u1's hi is stored but not acknowledged", func() {
		release = s.Store.HoldAfterWrite()
		first.SetDraft("hi")
		go func() { done <- first.Send(context.Background()) }()
		s.Feed(second, "hi")
	})

	s.Step("The persisted echo is suppressed while pending", func() {
		s.Require().True(first.Sending())
		s.Require().Never(func() bool { return len(first.Messages()) > 0 }, waitFor/10, tick)
	})

	s.Step("After the ack it shows exactly once", func() {
		release()
		s.Require().NoError(<-done)
		s.Feed(first, "hi")
	})
}

func (s *FeedSuite) TestF_Logout_Stops_The_Feed() {
	client := s.loggedIn(alice)
	s.Feed(client)
	s.Require().Equal(len(s.clients), s.Store.SubscriptionCount())

	s.Step("Logout", func() {
		client.Logout(context.Background())
		s.Require().False(client.HasSession())
		s.Require().Equal(0, s.Store.SubscriptionCount())
	})
}
