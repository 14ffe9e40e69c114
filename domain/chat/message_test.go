package chat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessage_DisplayName(t *testing.T) {
	req := require.New(t)
	req.Equal("alice", Message{UserEmail: "alice@example.com"}.DisplayName())
	req.Equal("bob", Message{UserEmail: "bob"}.DisplayName())
	req.Equal("", Message{}.DisplayName())
}

func TestPendingSend_Active(t *testing.T) {
	req := require.New(t)
	var nilPending *PendingSend
	req.False(nilPending.Active("u1"))

	pending := &PendingSend{Text: "hi", UserID: "u1", Status: SendSending}
	req.True(pending.Active("u1"))
	req.False(pending.Active("u2"))

	pending.Status = SendIdle
	req.False(pending.Active("u1"))
}

func TestSameIdentity(t *testing.T) {
	req := require.New(t)
	req.True(SameIdentity(nil, nil))
	req.False(SameIdentity(&Session{UserID: "u1"}, nil))
	req.True(SameIdentity(&Session{UserID: "u1", Token: "a"}, &Session{UserID: "u1", Token: "b"}))
	req.False(SameIdentity(&Session{UserID: "u1"}, &Session{UserID: "u2"}))
}
