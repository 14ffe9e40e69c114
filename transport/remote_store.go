package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"realtime-chat/contract"
	"realtime-chat/domain/chat"
	"realtime-chat/errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

var _ contract.DocumentStore = (*RemoteStore)(nil)

// RemoteStore is a DocumentStore served by a transport Server.
type RemoteStore struct {
	log         *slog.Logger
	appendURL   string
	streamURL   string
	client      *http.Client
	dialer      *websocket.Dialer
	dialTimeout time.Duration
}

// NewRemoteStore targets the server at rawURL, an http or https base URL.
func NewRemoteStore(log *slog.Logger, rawURL string, dialTimeout time.Duration) (*RemoteStore, error) {
	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid store url: %w", err)
	}
	stream := *base
	switch base.Scheme {
	case "http":
		stream.Scheme = "ws"
	case "https":
		stream.Scheme = "wss"
	default:
		return nil, fmt.Errorf("invalid store url scheme %q", base.Scheme)
	}
	return &RemoteStore{
		log:         log,
		appendURL:   base.JoinPath(appendPath).String(),
		streamURL:   stream.JoinPath(streamPath).String(),
		client:      &http.Client{},
		dialer:      &websocket.Dialer{HandshakeTimeout: dialTimeout},
		dialTimeout: dialTimeout,
	}, nil
}

func (r *RemoteStore) Append(ctx context.Context, message chat.OutgoingMessage) error {
	body, err := json.Marshal(appendRequest{
		Text:      message.Text,
		UserID:    message.UserID,
		UserEmail: message.UserEmail,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.appendURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("append request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		var payload errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return fmt.Errorf("append rejected with status %d: %s", resp.StatusCode, payload.Error)
	}
	return nil
}

// Subscribe opens a stream connection. The first snapshot arrives asynchronously.
func (r *RemoteStore) Subscribe(handler contract.SnapshotHandler) (contract.Subscription, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.dialTimeout)
	defer cancel()
	conn, _, err := r.dialer.DialContext(ctx, r.streamURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStreamUnavailable, err)
	}
	sub := &remoteSubscription{log: r.log, conn: conn, handler: handler}
	go sub.listen()
	r.log.Debug("Remote stream opened", "url", r.streamURL)
	return sub, nil
}

type remoteSubscription struct {
	log     *slog.Logger
	conn    *websocket.Conn
	handler contract.SnapshotHandler
	closed  atomic.Bool
	once    sync.Once
}

// listen forwards frames to the handler until the stream ends.
// The connection answers server pings while it reads.
func (s *remoteSubscription) listen() {
	for {
		var frame streamFrame
		if err := s.conn.ReadJSON(&frame); err != nil {
			if s.closed.Load() {
				return
			}
			s.handler.OnError(fmt.Errorf("%w: %v", errors.ErrStreamUnavailable, err))
			s.Close()
			return
		}
		switch frame.Type {
		case frameSnapshot:
			s.handler.OnSnapshot(chat.Snapshot{Messages: fromFrames(frame.Messages)})
		case frameError:
			s.handler.OnError(fmt.Errorf("%w: %s", errors.ErrStreamUnavailable, frame.Error))
			s.Close()
			return
		default:
			s.log.Warn("Unknown stream frame ignored", "type", frame.Type)
		}
	}
}

// Close does not wait for listen: a handler may be calling Close itself.
func (s *remoteSubscription) Close() {
	s.once.Do(func() {
		s.closed.Store(true)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		_ = s.conn.Close()
	})
}
