package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"realtime-chat/contract"
	"realtime-chat/domain/chat"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait    = 5 * time.Second
	maxFrameSize = 1024
)

var _ contract.SnapshotHandler = (*streamPeer)(nil)

// Server exposes a DocumentStore to remote clients.
type Server struct {
	log          *slog.Logger
	store        contract.DocumentStore
	upgrader     websocket.Upgrader
	pingInterval time.Duration

	mu     sync.Mutex
	peers  map[*streamPeer]struct{}
	closed bool
}

func NewServer(log *slog.Logger, store contract.DocumentStore, pingInterval time.Duration) *Server {
	return &Server{
		log:          log,
		store:        store,
		upgrader:     websocket.Upgrader{},
		pingInterval: pingInterval,
		peers:        make(map[*streamPeer]struct{}),
	}
}

func (s *Server) Routes() http.Handler {
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())
	engine.GET(healthPath, s.handleHealthz)
	engine.POST(appendPath, s.handleAppend)
	engine.GET(streamPath, s.handleStream)
	return engine
}

// Close ends every open stream with an error frame and refuses new ones.
// Hijacked connections are not closed by http.Server.Shutdown.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	peers := make([]*streamPeer, 0, len(s.peers))
	for peer := range s.peers {
		peers = append(peers, peer)
	}
	s.mu.Unlock()

	for _, peer := range peers {
		peer.OnError(fmt.Errorf("server shutting down"))
	}
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleAppend(c *gin.Context) {
	var req appendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid message"})
		return
	}
	err := s.store.Append(c.Request.Context(), chat.OutgoingMessage{
		Text:      req.Text,
		UserID:    req.UserID,
		UserEmail: req.UserEmail,
	})
	if err != nil {
		s.log.Error("Append failed", "user_id", req.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "append failed"})
		return
	}
	c.Status(http.StatusCreated)
}

// handleStream subscribes the upgraded connection to the store until either side ends it.
func (s *Server) handleStream(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already answered the client
		s.log.Warn("Websocket upgrade failed", "remote", c.Request.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	peer := &streamPeer{log: s.log, conn: conn}
	if !s.register(peer) {
		peer.OnError(fmt.Errorf("server shutting down"))
		return
	}
	defer s.unregister(peer)

	sub, err := s.store.Subscribe(peer)
	if err != nil {
		s.log.Error("Subscribe failed", "remote", c.Request.RemoteAddr, "error", err)
		peer.OnError(err)
		return
	}
	defer sub.Close()
	s.log.Debug("Stream opened", "remote", c.Request.RemoteAddr)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go peer.keepAlive(ctx, s.pingInterval)

	peer.drain(2 * s.pingInterval)
	s.log.Debug("Stream closed", "remote", c.Request.RemoteAddr)
}

func (s *Server) register(peer *streamPeer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.peers[peer] = struct{}{}
	return true
}

func (s *Server) unregister(peer *streamPeer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.peers, peer)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("Request served",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// streamPeer writes store pushes to one websocket connection.
// The store delivers pushes one at a time; mu also orders them with Close.
type streamPeer struct {
	log  *slog.Logger
	conn *websocket.Conn
	mu   sync.Mutex
	done bool
}

func (p *streamPeer) OnSnapshot(snapshot chat.Snapshot) {
	p.write(streamFrame{Type: frameSnapshot, Messages: toFrames(snapshot.Messages)})
}

// OnError sends the terminal frame, then starts the closing handshake.
func (p *streamPeer) OnError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return
	}
	p.done = true
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if werr := p.conn.WriteJSON(streamFrame{Type: frameError, Error: err.Error()}); werr != nil {
		p.log.Debug("Error frame not delivered", "error", werr)
	}
	_ = p.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

func (p *streamPeer) write(frame streamFrame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return
	}
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := p.conn.WriteJSON(frame); err != nil {
		p.log.Debug("Frame not delivered", "type", frame.Type, "error", err)
	}
}

// drain reads until the client goes away. Clients only send control frames.
func (p *streamPeer) drain(pongWait time.Duration) {
	p.conn.SetReadLimit(maxFrameSize)
	_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := p.conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				p.log.Debug("Stream read ended", "error", err)
			}
			return
		}
	}
}

func (p *streamPeer) keepAlive(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
