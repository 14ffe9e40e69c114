package e2e

import (
	"context"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"realtime-chat/contract"
	"realtime-chat/domain/chat"
	"realtime-chat/mocks"
	"realtime-chat/repositories"
	"realtime-chat/runtime/workers"
	"realtime-chat/services"
	"realtime-chat/storage"
	"realtime-chat/transport"
	"slices"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gin-gonic/gin"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// BaseSuite runs every test against a fresh store on the configured backend.
type BaseSuite struct {
	suite.Suite
	Config Config
	Log    *slog.Logger
	Store  *ControlledStore

	closeDB func() error
	sup     *workers.Supervisor
	cancel  context.CancelFunc
	clients []*services.ChatService
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	s.Log = logs.GetLoggerFromString(s.Config.LogLevel)
}

func (s *BaseSuite) SetupTest() {
	var ctx context.Context
	ctx, s.cancel = context.WithCancel(context.Background())
	s.sup = workers.NewSupervisor(s.Log, 10*time.Millisecond)
	store, err := storage.NewMessageStore(ctx, s.Log, s.messageRepository(), s.sup)
	s.Require().NoError(err)
	s.Store = &ControlledStore{MessageStore: store}
}

func (s *BaseSuite) messageRepository() repositories.IMessageRepository {
	dir := s.T().TempDir()
	switch s.Config.StorageBackend {
	case "sqlite":
		db, err := repositories.OpenSQLite(filepath.Join(dir, "chat.db"))
		s.Require().NoError(err)
		s.closeDB = db.Close
		return repositories.NewSQLMessageRepository(db, s.Log, nil)
	default:
		db, err := badger.Open(badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR))
		s.Require().NoError(err)
		s.closeDB = db.Close
		return repositories.NewMessageRepository(db, s.Log, nil)
	}
}

func (s *BaseSuite) TearDownTest() {
	for _, client := range s.clients {
		client.Close()
	}
	s.clients = nil
	s.cancel()
	s.sup.Wait()
	s.Require().NoError(s.closeDB())
}

// Client builds a chat client on the shared store.
func (s *BaseSuite) Client(provider contract.IdentityProvider) *services.ChatService {
	return s.ClientOn(provider, s.Store)
}

func (s *BaseSuite) ClientOn(provider contract.IdentityProvider, store contract.DocumentStore) *services.ChatService {
	client := services.NewChatService(s.Log, provider, store)
	s.clients = append(s.clients, client)
	return client
}

// LoggedIn returns a client on store whose provider accepts ("<email>", "pw123"), already logged in.
func (s *BaseSuite) LoggedIn(store contract.DocumentStore, session chat.Session) *services.ChatService {
	provider := mocks.NewMockIdentityProvider(gomock.NewController(s.T()))
	provider.EXPECT().OnSessionChange(gomock.Any()).Return(func() {}).AnyTimes()
	provider.EXPECT().Login(gomock.Any(), session.Email, "pw123").Return(session, nil).AnyTimes()
	provider.EXPECT().Logout(gomock.Any(), session).Return(nil).AnyTimes()

	client := s.ClientOn(provider, store)
	got, err := client.Login(context.Background(), session.Email, "pw123")
	s.Require().NoError(err)
	s.Require().Equal(session, got)
	return client
}

// Serve exposes the shared store over HTTP and websocket and returns a remote view of it.
func (s *BaseSuite) Serve() *transport.RemoteStore {
	gin.SetMode(gin.TestMode)
	server := transport.NewServer(s.Log, s.Store, time.Second)
	httpServer := httptest.NewServer(server.Routes())
	s.T().Cleanup(func() {
		server.Close()
		httpServer.Close()
	})
	remote, err := transport.NewRemoteStore(s.Log, httpServer.URL, waitFor)
	s.Require().NoError(err)
	return remote
}

// Step prints a header for a contextual test step
func (s *BaseSuite) Step(name string, fn func()) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
	fn()
}

// Feed waits for the reconciled feed of client to match texts and returns it.
func (s *BaseSuite) Feed(client *services.ChatService, texts ...string) []chat.Message {
	if texts == nil {
		texts = []string{}
	}
	s.Require().Eventually(func() bool {
		return client.FeedStatus() == chat.FeedReady && slices.Equal(textsOf(client.Messages()), texts)
	}, waitFor, tick, "feed never became %v", texts)
	messages := client.Messages()
	s.Dump(messages)
	return messages
}

// Dump logs messages as JSON when E2E_DEBUG_JSON is enabled
func (s *BaseSuite) Dump(messages []chat.Message) {
	if !s.Config.DebugJSON {
		return
	}
	list, err := structpb.NewList(lo.Map(messages, func(m chat.Message, _ int) any {
		return map[string]any{
			"id":         m.ID,
			"text":       m.Text,
			"user_id":    m.UserID,
			"user_email": m.UserEmail,
			"created_at": m.CreatedAt.Format(time.RFC3339Nano),
		}
	}))
	s.Require().NoError(err)
	marshaler := protojson.MarshalOptions{Multiline: true, EmitUnpopulated: true}
	s.T().Log("FEED:\n" + marshaler.Format(list))
}

func textsOf(messages []chat.Message) []string {
	return lo.Map(messages, func(m chat.Message, _ int) string { return m.Text })
}

// ControlledStore lets a test hold or fail appends around the real store.
type ControlledStore struct {
	*storage.MessageStore
	mu          sync.Mutex
	beforeWrite chan struct{}
	afterWrite  chan struct{}
	failure     error
}

func (c *ControlledStore) Append(ctx context.Context, message chat.OutgoingMessage) error {
	c.mu.Lock()
	beforeWrite, afterWrite, failure := c.beforeWrite, c.afterWrite, c.failure
	c.mu.Unlock()

	if err := wait(ctx, beforeWrite); err != nil {
		return err
	}
	if failure != nil {
		return failure
	}
	if err := c.MessageStore.Append(ctx, message); err != nil {
		return err
	}
	return wait(ctx, afterWrite)
}

// HoldBeforeWrite blocks appends before they are stored until release is called.
func (c *ControlledStore) HoldBeforeWrite() (release func()) {
	return c.hold(&c.beforeWrite)
}

// HoldAfterWrite stores appends but withholds their acknowledgement until release is called.
func (c *ControlledStore) HoldAfterWrite() (release func()) {
	return c.hold(&c.afterWrite)
}

// FailAppends makes every append fail with err until called with nil.
func (c *ControlledStore) FailAppends(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failure = err
}

func (c *ControlledStore) hold(gate *chan struct{}) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan struct{})
	*gate = ch
	return func() {
		c.mu.Lock()
		*gate = nil
		c.mu.Unlock()
		close(ch)
	}
}

func wait(ctx context.Context, gate chan struct{}) error {
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
