package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"chat-relay/internal/models"
)

// mockConn implements Conn for testing. Frames pushed with deliver are
// returned by ReadMessage; written frames are recorded.
type mockConn struct {
	mu       sync.Mutex
	messages [][]byte
	closed   bool
	inbox    chan []byte
	done     chan struct{}
}

func newMockConn() *mockConn {
	return &mockConn{
		inbox: make(chan []byte, 16),
		done:  make(chan struct{}),
	}
}

func (m *mockConn) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosedConnection
	}
	m.messages = append(m.messages, data)
	return nil
}

func (m *mockConn) ReadMessage() (messageType int, p []byte, err error) {
	select {
	case data := <-m.inbox:
		return 1, data, nil
	case <-m.done:
		return 0, nil, ErrClosedConnection
	}
}

func (m *mockConn) SetReadLimit(int64) {}

func (m *mockConn) SetReadDeadline(time.Time) error { return nil }

func (m *mockConn) SetWriteDeadline(time.Time) error { return nil }

func (m *mockConn) SetPongHandler(func(string) error) {}

func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

func (m *mockConn) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// ErrClosedConnection is returned when attempting to use a closed connection
var ErrClosedConnection = errors.New("connection closed")

// tokenVerifier accepts tokens of the form "user-<id>".
type tokenVerifier struct{}

func (tokenVerifier) Verify(token string) (uint, error) {
	var id uint
	if _, err := fmt.Sscanf(token, "user-%d", &id); err != nil || id == 0 {
		return 0, errors.New("invalid token")
	}
	return id, nil
}

func tokenFor(userID uint) string {
	return fmt.Sprintf("user-%d", userID)
}

// fakeStore records persisted messages. err, when set, is returned instead.
// delay makes Persist sleep without watching its context.
type fakeStore struct {
	mu     sync.Mutex
	nextID uint
	saved  []models.ChatMessage
	calls  int
	err    error
	delay  time.Duration

	readErr error
}

func (s *fakeStore) Persist(ctx context.Context, senderID, receiverID uint, content string) (*models.ChatMessage, error) {
	s.mu.Lock()
	s.calls++
	err, delay := s.err, s.delay
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	msg := models.ChatMessage{
		ID:         s.nextID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  time.Now(),
	}
	s.saved = append(s.saved, msg)
	return &msg, nil
}

func (s *fakeStore) MarkRead(ctx context.Context, messageID, readerID uint) (*models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	for i := range s.saved {
		if s.saved[i].ID == messageID && s.saved[i].ReceiverID == readerID && !s.saved[i].IsRead {
			s.saved[i].IsRead = true
			msg := s.saved[i]
			return &msg, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *fakeStore) persistCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// recordingMirror records presence updates applied by the hub.
type recordingMirror struct {
	mu      sync.Mutex
	updates []models.StatusUpdate
}

func (m *recordingMirror) SetUserOnline(ctx context.Context, userID uint) error {
	m.record(userID, models.StatusOnline)
	return nil
}

func (m *recordingMirror) SetUserOffline(ctx context.Context, userID uint) error {
	m.record(userID, models.StatusOffline)
	return nil
}

func (m *recordingMirror) record(userID uint, status models.PresenceStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, models.StatusUpdate{UserID: userID, Status: status})
}

func (m *recordingMirror) snapshot() []models.StatusUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.StatusUpdate, len(m.updates))
	copy(out, m.updates)
	return out
}

// Helper functions for tests
func createTestHub(t *testing.T, store *fakeStore) *Hub {
	return createTestHubWith(t, Dependencies{Store: store}, HubConfig{})
}

func createTestHubWith(t *testing.T, deps Dependencies, cfg HubConfig) *Hub {
	t.Helper()
	if deps.Verifier == nil {
		deps.Verifier = tokenVerifier{}
	}
	if deps.Store == nil {
		deps.Store = &fakeStore{}
	}
	hub := NewHub(deps, cfg)
	t.Cleanup(hub.Stop)
	return hub
}

// connectTestClient registers a connection without starting its pumps, so
// queued frames stay in the send buffer for drainEvents.
func connectTestClient(t *testing.T, hub *Hub, userID uint) *Client {
	t.Helper()
	c, err := hub.OnConnect(Handshake{Token: tokenFor(userID)})
	if err != nil {
		t.Fatalf("connect user %d: %v", userID, err)
	}
	return c
}

type receivedEvent struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (e receivedEvent) decode(t *testing.T, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(e.Data, v); err != nil {
		t.Fatalf("decode %s: %v", e.Type, err)
	}
}

// drainEvents returns every frame queued on c so far.
func drainEvents(t *testing.T, c *Client) []receivedEvent {
	t.Helper()
	var out []receivedEvent
	for {
		select {
		case raw := <-c.send:
			var ev receivedEvent
			if err := json.Unmarshal(raw, &ev); err != nil {
				t.Fatalf("unmarshal frame: %v", err)
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

func eventsOfType(events []receivedEvent, msgType MessageType) []receivedEvent {
	var out []receivedEvent
	for _, ev := range events {
		if ev.Type == msgType {
			out = append(out, ev)
		}
	}
	return out
}
