package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"chat-relay/internal/auth"
	"chat-relay/internal/models"
	"chat-relay/internal/websocket"

	"github.com/golang-jwt/jwt/v5"
	gorilla "github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type memoryStore struct {
	mu     sync.Mutex
	nextID uint
}

func (s *memoryStore) Persist(ctx context.Context, senderID, receiverID uint, content string) (*models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return &models.ChatMessage{
		ID:         s.nextID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  time.Now(),
	}, nil
}

type frame struct {
	Type websocket.MessageType `json:"type"`
	Data json.RawMessage       `json:"data"`
}

func tokenFor(t *testing.T, userID uint) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": userID}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func newTestServer(t *testing.T) (*httptest.Server, *websocket.Hub) {
	t.Helper()
	verifier := auth.NewJWTVerifier(testSecret)
	reg := prometheus.NewRegistry()
	hub := websocket.NewHub(websocket.Dependencies{
		Verifier: verifier,
		Store:    &memoryStore{},
		Metrics:  websocket.NewMetrics(reg),
	}, websocket.HubConfig{})
	go hub.Run()

	router := NewRouter(hub, verifier, Options{Gatherer: reg})
	router.SetupRoutes()
	srv := httptest.NewServer(router.GetEngine())

	t.Cleanup(func() {
		hub.Stop()
		srv.Close()
	})
	return srv, hub
}

func dial(t *testing.T, srv *httptest.Server, token string) *gorilla.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws?token=" + token
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads frames until one of type want arrives.
func readUntil(t *testing.T, conn *gorilla.Conn, want websocket.MessageType) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var f frame
		require.NoError(t, conn.ReadJSON(&f))
		if f.Type == want {
			return f
		}
	}
}

func TestWebSocket_EndToEndRelay(t *testing.T) {
	srv, _ := newTestServer(t)

	alice := dial(t, srv, tokenFor(t, 1))
	readUntil(t, alice, websocket.MessageTypeConnected)

	bob := dial(t, srv, tokenFor(t, 2))
	connected := readUntil(t, bob, websocket.MessageTypeConnected)
	var data websocket.ConnectedData
	require.NoError(t, json.Unmarshal(connected.Data, &data))
	assert.Equal(t, uint(2), data.UserID)

	online := readUntil(t, alice, websocket.MessageTypePresenceChanged)
	var presence websocket.PresenceChangedData
	require.NoError(t, json.Unmarshal(online.Data, &presence))
	assert.Equal(t, websocket.PresenceChangedData{UserID: 2, Status: models.StatusOnline}, presence)

	require.NoError(t, alice.WriteJSON(map[string]interface{}{
		"type": "private_message",
		"data": map[string]interface{}{"receiverId": 2, "content": "hi bob", "clientId": "c-1"},
	}))

	ack := readUntil(t, alice, websocket.MessageTypeMessageAccepted)
	var accepted websocket.MessageAcceptedData
	require.NoError(t, json.Unmarshal(ack.Data, &accepted))
	assert.Equal(t, "c-1", accepted.ClientID)

	delivered := readUntil(t, bob, websocket.MessageTypeMessageDelivered)
	var msg models.ChatMessage
	require.NoError(t, json.Unmarshal(delivered.Data, &msg))
	assert.Equal(t, accepted.ID, msg.ID)
	assert.Equal(t, "hi bob", msg.Content)

	require.NoError(t, bob.WriteJSON(map[string]interface{}{
		"type": "message_read",
		"data": map[string]interface{}{"messageId": msg.ID, "senderId": 1},
	}))
	read := readUntil(t, alice, websocket.MessageTypeMessageRead)
	assert.JSONEq(t, `{"messageId":1}`, string(read.Data))

	bob.Close()
	offline := readUntil(t, alice, websocket.MessageTypePresenceChanged)
	require.NoError(t, json.Unmarshal(offline.Data, &presence))
	assert.Equal(t, websocket.PresenceChangedData{UserID: 2, Status: models.StatusOffline}, presence)
}

func TestWebSocket_RejectsBadToken(t *testing.T) {
	srv, hub := newTestServer(t)

	conn := dial(t, srv, "not-a-token")
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, gorilla.IsCloseError(err, gorilla.ClosePolicyViolation), "got %v", err)
	assert.Equal(t, 0, hub.ConnectionCount())
}

func TestPresenceRoutes(t *testing.T) {
	srv, hub := newTestServer(t)

	conn := dial(t, srv, tokenFor(t, 3))
	readUntil(t, conn, websocket.MessageTypeConnected)
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 1 }, time.Second, 10*time.Millisecond)

	get := func(path, token string) (*http.Response, string) {
		req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
		require.NoError(t, err)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp, string(body)
	}

	resp, _ := get("/api/v1/presence/online", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := get("/api/v1/presence/online", tokenFor(t, 9))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"users":[3],"count":1}`, body)

	resp, body = get("/api/v1/presence/3", tokenFor(t, 9))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"userId":3,"status":"online"}`, body)

	resp, body = get("/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "relay_active_connections 1")

	resp, _ = get("/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSwaggerDocumentsPresenceRoutes(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/swagger/doc.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var doc struct {
		BasePath string                     `json:"basePath"`
		Paths    map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Equal(t, "/api/v1", doc.BasePath)
	assert.Contains(t, doc.Paths, "/presence/online")
	assert.Contains(t, doc.Paths, "/presence/{userId}")
}
