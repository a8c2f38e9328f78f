package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"chat-relay/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type fakePresence struct {
	online []uint
	typing map[uint]uint
}

func (f fakePresence) Presence(userID uint) models.Presence {
	if peer, ok := f.typing[userID]; ok {
		return models.Presence{UserID: userID, Status: models.StatusTyping, ConversationWith: &peer}
	}
	for _, id := range f.online {
		if id == userID {
			return models.Presence{UserID: userID, Status: models.StatusOnline}
		}
	}
	return models.Presence{UserID: userID, Status: models.StatusOffline}
}

func (f fakePresence) OnlineUsers() []uint {
	return f.online
}

func newPresenceEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewPresenceHandler(fakePresence{online: []uint{1, 2}, typing: map[uint]uint{2: 1}})
	engine := gin.New()
	engine.GET("/presence/online", h.GetOnlineUsers)
	engine.GET("/presence/:userId", h.GetUserPresence)
	return engine
}

func TestPresenceHandler_GetOnlineUsers(t *testing.T) {
	w := httptest.NewRecorder()
	newPresenceEngine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/presence/online", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"users":[1,2],"count":2}`, w.Body.String())
}

func TestPresenceHandler_GetUserPresence(t *testing.T) {
	tests := []struct {
		path   string
		status int
		body   string
	}{
		{"/presence/1", http.StatusOK, `{"userId":1,"status":"online"}`},
		{"/presence/2", http.StatusOK, `{"userId":2,"status":"typing","conversationWith":1}`},
		{"/presence/9", http.StatusOK, `{"userId":9,"status":"offline"}`},
		{"/presence/abc", http.StatusBadRequest, `{"code":400,"message":"invalid user id","details":"abc"}`},
	}

	engine := newPresenceEngine()
	for _, tt := range tests {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
		assert.Equal(t, tt.status, w.Code, tt.path)
		assert.JSONEq(t, tt.body, w.Body.String(), tt.path)
	}
}
