package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"chat-relay/internal/models"
)

const mirrorQueueSize = 1024

// TokenVerifier resolves a handshake credential to a user id.
type TokenVerifier interface {
	Verify(token string) (uint, error)
}

// MessageStore persists accepted private messages.
type MessageStore interface {
	Persist(ctx context.Context, senderID, receiverID uint, content string) (*models.ChatMessage, error)
}

// ReadStatusUpdater records read receipts. When configured, the relay
// routes receipts to the stored sender instead of the client-supplied one.
type ReadStatusUpdater interface {
	MarkRead(ctx context.Context, messageID, readerID uint) (*models.ChatMessage, error)
}

// PresenceMirror publishes online/offline transitions outside the process.
type PresenceMirror interface {
	SetUserOnline(ctx context.Context, userID uint) error
	SetUserOffline(ctx context.Context, userID uint) error
}

// MessagePublisher hands accepted messages to downstream consumers.
type MessagePublisher interface {
	PublishMessage(ctx context.Context, msg *models.ChatMessage) error
}

// Dependencies are the collaborators of a Hub. Verifier and Store are
// required; the rest are optional.
type Dependencies struct {
	Verifier   TokenVerifier
	Store      MessageStore
	ReadStatus ReadStatusUpdater
	Mirror     PresenceMirror
	Publisher  MessagePublisher
	Metrics    *Metrics
	Logger     *slog.Logger
}

type HubConfig struct {
	PersistTimeout    time.Duration
	TypingIdleTimeout time.Duration
	SendBufferSize    int
	MaxMessageSize    int64
}

func (c HubConfig) withDefaults() HubConfig {
	if c.PersistTimeout <= 0 {
		c.PersistTimeout = 5 * time.Second
	}
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = 256
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 8192
	}
	return c
}

// Handshake carries what the transport learned about a new connection.
type Handshake struct {
	Token      string
	Conn       Conn
	RemoteAddr string
}

// Hub supervises connection lifecycles and routes events between users.
type Hub struct {
	registry *Registry
	presence *PresenceTracker

	verifier   TokenVerifier
	store      MessageStore
	readStatus ReadStatusUpdater
	mirror     PresenceMirror
	publisher  MessagePublisher
	metrics    *Metrics
	logger     *slog.Logger

	cfg HubConfig

	// lifecycle orders registry and presence transitions with the
	// broadcasts they cause.
	lifecycle sync.Mutex

	// Presence transitions for the mirror, applied in order by Run
	mirrorQueue chan models.StatusUpdate

	// Context for graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(deps Dependencies, cfg HubConfig) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	hub := &Hub{
		registry:    NewRegistry(),
		verifier:    deps.Verifier,
		store:       deps.Store,
		readStatus:  deps.ReadStatus,
		mirror:      deps.Mirror,
		publisher:   deps.Publisher,
		metrics:     deps.Metrics,
		logger:      logger,
		cfg:         cfg,
		mirrorQueue: make(chan models.StatusUpdate, mirrorQueueSize),
		ctx:         ctx,
		cancel:      cancel,
	}
	hub.presence = NewPresenceTracker(cfg.TypingIdleTimeout, hub.onTypingExpired)

	return hub
}

// Run applies presence updates to the mirror until Stop is called, then
// unregisters every live connection and flushes the queued updates,
// including the offline transitions of that shutdown.
func (h *Hub) Run() {
	h.logger.Info("WebSocket hub started")
	for {
		select {
		case update := <-h.mirrorQueue:
			h.applyMirror(update)

		case <-h.ctx.Done():
			h.logger.Info("WebSocket hub shutting down")
			for _, c := range h.registry.All() {
				h.OnDisconnect(c)
				h.drainMirror()
			}
			h.drainMirror()
			return
		}
	}
}

func (h *Hub) drainMirror() {
	for {
		select {
		case update := <-h.mirrorQueue:
			h.applyMirror(update)
		default:
			return
		}
	}
}

func (h *Hub) Stop() {
	h.cancel()
}

// OnConnect authenticates a handshake and registers the connection. On an
// authentication failure an *AuthError is returned and nothing is
// registered.
func (h *Hub) OnConnect(hs Handshake) (*Client, error) {
	if h.ctx.Err() != nil {
		return nil, ErrHubStopped
	}

	userID, err := h.verifier.Verify(hs.Token)
	if err != nil {
		h.logger.Warn("WebSocket authentication failed", "remoteAddr", hs.RemoteAddr, "error", err)
		return nil, &AuthError{Err: err}
	}

	client := newClient(h, hs.Conn, userID)

	h.lifecycle.Lock()
	defer h.lifecycle.Unlock()

	h.registry.Add(userID, client)
	h.metrics.connectionOpened()
	cameOnline := h.presence.SetOnline(userID)
	h.metrics.setOnlineUsers(h.registry.UserCount())

	h.deliver(client, NewEvent(MessageTypeConnected, ConnectedData{
		ClientID:    client.id,
		UserID:      userID,
		OnlineUsers: h.registry.OnlineUsers(),
	}))

	if cameOnline {
		h.broadcastPresence(userID, models.StatusOnline)
		h.enqueueMirror(userID, models.StatusOnline)
	}

	h.logger.Info("Client registered", "clientID", client.id, "userID", userID, "remoteAddr", hs.RemoteAddr)
	return client, nil
}

// OnDisconnect unregisters a connection. It is safe to call more than once
// for the same client. When the user's last connection goes, their typing
// indicator is cleared and everyone else sees them go offline.
func (h *Hub) OnDisconnect(c *Client) {
	c.close()

	h.lifecycle.Lock()
	defer h.lifecycle.Unlock()

	// Checked under the lock so a caller that loses the race returns only
	// after the winner's transitions are queued.
	if !c.markUnregistered() {
		return
	}

	wasLast := h.registry.Remove(c.userID, c)
	h.metrics.connectionClosed()
	h.logger.Info("Client unregistered", "clientID", c.id, "userID", c.userID,
		"duration", time.Since(c.ConnectedAt()))
	if !wasLast {
		return
	}

	if peer, wasTyping := h.presence.SetOffline(c.userID); wasTyping {
		h.deliverToUser(peer, newTypingEvent(c.userID, false))
	}
	h.metrics.setOnlineUsers(h.registry.UserCount())
	h.broadcastPresence(c.userID, models.StatusOffline)
	h.enqueueMirror(c.userID, models.StatusOffline)
}

// OnTyping forwards a typing indicator to every connection of the peer.
func (h *Hub) OnTyping(c *Client, data TypingData) {
	if data.ReceiverID == 0 || data.ReceiverID == c.userID {
		return
	}

	h.lifecycle.Lock()
	defer h.lifecycle.Unlock()

	// A closed client is about to be unregistered; forwarding now could
	// leave the peer with an indicator nobody clears.
	if c.isClosed() {
		return
	}

	if displaced, ok := h.presence.SetTyping(c.userID, data.ReceiverID, data.IsTyping); ok {
		h.deliverToUser(displaced, newTypingEvent(c.userID, false))
	}
	h.deliverToUser(data.ReceiverID, newTypingEvent(c.userID, data.IsTyping))
}

func (h *Hub) onTypingExpired(userID, peerID uint) {
	h.lifecycle.Lock()
	defer h.lifecycle.Unlock()

	// The user may have resumed typing after the timer cleared the state.
	if p := h.presence.Get(userID); p.ConversationWith != nil && *p.ConversationWith == peerID {
		return
	}
	h.deliverToUser(peerID, newTypingEvent(userID, false))
}

// Presence returns userID's current presence.
func (h *Hub) Presence(userID uint) models.Presence {
	return h.presence.Get(userID)
}

// OnlineUsers returns the ids of every user with a live connection.
func (h *Hub) OnlineUsers() []uint {
	return h.registry.OnlineUsers()
}

func (h *Hub) ConnectionCount() int {
	return h.registry.ConnectionCount()
}

func (h *Hub) handleInbound(ctx context.Context, c *Client, raw []byte) {
	var msg InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.logger.Debug("Failed to unmarshal message", "clientID", c.id, "userID", c.userID, "error", err)
		h.deliver(c, newMessageErrorEvent(ErrCodeInvalidMessage, reasonInvalidFormat, ""))
		return
	}
	if !msg.Type.IsInbound() {
		h.deliver(c, newMessageErrorEvent(ErrCodeInvalidMessage, reasonUnknownType, ""))
		return
	}
	h.metrics.eventReceived(msg.Type)

	switch msg.Type {
	case MessageTypePrivateMessage:
		var data PrivateMessageData
		if !h.decode(c, msg.Data, &data) {
			return
		}
		h.SendPrivateMessage(ctx, c, data)

	case MessageTypeTyping:
		var data TypingData
		if !h.decode(c, msg.Data, &data) {
			return
		}
		h.OnTyping(c, data)

	case MessageTypeMessageRead:
		var data MessageReadData
		if !h.decode(c, msg.Data, &data) {
			return
		}
		h.MarkRead(ctx, c, data)
	}
}

func (h *Hub) decode(c *Client, raw json.RawMessage, v interface{}) bool {
	if len(raw) == 0 {
		h.deliver(c, newMessageErrorEvent(ErrCodeInvalidMessage, reasonInvalidFormat, ""))
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		h.logger.Debug("Invalid payload", "clientID", c.id, "userID", c.userID, "error", err)
		h.deliver(c, newMessageErrorEvent(ErrCodeInvalidMessage, reasonInvalidFormat, ""))
		return false
	}
	return true
}

// broadcastPresence tells every connection except the user's own. Callers
// hold the lifecycle lock.
func (h *Hub) broadcastPresence(userID uint, status models.PresenceStatus) {
	h.fanOut(h.registry.AllHandlesExcept(userID), newPresenceChangedEvent(userID, status))
}

func (h *Hub) deliverToUser(userID uint, ev *Event) {
	h.fanOut(h.registry.LiveHandlesFor(userID), ev)
}

func (h *Hub) deliver(c *Client, ev *Event) {
	h.fanOut([]*Client{c}, ev)
}

// fanOut encodes ev once and queues it on each client. A client whose
// buffer overflowed is evicted asynchronously.
func (h *Hub) fanOut(clients []*Client, ev *Event) {
	if len(clients) == 0 {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("Failed to encode event", "type", ev.Type, "error", err)
		return
	}

	for _, c := range clients {
		err := c.sendRaw(data)
		if err == nil {
			h.metrics.eventSent(ev.Type)
			continue
		}
		h.metrics.eventDropped(ev.Type)
		if errors.Is(err, ErrSendBufferFull) {
			h.logger.Warn("Evicting slow client", "clientID", c.id, "userID", c.userID)
			go h.OnDisconnect(c)
		}
	}
}

func (h *Hub) enqueueMirror(userID uint, status models.PresenceStatus) {
	if h.mirror == nil {
		return
	}
	update := models.StatusUpdate{UserID: userID, Status: status, UpdatedAt: time.Now()}
	select {
	case h.mirrorQueue <- update:
	default:
		h.logger.Warn("Presence mirror queue full, dropping update", "userID", userID, "status", status)
	}
}

func (h *Hub) applyMirror(update models.StatusUpdate) {
	ctx, cancel := context.WithTimeout(context.Background(), h.cfg.PersistTimeout)
	defer cancel()

	var err error
	if update.Status == models.StatusOnline {
		err = h.mirror.SetUserOnline(ctx, update.UserID)
	} else {
		err = h.mirror.SetUserOffline(ctx, update.UserID)
	}
	if err != nil {
		h.logger.Error("Failed to mirror presence", "userID", update.UserID, "status", update.Status, "error", err)
	}
}
