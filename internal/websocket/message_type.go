package websocket

import (
	"encoding/json"
	"time"

	"chat-relay/internal/models"
)

// MessageType names a websocket frame.
type MessageType string

// Frames sent by clients.
const (
	MessageTypePrivateMessage MessageType = "private_message"
	MessageTypeTyping         MessageType = "typing"
	MessageTypeMessageRead    MessageType = "message_read"
)

// Frames sent by the relay. "typing" and "message_read" travel in both
// directions with different payloads.
const (
	MessageTypeConnected        MessageType = "connected"
	MessageTypePresenceChanged  MessageType = "presence_changed"
	MessageTypeMessageDelivered MessageType = "message_delivered"
	MessageTypeMessageAccepted  MessageType = "message_accepted"
	MessageTypeMessageError     MessageType = "message_error"
)

// String returns the string representation of the MessageType
func (mt MessageType) String() string {
	return string(mt)
}

// IsInbound reports whether clients may send frames of this type.
func (mt MessageType) IsInbound() bool {
	switch mt {
	case MessageTypePrivateMessage, MessageTypeTyping, MessageTypeMessageRead:
		return true
	default:
		return false
	}
}

// InboundMessage is a frame read from a client. Data is decoded once the
// type is known.
type InboundMessage struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Event is a frame written to a client.
type Event struct {
	Type      MessageType `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

func NewEvent(msgType MessageType, data interface{}) *Event {
	return &Event{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
}

/** -------------------- inbound payloads -------------------- */

type PrivateMessageData struct {
	ReceiverID uint   `json:"receiverId"`
	Content    string `json:"content"`
	// ClientID is a provisional id chosen by the sending client. It is
	// echoed back on the acceptance only and never reaches the receiver.
	ClientID string `json:"clientId,omitempty"`
}

type TypingData struct {
	ReceiverID uint `json:"receiverId"`
	IsTyping   bool `json:"isTyping"`
}

type MessageReadData struct {
	MessageID uint `json:"messageId"`
	SenderID  uint `json:"senderId"`
}

/** -------------------- outbound payloads -------------------- */

type ConnectedData struct {
	ClientID    string `json:"clientId"`
	UserID      uint   `json:"userId"`
	OnlineUsers []uint `json:"onlineUsers"`
}

type PresenceChangedData struct {
	UserID uint                  `json:"userId"`
	Status models.PresenceStatus `json:"status"`
}

type TypingNotice struct {
	UserID   uint `json:"userId"`
	IsTyping bool `json:"isTyping"`
}

type MessageAcceptedData struct {
	models.ChatMessage
	ClientID string `json:"clientId,omitempty"`
}

type MessageErrorData struct {
	Code     ErrorCode `json:"code"`
	Reason   string    `json:"reason"`
	ClientID string    `json:"clientId,omitempty"`
}

type MessageReadNotice struct {
	MessageID uint `json:"messageId"`
}

func newPresenceChangedEvent(userID uint, status models.PresenceStatus) *Event {
	return NewEvent(MessageTypePresenceChanged, PresenceChangedData{UserID: userID, Status: status})
}

func newTypingEvent(userID uint, isTyping bool) *Event {
	return NewEvent(MessageTypeTyping, TypingNotice{UserID: userID, IsTyping: isTyping})
}

func newMessageErrorEvent(code ErrorCode, reason, clientID string) *Event {
	return NewEvent(MessageTypeMessageError, MessageErrorData{Code: code, Reason: reason, ClientID: clientID})
}
