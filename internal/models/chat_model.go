package models

import (
	"time"
)

/** --------------------ENTITIES-------------------- */
// Message is a persisted direct message between two users.
type Message struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SenderID   uint      `gorm:"not null;index:idx_messages_pair,priority:1" json:"senderId"`
	ReceiverID uint      `gorm:"not null;index:idx_messages_pair,priority:2" json:"receiverId"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	IsRead     bool      `gorm:"not null" json:"isRead"`
	CreatedAt  time.Time `json:"createdAt"`
}

/** -------------------- DTOs -------------------- */
// ChatMessage is the authoritative message shape sent over the wire.
type ChatMessage struct {
	ID         uint      `json:"id"`
	SenderID   uint      `json:"senderId"`
	ReceiverID uint      `json:"receiverId"`
	Content    string    `json:"content"`
	IsRead     bool      `json:"isRead"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ToChatMessage converts the entity to its wire shape.
func (m *Message) ToChatMessage() *ChatMessage {
	return &ChatMessage{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		IsRead:     m.IsRead,
		CreatedAt:  m.CreatedAt,
	}
}
