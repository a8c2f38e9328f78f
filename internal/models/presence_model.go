package models

import "time"

type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusTyping  PresenceStatus = "typing"
	StatusOffline PresenceStatus = "offline"
)

// Presence is a snapshot of one user's presence state.
type Presence struct {
	UserID           uint           `json:"userId"`
	Status           PresenceStatus `json:"status"`
	ConversationWith *uint          `json:"conversationWith,omitempty"`
}

// StatusUpdate is published when a user goes online or offline.
type StatusUpdate struct {
	UserID    uint           `json:"userId"`
	Status    PresenceStatus `json:"status"`
	UpdatedAt time.Time      `json:"updatedAt"`
}
