package models

import "time"

const FriendshipAccepted = "accepted"

// Friendship links two users. Messaging is only allowed between users
// holding an accepted friendship in either direction.
type Friendship struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"userId"`
	FriendID  uint      `gorm:"not null;index" json:"friendId"`
	Status    string    `gorm:"not null;type:varchar(32)" json:"status"` // pending, accepted, blocked
	CreatedAt time.Time `json:"createdAt"`
}
