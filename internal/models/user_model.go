package models

import "time"

/** --------------------ENTITIES-------------------- */
// User is the subset of the account record the relay reads. Accounts are
// created and managed elsewhere.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null;type:varchar(255)" json:"username"`
	Email     string    `gorm:"uniqueIndex;not null;type:varchar(255)" json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}
