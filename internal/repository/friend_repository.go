package repository

import (
	"context"
	"errors"

	"chat-relay/internal/models"

	"gorm.io/gorm"
)

type FriendRepository interface {
	// AddFriend records an accepted friendship from userID to friendID.
	AddFriend(ctx context.Context, userID, friendID uint) error
	// IsFriend reports an accepted friendship in either direction.
	IsFriend(ctx context.Context, userID, friendID uint) (bool, error)
}

type friendRepository struct {
	db *gorm.DB
}

func NewFriendRepository(db *gorm.DB) FriendRepository {
	return &friendRepository{db: db}
}

func (r *friendRepository) AddFriend(ctx context.Context, userID, friendID uint) error {
	if userID == friendID {
		return errors.New("cannot add self as a friend")
	}

	friendship := models.Friendship{
		UserID:   userID,
		FriendID: friendID,
		Status:   models.FriendshipAccepted,
	}
	return r.db.WithContext(ctx).Create(&friendship).Error
}

func (r *friendRepository) IsFriend(ctx context.Context, userID, friendID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Friendship{}).
		Where("((user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)) AND status = ?",
			userID, friendID, friendID, userID, models.FriendshipAccepted).
		Count(&count).Error
	return count > 0, err
}
