package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chat-relay/internal/models"

	"gorm.io/gorm"
)

// ChatRepository persists direct messages and their read status.
type ChatRepository interface {
	Persist(ctx context.Context, senderID, receiverID uint, content string) (*models.ChatMessage, error)
	MarkRead(ctx context.Context, messageID, readerID uint) (*models.ChatMessage, error)
}

type chatRepository struct {
	db      *gorm.DB
	users   UserRepository
	friends FriendRepository
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{
		db:      db,
		users:   NewUserRepository(db),
		friends: NewFriendRepository(db),
	}
}

// Persist stores a message after checking that both users exist and are
// friends.
func (r *chatRepository) Persist(ctx context.Context, senderID, receiverID uint, content string) (*models.ChatMessage, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("message content cannot be empty: %w", models.ErrInvalidContent)
	}
	if senderID == receiverID {
		return nil, fmt.Errorf("cannot message yourself: %w", models.ErrForbidden)
	}

	users, err := r.users.CountExisting(ctx, senderID, receiverID)
	if err != nil {
		return nil, storeFault("check users", err)
	}
	if users < 2 {
		return nil, fmt.Errorf("one or both users not found: %w", models.ErrNotFound)
	}

	ok, err := r.friends.IsFriend(ctx, senderID, receiverID)
	if err != nil {
		return nil, storeFault("check friendship", err)
	}
	if !ok {
		return nil, fmt.Errorf("users %d and %d are not friends: %w", senderID, receiverID, models.ErrForbidden)
	}

	msg := &models.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
	}
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, storeFault("create message", err)
	}
	return msg.ToChatMessage(), nil
}

// MarkRead flags an unread message as read. Only the receiver may mark it.
func (r *chatRepository) MarkRead(ctx context.Context, messageID, readerID uint) (*models.ChatMessage, error) {
	db := r.db.WithContext(ctx)

	var msg models.Message
	err := db.Where("id = ? AND receiver_id = ? AND is_read = ?", messageID, readerID, false).
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("message not found or already read: %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, storeFault("find message", err)
	}

	if err := db.Model(&msg).Update("is_read", true).Error; err != nil {
		return nil, storeFault("mark message read", err)
	}
	msg.IsRead = true
	return msg.ToChatMessage(), nil
}

func storeFault(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, models.ErrStoreFault, err)
}
