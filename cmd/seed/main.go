package main

import (
	"context"
	"log"
	"log/slog"

	"chat-relay/internal/config"
	"chat-relay/internal/database"
	"chat-relay/internal/models"
	"chat-relay/internal/repository"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("Starting database seeding...")

	// Connect to database
	db, err := database.NewDatabaseConnection(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	ctx := context.Background()
	userRepo := repository.NewUserRepository(db)
	friendRepo := repository.NewFriendRepository(db)
	chatRepo := repository.NewChatRepository(db)

	// Seed initial users
	slog.Info("Creating initial users...")
	testUsers := []struct {
		username string
		email    string
	}{
		{"admin", "admin@notify.com"},
		{"alice", "alice@notify.com"},
		{"bob", "bob@notify.com"},
		{"charlie", "charlie@notify.com"},
	}

	ids := make(map[string]uint, len(testUsers))
	for _, userData := range testUsers {
		user := &models.User{Username: userData.username, Email: userData.email}
		if err := userRepo.Create(ctx, user); err != nil {
			slog.Warn("User might already exist", "username", userData.username, "error", err)
			continue
		}
		ids[userData.username] = user.ID
		slog.Info("Created user", "username", userData.username, "id", user.ID)
	}

	// Charlie stays friendless so messaging him is refused.
	slog.Info("Creating friendships...")
	friendships := [][2]string{
		{"admin", "alice"},
		{"admin", "bob"},
		{"alice", "bob"},
	}
	for _, pair := range friendships {
		a, b := ids[pair[0]], ids[pair[1]]
		if a == 0 || b == 0 {
			continue
		}
		if err := friendRepo.AddFriend(ctx, a, b); err != nil {
			slog.Warn("Failed to create friendship", "users", pair, "error", err)
		}
	}

	// Seed sample direct messages through the same path the relay uses
	slog.Info("Creating sample messages...")
	directMessages := []struct {
		from, to, text string
	}{
		{"admin", "alice", "Hey Alice, welcome to the team!"},
		{"alice", "admin", "Thank you! I'm excited to get started."},
		{"bob", "alice", "Hi Alice! If you need any help, feel free to ask."},
	}
	for _, dm := range directMessages {
		msg, err := chatRepo.Persist(ctx, ids[dm.from], ids[dm.to], dm.text)
		if err != nil {
			slog.Warn("Failed to create direct message", "from", dm.from, "to", dm.to, "error", err)
			continue
		}
		slog.Info("Created direct message", "id", msg.ID)
	}

	slog.Info("Database seeding completed successfully!")
}
