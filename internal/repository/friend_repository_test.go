package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFriendRepository_IsFriendEitherDirection(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFriendRepository(db)

	mock.ExpectQuery(countFriendships).
		WithArgs(1, 2, 2, 1, "accepted").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	ok, err := repo.IsFriend(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFriendRepository_AddFriend(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewFriendRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "friendships"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	require.NoError(t, repo.AddFriend(context.Background(), 1, 2))
	assert.Error(t, repo.AddFriend(context.Background(), 3, 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CountExisting(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(countUsers).
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	n, err := repo.CountExisting(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
