package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/phostann/ybook/internal/domain"
)

// newTestDB opens an in-memory SQLite database scoped to the test.
// cache=shared keeps the database alive across pool connections, which
// the concurrent append test needs.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&domain.RoomModel{},
		&domain.RoomMemberModel{},
		&domain.MessageModel{},
		&domain.PresenceModel{},
		&domain.UserModel{},
	))
	return db
}

func createTestRoom(t *testing.T, repo *GormRoomRepository, roomType domain.RoomType, creatorID int64) *domain.Room {
	t.Helper()

	room := &domain.Room{
		Name:      "test room",
		Type:      roomType,
		CreatorID: creatorID,
		Status:    domain.RoomStatusActive,
	}
	require.NoError(t, repo.Create(context.Background(), room))
	return room
}
