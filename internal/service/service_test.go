package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/phostann/ybook/internal/directory"
	"github.com/phostann/ybook/internal/domain"
	"github.com/phostann/ybook/internal/repository"
)

// testEnv wires the service under test to real repositories over an
// in-memory SQLite database, with the users table pre-seeded.
type testEnv struct {
	db       *gorm.DB
	rooms    *repository.GormRoomRepository
	messages *repository.GormMessageRepository
	presence *repository.GormPresenceRepository
	chat     *chatService
}

func newTestEnv(t *testing.T, userIDs ...int64) *testEnv {
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

	for _, id := range userIDs {
		require.NoError(t, db.Create(&domain.UserModel{
			ID:       id,
			Username: fmt.Sprintf("user%d", id),
			Nickname: fmt.Sprintf("User %d", id),
		}).Error)
	}

	rooms := repository.NewGormRoomRepository(db)
	messages := repository.NewGormMessageRepository(db)
	presence := repository.NewGormPresenceRepository(db)
	users := directory.NewGormUserDirectory(db)

	chat := NewChatService(rooms, messages, presence, users).(*chatService)

	return &testEnv{
		db:       db,
		rooms:    rooms,
		messages: messages,
		presence: presence,
		chat:     chat,
	}
}

// fanoutTargets collects the user ids a fan-out list addresses.
func fanoutTargets(fanouts []domain.Fanout) []int64 {
	targets := make([]int64, len(fanouts))
	for i, f := range fanouts {
		targets[i] = f.UserID
	}
	return targets
}
