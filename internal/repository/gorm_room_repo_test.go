package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/phostann/ybook/internal/domain"
)

func TestRoomCreateAndGet(t *testing.T) {
	repo := NewGormRoomRepository(newTestDB(t))
	ctx := context.Background()

	room := createTestRoom(t, repo, domain.RoomTypeGroup, 1)
	require.NotZero(t, room.ID)

	got, err := repo.GetByID(ctx, room.ID)
	require.NoError(t, err)
	require.Equal(t, room.ID, got.ID)
	require.Equal(t, domain.RoomTypeGroup, got.Type)
	require.Equal(t, int64(1), got.CreatorID)

	_, err = repo.GetByID(ctx, 9999)
	require.ErrorIs(t, err, ErrRoomNotFound)
}

func TestAddMemberRejectsActiveDuplicate(t *testing.T) {
	repo := NewGormRoomRepository(newTestDB(t))
	ctx := context.Background()

	room := createTestRoom(t, repo, domain.RoomTypeGroup, 1)
	require.NoError(t, repo.AddMember(ctx, room.ID, 1, domain.MemberRoleOwner, ""))

	err := repo.AddMember(ctx, room.ID, 1, domain.MemberRoleMember, "")
	require.ErrorIs(t, err, ErrAlreadyMember)

	err = repo.AddMember(ctx, 9999, 1, domain.MemberRoleMember, "")
	require.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRemoveMemberAndRejoinReactivatesRow(t *testing.T) {
	repo := NewGormRoomRepository(newTestDB(t))
	ctx := context.Background()

	room := createTestRoom(t, repo, domain.RoomTypeGroup, 1)
	require.NoError(t, repo.AddMember(ctx, room.ID, 1, domain.MemberRoleOwner, ""))
	require.NoError(t, repo.AddMember(ctx, room.ID, 2, domain.MemberRoleMember, "bob"))

	got, err := repo.GetByID(ctx, room.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.MemberCount)

	require.NoError(t, repo.RemoveMember(ctx, room.ID, 2))

	active, err := repo.IsActiveMember(ctx, room.ID, 2)
	require.NoError(t, err)
	require.False(t, active)

	got, err = repo.GetByID(ctx, room.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.MemberCount)

	// A LEFT member cannot leave again.
	require.ErrorIs(t, repo.RemoveMember(ctx, room.ID, 2), ErrNotMember)

	// Rejoin reuses the same row, active again with reset unread count.
	require.NoError(t, repo.AddMember(ctx, room.ID, 2, domain.MemberRoleMember, "bobby"))

	member, err := repo.GetMember(ctx, room.ID, 2)
	require.NoError(t, err)
	require.Equal(t, domain.MemberStatusActive, member.Status)
	require.Equal(t, "bobby", member.Nickname)
	require.Equal(t, 0, member.UnreadCount)

	var rows int64
	require.NoError(t, newCountMembers(repo, room.ID, &rows))
	require.Equal(t, int64(2), rows)
}

func newCountMembers(repo *GormRoomRepository, roomID int64, out *int64) error {
	return repo.db.Model(&domain.RoomMemberModel{}).Where("room_id = ?", roomID).Count(out).Error
}

func TestFindPrivateRoomIsOrderInsensitive(t *testing.T) {
	repo := NewGormRoomRepository(newTestDB(t))
	ctx := context.Background()

	room := createTestRoom(t, repo, domain.RoomTypePrivate, 1)
	require.NoError(t, repo.AddMember(ctx, room.ID, 1, domain.MemberRoleOwner, ""))
	require.NoError(t, repo.AddMember(ctx, room.ID, 2, domain.MemberRoleMember, ""))

	found, err := repo.FindPrivateRoom(ctx, 1, 2)
	require.NoError(t, err)
	require.Equal(t, room.ID, found.ID)

	found, err = repo.FindPrivateRoom(ctx, 2, 1)
	require.NoError(t, err)
	require.Equal(t, room.ID, found.ID)

	_, err = repo.FindPrivateRoom(ctx, 1, 3)
	require.ErrorIs(t, err, ErrRoomNotFound)
}

func TestIncrementUnreadSkipsSenderAndLeftMembers(t *testing.T) {
	repo := NewGormRoomRepository(newTestDB(t))
	ctx := context.Background()

	room := createTestRoom(t, repo, domain.RoomTypeGroup, 1)
	require.NoError(t, repo.AddMember(ctx, room.ID, 1, domain.MemberRoleOwner, ""))
	require.NoError(t, repo.AddMember(ctx, room.ID, 2, domain.MemberRoleMember, ""))
	require.NoError(t, repo.AddMember(ctx, room.ID, 3, domain.MemberRoleMember, ""))
	require.NoError(t, repo.RemoveMember(ctx, room.ID, 3))

	require.NoError(t, repo.IncrementUnread(ctx, room.ID, 1))
	require.NoError(t, repo.IncrementUnread(ctx, room.ID, 1))

	sender, err := repo.GetMember(ctx, room.ID, 1)
	require.NoError(t, err)
	require.Equal(t, 0, sender.UnreadCount)

	other, err := repo.GetMember(ctx, room.ID, 2)
	require.NoError(t, err)
	require.Equal(t, 2, other.UnreadCount)

	left, err := repo.GetMember(ctx, room.ID, 3)
	require.NoError(t, err)
	require.Equal(t, 0, left.UnreadCount)
}

func TestMarkReadResetsUnreadAndStampsTime(t *testing.T) {
	repo := NewGormRoomRepository(newTestDB(t))
	ctx := context.Background()

	room := createTestRoom(t, repo, domain.RoomTypeGroup, 1)
	require.NoError(t, repo.AddMember(ctx, room.ID, 1, domain.MemberRoleOwner, ""))
	require.NoError(t, repo.AddMember(ctx, room.ID, 2, domain.MemberRoleMember, ""))
	require.NoError(t, repo.IncrementUnread(ctx, room.ID, 1))

	readAt := time.Now()
	require.NoError(t, repo.MarkRead(ctx, room.ID, 2, readAt))

	member, err := repo.GetMember(ctx, room.ID, 2)
	require.NoError(t, err)
	require.Equal(t, 0, member.UnreadCount)
	require.NotNil(t, member.LastReadTime)
	require.WithinDuration(t, readAt, *member.LastReadTime, time.Second)
}

func TestListByUserExcludesLeftRooms(t *testing.T) {
	repo := NewGormRoomRepository(newTestDB(t))
	ctx := context.Background()

	roomA := createTestRoom(t, repo, domain.RoomTypeGroup, 1)
	roomB := createTestRoom(t, repo, domain.RoomTypeGroup, 1)
	require.NoError(t, repo.AddMember(ctx, roomA.ID, 5, domain.MemberRoleMember, ""))
	require.NoError(t, repo.AddMember(ctx, roomB.ID, 5, domain.MemberRoleMember, ""))
	require.NoError(t, repo.RemoveMember(ctx, roomB.ID, 5))

	rooms, err := repo.ListByUser(ctx, 5)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	require.Equal(t, roomA.ID, rooms[0].ID)
}

func TestDeleteMembershipAndRoomCascade(t *testing.T) {
	repo := NewGormRoomRepository(newTestDB(t))
	ctx := context.Background()

	room := createTestRoom(t, repo, domain.RoomTypeGroup, 1)
	require.NoError(t, repo.AddMember(ctx, room.ID, 1, domain.MemberRoleOwner, ""))
	require.NoError(t, repo.AddMember(ctx, room.ID, 2, domain.MemberRoleMember, ""))

	require.NoError(t, repo.DeleteMembership(ctx, room.ID, 2))

	_, err := repo.GetMember(ctx, room.ID, 2)
	require.ErrorIs(t, err, ErrMemberNotFound)

	got, err := repo.GetByID(ctx, room.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.MemberCount)

	// Deleting an absent membership is a no-op.
	require.NoError(t, repo.DeleteMembership(ctx, room.ID, 2))

	require.NoError(t, repo.DeleteRoom(ctx, room.ID))
	_, err = repo.GetByID(ctx, room.ID)
	require.ErrorIs(t, err, ErrRoomNotFound)

	_, err = repo.GetMember(ctx, room.ID, 1)
	require.ErrorIs(t, err, ErrMemberNotFound)
}
