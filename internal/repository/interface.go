package repository

import (
	"context"
	"errors"
	"time"

	"github.com/phostann/ybook/internal/domain"
)

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrMemberNotFound   = errors.New("member not found")
	ErrAlreadyMember    = errors.New("already an active member")
	ErrNotMember        = errors.New("not an active member")
	ErrMessageNotFound  = errors.New("message not found")
	ErrPresenceNotFound = errors.New("presence record not found")
)

// RoomRepository is the room store: room rows plus membership
// bookkeeping.
type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) error
	GetByID(ctx context.Context, id int64) (*domain.Room, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Room, error)
	// FindPrivateRoom returns the PRIVATE room whose two active
	// members are exactly userA and userB, in either order.
	FindPrivateRoom(ctx context.Context, userA, userB int64) (*domain.Room, error)

	// AddMember inserts a membership row, or reactivates a LEFT row in
	// place. An already-ACTIVE member yields ErrAlreadyMember.
	AddMember(ctx context.Context, roomID, userID int64, role domain.MemberRole, nickname string) error
	// RemoveMember flips an ACTIVE row to LEFT and decrements the
	// room's member count. A missing or LEFT row yields ErrNotMember.
	RemoveMember(ctx context.Context, roomID, userID int64) error
	GetMember(ctx context.Context, roomID, userID int64) (*domain.RoomMember, error)
	IsActiveMember(ctx context.Context, roomID, userID int64) (bool, error)
	ListActiveMembers(ctx context.Context, roomID int64) ([]domain.RoomMember, error)

	SetLastMessage(ctx context.Context, roomID, messageID int64, at time.Time) error
	// IncrementUnread bumps unread_count for every ACTIVE member of the
	// room except senderID, in a single statement.
	IncrementUnread(ctx context.Context, roomID, senderID int64) error
	// MarkRead resets unread_count to zero and stamps last_read_time
	// for one member.
	MarkRead(ctx context.Context, roomID, userID int64, at time.Time) error

	// DeleteMembership hard-deletes one membership row and decrements
	// the member count if the row was ACTIVE. Account-deletion only.
	DeleteMembership(ctx context.Context, roomID, userID int64) error
	// DeleteRoom hard-deletes a room and all of its membership rows.
	// Account-deletion only.
	DeleteRoom(ctx context.Context, roomID int64) error
}

// MessageRepository is the message store. Append serializes sequence
// allocation per room, so concurrent sends never share a sequence id.
type MessageRepository interface {
	Append(ctx context.Context, msg *domain.Message) error
	MaxSequence(ctx context.Context, roomID int64) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Message, error)
	// Page returns messages ordered by sequence_id descending together
	// with the total message count for the room.
	Page(ctx context.Context, roomID int64, page, pageSize int) ([]domain.Message, int64, error)
	// Recall flips status to RECALLED and rewrites content to the given
	// placeholder, preserving id and sequence_id.
	Recall(ctx context.Context, id int64, placeholder string) error
	// IncrementReadCount bumps read_count on every message in the room
	// sent by someone else after the reader's previous read mark.
	IncrementReadCount(ctx context.Context, roomID, readerID int64, since time.Time) error

	DeleteBySender(ctx context.Context, roomID, senderID int64) error
	DeleteByRoom(ctx context.Context, roomID int64) error
}

// PresenceRepository stores the durable per-user presence row.
type PresenceRepository interface {
	Upsert(ctx context.Context, rec *domain.PresenceRecord) error
	Get(ctx context.Context, userID int64) (*domain.PresenceRecord, error)
	// Touch refreshes last_active_time without changing status.
	Touch(ctx context.Context, userID int64, at time.Time) error
	Delete(ctx context.Context, userID int64) error
}
