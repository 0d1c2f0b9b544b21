package service

import (
	"context"
	"errors"

	"github.com/phostann/ybook/internal/domain"
)

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrMessageNotFound     = errors.New("message not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrForbidden           = errors.New("not authorized for this room")
	ErrNotMember           = errors.New("not an active member of this room")
	ErrAlreadyMember       = errors.New("already a member of this room")
	ErrInvalidOperation    = errors.New("operation not valid for this room")
	ErrRecallWindowExpired = errors.New("recall window has expired")
)

// ChatService orchestrates rooms, messages and read state. Operations
// that notify other members return fan-out instructions; the transport
// layer resolves them against the connection registry. The service has
// no dependency on any transport.
type ChatService interface {
	CreateRoom(ctx context.Context, creatorID int64, req *domain.CreateRoomRequest) (*domain.RoomResponse, error)
	StartPrivateChat(ctx context.Context, userID, targetUserID int64) (*domain.RoomResponse, error)
	ListRooms(ctx context.Context, userID int64) ([]domain.RoomResponse, error)
	GetRoom(ctx context.Context, roomID, userID int64) (*domain.RoomResponse, error)
	IsRoomMember(ctx context.Context, roomID, userID int64) (bool, error)
	JoinRoom(ctx context.Context, roomID, userID int64, nickname string) ([]domain.Fanout, error)
	LeaveRoom(ctx context.Context, roomID, userID int64) ([]domain.Fanout, error)

	SendMessage(ctx context.Context, senderID int64, req *domain.SendMessageRequest) (*domain.MessageResponse, []domain.Fanout, error)
	GetHistory(ctx context.Context, roomID, requesterID int64, page, pageSize int) (*domain.MessagePage, error)
	RecallMessage(ctx context.Context, messageID, requesterID int64) ([]domain.Fanout, error)
	MarkRead(ctx context.Context, roomID, userID int64) ([]domain.Fanout, error)
	Typing(ctx context.Context, roomID, userID int64, typing bool) ([]domain.Fanout, error)

	// DeleteUserChatData is the cleanup hook the account subsystem
	// calls when an account is removed.
	DeleteUserChatData(ctx context.Context, userID int64) error
}

// PresenceService tracks per-user online state.
type PresenceService interface {
	SetOnline(ctx context.Context, userID int64, device domain.DeviceInfo) error
	SetOffline(ctx context.Context, userID int64) error
	Heartbeat(ctx context.Context, userID int64) error
	GetPresence(ctx context.Context, userID int64) (*domain.PresenceRecord, error)
	GetRoomPresence(ctx context.Context, roomID int64) ([]domain.PresenceRecord, error)
}
