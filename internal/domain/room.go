package domain

import (
	"time"
)

// RoomType represents the kind of chat room.
type RoomType string

const (
	RoomTypePrivate RoomType = "PRIVATE"
	RoomTypeGroup   RoomType = "GROUP"
)

// RoomStatus represents room lifecycle status.
type RoomStatus string

const (
	RoomStatusActive RoomStatus = "ACTIVE"
	RoomStatusClosed RoomStatus = "CLOSED"
)

// MemberRole represents a member's role in a room.
type MemberRole string

const (
	MemberRoleOwner  MemberRole = "OWNER"
	MemberRoleMember MemberRole = "MEMBER"
)

// MemberStatus represents a membership row's lifecycle status.
type MemberStatus string

const (
	MemberStatusActive MemberStatus = "ACTIVE"
	MemberStatusLeft   MemberStatus = "LEFT"
)

// Room represents a chat room. For PRIVATE rooms Name and Avatar are
// empty in storage; list and detail views derive them from the other
// member at read time.
type Room struct {
	ID              int64      `json:"id"`
	Name            string     `json:"roomName,omitempty"`
	Type            RoomType   `json:"roomType"`
	Avatar          string     `json:"roomAvatar,omitempty"`
	Description     string     `json:"roomDescription,omitempty"`
	CreatorID       int64      `json:"creatorId"`
	LastMessageID   *int64     `json:"lastMessageId,omitempty"`
	LastMessageTime *time.Time `json:"lastMessageTime,omitempty"`
	MemberCount     int        `json:"memberCount"`
	Status          RoomStatus `json:"status"`
	CreatedAt       time.Time  `json:"createTime"`
	UpdatedAt       time.Time  `json:"updateTime"`
}

// RoomMember represents a membership row, at most one per (room, user).
type RoomMember struct {
	ID           int64        `json:"id"`
	RoomID       int64        `json:"roomId"`
	UserID       int64        `json:"userId"`
	Role         MemberRole   `json:"role"`
	Nickname     string       `json:"nickname,omitempty"`
	MuteUntil    *time.Time   `json:"muteUntil,omitempty"`
	JoinTime     time.Time    `json:"joinTime"`
	LastReadTime *time.Time   `json:"lastReadTime,omitempty"`
	UnreadCount  int          `json:"unreadCount"`
	Status       MemberStatus `json:"status"`
}

// UserSummary is the slice of user identity this subsystem needs for
// enrichment. It is produced by the user directory collaborator.
type UserSummary struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// CreateRoomRequest is the payload for creating a room. A PRIVATE room
// must invite exactly one member; creation is idempotent per user pair.
type CreateRoomRequest struct {
	Name        string   `json:"roomName"`
	Type        RoomType `json:"roomType" binding:"required"`
	Avatar      string   `json:"roomAvatar"`
	Description string   `json:"roomDescription"`
	MemberIDs   []int64  `json:"memberIds"`
}

// StartPrivateChatRequest opens (or returns) the private room with the
// target user.
type StartPrivateChatRequest struct {
	TargetUserID int64 `json:"targetUserId" binding:"required"`
}

// JoinRoomRequest is the payload for joining a GROUP room.
type JoinRoomRequest struct {
	Nickname string `json:"nickname"`
}

// MemberResponse is a membership row enriched with user identity.
type MemberResponse struct {
	RoomMember
	User *UserSummary `json:"user,omitempty"`
}

// RoomResponse is a room enriched for API responses. For PRIVATE rooms
// Name/Avatar carry the other member's identity.
type RoomResponse struct {
	Room
	Creator     *UserSummary     `json:"creator,omitempty"`
	Members     []MemberResponse `json:"members,omitempty"`
	UnreadCount int              `json:"unreadCount"`
}
