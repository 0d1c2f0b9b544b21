package domain

import (
	"time"
)

// RoomModel is the GORM model for the chat_rooms table.
type RoomModel struct {
	ID              int64      `gorm:"primaryKey;autoIncrement"`
	RoomName        string     `gorm:"type:varchar(100)"`
	RoomType        string     `gorm:"type:varchar(20);index;not null"`
	RoomAvatar      string     `gorm:"type:varchar(255)"`
	RoomDescription string     `gorm:"type:text"`
	CreatorID       int64      `gorm:"index;not null"`
	LastMessageID   *int64
	LastMessageTime *time.Time
	MemberCount     int        `gorm:"default:0"`
	Status          string     `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
	CreatedAt       time.Time  `gorm:"autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime"`
}

func (RoomModel) TableName() string { return "chat_rooms" }

func (m *RoomModel) ToDomain() *Room {
	return &Room{
		ID:              m.ID,
		Name:            m.RoomName,
		Type:            RoomType(m.RoomType),
		Avatar:          m.RoomAvatar,
		Description:     m.RoomDescription,
		CreatorID:       m.CreatorID,
		LastMessageID:   m.LastMessageID,
		LastMessageTime: m.LastMessageTime,
		MemberCount:     m.MemberCount,
		Status:          RoomStatus(m.Status),
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func RoomToModel(r *Room) *RoomModel {
	return &RoomModel{
		ID:              r.ID,
		RoomName:        r.Name,
		RoomType:        string(r.Type),
		RoomAvatar:      r.Avatar,
		RoomDescription: r.Description,
		CreatorID:       r.CreatorID,
		LastMessageID:   r.LastMessageID,
		LastMessageTime: r.LastMessageTime,
		MemberCount:     r.MemberCount,
		Status:          string(r.Status),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// RoomMemberModel is the GORM model for the chat_room_members table.
// The (room_id, user_id) pair is unique; rejoin reactivates the row.
type RoomMemberModel struct {
	ID           int64      `gorm:"primaryKey;autoIncrement"`
	RoomID       int64      `gorm:"uniqueIndex:idx_room_user;not null"`
	UserID       int64      `gorm:"uniqueIndex:idx_room_user;index;not null"`
	Role         string     `gorm:"type:varchar(20);not null"`
	Nickname     string     `gorm:"type:varchar(50)"`
	MuteUntil    *time.Time
	JoinTime     time.Time
	LastReadTime *time.Time
	UnreadCount  int        `gorm:"default:0"`
	Status       string     `gorm:"type:varchar(20);index;not null;default:'ACTIVE'"`
}

func (RoomMemberModel) TableName() string { return "chat_room_members" }

func (m *RoomMemberModel) ToDomain() *RoomMember {
	return &RoomMember{
		ID:           m.ID,
		RoomID:       m.RoomID,
		UserID:       m.UserID,
		Role:         MemberRole(m.Role),
		Nickname:     m.Nickname,
		MuteUntil:    m.MuteUntil,
		JoinTime:     m.JoinTime,
		LastReadTime: m.LastReadTime,
		UnreadCount:  m.UnreadCount,
		Status:       MemberStatus(m.Status),
	}
}

// MessageModel is the GORM model for the chat_messages table.
// SequenceID is unique per room and allocated by the message store.
type MessageModel struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	RoomID      int64     `gorm:"uniqueIndex:idx_room_sequence;index;not null"`
	SenderID    int64     `gorm:"index;not null"`
	MessageType string    `gorm:"type:varchar(20);not null"`
	Content     string    `gorm:"type:text"`
	FileURL     string    `gorm:"type:varchar(255)"`
	FileName    string    `gorm:"type:varchar(255)"`
	FileSize    int64
	ReplyToID   *int64
	SequenceID  int64     `gorm:"uniqueIndex:idx_room_sequence;not null"`
	ReadCount   int       `gorm:"default:0"`
	Status      string    `gorm:"type:varchar(20);not null;default:'NORMAL'"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (MessageModel) TableName() string { return "chat_messages" }

func (m *MessageModel) ToDomain() *Message {
	return &Message{
		ID:          m.ID,
		RoomID:      m.RoomID,
		SenderID:    m.SenderID,
		MessageType: MessageType(m.MessageType),
		Content:     m.Content,
		FileURL:     m.FileURL,
		FileName:    m.FileName,
		FileSize:    m.FileSize,
		ReplyToID:   m.ReplyToID,
		SequenceID:  m.SequenceID,
		ReadCount:   m.ReadCount,
		Status:      MessageStatus(m.Status),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// PresenceModel is the GORM model for the user_presence table, one row
// per user.
type PresenceModel struct {
	UserID         int64     `gorm:"primaryKey"`
	Status         string    `gorm:"type:varchar(20);not null"`
	LastActiveTime time.Time
	DeviceType     string    `gorm:"type:varchar(20)"`
	IPAddress      string    `gorm:"type:varchar(45)"`
	UserAgent      string    `gorm:"type:varchar(255)"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (PresenceModel) TableName() string { return "user_presence" }

func (m *PresenceModel) ToDomain() *PresenceRecord {
	return &PresenceRecord{
		UserID:         m.UserID,
		Status:         PresenceStatus(m.Status),
		LastActiveTime: m.LastActiveTime,
		DeviceType:     m.DeviceType,
		IPAddress:      m.IPAddress,
		UserAgent:      m.UserAgent,
	}
}

// UserModel maps the users table owned by the account subsystem. This
// module only ever reads it, through the user directory.
type UserModel struct {
	ID       int64  `gorm:"primaryKey"`
	Username string `gorm:"type:varchar(50)"`
	Nickname string `gorm:"type:varchar(50)"`
	Avatar   string `gorm:"type:varchar(255)"`
}

func (UserModel) TableName() string { return "users" }
