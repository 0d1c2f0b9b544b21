package domain

import (
	"time"
)

// MessageType represents the content type of a chat message.
type MessageType string

const (
	MessageTypeText  MessageType = "TEXT"
	MessageTypeImage MessageType = "IMAGE"
	MessageTypeFile  MessageType = "FILE"
)

// MessageStatus represents message state. A message is never deleted;
// recall flips status and rewrites the content to a placeholder.
type MessageStatus string

const (
	MessageStatusNormal   MessageStatus = "NORMAL"
	MessageStatusRecalled MessageStatus = "RECALLED"
)

// Message represents a persisted chat message. SequenceID is strictly
// increasing within a room and is the sort key for history.
type Message struct {
	ID          int64         `json:"id"`
	RoomID      int64         `json:"roomId"`
	SenderID    int64         `json:"senderId"`
	MessageType MessageType   `json:"messageType"`
	Content     string        `json:"content"`
	FileURL     string        `json:"fileUrl,omitempty"`
	FileName    string        `json:"fileName,omitempty"`
	FileSize    int64         `json:"fileSize,omitempty"`
	ReplyToID   *int64        `json:"replyToId,omitempty"`
	SequenceID  int64         `json:"sequenceId"`
	ReadCount   int           `json:"readCount"`
	Status      MessageStatus `json:"status"`
	CreatedAt   time.Time     `json:"createTime"`
	UpdatedAt   time.Time     `json:"updateTime"`
}

// SendMessageRequest is the payload for sending a message, via REST or
// as the data object of a CHAT_MESSAGE frame.
type SendMessageRequest struct {
	RoomID      int64       `json:"roomId" binding:"required"`
	MessageType MessageType `json:"messageType" binding:"required"`
	Content     string      `json:"content"`
	FileURL     string      `json:"fileUrl"`
	FileName    string      `json:"fileName"`
	FileSize    int64       `json:"fileSize"`
	ReplyToID   *int64      `json:"replyToId"`
}

// MessageResponse is a message enriched with sender identity and, when
// the referenced message still exists, a snapshot of the replied-to
// message.
type MessageResponse struct {
	Message
	Sender  *UserSummary     `json:"sender,omitempty"`
	ReplyTo *MessageResponse `json:"replyToMessage,omitempty"`
}

// MessagePage is one page of chat history, most recent first.
type MessagePage struct {
	Messages   []MessageResponse `json:"messages"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
}
