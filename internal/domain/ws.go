package domain

import (
	"encoding/json"
	"time"
)

// Frame types from the client.
const (
	FrameChatMessage = "CHAT_MESSAGE"
	FrameJoinRoom    = "JOIN_ROOM"
	FrameLeaveRoom   = "LEAVE_ROOM"
	FrameMessageRead = "MESSAGE_READ"
	FrameTyping      = "TYPING"
	FrameStopTyping  = "STOP_TYPING"
	FramePing        = "PING"
)

// Frame types to the client.
const (
	FrameConnectSuccess  = "CONNECT_SUCCESS"
	FrameNewMessage      = "NEW_MESSAGE"
	FrameMessageRecalled = "MESSAGE_RECALLED"
	FrameUserJoined      = "USER_JOINED"
	FrameUserLeft        = "USER_LEFT"
	FrameUserTyping      = "USER_TYPING"
	FrameUserStopTyping  = "USER_STOP_TYPING"
	FramePong            = "PONG"
)

// Envelope is the wire format for every websocket frame, both
// directions. Data is left raw on decode so each frame type can bind
// its own payload.
type Envelope struct {
	Type      string          `json:"type"`
	RoomID    *int64          `json:"roomId,omitempty"`
	SenderID  *int64          `json:"senderId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// Event is an outbound frame whose data is already a Go value; it is
// encoded once at delivery time.
type Event struct {
	Type      string      `json:"type"`
	RoomID    *int64      `json:"roomId,omitempty"`
	SenderID  *int64      `json:"senderId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// NewEvent builds an outbound event stamped with the current time.
func NewEvent(frameType string, roomID, senderID int64, data interface{}) *Event {
	e := &Event{
		Type:      frameType,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
	if roomID != 0 {
		e.RoomID = &roomID
	}
	if senderID != 0 {
		e.SenderID = &senderID
	}
	return e
}

// Fanout is one delivery instruction returned by the chat service: the
// gateway resolves UserID against the connection registry and writes
// the event if a live connection exists, dropping it otherwise.
type Fanout struct {
	UserID int64
	Event  *Event
}
