package audit

import (
	"context"

	"github.com/phostann/ybook/pkg/log"
)

// Audit actions for the chat subsystem.
const (
	ActionCreateRoom     = "chat.room.create"
	ActionJoinRoom       = "chat.room.join"
	ActionLeaveRoom      = "chat.room.leave"
	ActionRecallMessage  = "chat.message.recall"
	ActionDeleteChatData = "chat.user.delete_data"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, userID int64, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Int64(log.FieldUserID, userID).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action string, userID int64, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Int64(log.FieldUserID, userID).
		Str(FieldDetail, detail).
		Msg(msg)
}
