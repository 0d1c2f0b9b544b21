package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/phostann/ybook/internal/domain"
	"github.com/phostann/ybook/internal/middleware"
	"github.com/phostann/ybook/internal/registry"
	"github.com/phostann/ybook/internal/service"
	"github.com/phostann/ybook/pkg/log"
	"github.com/phostann/ybook/pkg/response"
)

// HTTPHandler serves the chat REST API. Operations that notify other
// members deliver their fan-out through the same connection registry
// the websocket gateway uses.
type HTTPHandler struct {
	chat           service.ChatService
	presence       service.PresenceService
	registry       *registry.Registry
	authMiddleware *middleware.AuthMiddleware
}

func NewHTTPHandler(
	chat service.ChatService,
	presence service.PresenceService,
	reg *registry.Registry,
	authMiddleware *middleware.AuthMiddleware,
) *HTTPHandler {
	return &HTTPHandler{
		chat:           chat,
		presence:       presence,
		registry:       reg,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all REST routes.
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/chat", h.authMiddleware.RequireAuth())
	{
		rooms := api.Group("/rooms")
		{
			rooms.GET("", h.ListRooms)
			rooms.POST("", h.CreateRoom)
			rooms.POST("/private", h.StartPrivateChat)
			rooms.GET("/:id", h.GetRoom)
			rooms.POST("/:id/join", h.JoinRoom)
			rooms.POST("/:id/leave", h.LeaveRoom)
			rooms.GET("/:id/member-check", h.MemberCheck)
			rooms.GET("/:id/presence", h.RoomPresence)
		}

		messages := api.Group("/messages")
		{
			messages.POST("", h.SendMessage)
			messages.GET("/room/:roomId", h.GetHistory)
			messages.POST("/:id/recall", h.RecallMessage)
			messages.POST("/room/:roomId/read", h.MarkRead)
		}
	}

	// Internal surface for the account subsystem; not bearer-protected.
	r.DELETE("/internal/users/:id/chat-data", h.DeleteUserChatData)
}

// ListRooms lists the current user's rooms with unread counts.
func (h *HTTPHandler) ListRooms(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)

	rooms, err := h.chat.ListRooms(ctx, userID)
	if err != nil {
		h.writeError(c, err, "failed to list rooms")
		return
	}
	response.Success(c, rooms)
}

// CreateRoom creates a GROUP room, or routes to private get-or-create
// when roomType is PRIVATE.
func (h *HTTPHandler) CreateRoom(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)

	var req domain.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	room, err := h.chat.CreateRoom(ctx, userID, &req)
	if err != nil {
		h.writeError(c, err, "failed to create room")
		return
	}
	response.Created(c, room)
}

// StartPrivateChat opens, or returns, the private room with the target
// user.
func (h *HTTPHandler) StartPrivateChat(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)

	var req domain.StartPrivateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	room, err := h.chat.StartPrivateChat(ctx, userID, req.TargetUserID)
	if err != nil {
		h.writeError(c, err, "failed to start private chat")
		return
	}
	response.Success(c, room)
}

// GetRoom returns room detail with enriched members.
func (h *HTTPHandler) GetRoom(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)

	roomID, ok := pathID(c, "id")
	if !ok {
		return
	}

	room, err := h.chat.GetRoom(ctx, roomID, userID)
	if err != nil {
		h.writeError(c, err, "failed to get room")
		return
	}
	response.Success(c, room)
}

// JoinRoom joins a GROUP room and notifies its members.
func (h *HTTPHandler) JoinRoom(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)

	roomID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req domain.JoinRoomRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}

	fanouts, err := h.chat.JoinRoom(ctx, roomID, userID, req.Nickname)
	if err != nil {
		h.writeError(c, err, "failed to join room")
		return
	}
	DeliverFanouts(h.registry, fanouts)
	response.Success(c, gin.H{"joined": true})
}

// LeaveRoom leaves a GROUP room and notifies its members.
func (h *HTTPHandler) LeaveRoom(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)

	roomID, ok := pathID(c, "id")
	if !ok {
		return
	}

	fanouts, err := h.chat.LeaveRoom(ctx, roomID, userID)
	if err != nil {
		h.writeError(c, err, "failed to leave room")
		return
	}
	DeliverFanouts(h.registry, fanouts)
	response.Success(c, gin.H{"left": true})
}

// MemberCheck reports whether the current user is an active member.
func (h *HTTPHandler) MemberCheck(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)

	roomID, ok := pathID(c, "id")
	if !ok {
		return
	}

	isMember, err := h.chat.IsRoomMember(ctx, roomID, userID)
	if err != nil {
		h.writeError(c, err, "failed to check membership")
		return
	}
	response.Success(c, gin.H{"isMember": isMember})
}

// RoomPresence returns presence records for every active member.
func (h *HTTPHandler) RoomPresence(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)

	roomID, ok := pathID(c, "id")
	if !ok {
		return
	}

	isMember, err := h.chat.IsRoomMember(ctx, roomID, userID)
	if err != nil {
		h.writeError(c, err, "failed to check membership")
		return
	}
	if !isMember {
		response.Forbidden(c, "not a member of this room")
		return
	}

	records, err := h.presence.GetRoomPresence(ctx, roomID)
	if err != nil {
		h.writeError(c, err, "failed to get room presence")
		return
	}
	response.Success(c, records)
}

// SendMessage persists a message and fans it out to online members.
func (h *HTTPHandler) SendMessage(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)

	var req domain.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	msg, fanouts, err := h.chat.SendMessage(ctx, userID, &req)
	if err != nil {
		h.writeError(c, err, "failed to send message")
		return
	}
	DeliverFanouts(h.registry, fanouts)
	response.Created(c, msg)
}

// GetHistory pages room history, most recent first.
func (h *HTTPHandler) GetHistory(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)

	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	history, err := h.chat.GetHistory(ctx, roomID, userID, page, pageSize)
	if err != nil {
		h.writeError(c, err, "failed to get history")
		return
	}
	response.Success(c, history)
}

// RecallMessage recalls one of the caller's own recent messages.
func (h *HTTPHandler) RecallMessage(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)

	messageID, ok := pathID(c, "id")
	if !ok {
		return
	}

	fanouts, err := h.chat.RecallMessage(ctx, messageID, userID)
	if err != nil {
		h.writeError(c, err, "failed to recall message")
		return
	}
	DeliverFanouts(h.registry, fanouts)
	response.Success(c, gin.H{"recalled": true})
}

// MarkRead resets the caller's unread count for the room.
func (h *HTTPHandler) MarkRead(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)

	roomID, ok := pathID(c, "roomId")
	if !ok {
		return
	}

	fanouts, err := h.chat.MarkRead(ctx, roomID, userID)
	if err != nil {
		h.writeError(c, err, "failed to mark room read")
		return
	}
	DeliverFanouts(h.registry, fanouts)
	response.Success(c, gin.H{"read": true})
}

// DeleteUserChatData is the account-deletion hook.
func (h *HTTPHandler) DeleteUserChatData(c *gin.Context) {
	ctx := c.Request.Context()

	userID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.chat.DeleteUserChatData(ctx, userID); err != nil {
		h.writeError(c, err, "failed to delete user chat data")
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

// writeError maps service sentinel errors to API error codes; anything
// else is logged and reported as a 500.
func (h *HTTPHandler) writeError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, service.ErrRoomNotFound):
		response.NotFound(c, "room not found")
	case errors.Is(err, service.ErrMessageNotFound):
		response.NotFound(c, "message not found")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, "user not found")
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, "not authorized for this room")
	case errors.Is(err, service.ErrNotMember):
		response.Error(c, http.StatusForbidden, "NOT_MEMBER", "not an active member of this room")
	case errors.Is(err, service.ErrAlreadyMember):
		response.Error(c, http.StatusConflict, "ALREADY_MEMBER", "already a member of this room")
	case errors.Is(err, service.ErrInvalidOperation):
		response.Error(c, http.StatusBadRequest, "INVALID_OPERATION", "operation not valid for this room")
	case errors.Is(err, service.ErrRecallWindowExpired):
		response.Error(c, http.StatusBadRequest, "RECALL_WINDOW_EXPIRED", "message can no longer be recalled")
	default:
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg(msg)
		response.InternalError(c, msg)
	}
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}
