package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/phostann/ybook/internal/auth"
	"github.com/phostann/ybook/internal/config"
	"github.com/phostann/ybook/internal/domain"
	"github.com/phostann/ybook/internal/hub"
	"github.com/phostann/ybook/internal/registry"
	"github.com/phostann/ybook/internal/service"
	"github.com/phostann/ybook/pkg/log"
	"github.com/phostann/ybook/pkg/response"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades authenticated websocket connections and routes
// inbound frames to the chat and presence services.
type WSHandler struct {
	registry  *registry.Registry
	chat      service.ChatService
	presence  service.PresenceService
	validator auth.TokenValidator
	wsCfg     config.WebSocketConfig
}

func NewWSHandler(
	reg *registry.Registry,
	chat service.ChatService,
	presence service.PresenceService,
	validator auth.TokenValidator,
	wsCfg config.WebSocketConfig,
) *WSHandler {
	return &WSHandler{
		registry:  reg,
		chat:      chat,
		presence:  presence,
		validator: validator,
		wsCfg:     wsCfg,
	}
}

// HandleWebSocket authenticates the token query parameter, then
// upgrades. Authentication failures are rejected before the upgrade so
// the client gets a plain 401 instead of a half-open socket.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Unauthorized(c, "missing token")
		return
	}

	identity, err := h.validator.ValidateCredential(c.Request.Context(), token)
	if err != nil {
		response.Unauthorized(c, "invalid or expired token")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), identity.UserID, conn, h.wsCfg)
	h.registry.Register(client.UserID, client)

	ctx := h.clientCtx(client)
	device := domain.DeviceInfo{
		DeviceType: c.GetHeader("X-Device-Type"),
		IPAddress:  c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	}
	if err := h.presence.SetOnline(ctx, client.UserID, device); err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to mark user online")
	}

	client.SendEvent(domain.NewEvent(domain.FrameConnectSuccess, 0, client.UserID, map[string]interface{}{
		"connectionId": client.ID,
		"userId":       client.UserID,
	}))

	go client.WritePump()
	go client.ReadPump(h.handleFrame, h.onClose)
}

func (h *WSHandler) onClose(client *hub.Client) {
	userID, active := h.registry.Unregister(client)
	if !active {
		// A newer connection for this user took over; leave its state alone.
		return
	}

	ctx := h.clientCtx(client)
	if err := h.presence.SetOffline(ctx, userID); err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to mark user offline")
	}
}

// handleFrame dispatches one inbound frame. Malformed or failing frames
// are logged and dropped; the connection stays up.
func (h *WSHandler) handleFrame(client *hub.Client, raw []byte) {
	ctx := h.clientCtx(client)
	l := log.Ctx(ctx)

	var env domain.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		l.Warn().Err(err).Msg("dropping malformed frame")
		return
	}

	switch env.Type {
	case domain.FrameChatMessage:
		var req domain.SendMessageRequest
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &req); err != nil {
				l.Warn().Err(err).Msg("dropping malformed chat message payload")
				return
			}
		}
		if req.RoomID == 0 && env.RoomID != nil {
			req.RoomID = *env.RoomID
		}
		_, fanouts, err := h.chat.SendMessage(ctx, client.UserID, &req)
		if err != nil {
			l.Warn().Err(err).Int64(log.FieldRoomID, req.RoomID).Msg("chat message rejected")
			return
		}
		DeliverFanouts(h.registry, fanouts)

	case domain.FrameJoinRoom:
		roomID, ok := h.frameRoomID(l, &env)
		if !ok {
			return
		}
		fanouts, err := h.chat.JoinRoom(ctx, roomID, client.UserID, "")
		if err != nil {
			l.Warn().Err(err).Int64(log.FieldRoomID, roomID).Msg("join room rejected")
			return
		}
		DeliverFanouts(h.registry, fanouts)

	case domain.FrameLeaveRoom:
		roomID, ok := h.frameRoomID(l, &env)
		if !ok {
			return
		}
		fanouts, err := h.chat.LeaveRoom(ctx, roomID, client.UserID)
		if err != nil {
			l.Warn().Err(err).Int64(log.FieldRoomID, roomID).Msg("leave room rejected")
			return
		}
		DeliverFanouts(h.registry, fanouts)

	case domain.FrameMessageRead:
		roomID, ok := h.frameRoomID(l, &env)
		if !ok {
			return
		}
		fanouts, err := h.chat.MarkRead(ctx, roomID, client.UserID)
		if err != nil {
			l.Warn().Err(err).Int64(log.FieldRoomID, roomID).Msg("mark read rejected")
			return
		}
		DeliverFanouts(h.registry, fanouts)

	case domain.FrameTyping, domain.FrameStopTyping:
		roomID, ok := h.frameRoomID(l, &env)
		if !ok {
			return
		}
		fanouts, err := h.chat.Typing(ctx, roomID, client.UserID, env.Type == domain.FrameTyping)
		if err != nil {
			l.Debug().Err(err).Int64(log.FieldRoomID, roomID).Msg("typing frame rejected")
			return
		}
		DeliverFanouts(h.registry, fanouts)

	case domain.FramePing:
		if err := h.presence.Heartbeat(ctx, client.UserID); err != nil {
			l.Warn().Err(err).Msg("heartbeat failed")
		}
		client.SendEvent(domain.NewEvent(domain.FramePong, 0, 0, nil))

	default:
		l.Warn().Str("frame_type", env.Type).Msg("dropping unknown frame type")
	}
}

func (h *WSHandler) frameRoomID(l zerolog.Logger, env *domain.Envelope) (int64, bool) {
	if env.RoomID == nil {
		l.Warn().Str("frame_type", env.Type).Msg("dropping frame without room id")
		return 0, false
	}
	return *env.RoomID, true
}

func (h *WSHandler) clientCtx(client *hub.Client) context.Context {
	logger := log.L().With().
		Int64(log.FieldUserID, client.UserID).
		Str("connection_id", client.ID).
		Logger()
	return log.WithLogger(context.Background(), logger)
}

// DeliverFanouts resolves each instruction against the registry and
// writes the event to whichever targets have a live connection.
func DeliverFanouts(reg *registry.Registry, fanouts []domain.Fanout) {
	for _, f := range fanouts {
		conn, ok := reg.Lookup(f.UserID)
		if !ok {
			continue
		}
		if err := conn.SendEvent(f.Event); err != nil {
			l := log.L()
			l.Warn().Err(err).Int64(log.FieldUserID, f.UserID).Msg("failed to deliver event")
		}
	}
}
