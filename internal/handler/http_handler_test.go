package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/phostann/ybook/internal/auth"
	"github.com/phostann/ybook/internal/directory"
	"github.com/phostann/ybook/internal/domain"
	"github.com/phostann/ybook/internal/middleware"
	"github.com/phostann/ybook/internal/registry"
	"github.com/phostann/ybook/internal/repository"
	"github.com/phostann/ybook/internal/service"
)

type apiEnv struct {
	router    *gin.Engine
	validator *auth.JWTValidator
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newAPIEnv(t *testing.T, userIDs ...int64) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.RoomModel{},
		&domain.RoomMemberModel{},
		&domain.MessageModel{},
		&domain.PresenceModel{},
		&domain.UserModel{},
	))
	for _, id := range userIDs {
		require.NoError(t, db.Create(&domain.UserModel{
			ID:       id,
			Username: fmt.Sprintf("user%d", id),
			Nickname: fmt.Sprintf("User %d", id),
		}).Error)
	}

	rooms := repository.NewGormRoomRepository(db)
	messages := repository.NewGormMessageRepository(db)
	presence := repository.NewGormPresenceRepository(db)
	users := directory.NewGormUserDirectory(db)

	chat := service.NewChatService(rooms, messages, presence, users)
	presenceSvc := service.NewPresenceService(presence, rooms, noopCache{}, 90*time.Second)
	validator := auth.NewJWTValidator("test-secret", "ybook")

	r := gin.New()
	h := NewHTTPHandler(chat, presenceSvc, registry.New(), middleware.NewAuthMiddleware(validator))
	h.RegisterRoutes(r)

	return &apiEnv{router: r, validator: validator}
}

type noopCache struct{}

func (noopCache) SetOnline(_ context.Context, _ int64, _ time.Duration) error { return nil }
func (noopCache) SetOffline(_ context.Context, _ int64) error                 { return nil }
func (noopCache) Refresh(_ context.Context, _ int64, _ time.Duration) error   { return nil }
func (noopCache) IsOnline(_ context.Context, _ int64) (bool, error)           { return true, nil }
func (noopCache) Close() error                                                { return nil }

func (e *apiEnv) request(t *testing.T, method, path string, asUser int64, body interface{}) (*httptest.ResponseRecorder, *apiResponse) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if asUser != 0 {
		token, err := e.validator.IssueToken(asUser, fmt.Sprintf("user%d", asUser), time.Minute)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var parsed apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	return w, &parsed
}

func TestRoutesRequireBearerToken(t *testing.T) {
	env := newAPIEnv(t, 1)

	w, parsed := env.request(t, http.MethodGet, "/api/chat/rooms", 0, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.False(t, parsed.Success)
	require.Equal(t, "UNAUTHORIZED", parsed.Error.Code)
}

func TestCreateRoomAndListRooms(t *testing.T) {
	env := newAPIEnv(t, 1, 2)

	w, parsed := env.request(t, http.MethodPost, "/api/chat/rooms", 1, gin.H{
		"roomType":  "GROUP",
		"roomName":  "book club",
		"memberIds": []int64{2},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	require.True(t, parsed.Success)

	var room domain.RoomResponse
	require.NoError(t, json.Unmarshal(parsed.Data, &room))
	require.Equal(t, "book club", room.Name)
	require.Equal(t, 2, room.MemberCount)

	w, parsed = env.request(t, http.MethodGet, "/api/chat/rooms", 2, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var rooms []domain.RoomResponse
	require.NoError(t, json.Unmarshal(parsed.Data, &rooms))
	require.Len(t, rooms, 1)
}

func TestPrivateChatEndpointIsIdempotent(t *testing.T) {
	env := newAPIEnv(t, 1, 2)

	_, parsed := env.request(t, http.MethodPost, "/api/chat/rooms/private", 1, gin.H{"targetUserId": 2})
	var first domain.RoomResponse
	require.NoError(t, json.Unmarshal(parsed.Data, &first))

	_, parsed = env.request(t, http.MethodPost, "/api/chat/rooms/private", 2, gin.H{"targetUserId": 1})
	var second domain.RoomResponse
	require.NoError(t, json.Unmarshal(parsed.Data, &second))

	require.Equal(t, first.ID, second.ID)
}

func TestSendRecallAndHistoryFlow(t *testing.T) {
	env := newAPIEnv(t, 1, 2)

	_, parsed := env.request(t, http.MethodPost, "/api/chat/rooms/private", 1, gin.H{"targetUserId": 2})
	var room domain.RoomResponse
	require.NoError(t, json.Unmarshal(parsed.Data, &room))

	w, parsed := env.request(t, http.MethodPost, "/api/chat/messages", 1, gin.H{
		"roomId":      room.ID,
		"messageType": "TEXT",
		"content":     "hello",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var msg domain.MessageResponse
	require.NoError(t, json.Unmarshal(parsed.Data, &msg))
	require.Equal(t, int64(1), msg.SequenceID)

	// Recall by the other member is forbidden.
	w, parsed = env.request(t, http.MethodPost, fmt.Sprintf("/api/chat/messages/%d/recall", msg.ID), 2, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "FORBIDDEN", parsed.Error.Code)

	// Recall by the sender inside the window succeeds.
	w, _ = env.request(t, http.MethodPost, fmt.Sprintf("/api/chat/messages/%d/recall", msg.ID), 1, nil)
	require.Equal(t, http.StatusOK, w.Code)

	_, parsed = env.request(t, http.MethodGet, fmt.Sprintf("/api/chat/messages/room/%d?page=1&pageSize=10", room.ID), 2, nil)
	var page domain.MessagePage
	require.NoError(t, json.Unmarshal(parsed.Data, &page))
	require.Len(t, page.Messages, 1)
	require.Equal(t, domain.MessageStatusRecalled, page.Messages[0].Status)
}

func TestHistoryForbiddenForNonMember(t *testing.T) {
	env := newAPIEnv(t, 1, 2, 3)

	_, parsed := env.request(t, http.MethodPost, "/api/chat/rooms/private", 1, gin.H{"targetUserId": 2})
	var room domain.RoomResponse
	require.NoError(t, json.Unmarshal(parsed.Data, &room))

	w, parsed := env.request(t, http.MethodGet, fmt.Sprintf("/api/chat/messages/room/%d", room.ID), 3, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "FORBIDDEN", parsed.Error.Code)
}

func TestJoinPrivateRoomMapsToInvalidOperation(t *testing.T) {
	env := newAPIEnv(t, 1, 2, 3)

	_, parsed := env.request(t, http.MethodPost, "/api/chat/rooms/private", 1, gin.H{"targetUserId": 2})
	var room domain.RoomResponse
	require.NoError(t, json.Unmarshal(parsed.Data, &room))

	w, parsed := env.request(t, http.MethodPost, fmt.Sprintf("/api/chat/rooms/%d/join", room.ID), 3, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "INVALID_OPERATION", parsed.Error.Code)
}

func TestMemberCheckAndMarkRead(t *testing.T) {
	env := newAPIEnv(t, 1, 2, 3)

	_, parsed := env.request(t, http.MethodPost, "/api/chat/rooms/private", 1, gin.H{"targetUserId": 2})
	var room domain.RoomResponse
	require.NoError(t, json.Unmarshal(parsed.Data, &room))

	_, parsed = env.request(t, http.MethodGet, fmt.Sprintf("/api/chat/rooms/%d/member-check", room.ID), 2, nil)
	require.Contains(t, string(parsed.Data), `"isMember":true`)

	_, parsed = env.request(t, http.MethodGet, fmt.Sprintf("/api/chat/rooms/%d/member-check", room.ID), 3, nil)
	require.Contains(t, string(parsed.Data), `"isMember":false`)

	env.request(t, http.MethodPost, "/api/chat/messages", 1, gin.H{
		"roomId":      room.ID,
		"messageType": "TEXT",
		"content":     "unread",
	})

	w, _ := env.request(t, http.MethodPost, fmt.Sprintf("/api/chat/messages/room/%d/read", room.ID), 2, nil)
	require.Equal(t, http.StatusOK, w.Code)

	_, parsed = env.request(t, http.MethodGet, "/api/chat/rooms", 2, nil)
	var rooms []domain.RoomResponse
	require.NoError(t, json.Unmarshal(parsed.Data, &rooms))
	require.Len(t, rooms, 1)
	require.Zero(t, rooms[0].UnreadCount)
}

func TestDeleteUserChatDataEndpoint(t *testing.T) {
	env := newAPIEnv(t, 1, 2)

	_, parsed := env.request(t, http.MethodPost, "/api/chat/rooms/private", 1, gin.H{"targetUserId": 2})
	var room domain.RoomResponse
	require.NoError(t, json.Unmarshal(parsed.Data, &room))

	// Internal surface, no bearer token.
	w, _ := env.request(t, http.MethodDelete, "/internal/users/1/chat-data", 0, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, parsed = env.request(t, http.MethodGet, fmt.Sprintf("/api/chat/rooms/%d", room.ID), 2, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "NOT_FOUND", parsed.Error.Code)
}
