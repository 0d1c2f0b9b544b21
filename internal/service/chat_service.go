package service

import (
	"context"
	"errors"
	"time"

	"github.com/phostann/ybook/internal/audit"
	"github.com/phostann/ybook/internal/directory"
	"github.com/phostann/ybook/internal/domain"
	"github.com/phostann/ybook/internal/repository"
	"github.com/phostann/ybook/pkg/log"
)

// RecallWindow is how long after creation a sender may recall a
// message, evaluated against the creation timestamp at request time.
const RecallWindow = 2 * time.Minute

// RecallPlaceholder replaces the content of a recalled message.
const RecallPlaceholder = "This message has been recalled"

type chatService struct {
	rooms    repository.RoomRepository
	messages repository.MessageRepository
	presence repository.PresenceRepository
	users    directory.UserDirectory

	now func() time.Time
}

// NewChatService creates the chat service.
func NewChatService(
	rooms repository.RoomRepository,
	messages repository.MessageRepository,
	presence repository.PresenceRepository,
	users directory.UserDirectory,
) ChatService {
	return &chatService{
		rooms:    rooms,
		messages: messages,
		presence: presence,
		users:    users,
		now:      time.Now,
	}
}

func (s *chatService) CreateRoom(ctx context.Context, creatorID int64, req *domain.CreateRoomRequest) (*domain.RoomResponse, error) {
	l := log.Ctx(ctx)

	if req.Type == domain.RoomTypePrivate {
		if len(req.MemberIDs) != 1 {
			return nil, ErrInvalidOperation
		}
		return s.StartPrivateChat(ctx, creatorID, req.MemberIDs[0])
	}

	room := &domain.Room{
		Name:        req.Name,
		Type:        domain.RoomTypeGroup,
		Avatar:      req.Avatar,
		Description: req.Description,
		CreatorID:   creatorID,
		Status:      domain.RoomStatusActive,
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, err
	}

	if err := s.rooms.AddMember(ctx, room.ID, creatorID, domain.MemberRoleOwner, ""); err != nil {
		return nil, err
	}
	for _, memberID := range req.MemberIDs {
		if memberID == creatorID {
			continue
		}
		if _, err := s.users.GetUserSummary(ctx, memberID); err != nil {
			if errors.Is(err, directory.ErrUserNotFound) {
				l.Warn().Int64(log.FieldUserID, memberID).Msg("skipping unknown invitee")
				continue
			}
			return nil, err
		}
		if err := s.rooms.AddMember(ctx, room.ID, memberID, domain.MemberRoleMember, ""); err != nil {
			return nil, err
		}
	}

	audit.Log(ctx, audit.ActionCreateRoom, creatorID, "group room created")
	return s.GetRoom(ctx, room.ID, creatorID)
}

func (s *chatService) StartPrivateChat(ctx context.Context, userID, targetUserID int64) (*domain.RoomResponse, error) {
	if userID == targetUserID {
		return nil, ErrInvalidOperation
	}

	if _, err := s.users.GetUserSummary(ctx, targetUserID); err != nil {
		if errors.Is(err, directory.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	// Private chat is get-or-create: a second request for the same
	// pair, in either order, returns the existing room.
	existing, err := s.rooms.FindPrivateRoom(ctx, userID, targetUserID)
	switch {
	case err == nil:
		return s.GetRoom(ctx, existing.ID, userID)
	case errors.Is(err, repository.ErrRoomNotFound):
	default:
		return nil, err
	}

	room := &domain.Room{
		Type:      domain.RoomTypePrivate,
		CreatorID: userID,
		Status:    domain.RoomStatusActive,
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, err
	}
	if err := s.rooms.AddMember(ctx, room.ID, userID, domain.MemberRoleOwner, ""); err != nil {
		return nil, err
	}
	if err := s.rooms.AddMember(ctx, room.ID, targetUserID, domain.MemberRoleMember, ""); err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.ActionCreateRoom, userID, "private room created")
	return s.GetRoom(ctx, room.ID, userID)
}

func (s *chatService) ListRooms(ctx context.Context, userID int64) ([]domain.RoomResponse, error) {
	rooms, err := s.rooms.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	responses := make([]domain.RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		resp := domain.RoomResponse{Room: room}

		if room.Type == domain.RoomTypePrivate {
			s.applyPrivateIdentity(ctx, &resp, userID)
		}

		member, err := s.rooms.GetMember(ctx, room.ID, userID)
		if err == nil {
			resp.UnreadCount = member.UnreadCount
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

// applyPrivateIdentity derives a PRIVATE room's display name and avatar
// from the other member, at read time.
func (s *chatService) applyPrivateIdentity(ctx context.Context, resp *domain.RoomResponse, viewerID int64) {
	members, err := s.rooms.ListActiveMembers(ctx, resp.ID)
	if err != nil {
		return
	}
	for _, m := range members {
		if m.UserID == viewerID {
			continue
		}
		if other := s.userSummary(ctx, m.UserID); other != nil {
			resp.Name = other.DisplayName
			resp.Avatar = other.AvatarURL
		}
		return
	}
}

func (s *chatService) GetRoom(ctx context.Context, roomID, userID int64) (*domain.RoomResponse, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	active, err := s.rooms.IsActiveMember(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, ErrForbidden
	}

	resp := &domain.RoomResponse{Room: *room}
	resp.Creator = s.userSummary(ctx, room.CreatorID)

	if room.Type == domain.RoomTypePrivate {
		s.applyPrivateIdentity(ctx, resp, userID)
	}

	members, err := s.rooms.ListActiveMembers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	resp.Members = make([]domain.MemberResponse, len(members))
	for i, m := range members {
		resp.Members[i] = domain.MemberResponse{
			RoomMember: m,
			User:       s.userSummary(ctx, m.UserID),
		}
		if m.UserID == userID {
			resp.UnreadCount = m.UnreadCount
		}
	}
	return resp, nil
}

func (s *chatService) IsRoomMember(ctx context.Context, roomID, userID int64) (bool, error) {
	return s.rooms.IsActiveMember(ctx, roomID, userID)
}

func (s *chatService) JoinRoom(ctx context.Context, roomID, userID int64, nickname string) ([]domain.Fanout, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	if room.Type == domain.RoomTypePrivate {
		return nil, ErrInvalidOperation
	}

	if err := s.rooms.AddMember(ctx, roomID, userID, domain.MemberRoleMember, nickname); err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyMember):
			return nil, ErrAlreadyMember
		case errors.Is(err, repository.ErrRoomNotFound):
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	event := domain.NewEvent(domain.FrameUserJoined, roomID, userID, s.userSummary(ctx, userID))
	return s.fanoutToRoom(ctx, roomID, event, 0)
}

func (s *chatService) LeaveRoom(ctx context.Context, roomID, userID int64) ([]domain.Fanout, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	if room.Type == domain.RoomTypePrivate {
		return nil, ErrInvalidOperation
	}

	if err := s.rooms.RemoveMember(ctx, roomID, userID); err != nil {
		if errors.Is(err, repository.ErrNotMember) {
			return nil, ErrNotMember
		}
		return nil, err
	}

	event := domain.NewEvent(domain.FrameUserLeft, roomID, userID, nil)
	return s.fanoutToRoom(ctx, roomID, event, 0)
}

func (s *chatService) SendMessage(ctx context.Context, senderID int64, req *domain.SendMessageRequest) (*domain.MessageResponse, []domain.Fanout, error) {
	l := log.Ctx(ctx)

	active, err := s.rooms.IsActiveMember(ctx, req.RoomID, senderID)
	if err != nil {
		return nil, nil, err
	}
	if !active {
		return nil, nil, ErrNotMember
	}

	msg := &domain.Message{
		RoomID:      req.RoomID,
		SenderID:    senderID,
		MessageType: req.MessageType,
		Content:     req.Content,
		FileURL:     req.FileURL,
		FileName:    req.FileName,
		FileSize:    req.FileSize,
		ReplyToID:   req.ReplyToID,
		Status:      domain.MessageStatusNormal,
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		return nil, nil, err
	}

	if err := s.rooms.SetLastMessage(ctx, req.RoomID, msg.ID, msg.CreatedAt); err != nil {
		l.Error().Err(err).Int64("room_id", req.RoomID).Msg("failed to update last message pointer")
	}
	if err := s.rooms.IncrementUnread(ctx, req.RoomID, senderID); err != nil {
		l.Error().Err(err).Int64("room_id", req.RoomID).Msg("failed to increment unread counts")
	}

	resp := &domain.MessageResponse{
		Message: *msg,
		Sender:  s.userSummary(ctx, senderID),
		ReplyTo: s.replySnapshot(ctx, msg),
	}

	event := domain.NewEvent(domain.FrameNewMessage, req.RoomID, senderID, resp)
	fanouts, err := s.fanoutToRoom(ctx, req.RoomID, event, 0)
	if err != nil {
		return nil, nil, err
	}
	return resp, fanouts, nil
}

// replySnapshot resolves the replied-to message and embeds a snapshot
// of it. A dangling or cross-room reference is omitted rather than
// failing the send.
func (s *chatService) replySnapshot(ctx context.Context, msg *domain.Message) *domain.MessageResponse {
	if msg.ReplyToID == nil {
		return nil
	}
	replied, err := s.messages.GetByID(ctx, *msg.ReplyToID)
	if err != nil || replied.RoomID != msg.RoomID {
		return nil
	}
	return &domain.MessageResponse{
		Message: *replied,
		Sender:  s.userSummary(ctx, replied.SenderID),
	}
}

func (s *chatService) GetHistory(ctx context.Context, roomID, requesterID int64, page, pageSize int) (*domain.MessagePage, error) {
	active, err := s.rooms.IsActiveMember(ctx, roomID, requesterID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, ErrForbidden
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	messages, total, err := s.messages.Page(ctx, roomID, page, pageSize)
	if err != nil {
		return nil, err
	}

	// Sender summaries repeat heavily inside one page.
	summaries := make(map[int64]*domain.UserSummary)
	summary := func(userID int64) *domain.UserSummary {
		if cached, ok := summaries[userID]; ok {
			return cached
		}
		u := s.userSummary(ctx, userID)
		summaries[userID] = u
		return u
	}

	enriched := make([]domain.MessageResponse, len(messages))
	for i := range messages {
		msg := messages[i]
		enriched[i] = domain.MessageResponse{
			Message: msg,
			Sender:  summary(msg.SenderID),
		}
		if msg.ReplyToID != nil {
			if replied, err := s.messages.GetByID(ctx, *msg.ReplyToID); err == nil && replied.RoomID == roomID {
				enriched[i].ReplyTo = &domain.MessageResponse{
					Message: *replied,
					Sender:  summary(replied.SenderID),
				}
			}
		}
	}

	totalPages := (total + int64(pageSize) - 1) / int64(pageSize)
	return &domain.MessagePage{
		Messages:   enriched,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int(totalPages),
	}, nil
}

func (s *chatService) RecallMessage(ctx context.Context, messageID, requesterID int64) ([]domain.Fanout, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}

	if msg.SenderID != requesterID {
		return nil, ErrForbidden
	}
	if s.now().Sub(msg.CreatedAt) >= RecallWindow {
		return nil, ErrRecallWindowExpired
	}

	if err := s.messages.Recall(ctx, messageID, RecallPlaceholder); err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.ActionRecallMessage, requesterID, "message recalled")

	event := domain.NewEvent(domain.FrameMessageRecalled, msg.RoomID, requesterID, map[string]interface{}{
		"messageId":  msg.ID,
		"roomId":     msg.RoomID,
		"sequenceId": msg.SequenceID,
	})
	return s.fanoutToRoom(ctx, msg.RoomID, event, 0)
}

func (s *chatService) MarkRead(ctx context.Context, roomID, userID int64) ([]domain.Fanout, error) {
	member, err := s.rooms.GetMember(ctx, roomID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	if member.Status != domain.MemberStatusActive {
		return nil, ErrForbidden
	}

	if err := s.rooms.MarkRead(ctx, roomID, userID, s.now()); err != nil {
		return nil, err
	}
	since := member.JoinTime
	if member.LastReadTime != nil {
		since = *member.LastReadTime
	}
	if err := s.messages.IncrementReadCount(ctx, roomID, userID, since); err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Int64(log.FieldRoomID, roomID).Msg("failed to bump read counts")
	}

	// The reader is included; their other devices need the reset too.
	event := domain.NewEvent(domain.FrameMessageRead, roomID, userID, nil)
	return s.fanoutToRoom(ctx, roomID, event, 0)
}

func (s *chatService) Typing(ctx context.Context, roomID, userID int64, typing bool) ([]domain.Fanout, error) {
	active, err := s.rooms.IsActiveMember(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, ErrNotMember
	}

	frameType := domain.FrameUserTyping
	if !typing {
		frameType = domain.FrameUserStopTyping
	}
	event := domain.NewEvent(frameType, roomID, userID, nil)
	return s.fanoutToRoom(ctx, roomID, event, userID)
}

func (s *chatService) DeleteUserChatData(ctx context.Context, userID int64) error {
	l := log.Ctx(ctx)

	if err := s.presence.Delete(ctx, userID); err != nil {
		return err
	}

	rooms, err := s.rooms.ListByUser(ctx, userID)
	if err != nil {
		return err
	}

	for _, room := range rooms {
		if room.Type == domain.RoomTypePrivate && room.CreatorID == userID {
			if err := s.messages.DeleteByRoom(ctx, room.ID); err != nil {
				return err
			}
			if err := s.rooms.DeleteRoom(ctx, room.ID); err != nil {
				return err
			}
			continue
		}

		if err := s.messages.DeleteBySender(ctx, room.ID, userID); err != nil {
			return err
		}
		if err := s.rooms.DeleteMembership(ctx, room.ID, userID); err != nil {
			return err
		}
	}

	audit.Log(ctx, audit.ActionDeleteChatData, userID, "chat data removed for deleted account")
	l.Info().Int64(log.FieldUserID, userID).Int("rooms", len(rooms)).Msg("user chat data deleted")
	return nil
}

// fanoutToRoom builds one delivery instruction per ACTIVE member of the
// room, excluding excludeID when non-zero.
func (s *chatService) fanoutToRoom(ctx context.Context, roomID int64, event *domain.Event, excludeID int64) ([]domain.Fanout, error) {
	members, err := s.rooms.ListActiveMembers(ctx, roomID)
	if err != nil {
		return nil, err
	}

	fanouts := make([]domain.Fanout, 0, len(members))
	for _, m := range members {
		if excludeID != 0 && m.UserID == excludeID {
			continue
		}
		fanouts = append(fanouts, domain.Fanout{UserID: m.UserID, Event: event})
	}
	return fanouts, nil
}

func (s *chatService) userSummary(ctx context.Context, userID int64) *domain.UserSummary {
	u, err := s.users.GetUserSummary(ctx, userID)
	if err != nil {
		if !errors.Is(err, directory.ErrUserNotFound) {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Int64(log.FieldUserID, userID).Msg("failed to resolve user summary")
		}
		return nil
	}
	return u
}
