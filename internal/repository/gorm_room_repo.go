package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/phostann/ybook/internal/domain"
	"github.com/phostann/ybook/pkg/log"
)

// GormRoomRepository implements RoomRepository using GORM.
type GormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository creates a new GORM-based room repository.
func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	return &GormRoomRepository{db: db}
}

func (r *GormRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	l := log.Ctx(ctx)

	if room.Status == "" {
		room.Status = domain.RoomStatusActive
	}

	model := domain.RoomToModel(room)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		l.Error().Err(err).Msg("failed to create room in db")
		return err
	}

	room.ID = model.ID
	room.CreatedAt = model.CreatedAt
	room.UpdatedAt = model.UpdatedAt
	l.Debug().Int64("room_id", room.ID).Msg("room created in db")
	return nil
}

func (r *GormRoomRepository) GetByID(ctx context.Context, id int64) (*domain.Room, error) {
	l := log.Ctx(ctx)

	var model domain.RoomModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		l.Error().Err(result.Error).Int64("room_id", id).Msg("failed to get room by id")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

func (r *GormRoomRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Room, error) {
	l := log.Ctx(ctx)

	var models []domain.RoomModel
	result := r.db.WithContext(ctx).
		Joins("JOIN chat_room_members m ON m.room_id = chat_rooms.id AND m.user_id = ? AND m.status = ?",
			userID, string(domain.MemberStatusActive)).
		Order("chat_rooms.last_message_time DESC").
		Find(&models)
	if result.Error != nil {
		l.Error().Err(result.Error).Int64(log.FieldUserID, userID).Msg("failed to list rooms for user")
		return nil, result.Error
	}

	rooms := make([]domain.Room, len(models))
	for i, model := range models {
		rooms[i] = *model.ToDomain()
	}
	return rooms, nil
}

func (r *GormRoomRepository) FindPrivateRoom(ctx context.Context, userA, userB int64) (*domain.Room, error) {
	l := log.Ctx(ctx)

	active := string(domain.MemberStatusActive)
	var model domain.RoomModel
	result := r.db.WithContext(ctx).
		Joins("JOIN chat_room_members m1 ON m1.room_id = chat_rooms.id AND m1.user_id = ? AND m1.status = ?", userA, active).
		Joins("JOIN chat_room_members m2 ON m2.room_id = chat_rooms.id AND m2.user_id = ? AND m2.status = ?", userB, active).
		Where("chat_rooms.room_type = ?", string(domain.RoomTypePrivate)).
		First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		l.Error().Err(result.Error).Msg("failed to find private room")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

func (r *GormRoomRepository) AddMember(ctx context.Context, roomID, userID int64, role domain.MemberRole, nickname string) error {
	l := log.Ctx(ctx)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room domain.RoomModel
		if err := tx.First(&room, "id = ?", roomID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoomNotFound
			}
			return err
		}

		now := time.Now()

		var existing domain.RoomMemberModel
		err := tx.Where("room_id = ? AND user_id = ?", roomID, userID).First(&existing).Error
		switch {
		case err == nil:
			if existing.Status == string(domain.MemberStatusActive) {
				return ErrAlreadyMember
			}
			// Rejoin reactivates the same row rather than inserting a
			// second one.
			updates := map[string]interface{}{
				"status":       string(domain.MemberStatusActive),
				"join_time":    now,
				"nickname":     nickname,
				"unread_count": 0,
			}
			if err := tx.Model(&existing).Updates(updates).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			member := domain.RoomMemberModel{
				RoomID:   roomID,
				UserID:   userID,
				Role:     string(role),
				Nickname: nickname,
				JoinTime: now,
				Status:   string(domain.MemberStatusActive),
			}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
		default:
			return err
		}

		if err := tx.Model(&domain.RoomModel{}).
			Where("id = ?", roomID).
			UpdateColumn("member_count", gorm.Expr("member_count + 1")).Error; err != nil {
			return err
		}

		l.Debug().Int64("room_id", roomID).Int64(log.FieldUserID, userID).Msg("member added to room")
		return nil
	})
}

func (r *GormRoomRepository) RemoveMember(ctx context.Context, roomID, userID int64) error {
	l := log.Ctx(ctx)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.RoomMemberModel{}).
			Where("room_id = ? AND user_id = ? AND status = ?", roomID, userID, string(domain.MemberStatusActive)).
			Update("status", string(domain.MemberStatusLeft))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotMember
		}

		if err := tx.Model(&domain.RoomModel{}).
			Where("id = ? AND member_count > 0", roomID).
			UpdateColumn("member_count", gorm.Expr("member_count - 1")).Error; err != nil {
			return err
		}

		l.Debug().Int64("room_id", roomID).Int64(log.FieldUserID, userID).Msg("member left room")
		return nil
	})
}

func (r *GormRoomRepository) GetMember(ctx context.Context, roomID, userID int64) (*domain.RoomMember, error) {
	var model domain.RoomMemberModel
	result := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

func (r *GormRoomRepository) IsActiveMember(ctx context.Context, roomID, userID int64) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&domain.RoomMemberModel{}).
		Where("room_id = ? AND user_id = ? AND status = ?", roomID, userID, string(domain.MemberStatusActive)).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

func (r *GormRoomRepository) ListActiveMembers(ctx context.Context, roomID int64) ([]domain.RoomMember, error) {
	l := log.Ctx(ctx)

	var models []domain.RoomMemberModel
	result := r.db.WithContext(ctx).
		Where("room_id = ? AND status = ?", roomID, string(domain.MemberStatusActive)).
		Order("join_time ASC").
		Find(&models)
	if result.Error != nil {
		l.Error().Err(result.Error).Int64("room_id", roomID).Msg("failed to list active members")
		return nil, result.Error
	}

	members := make([]domain.RoomMember, len(models))
	for i, model := range models {
		members[i] = *model.ToDomain()
	}
	return members, nil
}

func (r *GormRoomRepository) SetLastMessage(ctx context.Context, roomID, messageID int64, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.RoomModel{}).
		Where("id = ?", roomID).
		Updates(map[string]interface{}{
			"last_message_id":   messageID,
			"last_message_time": at,
		}).Error
}

func (r *GormRoomRepository) IncrementUnread(ctx context.Context, roomID, senderID int64) error {
	// Single statement so concurrent sends cannot lose updates.
	return r.db.WithContext(ctx).Model(&domain.RoomMemberModel{}).
		Where("room_id = ? AND user_id <> ? AND status = ?", roomID, senderID, string(domain.MemberStatusActive)).
		UpdateColumn("unread_count", gorm.Expr("unread_count + 1")).Error
}

func (r *GormRoomRepository) MarkRead(ctx context.Context, roomID, userID int64, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.RoomMemberModel{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Updates(map[string]interface{}{
			"unread_count":   0,
			"last_read_time": at,
		}).Error
}

func (r *GormRoomRepository) DeleteMembership(ctx context.Context, roomID, userID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var member domain.RoomMemberModel
		err := tx.Where("room_id = ? AND user_id = ?", roomID, userID).First(&member).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := tx.Delete(&member).Error; err != nil {
			return err
		}

		if member.Status == string(domain.MemberStatusActive) {
			if err := tx.Model(&domain.RoomModel{}).
				Where("id = ? AND member_count > 0", roomID).
				UpdateColumn("member_count", gorm.Expr("member_count - 1")).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GormRoomRepository) DeleteRoom(ctx context.Context, roomID int64) error {
	l := log.Ctx(ctx)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", roomID).Delete(&domain.RoomMemberModel{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.RoomModel{}, "id = ?", roomID).Error
	})
	if err != nil {
		l.Error().Err(err).Int64("room_id", roomID).Msg("failed to delete room")
		return err
	}
	l.Debug().Int64("room_id", roomID).Msg("room deleted")
	return nil
}
