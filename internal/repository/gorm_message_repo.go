package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/phostann/ybook/internal/domain"
	"github.com/phostann/ybook/pkg/log"
)

// GormMessageRepository implements MessageRepository using GORM.
// Sequence allocation is serialized per room with a keyed mutex, so
// two concurrent sends to the same room can never observe the same
// maximum and collide on a sequence id.
type GormMessageRepository struct {
	db *gorm.DB

	mu        sync.Mutex
	roomLocks map[int64]*sync.Mutex
}

// NewGormMessageRepository creates a new GORM-based message repository.
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{
		db:        db,
		roomLocks: make(map[int64]*sync.Mutex),
	}
}

func (r *GormMessageRepository) roomLock(roomID int64) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.roomLocks[roomID]
	if !ok {
		lock = &sync.Mutex{}
		r.roomLocks[roomID] = lock
	}
	return lock
}

// Append persists a message, allocating the next room-scoped sequence
// id (starting at 1 for an empty room) inside the insert transaction.
func (r *GormMessageRepository) Append(ctx context.Context, msg *domain.Message) error {
	l := log.Ctx(ctx)

	lock := r.roomLock(msg.RoomID)
	lock.Lock()
	defer lock.Unlock()

	if msg.Status == "" {
		msg.Status = domain.MessageStatusNormal
	}

	model := domain.MessageModel{
		RoomID:      msg.RoomID,
		SenderID:    msg.SenderID,
		MessageType: string(msg.MessageType),
		Content:     msg.Content,
		FileURL:     msg.FileURL,
		FileName:    msg.FileName,
		FileSize:    msg.FileSize,
		ReplyToID:   msg.ReplyToID,
		Status:      string(msg.Status),
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxSeq int64
		if err := tx.Model(&domain.MessageModel{}).
			Where("room_id = ?", msg.RoomID).
			Select("COALESCE(MAX(sequence_id), 0)").
			Scan(&maxSeq).Error; err != nil {
			return err
		}

		model.SequenceID = maxSeq + 1
		return tx.Create(&model).Error
	})
	if err != nil {
		l.Error().Err(err).Int64("room_id", msg.RoomID).Msg("failed to append message")
		return err
	}

	msg.ID = model.ID
	msg.SequenceID = model.SequenceID
	msg.CreatedAt = model.CreatedAt
	msg.UpdatedAt = model.UpdatedAt
	l.Debug().
		Int64("room_id", msg.RoomID).
		Int64("message_id", msg.ID).
		Int64("sequence_id", msg.SequenceID).
		Msg("message appended")
	return nil
}

func (r *GormMessageRepository) MaxSequence(ctx context.Context, roomID int64) (int64, error) {
	var maxSeq int64
	err := r.db.WithContext(ctx).Model(&domain.MessageModel{}).
		Where("room_id = ?", roomID).
		Select("COALESCE(MAX(sequence_id), 0)").
		Scan(&maxSeq).Error
	return maxSeq, err
}

func (r *GormMessageRepository) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	var model domain.MessageModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

func (r *GormMessageRepository) Page(ctx context.Context, roomID int64, page, pageSize int) ([]domain.Message, int64, error) {
	l := log.Ctx(ctx)

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := r.db.WithContext(ctx).Model(&domain.MessageModel{}).Where("room_id = ?", roomID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		l.Error().Err(err).Int64("room_id", roomID).Msg("failed to count messages")
		return nil, 0, err
	}

	var models []domain.MessageModel
	if err := query.Order("sequence_id DESC").Offset(offset).Limit(pageSize).Find(&models).Error; err != nil {
		l.Error().Err(err).Int64("room_id", roomID).Msg("failed to page messages")
		return nil, 0, err
	}

	messages := make([]domain.Message, len(models))
	for i, model := range models {
		messages[i] = *model.ToDomain()
	}
	return messages, total, nil
}

func (r *GormMessageRepository) Recall(ctx context.Context, id int64, placeholder string) error {
	l := log.Ctx(ctx)

	result := r.db.WithContext(ctx).Model(&domain.MessageModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":  string(domain.MessageStatusRecalled),
			"content": placeholder,
		})
	if result.Error != nil {
		l.Error().Err(result.Error).Int64("message_id", id).Msg("failed to recall message")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func (r *GormMessageRepository) IncrementReadCount(ctx context.Context, roomID, readerID int64, since time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.MessageModel{}).
		Where("room_id = ? AND sender_id <> ? AND created_at > ?", roomID, readerID, since).
		UpdateColumn("read_count", gorm.Expr("read_count + 1")).Error
}

func (r *GormMessageRepository) DeleteBySender(ctx context.Context, roomID, senderID int64) error {
	return r.db.WithContext(ctx).
		Where("room_id = ? AND sender_id = ?", roomID, senderID).
		Delete(&domain.MessageModel{}).Error
}

func (r *GormMessageRepository) DeleteByRoom(ctx context.Context, roomID int64) error {
	return r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Delete(&domain.MessageModel{}).Error
}
