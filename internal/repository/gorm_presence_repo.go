package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/phostann/ybook/internal/domain"
	"github.com/phostann/ybook/pkg/log"
)

// GormPresenceRepository implements PresenceRepository using GORM.
type GormPresenceRepository struct {
	db *gorm.DB
}

// NewGormPresenceRepository creates a new GORM-based presence repository.
func NewGormPresenceRepository(db *gorm.DB) *GormPresenceRepository {
	return &GormPresenceRepository{db: db}
}

func (r *GormPresenceRepository) Upsert(ctx context.Context, rec *domain.PresenceRecord) error {
	l := log.Ctx(ctx)

	model := domain.PresenceModel{
		UserID:         rec.UserID,
		Status:         string(rec.Status),
		LastActiveTime: rec.LastActiveTime,
		DeviceType:     rec.DeviceType,
		IPAddress:      rec.IPAddress,
		UserAgent:      rec.UserAgent,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "last_active_time", "device_type", "ip_address", "user_agent",
		}),
	}).Create(&model).Error
	if err != nil {
		l.Error().Err(err).Int64(log.FieldUserID, rec.UserID).Msg("failed to upsert presence")
		return err
	}
	return nil
}

func (r *GormPresenceRepository) Get(ctx context.Context, userID int64) (*domain.PresenceRecord, error) {
	var model domain.PresenceModel
	result := r.db.WithContext(ctx).First(&model, "user_id = ?", userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrPresenceNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

func (r *GormPresenceRepository) Touch(ctx context.Context, userID int64, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.PresenceModel{}).
		Where("user_id = ?", userID).
		Update("last_active_time", at).Error
}

func (r *GormPresenceRepository) Delete(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).Delete(&domain.PresenceModel{}, "user_id = ?", userID).Error
}
