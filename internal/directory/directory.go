package directory

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/phostann/ybook/internal/domain"
)

var ErrUserNotFound = errors.New("user not found")

// UserDirectory is the user lookup collaborator. The chat subsystem
// only needs enough of a user to label senders, creators and members.
type UserDirectory interface {
	GetUserSummary(ctx context.Context, userID int64) (*domain.UserSummary, error)
}

// GormUserDirectory reads the users table owned by the account
// subsystem. Display name prefers the nickname over the login name.
type GormUserDirectory struct {
	db *gorm.DB
}

func NewGormUserDirectory(db *gorm.DB) *GormUserDirectory {
	return &GormUserDirectory{db: db}
}

func (d *GormUserDirectory) GetUserSummary(ctx context.Context, userID int64) (*domain.UserSummary, error) {
	var model domain.UserModel
	result := d.db.WithContext(ctx).First(&model, "id = ?", userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}

	name := model.Nickname
	if name == "" {
		name = model.Username
	}
	return &domain.UserSummary{
		ID:          model.ID,
		DisplayName: name,
		AvatarURL:   model.Avatar,
	}, nil
}
