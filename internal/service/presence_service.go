package service

import (
	"context"
	"errors"
	"time"

	"github.com/phostann/ybook/internal/cache"
	"github.com/phostann/ybook/internal/domain"
	"github.com/phostann/ybook/internal/repository"
	"github.com/phostann/ybook/pkg/log"
)

type presenceService struct {
	store     repository.PresenceRepository
	rooms     repository.RoomRepository
	cache     cache.PresenceCache
	onlineTTL time.Duration

	now func() time.Time
}

// NewPresenceService creates the presence tracker. The cache flags a
// user online with a TTL refreshed by heartbeats; the store keeps the
// durable row.
func NewPresenceService(
	store repository.PresenceRepository,
	rooms repository.RoomRepository,
	presenceCache cache.PresenceCache,
	onlineTTL time.Duration,
) PresenceService {
	return &presenceService{
		store:     store,
		rooms:     rooms,
		cache:     presenceCache,
		onlineTTL: onlineTTL,
		now:       time.Now,
	}
}

func (s *presenceService) SetOnline(ctx context.Context, userID int64, device domain.DeviceInfo) error {
	l := log.Ctx(ctx)

	rec := &domain.PresenceRecord{
		UserID:         userID,
		Status:         domain.PresenceOnline,
		LastActiveTime: s.now(),
		DeviceType:     device.DeviceType,
		IPAddress:      device.IPAddress,
		UserAgent:      device.UserAgent,
	}
	if err := s.store.Upsert(ctx, rec); err != nil {
		return err
	}

	if err := s.cache.SetOnline(ctx, userID, s.onlineTTL); err != nil {
		l.Warn().Err(err).Int64(log.FieldUserID, userID).Msg("failed to cache online flag")
	}
	return nil
}

func (s *presenceService) SetOffline(ctx context.Context, userID int64) error {
	l := log.Ctx(ctx)

	rec := &domain.PresenceRecord{
		UserID:         userID,
		Status:         domain.PresenceOffline,
		LastActiveTime: s.now(),
	}
	if err := s.store.Upsert(ctx, rec); err != nil {
		return err
	}

	if err := s.cache.SetOffline(ctx, userID); err != nil {
		l.Warn().Err(err).Int64(log.FieldUserID, userID).Msg("failed to clear online flag")
	}
	return nil
}

func (s *presenceService) Heartbeat(ctx context.Context, userID int64) error {
	if err := s.store.Touch(ctx, userID, s.now()); err != nil {
		return err
	}
	return s.cache.Refresh(ctx, userID, s.onlineTTL)
}

// GetPresence returns the durable row, downgraded to OFFLINE when the
// row still says ONLINE but the cache TTL has lapsed. An abruptly
// dropped connection never sends an explicit disconnect.
func (s *presenceService) GetPresence(ctx context.Context, userID int64) (*domain.PresenceRecord, error) {
	rec, err := s.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrPresenceNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if rec.Status == domain.PresenceOnline {
		online, err := s.cache.IsOnline(ctx, userID)
		if err != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Int64(log.FieldUserID, userID).Msg("failed to check online flag")
		} else if !online {
			rec.Status = domain.PresenceOffline
		}
	}
	return rec, nil
}

func (s *presenceService) GetRoomPresence(ctx context.Context, roomID int64) ([]domain.PresenceRecord, error) {
	members, err := s.rooms.ListActiveMembers(ctx, roomID)
	if err != nil {
		return nil, err
	}

	records := make([]domain.PresenceRecord, 0, len(members))
	for _, m := range members {
		rec, err := s.GetPresence(ctx, m.UserID)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				// Never connected; report as offline.
				records = append(records, domain.PresenceRecord{
					UserID: m.UserID,
					Status: domain.PresenceOffline,
				})
				continue
			}
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, nil
}
