package service

import (
	"context"
	"encoding/json"
	"fmt"

	"anoa.com/venti/internal/entity"
	notifRepo "anoa.com/venti/internal/modules/notification/repository"
	"anoa.com/venti/pkg/apperror"
	"anoa.com/venti/pkg/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrNotificationNotFound = fmt.Errorf("notification %w", apperror.ErrNotFound)

type NotificationService interface {
	CreateNotification(ctx context.Context, notification *entity.Notification) error
	// NotifyLevelUp stores and publishes a level-up notification.
	NotifyLevelUp(ctx context.Context, userID uuid.UUID, oldLevel, newLevel, totalXP int) error
	GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, error)
	MarkAsRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
}

type notificationService struct {
	repo        notifRepo.NotificationRepository
	redisClient *redis.Client
	log         *logger.Logger
}

func NewNotificationService(repo notifRepo.NotificationRepository, redisClient *redis.Client, log *logger.Logger) NotificationService {
	if log == nil {
		log = logger.NewNop()
	}
	return &notificationService{
		repo:        repo,
		redisClient: redisClient,
		log:         log.With("component", "notification"),
	}
}

// Channel is the redis pub/sub channel carrying userID's notifications.
func Channel(userID uuid.UUID) string {
	return fmt.Sprintf("user_notifications:%s", userID.String())
}

func (s *notificationService) CreateNotification(ctx context.Context, notification *entity.Notification) error {
	if err := s.repo.Create(ctx, notification); err != nil {
		return err
	}

	if s.redisClient != nil {
		payload, err := json.Marshal(notification)
		if err != nil {
			s.log.Warn("failed to encode notification", "id", notification.ID, "error", err)
			return nil
		}
		if err := s.redisClient.Publish(ctx, Channel(notification.UserID), payload).Err(); err != nil {
			s.log.Warn("failed to publish notification", "user_id", notification.UserID, "error", err)
		}
	}

	return nil
}

func (s *notificationService) NotifyLevelUp(ctx context.Context, userID uuid.UUID, oldLevel, newLevel, totalXP int) error {
	return s.CreateNotification(ctx, &entity.Notification{
		UserID:     userID,
		ActorID:    userID,
		EntityID:   userID,
		EntityType: entity.NotificationEntityProgress,
		Type:       entity.NotificationTypeLevelUp,
		Message:    fmt.Sprintf("🎉 Level up! You went from level %d to level %d with %d XP.", oldLevel, newLevel, totalXP),
	})
}

func (s *notificationService) GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, error) {
	return s.repo.GetByUserID(ctx, userID, limit, offset)
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	found, err := s.repo.MarkAsRead(ctx, userID, id)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}
