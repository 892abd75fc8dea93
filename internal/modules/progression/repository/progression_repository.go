package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"anoa.com/venti/internal/entity"
	"anoa.com/venti/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrProfileNotFound = fmt.Errorf("profile %w", apperror.ErrNotFound)
	// ErrVersionConflict means another writer updated the profile between our
	// read and our compare-and-swap.
	ErrVersionConflict = fmt.Errorf("profile version changed: %w", apperror.ErrConflict)
)

type ProgressionRepository interface {
	// WithTx runs fn against a repository bound to a single transaction.
	WithTx(ctx context.Context, fn func(repo ProgressionRepository) error) error

	FindProfile(ctx context.Context, userID uuid.UUID) (*entity.Profile, error)
	CreateProfile(ctx context.Context, profile *entity.Profile) error
	// UpdateProgress writes the progression columns of profile if the stored
	// version still equals profile.Version, then bumps profile.Version.
	UpdateProgress(ctx context.Context, profile *entity.Profile) error
	ListProfileIDs(ctx context.Context) ([]uuid.UUID, error)

	CreateXPLog(ctx context.Context, log *entity.XPLog) error
	HasXPLogWithReason(ctx context.Context, profileID uuid.UUID, reason entity.XPReason) (bool, error)
	ListXPLogs(ctx context.Context, profileID uuid.UUID, limit int) ([]entity.XPLog, error)
	CountXPLogs(ctx context.Context, profileID uuid.UUID) (int64, error)

	FindActiveSession(ctx context.Context, userID uuid.UUID) (*entity.UserActivity, error)
	CreateSession(ctx context.Context, session *entity.UserActivity) error
	CloseSession(ctx context.Context, session *entity.UserActivity) error
	// CountQualifyingSessions counts closed sessions of at least minMinutes
	// that ended in [from, to).
	CountQualifyingSessions(ctx context.Context, userID uuid.UUID, minMinutes int, from, to time.Time) (int64, error)
}

type progressionRepository struct {
	db *gorm.DB
}

func NewProgressionRepository(db *gorm.DB) ProgressionRepository {
	return &progressionRepository{db: db}
}

func (r *progressionRepository) WithTx(ctx context.Context, fn func(repo ProgressionRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&progressionRepository{db: tx})
	})
}

func (r *progressionRepository) FindProfile(ctx context.Context, userID uuid.UUID) (*entity.Profile, error) {
	var profile entity.Profile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &profile, nil
}

func (r *progressionRepository) CreateProfile(ctx context.Context, profile *entity.Profile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *progressionRepository) UpdateProgress(ctx context.Context, profile *entity.Profile) error {
	var lastActivity interface{}
	if profile.LastActivity != nil {
		lastActivity = profile.LastActivity.UTC()
	}

	res := r.db.WithContext(ctx).
		Model(&entity.Profile{}).
		Where("user_id = ? AND version = ?", profile.UserID, profile.Version).
		Updates(map[string]interface{}{
			"xp":               profile.XP,
			"level":            profile.Level,
			"daily_xp_earned":  profile.DailyXPEarned,
			"last_daily_reset": profile.LastDailyReset,
			"last_activity":    lastActivity,
			"badges":           profile.Badges,
			"version":          gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	profile.Version++
	return nil
}

func (r *progressionRepository) ListProfileIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&entity.Profile{}).
		Order("created_at ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *progressionRepository) CreateXPLog(ctx context.Context, log *entity.XPLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *progressionRepository) HasXPLogWithReason(ctx context.Context, profileID uuid.UUID, reason entity.XPReason) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.XPLog{}).
		Where("profile_id = ? AND reason = ?", profileID, reason).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}

func (r *progressionRepository) ListXPLogs(ctx context.Context, profileID uuid.UUID, limit int) ([]entity.XPLog, error) {
	var logs []entity.XPLog
	err := r.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

func (r *progressionRepository) CountXPLogs(ctx context.Context, profileID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.XPLog{}).
		Where("profile_id = ?", profileID).
		Count(&count).Error
	return count, err
}

func (r *progressionRepository) FindActiveSession(ctx context.Context, userID uuid.UUID) (*entity.UserActivity, error) {
	// Find with a slice keeps "record not found" out of the gorm log
	var sessions []entity.UserActivity
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("session_start DESC").
		Limit(1).
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return &sessions[0], nil
}

func (r *progressionRepository) CreateSession(ctx context.Context, session *entity.UserActivity) error {
	session.SessionStart = session.SessionStart.UTC()
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *progressionRepository) CloseSession(ctx context.Context, session *entity.UserActivity) error {
	var end interface{}
	if session.SessionEnd != nil {
		end = session.SessionEnd.UTC()
	}
	res := r.db.WithContext(ctx).
		Model(&entity.UserActivity{}).
		Where("id = ? AND is_active = ?", session.ID, true).
		Updates(map[string]interface{}{
			"session_end":      end,
			"duration_minutes": session.DurationMinutes,
			"is_active":        false,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("session %d already closed: %w", session.ID, apperror.ErrConflict)
	}
	return nil
}

func (r *progressionRepository) CountQualifyingSessions(ctx context.Context, userID uuid.UUID, minMinutes int, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.UserActivity{}).
		Where("user_id = ? AND is_active = ? AND duration_minutes >= ?", userID, false, minMinutes).
		Where("session_end >= ? AND session_end < ?", from.UTC(), to.UTC()).
		Count(&count).Error
	return count, err
}
