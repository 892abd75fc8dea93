package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Row is a profile joined with its user, plus the XP summed over a window
// when one was asked for.
type Row struct {
	UserID    uuid.UUID
	Username  string
	AvatarURL *string
	XP        int
	Level     int
	PeriodXP  int
}

type LeaderboardRepository interface {
	TopByXP(ctx context.Context, limit int) ([]Row, error)
	// TopSince ranks profiles by XP logged at or after since.
	TopSince(ctx context.Context, since time.Time, limit int) ([]Row, error)
	XPSince(ctx context.Context, userIDs []uuid.UUID, since time.Time) (map[uuid.UUID]int, error)
}

type leaderboardRepository struct {
	db *gorm.DB
}

func NewLeaderboardRepository(db *gorm.DB) LeaderboardRepository {
	return &leaderboardRepository{db: db}
}

func (r *leaderboardRepository) TopByXP(ctx context.Context, limit int) ([]Row, error) {
	var rows []Row
	err := r.db.WithContext(ctx).
		Table("profiles AS p").
		Select("p.user_id, u.username, u.avatar_url, p.xp, p.level").
		Joins("JOIN users u ON u.id = p.user_id").
		Order("p.xp DESC, p.user_id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *leaderboardRepository) TopSince(ctx context.Context, since time.Time, limit int) ([]Row, error) {
	var rows []Row
	err := r.db.WithContext(ctx).
		Table("xp_logs AS l").
		Select("l.profile_id AS user_id, u.username, u.avatar_url, p.xp, p.level, SUM(l.amount) AS period_xp").
		Joins("JOIN profiles p ON p.user_id = l.profile_id").
		Joins("JOIN users u ON u.id = p.user_id").
		Where("l.created_at >= ?", since.UTC()).
		Group("l.profile_id, u.username, u.avatar_url, p.xp, p.level").
		Order("period_xp DESC, l.profile_id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *leaderboardRepository) XPSince(ctx context.Context, userIDs []uuid.UUID, since time.Time) (map[uuid.UUID]int, error) {
	out := make(map[uuid.UUID]int, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	type result struct {
		ProfileID uuid.UUID
		Score     int
	}
	var results []result
	err := r.db.WithContext(ctx).
		Table("xp_logs").
		Select("profile_id, SUM(amount) AS score").
		Where("profile_id IN ? AND created_at >= ?", userIDs, since.UTC()).
		Group("profile_id").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	for _, res := range results {
		out[res.ProfileID] = res.Score
	}
	return out, nil
}
