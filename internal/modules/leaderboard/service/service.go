package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	leaderboardDto "anoa.com/venti/internal/modules/leaderboard/dto"
	leaderboardRepo "anoa.com/venti/internal/modules/leaderboard/repository"
	"anoa.com/venti/internal/modules/progression/curve"
	"anoa.com/venti/pkg/apperror"
	"anoa.com/venti/pkg/logger"
	"github.com/google/uuid"
)

const (
	DefaultLimit = 10
	MaxLimit     = 50
)

var ErrInvalidTimeframe = fmt.Errorf("timeframe must be all_time, weekly or monthly: %w", apperror.ErrInvalidInput)

type LeaderboardService interface {
	GetLeaderboard(ctx context.Context, limit int, timeframe string) ([]leaderboardDto.LeaderboardEntry, error)
}

type leaderboardService struct {
	repo     leaderboardRepo.LeaderboardRepository
	cache    Cache
	cacheTTL time.Duration
	log      *logger.Logger
	clock    func() time.Time
}

// NewLeaderboardService builds the service. A nil cache or non-positive ttl
// disables caching.
func NewLeaderboardService(repo leaderboardRepo.LeaderboardRepository, cache Cache, cacheTTL time.Duration, log *logger.Logger, clock func() time.Time) LeaderboardService {
	if log == nil {
		log = logger.NewNop()
	}
	if clock == nil {
		clock = time.Now
	}
	return &leaderboardService{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		log:      log.With("component", "leaderboard"),
		clock:    clock,
	}
}

func (s *leaderboardService) GetLeaderboard(ctx context.Context, limit int, timeframe string) ([]leaderboardDto.LeaderboardEntry, error) {
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if timeframe == "" {
		timeframe = leaderboardDto.TimeframeAllTime
	}

	now := s.clock()
	weekAgo := now.AddDate(0, 0, -7)

	var since time.Time
	switch timeframe {
	case leaderboardDto.TimeframeAllTime:
	case leaderboardDto.TimeframeWeekly:
		since = weekAgo
	case leaderboardDto.TimeframeMonthly:
		since = now.AddDate(0, -1, 0)
	default:
		return nil, ErrInvalidTimeframe
	}

	key := fmt.Sprintf("leaderboard:%s:%d", timeframe, limit)
	if entries, ok := s.fromCache(ctx, key); ok {
		return entries, nil
	}

	var (
		rows []leaderboardRepo.Row
		err  error
	)
	if timeframe == leaderboardDto.TimeframeAllTime {
		rows, err = s.repo.TopByXP(ctx, limit)
	} else {
		rows, err = s.repo.TopSince(ctx, since, limit)
	}
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.UserID)
	}
	weekly, err := s.repo.XPSince(ctx, ids, weekAgo)
	if err != nil {
		return nil, err
	}

	entries := make([]leaderboardDto.LeaderboardEntry, 0, len(rows))
	for i, row := range rows {
		status := curve.Status(row.XP)
		entries = append(entries, leaderboardDto.LeaderboardEntry{
			Position:    i + 1,
			UserID:      row.UserID,
			Username:    row.Username,
			AvatarURL:   row.AvatarURL,
			XP:          row.XP,
			Level:       status.Level,
			Progress:    status.Progress,
			PeriodXP:    row.PeriodXP,
			WeeklyXP:    weekly[row.UserID],
			WeeklyLabel: WeeklyLabel(weekly[row.UserID]),
		})
	}

	s.toCache(ctx, key, entries)
	return entries, nil
}

func (s *leaderboardService) fromCache(ctx context.Context, key string) ([]leaderboardDto.LeaderboardEntry, bool) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return nil, false
	}
	b, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			s.log.Warn("leaderboard cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	var entries []leaderboardDto.LeaderboardEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		s.log.Warn("leaderboard cache entry is corrupt", "key", key, "error", err)
		return nil, false
	}
	return entries, true
}

func (s *leaderboardService) toCache(ctx context.Context, key string, entries []leaderboardDto.LeaderboardEntry) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, b, s.cacheTTL); err != nil {
		s.log.Warn("leaderboard cache write failed", "key", key, "error", err)
	}
}
