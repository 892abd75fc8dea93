package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"anoa.com/venti/internal/entity"
	"anoa.com/venti/internal/modules/progression/dto"
	"anoa.com/venti/internal/modules/progression/repository"
)

// StartActivitySession opens a new session, force-closing any session that
// was left active. A force-closed session earns nothing.
func (s *xpService) StartActivitySession(ctx context.Context, userID uuid.UUID) (uint, error) {
	if _, err := s.repo.FindProfile(ctx, userID); err != nil {
		return 0, err
	}

	release, err := s.locker.Acquire(ctx, sessionLockKey(userID))
	if err != nil {
		return 0, err
	}
	defer release()

	now := s.now()
	session := &entity.UserActivity{UserID: userID, SessionStart: now, IsActive: true}

	err = s.repo.WithTx(ctx, func(tx repository.ProgressionRepository) error {
		active, err := tx.FindActiveSession(ctx, userID)
		if err != nil {
			return err
		}
		if active != nil {
			active.Close(now)
			if err := tx.CloseSession(ctx, active); err != nil {
				return err
			}
			s.log.Info("force-closed stale activity session",
				"user_id", userID, "session_id", active.ID, "duration_minutes", active.DurationMinutes)
		}
		return tx.CreateSession(ctx, session)
	})
	if err != nil {
		return 0, err
	}
	return session.ID, nil
}

// EndActivitySession closes the active session and hands out the session and
// daily milestone rewards. The session lock is held until the rewards are
// decided so two ends cannot both see themselves as the first of the day.
func (s *xpService) EndActivitySession(ctx context.Context, userID uuid.UUID) (*dto.SessionResult, error) {
	release, err := s.locker.Acquire(ctx, sessionLockKey(userID))
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.now()
	var session *entity.UserActivity
	err = s.repo.WithTx(ctx, func(tx repository.ProgressionRepository) error {
		active, err := tx.FindActiveSession(ctx, userID)
		if err != nil {
			return err
		}
		if active == nil {
			return ErrNoActiveSession
		}
		active.Close(now)
		if err := tx.CloseSession(ctx, active); err != nil {
			return err
		}
		session = active
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &dto.SessionResult{
		SessionID:       session.ID,
		DurationMinutes: session.DurationMinutes,
		Awards:          []dto.AwardResult{},
	}
	if session.DurationMinutes < sessionQualifyingMinutes {
		return result, nil
	}

	award, err := s.AddXPByReason(ctx, userID, entity.ReasonSessionActivity,
		fmt.Sprintf("%d minute activity session", session.DurationMinutes))
	if err != nil {
		return nil, err
	}
	result.Awards = append(result.Awards, *award)
	result.XPAwarded = award.Success

	from, to := dayBounds(now)
	count, err := s.repo.CountQualifyingSessions(ctx, userID, sessionQualifyingMinutes, from, to)
	if err != nil {
		return nil, err
	}
	if count == 1 {
		award, err := s.AddXPByReason(ctx, userID, entity.ReasonDailyActivity, "First 30+ minute session of the day")
		if err != nil {
			return nil, err
		}
		result.Awards = append(result.Awards, *award)
		result.XPAwarded = result.XPAwarded || award.Success
	}

	return result, nil
}

// dayBounds returns the calendar day containing t in t's location.
func dayBounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return from, from.AddDate(0, 0, 1)
}
