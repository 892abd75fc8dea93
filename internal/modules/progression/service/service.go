package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/avast/retry-go"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"anoa.com/venti/internal/entity"
	"anoa.com/venti/internal/modules/progression/curve"
	"anoa.com/venti/internal/modules/progression/dto"
	"anoa.com/venti/internal/modules/progression/repository"
	"anoa.com/venti/pkg/logger"
)

const (
	defaultHistoryLimit  = 20
	maxHistoryLimit      = 100
	maxDescriptionLength = 500
	dateLayout           = "2006-01-02"
)

type XPService interface {
	AddXP(ctx context.Context, userID uuid.UUID, amount int, reason entity.XPReason, description string) (*dto.AwardResult, error)
	AddXPByReason(ctx context.Context, userID uuid.UUID, reason entity.XPReason, description string) (*dto.AwardResult, error)
	GetDailyXPRemaining(ctx context.Context, userID uuid.UUID) (int, error)

	AddBadge(ctx context.Context, userID uuid.UUID, badge string) (bool, error)
	AwardBadge(ctx context.Context, userID uuid.UUID, badge string) (*dto.AwardResult, error)
	AwardProfileCompletion(ctx context.Context, userID uuid.UUID) (*dto.AwardResult, error)
	AwardLoginStreak(ctx context.Context, userID uuid.UUID, streakDays int) (*dto.AwardResult, error)

	GetStats(ctx context.Context, userID uuid.UUID) (*dto.XPStats, error)
	GetHistory(ctx context.Context, userID uuid.UUID, limit int) ([]dto.XPLogResponse, error)
	GrantAll(ctx context.Context, amount int, reason entity.XPReason, description string, dryRun bool) (*dto.BulkGrantResult, error)

	StartActivitySession(ctx context.Context, userID uuid.UUID) (uint, error)
	EndActivitySession(ctx context.Context, userID uuid.UUID) (*dto.SessionResult, error)
}

// LevelUpNotifier is told about level-ups after the grant has committed.
type LevelUpNotifier interface {
	NotifyLevelUp(ctx context.Context, userID uuid.UUID, oldLevel, newLevel, totalXP int) error
}

type Config struct {
	// Location is the calendar used for the daily cap window. Defaults to UTC.
	Location      *time.Location
	RetryAttempts uint
	Clock         func() time.Time
}

type xpService struct {
	repo     repository.ProgressionRepository
	locker   Locker
	notifier LevelUpNotifier
	log      *logger.Logger
	policy   *bluemonday.Policy

	loc      *time.Location
	attempts uint
	clock    func() time.Time
}

func NewXPService(repo repository.ProgressionRepository, locker Locker, notifier LevelUpNotifier, log *logger.Logger, cfg Config) XPService {
	if locker == nil {
		locker = NewKeyedMutex()
	}
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 5
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &xpService{
		repo:     repo,
		locker:   locker,
		notifier: notifier,
		log:      log.With("component", "xp"),
		policy:   bluemonday.StrictPolicy(),
		loc:      cfg.Location,
		attempts: cfg.RetryAttempts,
		clock:    cfg.Clock,
	}
}

func (s *xpService) now() time.Time {
	return s.clock().In(s.loc)
}

func (s *xpService) today() string {
	return s.now().Format(dateLayout)
}

// mutateProfile runs fn in a transaction against a fresh read of the profile
// while holding the profile lock. A lost compare-and-swap retries the whole
// read-modify-write, so fn must not keep state across calls.
func (s *xpService) mutateProfile(ctx context.Context, userID uuid.UUID, fn func(tx repository.ProgressionRepository, p *entity.Profile) error) error {
	release, err := s.locker.Acquire(ctx, profileLockKey(userID))
	if err != nil {
		return err
	}
	defer release()

	return retry.Do(
		func() error {
			return s.repo.WithTx(ctx, func(tx repository.ProgressionRepository) error {
				p, err := tx.FindProfile(ctx, userID)
				if err != nil {
					return err
				}
				return fn(tx, p)
			})
		},
		retry.Context(ctx),
		retry.Attempts(s.attempts),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, repository.ErrVersionConflict)
		}),
		retry.OnRetry(func(n uint, err error) {
			s.log.Debug("retrying profile update", "user_id", userID, "attempt", n+1, "error", err)
		}),
		retry.Delay(5*time.Millisecond),
		retry.MaxJitter(5*time.Millisecond),
		retry.LastErrorOnly(true),
	)
}

// resetDaily rolls the daily window over when the stored date is before today.
func resetDaily(p *entity.Profile, today string) bool {
	if p.LastDailyReset >= today {
		return false
	}
	p.DailyXPEarned = 0
	p.LastDailyReset = today
	return true
}

// healLevel makes the stored level agree with the XP it is derived from and
// returns that level.
func (s *xpService) healLevel(p *entity.Profile) int {
	level := curve.CalculateLevel(p.XP)
	if p.Level != level {
		s.log.Warn("stored level disagrees with xp, resyncing",
			"user_id", p.UserID, "xp", p.XP, "stored_level", p.Level, "level", level)
		p.Level = level
	}
	return level
}

func validateAmount(amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > MaxGrantAmount {
		return ErrAmountTooLarge
	}
	return nil
}

// fitsXPLimit reports whether granted can be added without passing MaxXP.
func fitsXPLimit(p *entity.Profile, granted int) bool {
	return granted <= MaxXP-p.XP
}

// planGrant applies the daily cap to amount without touching storage.
func planGrant(p *entity.Profile, amount int, reason entity.XPReason, today string) (granted int, capped bool) {
	granted = amount
	if !reason.Cappable() {
		return granted, false
	}
	resetDaily(p, today)
	remaining := DailyXPCap - p.DailyXPEarned
	if remaining < 0 {
		remaining = 0
	}
	if granted > remaining {
		return remaining, true
	}
	return granted, false
}

// applyGrant is the single XP mutation point. It must run inside mutateProfile.
func (s *xpService) applyGrant(ctx context.Context, tx repository.ProgressionRepository, p *entity.Profile, amount int, reason entity.XPReason, description string) (*dto.AwardResult, error) {
	oldLevel := s.healLevel(p)
	now := s.now()
	granted, capped := planGrant(p, amount, reason, now.Format(dateLayout))

	result := &dto.AwardResult{
		OldLevel:  oldLevel,
		NewLevel:  oldLevel,
		Requested: amount,
		Capped:    capped,
		Reason:    reason,
	}
	if granted == 0 {
		result.Message = "daily XP cap reached"
		return result, nil
	}
	if !fitsXPLimit(p, granted) {
		return nil, ErrXPLimit
	}

	p.XP += granted
	if reason.Cappable() {
		p.DailyXPEarned += granted
	}
	p.Level = curve.CalculateLevel(p.XP)
	at := now.UTC()
	p.LastActivity = &at

	if err := tx.UpdateProgress(ctx, p); err != nil {
		return nil, err
	}
	if err := tx.CreateXPLog(ctx, &entity.XPLog{
		ProfileID:   p.UserID,
		Amount:      granted,
		Reason:      reason,
		Description: description,
		CreatedAt:   at,
	}); err != nil {
		return nil, fmt.Errorf("failed to write xp log: %w", err)
	}

	result.Success = true
	result.XPGained = granted
	result.NewLevel = p.Level
	result.LevelUp = p.Level > oldLevel
	if capped {
		result.Message = fmt.Sprintf("daily XP cap reached, granted %d of %d", granted, amount)
	}
	return result, nil
}

// afterGrant runs the post-commit side effects of a grant.
func (s *xpService) afterGrant(ctx context.Context, userID uuid.UUID, result *dto.AwardResult, totalXP int) {
	switch {
	case result.Success && result.LevelUp:
		s.log.Info("level up", "user_id", userID, "old_level", result.OldLevel, "new_level", result.NewLevel, "xp", totalXP)
		if s.notifier == nil {
			return
		}
		if err := s.notifier.NotifyLevelUp(ctx, userID, result.OldLevel, result.NewLevel, totalXP); err != nil {
			s.log.Error("failed to send level up notification", "user_id", userID, "error", err)
		}
	case result.Capped:
		s.log.Debug("xp grant capped", "user_id", userID, "reason", result.Reason,
			"requested", result.Requested, "granted", result.XPGained)
	}
}

func (s *xpService) cleanDescription(description string) string {
	description = strings.TrimSpace(s.policy.Sanitize(description))
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		description = string([]rune(description)[:maxDescriptionLength])
	}
	return description
}

func (s *xpService) AddXP(ctx context.Context, userID uuid.UUID, amount int, reason entity.XPReason, description string) (*dto.AwardResult, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	if !reason.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownReason, reason)
	}
	description = s.cleanDescription(description)

	var (
		result  *dto.AwardResult
		totalXP int
	)
	err := s.mutateProfile(ctx, userID, func(tx repository.ProgressionRepository, p *entity.Profile) error {
		var err error
		result, err = s.applyGrant(ctx, tx, p, amount, reason, description)
		totalXP = p.XP
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterGrant(ctx, userID, result, totalXP)
	return result, nil
}

func (s *xpService) AddXPByReason(ctx context.Context, userID uuid.UUID, reason entity.XPReason, description string) (*dto.AwardResult, error) {
	amount, ok := RewardFor(reason)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownReason, reason)
	}
	return s.AddXP(ctx, userID, amount, reason, description)
}

// refreshDaily returns the profile after persisting a pending daily rollover.
func (s *xpService) refreshDaily(ctx context.Context, userID uuid.UUID) (*entity.Profile, error) {
	var profile entity.Profile
	err := s.mutateProfile(ctx, userID, func(tx repository.ProgressionRepository, p *entity.Profile) error {
		if resetDaily(p, s.today()) {
			if err := tx.UpdateProgress(ctx, p); err != nil {
				return err
			}
		}
		profile = *p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *xpService) GetDailyXPRemaining(ctx context.Context, userID uuid.UUID) (int, error) {
	p, err := s.refreshDaily(ctx, userID)
	if err != nil {
		return 0, err
	}
	return dailyRemaining(p), nil
}

func dailyRemaining(p *entity.Profile) int {
	remaining := DailyXPCap - p.DailyXPEarned
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (s *xpService) AddBadge(ctx context.Context, userID uuid.UUID, badge string) (bool, error) {
	badge, err := entity.NormalizeBadge(badge)
	if err != nil {
		return false, err
	}

	var added bool
	err = s.mutateProfile(ctx, userID, func(tx repository.ProgressionRepository, p *entity.Profile) error {
		added = p.AddBadge(badge)
		if !added {
			return nil
		}
		return tx.UpdateProgress(ctx, p)
	})
	return added, err
}

// AwardBadge adds badge and, when it is new, grants badge_earned XP in the
// same transaction.
func (s *xpService) AwardBadge(ctx context.Context, userID uuid.UUID, badge string) (*dto.AwardResult, error) {
	badge, err := entity.NormalizeBadge(badge)
	if err != nil {
		return nil, err
	}
	amount, _ := RewardFor(entity.ReasonBadgeEarned)

	var (
		result  *dto.AwardResult
		totalXP int
	)
	err = s.mutateProfile(ctx, userID, func(tx repository.ProgressionRepository, p *entity.Profile) error {
		if !p.AddBadge(badge) {
			level := s.healLevel(p)
			result = &dto.AwardResult{
				OldLevel: level,
				NewLevel: level,
				Reason:   entity.ReasonBadgeEarned,
				Message:  "badge already earned",
			}
			return nil
		}
		var err error
		result, err = s.applyGrant(ctx, tx, p, amount, entity.ReasonBadgeEarned, "Earned badge "+badge)
		totalXP = p.XP
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterGrant(ctx, userID, result, totalXP)
	return result, nil
}

func (s *xpService) AwardProfileCompletion(ctx context.Context, userID uuid.UUID) (*dto.AwardResult, error) {
	amount, _ := RewardFor(entity.ReasonProfileCompleted)

	var (
		result  *dto.AwardResult
		totalXP int
	)
	err := s.mutateProfile(ctx, userID, func(tx repository.ProgressionRepository, p *entity.Profile) error {
		level := s.healLevel(p)
		declined := &dto.AwardResult{OldLevel: level, NewLevel: level, Reason: entity.ReasonProfileCompleted}

		if !p.IsComplete() {
			declined.Message = "profile is not complete"
			result = declined
			return nil
		}
		awarded, err := tx.HasXPLogWithReason(ctx, p.UserID, entity.ReasonProfileCompleted)
		if err != nil {
			return err
		}
		if awarded {
			declined.Message = "profile completion already awarded"
			result = declined
			return nil
		}

		result, err = s.applyGrant(ctx, tx, p, amount, entity.ReasonProfileCompleted, "Completed profile")
		totalXP = p.XP
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterGrant(ctx, userID, result, totalXP)
	return result, nil
}

// AwardLoginStreak grants only the highest tier the streak reaches.
func (s *xpService) AwardLoginStreak(ctx context.Context, userID uuid.UUID, streakDays int) (*dto.AwardResult, error) {
	var reason entity.XPReason
	switch {
	case streakDays >= loginStreakMonth:
		reason = entity.ReasonLoginStreak30
	case streakDays >= loginStreakWeek:
		reason = entity.ReasonLoginStreak7
	default:
		p, err := s.repo.FindProfile(ctx, userID)
		if err != nil {
			return nil, err
		}
		level := curve.CalculateLevel(p.XP)
		return &dto.AwardResult{
			OldLevel: level,
			NewLevel: level,
			Message:  fmt.Sprintf("no streak bonus below %d days", loginStreakWeek),
		}, nil
	}

	return s.AddXPByReason(ctx, userID, reason, fmt.Sprintf("%d day login streak", streakDays))
}

func (s *xpService) GetStats(ctx context.Context, userID uuid.UUID) (*dto.XPStats, error) {
	p, err := s.refreshDaily(ctx, userID)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.CountXPLogs(ctx, userID)
	if err != nil {
		return nil, err
	}

	status := curve.Status(p.XP)
	badges := []string(p.Badges)
	if badges == nil {
		badges = []string{}
	}
	return &dto.XPStats{
		UserID:            p.UserID,
		CurrentXP:         p.XP,
		CurrentLevel:      status.Level,
		XPForNextLevel:    curve.XPForNextLevel(status.Level),
		XPProgressPercent: status.Progress,
		DailyXPEarned:     p.DailyXPEarned,
		DailyXPRemaining:  dailyRemaining(p),
		TotalXPLogs:       count,
		Badges:            badges,
		Status:            status,
	}, nil
}

func (s *xpService) GetHistory(ctx context.Context, userID uuid.UUID, limit int) ([]dto.XPLogResponse, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if _, err := s.repo.FindProfile(ctx, userID); err != nil {
		return nil, err
	}

	logs, err := s.repo.ListXPLogs(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	return dto.NewXPLogResponses(logs), nil
}

// GrantAll grants amount to every profile. One profile failing does not stop
// the rest. A dry run reports what would be granted under the current caps.
func (s *xpService) GrantAll(ctx context.Context, amount int, reason entity.XPReason, description string, dryRun bool) (*dto.BulkGrantResult, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	if reason == "" {
		reason = entity.ReasonAdminGrant
	}
	if !reason.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownReason, reason)
	}

	ids, err := s.repo.ListProfileIDs(ctx)
	if err != nil {
		return nil, err
	}

	summary := &dto.BulkGrantResult{DryRun: dryRun, TotalProfiles: len(ids)}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if dryRun {
			p, err := s.repo.FindProfile(ctx, id)
			if err != nil {
				summary.Failed++
				continue
			}
			granted, capped := planGrant(p, amount, reason, s.today())
			if !fitsXPLimit(p, granted) {
				summary.Failed++
				continue
			}
			if granted > 0 {
				summary.Succeeded++
				summary.TotalXPGranted += granted
			}
			if capped {
				summary.Capped++
			}
			continue
		}

		result, err := s.AddXP(ctx, id, amount, reason, description)
		if err != nil {
			s.log.Error("bulk grant failed for profile", "user_id", id, "error", err)
			summary.Failed++
			continue
		}
		if result.Success {
			summary.Succeeded++
			summary.TotalXPGranted += result.XPGained
		}
		if result.Capped {
			summary.Capped++
		}
	}

	s.log.Info("bulk grant finished",
		"dry_run", dryRun, "reason", reason, "amount", amount,
		"profiles", summary.TotalProfiles, "succeeded", summary.Succeeded,
		"failed", summary.Failed, "xp", summary.TotalXPGranted)
	return summary, nil
}
