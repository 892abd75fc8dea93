package service_test

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"anoa.com/venti/internal/entity"
	"anoa.com/venti/internal/modules/progression/repository"
	"anoa.com/venti/internal/modules/progression/service"
	"anoa.com/venti/internal/testutil"
	"anoa.com/venti/pkg/apperror"
	"anoa.com/venti/pkg/logger"
)

type notifierMock struct {
	mock.Mock
}

func (m *notifierMock) NotifyLevelUp(ctx context.Context, userID uuid.UUID, oldLevel, newLevel, totalXP int) error {
	args := m.Called(ctx, userID, oldLevel, newLevel, totalXP)
	return args.Error(0)
}

var morning = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	db       *gorm.DB
	svc      service.XPService
	clock    *testutil.Clock
	notifier *notifierMock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.OpenTestDB(t)
	clock := testutil.NewClock(morning)
	notifier := &notifierMock{}
	svc := service.NewXPService(
		repository.NewProgressionRepository(db),
		service.NewKeyedMutex(),
		notifier,
		logger.NewNop(),
		service.Config{Clock: clock.Now, RetryAttempts: 3},
	)
	return &fixture{db: db, svc: svc, clock: clock, notifier: notifier}
}

func (f *fixture) allowNotifications() {
	f.notifier.On("NotifyLevelUp", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
}

func (f *fixture) profile(t *testing.T, userID uuid.UUID) entity.Profile {
	t.Helper()
	var p entity.Profile
	require.NoError(t, f.db.Where("user_id = ?", userID).First(&p).Error)
	return p
}

func (f *fixture) logs(t *testing.T, userID uuid.UUID, reason entity.XPReason) []entity.XPLog {
	t.Helper()
	var logs []entity.XPLog
	require.NoError(t, f.db.Where("profile_id = ? AND reason = ?", userID, reason).Order("id").Find(&logs).Error)
	return logs
}

func (f *fixture) setXP(t *testing.T, userID uuid.UUID, fields map[string]interface{}) {
	t.Helper()
	require.NoError(t, f.db.Model(&entity.Profile{}).Where("user_id = ?", userID).Updates(fields).Error)
}

func TestAddXPDailyCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.SeedProfile(t, f.db, "alice").UserID
	f.notifier.On("NotifyLevelUp", mock.Anything, user, 1, 2, 100).Return(nil).Once()

	first, err := f.svc.AddXP(ctx, user, 80, entity.ReasonDailyActivity, "")
	require.NoError(t, err)
	assert.True(t, first.Success)
	assert.False(t, first.Capped)
	assert.Equal(t, 80, first.XPGained)
	assert.Equal(t, 1, first.NewLevel)

	second, err := f.svc.AddXP(ctx, user, 30, entity.ReasonCommentPosted, "")
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.True(t, second.Capped)
	assert.Equal(t, 20, second.XPGained)
	assert.Equal(t, 30, second.Requested)

	third, err := f.svc.AddXP(ctx, user, 5, entity.ReasonProfileEdit, "")
	require.NoError(t, err)
	assert.False(t, third.Success)
	assert.True(t, third.Capped)
	assert.Zero(t, third.XPGained)

	p := f.profile(t, user)
	assert.Equal(t, 100, p.XP)
	assert.Equal(t, 100, p.DailyXPEarned)
	assert.Equal(t, 2, p.Level)
	assert.Equal(t, "2025-03-10", p.LastDailyReset)

	var count int64
	require.NoError(t, f.db.Model(&entity.XPLog{}).Where("profile_id = ?", user).Count(&count).Error)
	assert.EqualValues(t, 2, count, "an empty grant writes no log")

	remaining, err := f.svc.GetDailyXPRemaining(ctx, user)
	require.NoError(t, err)
	assert.Zero(t, remaining)
}

func TestAddXPRejectsOversizedGrants(t *testing.T) {
	f := newFixture(t)
	f.allowNotifications()
	ctx := context.Background()
	user := testutil.SeedProfile(t, f.db, "max").UserID

	_, err := f.svc.AddXP(ctx, user, 10, entity.ReasonAdminGrant, "")
	require.NoError(t, err)

	_, err = f.svc.AddXP(ctx, user, math.MaxInt, entity.ReasonAdminGrant, "")
	assert.ErrorIs(t, err, service.ErrAmountTooLarge)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	_, err = f.svc.AddXP(ctx, user, service.MaxGrantAmount+1, entity.ReasonCollaboration, "")
	assert.ErrorIs(t, err, service.ErrAmountTooLarge)
	assert.Equal(t, 10, f.profile(t, user).XP)

	f.setXP(t, user, map[string]interface{}{"xp": service.MaxXP - 10})
	_, err = f.svc.AddXP(ctx, user, 11, entity.ReasonAdminGrant, "")
	assert.ErrorIs(t, err, service.ErrXPLimit)
	assert.Equal(t, service.MaxXP-10, f.profile(t, user).XP)
	assert.Len(t, f.logs(t, user, entity.ReasonAdminGrant), 1)

	res, err := f.svc.AddXP(ctx, user, 10, entity.ReasonAdminGrant, "")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, service.MaxXP, f.profile(t, user).XP)

	summary, err := f.svc.GrantAll(ctx, 1, "", "", true)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Zero(t, summary.TotalXPGranted)

	_, err = f.svc.GrantAll(ctx, service.MaxGrantAmount+1, "", "", false)
	assert.ErrorIs(t, err, service.ErrAmountTooLarge)
}

func TestAddXPUncappedReasonsIgnoreCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.SeedProfile(t, f.db, "bob").UserID
	f.setXP(t, user, map[string]interface{}{"daily_xp_earned": 100, "last_daily_reset": "2025-03-10"})

	for _, reason := range []entity.XPReason{entity.ReasonCollaboration, entity.ReasonAdminGrant, entity.ReasonBadgeEarned, entity.ReasonSkillAdded} {
		res, err := f.svc.AddXP(ctx, user, 10, reason, "")
		require.NoError(t, err)
		assert.True(t, res.Success, reason)
		assert.Equal(t, 10, res.XPGained, reason)
	}
	p := f.profile(t, user)
	assert.Equal(t, 40, p.XP)
	assert.Equal(t, 100, p.DailyXPEarned)
}

func TestAddXPLevelUpNotifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.SeedProfile(t, f.db, "carol").UserID
	f.setXP(t, user, map[string]interface{}{"xp": 90})

	f.notifier.On("NotifyLevelUp", mock.Anything, user, 1, 2, 110).Return(nil).Once()

	res, err := f.svc.AddXP(ctx, user, 20, entity.ReasonCollaboration, "Accepted collaboration")
	require.NoError(t, err)
	assert.True(t, res.LevelUp)
	assert.Equal(t, 1, res.OldLevel)
	assert.Equal(t, 2, res.NewLevel)
	f.notifier.AssertExpectations(t)

	p := f.profile(t, user)
	assert.Equal(t, 110, p.XP)
	assert.Equal(t, 2, p.Level)

	logs := f.logs(t, user, entity.ReasonCollaboration)
	require.Len(t, logs, 1)
	assert.Equal(t, 20, logs[0].Amount)
	assert.Equal(t, "Accepted collaboration", logs[0].Description)
}

func TestAddXPNotifierFailureDoesNotFailGrant(t *testing.T) {
	f := newFixture(t)
	user := testutil.SeedProfile(t, f.db, "dan").UserID
	f.notifier.On("NotifyLevelUp", mock.Anything, user, 1, 2, 100).Return(assert.AnError)

	res, err := f.svc.AddXP(context.Background(), user, 100, entity.ReasonAdminGrant, "")
	require.NoError(t, err)
	assert.True(t, res.LevelUp)
	assert.Equal(t, 100, f.profile(t, user).XP)
}

func TestAddXPRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.SeedProfile(t, f.db, "erin").UserID

	tests := []struct {
		name    string
		call    func() error
		wantErr error
	}{
		{"zero amount", func() error { _, err := f.svc.AddXP(ctx, user, 0, entity.ReasonComment, ""); return err }, service.ErrInvalidAmount},
		{"negative amount", func() error { _, err := f.svc.AddXP(ctx, user, -5, entity.ReasonComment, ""); return err }, service.ErrInvalidAmount},
		{"unknown reason", func() error { _, err := f.svc.AddXP(ctx, user, 5, "teleport", ""); return err }, service.ErrUnknownReason},
		{"unknown reward", func() error { _, err := f.svc.AddXPByReason(ctx, user, "teleport", ""); return err }, service.ErrUnknownReason},
		{"reason without fixed reward", func() error { _, err := f.svc.AddXPByReason(ctx, user, entity.ReasonComment, ""); return err }, service.ErrUnknownReason},
		{"zero reward", func() error { _, err := f.svc.AddXPByReason(ctx, user, entity.ReasonAdminGrant, ""); return err }, service.ErrInvalidAmount},
		{"missing profile", func() error { _, err := f.svc.AddXP(ctx, uuid.New(), 5, entity.ReasonComment, ""); return err }, apperror.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Zero(t, f.profile(t, user).XP)
}

func TestAddXPByReasonUsesRewardTable(t *testing.T) {
	f := newFixture(t)
	user := testutil.SeedProfile(t, f.db, "fay").UserID

	res, err := f.svc.AddXPByReason(context.Background(), user, entity.ReasonEventAttended, "Attended meetup")
	require.NoError(t, err)
	assert.Equal(t, 40, res.XPGained)
	assert.Equal(t, 40, f.profile(t, user).XP)
}

func TestAddXPSanitizesDescription(t *testing.T) {
	f := newFixture(t)
	user := testutil.SeedProfile(t, f.db, "gus").UserID

	_, err := f.svc.AddXP(context.Background(), user, 5, entity.ReasonAdminGrant, `<script>alert(1)</script><b>Great</b> work`)
	require.NoError(t, err)
	logs := f.logs(t, user, entity.ReasonAdminGrant)
	require.Len(t, logs, 1)
	assert.Equal(t, "Great work", logs[0].Description)
}

func TestDailyResetOnNewDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.SeedProfile(t, f.db, "hana").UserID
	f.allowNotifications()

	_, err := f.svc.AddXP(ctx, user, 100, entity.ReasonSessionActivity, "")
	require.NoError(t, err)
	remaining, err := f.svc.GetDailyXPRemaining(ctx, user)
	require.NoError(t, err)
	assert.Zero(t, remaining)

	f.clock.Advance(24 * time.Hour)
	remaining, err = f.svc.GetDailyXPRemaining(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, service.DailyXPCap, remaining)

	p := f.profile(t, user)
	assert.Zero(t, p.DailyXPEarned)
	assert.Equal(t, "2025-03-11", p.LastDailyReset)

	// A second check on the same day must not reset again.
	_, err = f.svc.AddXP(ctx, user, 30, entity.ReasonComment, "")
	require.NoError(t, err)
	remaining, err = f.svc.GetDailyXPRemaining(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 70, remaining)
}

func TestDailyResetUsesConfiguredZone(t *testing.T) {
	db := testutil.OpenTestDB(t)
	jakarta, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)

	// 17:30 UTC is already the next morning in UTC+7.
	clock := testutil.NewClock(time.Date(2025, 3, 10, 17, 30, 0, 0, time.UTC))
	svc := service.NewXPService(repository.NewProgressionRepository(db), nil, nil, nil,
		service.Config{Location: jakarta, Clock: clock.Now})
	user := testutil.SeedProfile(t, db, "ivan").UserID
	require.NoError(t, db.Model(&entity.Profile{}).Where("user_id = ?", user).
		Updates(map[string]interface{}{"daily_xp_earned": 100, "last_daily_reset": "2025-03-10"}).Error)

	res, err := svc.AddXP(context.Background(), user, 10, entity.ReasonComment, "")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.Capped)

	var p entity.Profile
	require.NoError(t, db.Where("user_id = ?", user).First(&p).Error)
	assert.Equal(t, "2025-03-11", p.LastDailyReset)
	assert.Equal(t, 10, p.DailyXPEarned)
}

func TestAddXPHealsStoredLevel(t *testing.T) {
	f := newFixture(t)
	user := testutil.SeedProfile(t, f.db, "jade").UserID
	f.setXP(t, user, map[string]interface{}{"xp": 150, "level": 7})

	res, err := f.svc.AddXP(context.Background(), user, 10, entity.ReasonCollaboration, "")
	require.NoError(t, err)
	assert.Equal(t, 2, res.OldLevel)
	assert.Equal(t, 2, res.NewLevel)
	assert.False(t, res.LevelUp)
	assert.Equal(t, 2, f.profile(t, user).Level)
}

func TestConcurrentCappedGrantsNeverExceedCap(t *testing.T) {
	db := testutil.OpenTestDB(t)
	user := testutil.SeedProfile(t, db, "kai").UserID
	repo := repository.NewProgressionRepository(db)
	clock := testutil.FixedClock(morning)

	// Two services with separate lockers behave like two replicas.
	replicas := []service.XPService{
		service.NewXPService(repo, service.NewKeyedMutex(), nil, nil, service.Config{Clock: clock, RetryAttempts: 10}),
		service.NewXPService(repo, service.NewKeyedMutex(), nil, nil, service.Config{Clock: clock, RetryAttempts: 10}),
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		gained int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := replicas[i%2].AddXP(context.Background(), user, 7, entity.ReasonComment, "")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			gained += res.XPGained
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, service.DailyXPCap, gained)
	var p entity.Profile
	require.NoError(t, db.Where("user_id = ?", user).First(&p).Error)
	assert.Equal(t, service.DailyXPCap, p.XP)
	assert.Equal(t, service.DailyXPCap, p.DailyXPEarned)

	var sum int
	require.NoError(t, db.Model(&entity.XPLog{}).Where("profile_id = ?", user).Select("COALESCE(SUM(amount), 0)").Scan(&sum).Error)
	assert.Equal(t, service.DailyXPCap, sum)
}

func TestAddBadgeIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.SeedProfile(t, f.db, "lena").UserID

	added, err := f.svc.AddBadge(ctx, user, "Early_Bird")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = f.svc.AddBadge(ctx, user, "early_bird")
	require.NoError(t, err)
	assert.False(t, added)

	_, err = f.svc.AddBadge(ctx, user, "not a badge!")
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	p := f.profile(t, user)
	assert.Equal(t, []string{"early_bird"}, []string(p.Badges))
	assert.Zero(t, p.XP)

	var count int64
	require.NoError(t, f.db.Model(&entity.XPLog{}).Where("profile_id = ?", user).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAwardBadgeGrantsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.SeedProfile(t, f.db, "mia").UserID

	res, err := f.svc.AwardBadge(ctx, user, "mentor")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 10, res.XPGained)

	res, err = f.svc.AwardBadge(ctx, user, "mentor")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.False(t, res.Capped)

	assert.Len(t, f.logs(t, user, entity.ReasonBadgeEarned), 1)
	assert.Equal(t, []string{"mentor"}, []string(f.profile(t, user).Badges))
}

func TestAwardProfileCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.SeedProfile(t, f.db, "nora").UserID

	res, err := f.svc.AwardProfileCompletion(ctx, user)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Empty(t, f.logs(t, user, entity.ReasonProfileCompleted))

	require.NoError(t, f.db.Model(&entity.Profile{}).Where("user_id = ?", user).Updates(map[string]interface{}{
		"bio":       "Backend developer",
		"skills":    `["go"]`,
		"interests": `["databases"]`,
		"hobbies":   `["climbing"]`,
	}).Error)

	for i := 0; i < 2; i++ {
		res, err = f.svc.AwardProfileCompletion(ctx, user)
		require.NoError(t, err)
	}
	assert.False(t, res.Success, "second call is a no-op")
	assert.Len(t, f.logs(t, user, entity.ReasonProfileCompleted), 1)
	assert.Equal(t, 25, f.profile(t, user).XP)
}

func TestAwardLoginStreakTiers(t *testing.T) {
	tests := []struct {
		days       int
		wantReason entity.XPReason
		wantXP     int
	}{
		{days: 0},
		{days: 6},
		{days: 7, wantReason: entity.ReasonLoginStreak7, wantXP: 25},
		{days: 29, wantReason: entity.ReasonLoginStreak7, wantXP: 25},
		{days: 30, wantReason: entity.ReasonLoginStreak30, wantXP: 100},
		{days: 365, wantReason: entity.ReasonLoginStreak30, wantXP: 100},
	}
	for _, tt := range tests {
		f := newFixture(t)
		user := testutil.SeedProfile(t, f.db, "olga").UserID
		f.allowNotifications()

		res, err := f.svc.AwardLoginStreak(context.Background(), user, tt.days)
		require.NoError(t, err)
		assert.Equal(t, tt.wantXP > 0, res.Success, "days=%d", tt.days)
		assert.Equal(t, tt.wantXP, res.XPGained, "days=%d", tt.days)
		assert.Equal(t, tt.wantXP, f.profile(t, user).XP, "days=%d", tt.days)

		var reasons []entity.XPReason
		require.NoError(t, f.db.Model(&entity.XPLog{}).Where("profile_id = ?", user).Pluck("reason", &reasons).Error)
		if tt.wantXP == 0 {
			assert.Empty(t, reasons)
		} else {
			assert.Equal(t, []entity.XPReason{tt.wantReason}, reasons, "tiers are not cumulative")
		}
	}
}

func TestGetStatsAndHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.SeedProfile(t, f.db, "paul").UserID
	f.allowNotifications()

	for i := 0; i < 3; i++ {
		_, err := f.svc.AddXP(ctx, user, 50, entity.ReasonProjectUploaded, "")
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}
	_, err := f.svc.AddXP(ctx, user, 30, entity.ReasonComment, "")
	require.NoError(t, err)

	stats, err := f.svc.GetStats(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 180, stats.CurrentXP)
	assert.Equal(t, 2, stats.CurrentLevel)
	assert.Equal(t, 200, stats.XPForNextLevel)
	assert.InDelta(t, 40.0, stats.XPProgressPercent, 0.001)
	assert.Equal(t, 30, stats.DailyXPEarned)
	assert.Equal(t, 70, stats.DailyXPRemaining)
	assert.EqualValues(t, 4, stats.TotalXPLogs)
	assert.Equal(t, []string{}, stats.Badges)

	history, err := f.svc.GetHistory(ctx, user, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, entity.ReasonComment, history[0].Reason)

	history, err = f.svc.GetHistory(ctx, user, 0)
	require.NoError(t, err)
	assert.Len(t, history, 4)

	_, err = f.svc.GetHistory(ctx, uuid.New(), 10)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestGrantAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.allowNotifications()
	a := testutil.SeedProfile(t, f.db, "quinn").UserID
	b := testutil.SeedProfile(t, f.db, "rosa").UserID
	c := testutil.SeedProfile(t, f.db, "sam").UserID
	f.setXP(t, c, map[string]interface{}{"daily_xp_earned": 100, "last_daily_reset": "2025-03-10"})

	dry, err := f.svc.GrantAll(ctx, 40, entity.ReasonDailyActivity, "", true)
	require.NoError(t, err)
	assert.True(t, dry.DryRun)
	assert.Equal(t, 3, dry.TotalProfiles)
	assert.Equal(t, 2, dry.Succeeded)
	assert.Equal(t, 1, dry.Capped)
	assert.Equal(t, 80, dry.TotalXPGranted)
	assert.Zero(t, f.profile(t, a).XP, "dry run writes nothing")

	res, err := f.svc.GrantAll(ctx, 40, entity.ReasonDailyActivity, "Festival bonus", false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Capped)
	assert.Zero(t, res.Failed)
	assert.Equal(t, 80, res.TotalXPGranted)
	assert.Equal(t, 40, f.profile(t, a).XP)
	assert.Equal(t, 40, f.profile(t, b).XP)
	assert.Zero(t, f.profile(t, c).XP)

	res, err = f.svc.GrantAll(ctx, 100, "", "", false)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Succeeded)
	assert.Equal(t, 300, res.TotalXPGranted)
	assert.Len(t, f.logs(t, c, entity.ReasonAdminGrant), 1)

	_, err = f.svc.GrantAll(ctx, 0, "", "", false)
	assert.ErrorIs(t, err, service.ErrInvalidAmount)
}
