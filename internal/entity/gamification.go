package entity

import (
	"time"

	"github.com/google/uuid"
)

// XPReason is the award category recorded on every XP log row.
type XPReason string

const (
	ReasonSignup            XPReason = "signup"
	ReasonAccountCreated    XPReason = "account_created"
	ReasonProfileCompleted  XPReason = "profile_completed"
	ReasonProfileEdit       XPReason = "profile_edit"
	ReasonClubJoined        XPReason = "club_joined"
	ReasonEventAttended     XPReason = "event_attended"
	ReasonStudyArenaSession XPReason = "study_arena_session"
	ReasonStudyArenaWin     XPReason = "study_arena_win"
	ReasonPostCreated       XPReason = "post_created"
	ReasonFriendInvited     XPReason = "friend_invited"
	ReasonSessionActivity   XPReason = "session_activity"
	ReasonDailyActivity     XPReason = "daily_activity"
	ReasonCollaboration     XPReason = "collaboration"
	ReasonProjectUploaded   XPReason = "project_uploaded"
	ReasonComment           XPReason = "comment"
	ReasonCommentPosted     XPReason = "comment_posted"
	ReasonSkillAdded        XPReason = "skill_added"
	ReasonBadgeEarned       XPReason = "badge_earned"
	ReasonLoginStreak       XPReason = "login_streak"
	ReasonLoginStreak7      XPReason = "login_streak_7"
	ReasonLoginStreak30     XPReason = "login_streak_30"
	ReasonFeatureUse        XPReason = "feature_use"
	ReasonAdminGrant        XPReason = "admin_grant"
)

var knownReasons = map[XPReason]struct{}{
	ReasonSignup: {}, ReasonAccountCreated: {}, ReasonProfileCompleted: {}, ReasonProfileEdit: {},
	ReasonClubJoined: {}, ReasonEventAttended: {}, ReasonStudyArenaSession: {}, ReasonStudyArenaWin: {},
	ReasonPostCreated: {}, ReasonFriendInvited: {}, ReasonSessionActivity: {}, ReasonDailyActivity: {},
	ReasonCollaboration: {}, ReasonProjectUploaded: {}, ReasonComment: {}, ReasonCommentPosted: {},
	ReasonSkillAdded: {}, ReasonBadgeEarned: {}, ReasonLoginStreak: {}, ReasonLoginStreak7: {},
	ReasonLoginStreak30: {}, ReasonFeatureUse: {}, ReasonAdminGrant: {},
}

// Valid reports whether r is one of the enumerated award categories.
func (r XPReason) Valid() bool {
	_, ok := knownReasons[r]
	return ok
}

// Cappable reports whether grants for r count against the daily XP ceiling.
func (r XPReason) Cappable() bool {
	switch r {
	case ReasonDailyActivity, ReasonSessionActivity, ReasonProfileEdit, ReasonComment, ReasonCommentPosted:
		return true
	}
	return false
}

// XPLog is append-only. Rows are written in the same transaction as the
// profile mutation they describe and never updated.
type XPLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ProfileID   uuid.UUID `gorm:"type:uuid;index:idx_xp_log_profile_date,priority:1;not null" json:"profile_id"`
	Amount      int       `gorm:"not null" json:"amount"`
	Reason      XPReason  `gorm:"size:50;not null;index" json:"reason"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"index:idx_xp_log_profile_date,priority:2;index:idx_xp_log_date" json:"created_at"`
}

func (XPLog) TableName() string {
	return "xp_logs"
}

// UserActivity is one tracked session. At most one row per user is active;
// the partial unique index enforces it at the storage level.
type UserActivity struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	UserID          uuid.UUID  `gorm:"type:uuid;not null;index:idx_user_activity_start,priority:1;uniqueIndex:idx_user_activity_one_active,where:is_active = true" json:"user_id"`
	SessionStart    time.Time  `gorm:"not null;index:idx_user_activity_start,priority:2" json:"session_start"`
	SessionEnd      *time.Time `json:"session_end,omitempty"`
	DurationMinutes int        `gorm:"not null;default:0" json:"duration_minutes"`
	IsActive        bool       `gorm:"not null;index" json:"is_active"`
}

func (UserActivity) TableName() string {
	return "user_activities"
}

// Close ends the session at end and computes the whole minutes it lasted.
func (a *UserActivity) Close(end time.Time) {
	a.SessionEnd = &end
	a.IsActive = false
	d := end.Sub(a.SessionStart)
	if d < 0 {
		d = 0
	}
	a.DurationMinutes = int(d / time.Minute)
}
