package dto

import "github.com/google/uuid"

const (
	TimeframeAllTime = "all_time"
	TimeframeWeekly  = "weekly"
	TimeframeMonthly = "monthly"
)

// LeaderboardEntry represents a single user entry in the leaderboard.
// Position is 1-based. PeriodXP is only set for weekly and monthly boards.
type LeaderboardEntry struct {
	Position    int       `json:"position"`
	UserID      uuid.UUID `json:"user_id"`
	Username    string    `json:"username"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	XP          int       `json:"xp"`
	Level       int       `json:"level"`
	Progress    float64   `json:"progress"`
	PeriodXP    int       `json:"period_xp,omitempty"`
	WeeklyXP    int       `json:"weekly_xp"`
	WeeklyLabel string    `json:"weekly_label"`
}

type LeaderboardQuery struct {
	Timeframe string `form:"timeframe" binding:"omitempty,oneof=all_time weekly monthly"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=50"`
}
