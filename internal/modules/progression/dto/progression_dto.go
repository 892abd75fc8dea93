package dto

import (
	"time"

	"anoa.com/venti/internal/entity"
	"anoa.com/venti/internal/modules/progression/curve"
	"github.com/google/uuid"
)

// AwardResult is the outcome of one XP grant. Full, partial and empty grants
// are told apart by Success and Capped:
//   - Success && !Capped: the full requested amount was granted
//   - Success && Capped: the daily cap clipped the grant
//   - !Success && Capped: the daily cap was already exhausted
type AwardResult struct {
	Success   bool            `json:"success"`
	LevelUp   bool            `json:"level_up"`
	OldLevel  int             `json:"old_level"`
	NewLevel  int             `json:"new_level"`
	XPGained  int             `json:"xp_gained"`
	Requested int             `json:"requested"`
	Capped    bool            `json:"capped"`
	Reason    entity.XPReason `json:"reason,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// XPStats is the progression summary shown on a profile.
type XPStats struct {
	UserID            uuid.UUID         `json:"user_id"`
	CurrentXP         int               `json:"current_xp"`
	CurrentLevel      int               `json:"current_level"`
	XPForNextLevel    int               `json:"xp_for_next_level"`
	XPProgressPercent float64           `json:"xp_progress_percent"`
	DailyXPEarned     int               `json:"daily_xp_earned"`
	DailyXPRemaining  int               `json:"daily_xp_remaining"`
	TotalXPLogs       int64             `json:"total_xp_logs"`
	Badges            []string          `json:"badges"`
	Status            curve.LevelStatus `json:"status"`
}

type XPLogResponse struct {
	ID          uint            `json:"id"`
	Amount      int             `json:"amount"`
	Reason      entity.XPReason `json:"reason"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}

func NewXPLogResponses(logs []entity.XPLog) []XPLogResponse {
	out := make([]XPLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, XPLogResponse{
			ID:          l.ID,
			Amount:      l.Amount,
			Reason:      l.Reason,
			Description: l.Description,
			CreatedAt:   l.CreatedAt,
		})
	}
	return out
}

// SessionResult is returned when an activity session ends.
type SessionResult struct {
	SessionID       uint          `json:"session_id"`
	DurationMinutes int           `json:"duration_minutes"`
	XPAwarded       bool          `json:"xp_awarded"`
	Awards          []AwardResult `json:"awards"`
}

type BulkGrantResult struct {
	DryRun         bool `json:"dry_run"`
	TotalProfiles  int  `json:"total_profiles"`
	Succeeded      int  `json:"succeeded"`
	Capped         int  `json:"capped"`
	Failed         int  `json:"failed"`
	TotalXPGranted int  `json:"total_xp_granted"`
}

// Request payloads

type GrantXPRequest struct {
	UserID      string `json:"user_id" binding:"required,uuid"`
	Amount      int    `json:"amount" binding:"gt=0,max=1000000"`
	Reason      string `json:"reason" binding:"required,max=50"`
	Description string `json:"description" binding:"max=500"`
}

type BulkGrantRequest struct {
	Amount      int    `json:"amount" binding:"gt=0,max=1000000"`
	Reason      string `json:"reason" binding:"omitempty,max=50"`
	Description string `json:"description" binding:"max=500"`
	DryRun      bool   `json:"dry_run"`
}

type LoginStreakRequest struct {
	StreakDays int `json:"streak_days" binding:"min=0"`
}

type AwardBadgeRequest struct {
	Badge string `json:"badge" binding:"required,max=50"`
}

type HistoryQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

type CurveQuery struct {
	Levels int `form:"levels" binding:"omitempty,min=1,max=100"`
}
