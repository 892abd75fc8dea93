package service

import "anoa.com/venti/internal/entity"

// DailyXPCap bounds the XP granted per calendar day for cappable reasons.
const DailyXPCap = 100

const (
	// MaxGrantAmount is the largest amount a single grant may request.
	MaxGrantAmount = 1_000_000
	// MaxXP is the ceiling on a profile's cumulative XP. It keeps level
	// arithmetic far from int overflow.
	MaxXP = 1_000_000_000
)

const (
	sessionQualifyingMinutes = 30
	loginStreakWeek          = 7
	loginStreakMonth         = 30
)

var rewardTable = map[entity.XPReason]int{
	entity.ReasonAccountCreated:    10,
	entity.ReasonProfileCompleted:  25,
	entity.ReasonClubJoined:        30,
	entity.ReasonEventAttended:     40,
	entity.ReasonStudyArenaSession: 40,
	entity.ReasonStudyArenaWin:     50,
	entity.ReasonPostCreated:       15,
	entity.ReasonFriendInvited:     45,
	entity.ReasonProfileEdit:       5,
	entity.ReasonSessionActivity:   10,
	entity.ReasonDailyActivity:     15,
	entity.ReasonCollaboration:     20,
	entity.ReasonProjectUploaded:   40,
	entity.ReasonCommentPosted:     3,
	entity.ReasonSkillAdded:        5,
	entity.ReasonBadgeEarned:       10,
	entity.ReasonLoginStreak7:      25,
	entity.ReasonLoginStreak30:     100,
	// Admin grants carry their own amount and go through AddXP.
	entity.ReasonAdminGrant: 0,
}

// RewardFor returns the fixed XP amount for reason.
func RewardFor(reason entity.XPReason) (int, bool) {
	amount, ok := rewardTable[reason]
	return amount, ok
}

// Rewards returns a copy of the reward table.
func Rewards() map[entity.XPReason]int {
	out := make(map[entity.XPReason]int, len(rewardTable))
	for k, v := range rewardTable {
		out[k] = v
	}
	return out
}
