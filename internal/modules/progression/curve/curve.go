// Package curve holds the level curve: level L spans L*100 XP, so reaching
// level L takes 100*(L-1)*L/2 XP in total.
package curve

import "math"

// XPPerLevel is the per-level multiplier of the curve.
const XPPerLevel = 100

// CalculateLevel maps cumulative XP to a level. It is the authoritative
// derivation; a stored level that disagrees with it is stale.
func CalculateLevel(xp int) int {
	level := 1
	remaining := xp
	for remaining >= level*XPPerLevel {
		remaining -= level * XPPerLevel
		level++
	}
	return level
}

// XPForNextLevel is the XP span of currentLevel, i.e. what it takes to go
// from currentLevel to currentLevel+1.
func XPForNextLevel(currentLevel int) int {
	return currentLevel * XPPerLevel
}

// TotalXPForLevel is the cumulative XP needed to reach targetLevel from zero.
func TotalXPForLevel(targetLevel int) int {
	if targetLevel <= 1 {
		return 0
	}
	return XPPerLevel * (targetLevel - 1) * targetLevel / 2
}

// ProgressPercent is the XP earned inside currentLevel as a percentage of the
// level's span, clamped to [0, 100].
func ProgressPercent(totalXP, currentLevel int) float64 {
	if currentLevel < 1 {
		currentLevel = 1
	}
	inLevel := totalXP - TotalXPForLevel(currentLevel)
	pct := float64(inLevel) * 100 / float64(XPForNextLevel(currentLevel))
	return math.Max(0, math.Min(100, pct))
}

// LevelStatus summarizes where a profile sits on the curve.
type LevelStatus struct {
	Level         int     `json:"level"`
	XP            int     `json:"xp"`
	LevelFloorXP  int     `json:"level_floor_xp"` // Cumulative XP at which Level starts
	NextLevelXP   int     `json:"next_level_xp"`  // Cumulative XP at which Level+1 starts
	XPIntoLevel   int     `json:"xp_into_level"`
	XPToNextLevel int     `json:"xp_to_next_level"`
	LevelSpan     int     `json:"level_span"`
	Progress      float64 `json:"progress"` // Rounded to 2 decimals
}

// Status derives the full level status from cumulative XP.
func Status(xp int) LevelStatus {
	if xp < 0 {
		xp = 0
	}
	level := CalculateLevel(xp)
	floor := TotalXPForLevel(level)
	next := TotalXPForLevel(level + 1)
	return LevelStatus{
		Level:         level,
		XP:            xp,
		LevelFloorXP:  floor,
		NextLevelXP:   next,
		XPIntoLevel:   xp - floor,
		XPToNextLevel: next - xp,
		LevelSpan:     XPForNextLevel(level),
		Progress:      math.Round(ProgressPercent(xp, level)*100) / 100,
	}
}

// TableRow is one line of the level table.
type TableRow struct {
	Level      int `json:"level"`
	XPRequired int `json:"xp_required"` // Span of this level
	TotalXP    int `json:"total_xp"`    // Cumulative XP to reach the next level
}

// Table lists the first n levels of the curve.
func Table(n int) []TableRow {
	rows := make([]TableRow, 0, n)
	for level := 1; level <= n; level++ {
		rows = append(rows, TableRow{
			Level:      level,
			XPRequired: XPForNextLevel(level),
			TotalXP:    TotalXPForLevel(level + 1),
		})
	}
	return rows
}
