package service

// Weekly activity thresholds. They label recent momentum and never affect level.
const (
	WeeklyOnFire   = 100
	WeeklyTrending = 50
	WeeklyActive   = 20
)

// WeeklyLabel describes XP earned over the last seven days.
func WeeklyLabel(weeklyXP int) string {
	switch {
	case weeklyXP >= WeeklyOnFire:
		return "🔥 On Fire!"
	case weeklyXP >= WeeklyTrending:
		return "⚡ Trending"
	case weeklyXP >= WeeklyActive:
		return "📈 Active"
	default:
		return ""
	}
}
