package curve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateLevel(t *testing.T) {
	tests := []struct {
		xp   int
		want int
	}{
		{xp: 0, want: 1},
		{xp: 99, want: 1},
		{xp: 100, want: 2},
		{xp: 299, want: 2},
		{xp: 300, want: 3},
		{xp: 599, want: 3},
		{xp: 600, want: 4},
		{xp: 1000, want: 5},
		{xp: 5000, want: 10},
		{xp: -50, want: 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CalculateLevel(tt.xp), "xp=%d", tt.xp)
	}
}

func TestTotalXPForLevel(t *testing.T) {
	assert.Equal(t, 0, TotalXPForLevel(1))
	assert.Equal(t, 100, TotalXPForLevel(2))
	assert.Equal(t, 300, TotalXPForLevel(3))
	assert.Equal(t, 1000, TotalXPForLevel(5))
	assert.Equal(t, 0, TotalXPForLevel(0))
}

func TestCumulativeConsistency(t *testing.T) {
	for level := 1; level <= 200; level++ {
		diff := TotalXPForLevel(level+1) - TotalXPForLevel(level)
		assert.Equal(t, XPForNextLevel(level), diff, "level=%d", level)
		assert.Equal(t, level*100, diff, "level=%d", level)
	}
}

func TestLevelBracketsAgreeWithCalculateLevel(t *testing.T) {
	for xp := 0; xp <= 20000; xp += 7 {
		level := CalculateLevel(xp)
		assert.LessOrEqual(t, TotalXPForLevel(level), xp, "xp=%d", xp)
		assert.Less(t, xp, TotalXPForLevel(level+1), "xp=%d", xp)
	}
}

func TestProgressPercent(t *testing.T) {
	assert.Equal(t, 0.0, ProgressPercent(0, 1))
	assert.Equal(t, 50.0, ProgressPercent(50, 1))
	assert.Equal(t, 50.0, ProgressPercent(200, 2))
	assert.Equal(t, 100.0, ProgressPercent(10000, 1), "clamped to 100 when level is stale")
	assert.Equal(t, 0.0, ProgressPercent(10, 5), "clamped to 0 when level is ahead of xp")

	for xp := 0; xp <= 10000; xp += 13 {
		p := ProgressPercent(xp, CalculateLevel(xp))
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 100.0)
	}
}

func TestStatus(t *testing.T) {
	s := Status(450)

	assert.Equal(t, 3, s.Level)
	assert.Equal(t, 300, s.LevelFloorXP)
	assert.Equal(t, 600, s.NextLevelXP)
	assert.Equal(t, 150, s.XPIntoLevel)
	assert.Equal(t, 150, s.XPToNextLevel)
	assert.Equal(t, 300, s.LevelSpan)
	assert.Equal(t, 50.0, s.Progress)
}

func TestTable(t *testing.T) {
	rows := Table(5)

	assert.Len(t, rows, 5)
	assert.Equal(t, TableRow{Level: 1, XPRequired: 100, TotalXP: 100}, rows[0])
	assert.Equal(t, TableRow{Level: 2, XPRequired: 200, TotalXP: 300}, rows[1])
	assert.Equal(t, TableRow{Level: 5, XPRequired: 500, TotalXP: 1500}, rows[4])
}
