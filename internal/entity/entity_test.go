package entity

import (
	"testing"
	"time"

	"anoa.com/venti/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXPReasonCappable(t *testing.T) {
	cappable := []XPReason{ReasonDailyActivity, ReasonSessionActivity, ReasonProfileEdit, ReasonComment, ReasonCommentPosted}
	for _, r := range cappable {
		assert.True(t, r.Cappable(), r)
		assert.True(t, r.Valid(), r)
	}

	uncapped := []XPReason{ReasonCollaboration, ReasonAdminGrant, ReasonBadgeEarned, ReasonSkillAdded, ReasonProfileCompleted}
	for _, r := range uncapped {
		assert.False(t, r.Cappable(), r)
	}

	assert.False(t, XPReason("free_money").Valid())
}

func TestNormalizeBadge(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "early_bird", want: "early_bird"},
		{in: "  Night-Owl ", want: "night-owl"},
		{in: "", wantErr: true},
		{in: "has space", wantErr: true},
		{in: "_leading", wantErr: true},
		{in: "a23456789012345678901234567890123456789012345678901", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeBadge(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, apperror.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeTagSet(t *testing.T) {
	got := NormalizeTagSet([]string{"  Go ", "go", "Machine   Learning", "", "   ", "Design"})
	assert.Equal(t, []string{"Go", "Machine Learning", "Design"}, got)
}

func TestNewTags(t *testing.T) {
	added := NewTags([]string{"Go", "Rust"}, []string{"go", "Python", "Rust", "SQL"})
	assert.Equal(t, []string{"Python", "SQL"}, added)
	assert.Empty(t, NewTags([]string{"Go"}, []string{"GO"}))
}

func TestProfileBadges(t *testing.T) {
	p := NewProfile(uuid.New(), "Ada")
	assert.Equal(t, 1, p.Level)

	assert.True(t, p.AddBadge("first_post"))
	assert.False(t, p.AddBadge("first_post"))
	assert.Len(t, p.Badges, 1)
	assert.True(t, p.HasBadge("first_post"))
}

func TestProfileIsComplete(t *testing.T) {
	bio := "hello"
	blank := "   "

	p := NewProfile(uuid.New(), "Ada")
	assert.False(t, p.IsComplete())

	p.Bio = &bio
	p.Skills = []string{"Go"}
	p.Interests = []string{"AI"}
	assert.False(t, p.IsComplete())

	p.Hobbies = []string{"Chess"}
	assert.True(t, p.IsComplete())

	p.Bio = &blank
	assert.False(t, p.IsComplete())
}

func TestUserActivityClose(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	a := &UserActivity{SessionStart: start, IsActive: true}

	a.Close(start.Add(45*time.Minute + 59*time.Second))

	assert.False(t, a.IsActive)
	require.NotNil(t, a.SessionEnd)
	assert.Equal(t, 45, a.DurationMinutes)

	b := &UserActivity{SessionStart: start, IsActive: true}
	b.Close(start.Add(-time.Minute))
	assert.Equal(t, 0, b.DurationMinutes)
}
