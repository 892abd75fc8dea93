package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Role struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

// User rows are provisioned by the identity bridge; this service only reads them.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username  string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	RoleID    *uint     `json:"role_id"`
	Role      Role      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"role"`
	AvatarURL *string   `gorm:"type:text" json:"avatar_url,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	Profile   *Profile  `gorm:"constraint:OnDelete:CASCADE" json:"profile,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) IsAdmin() bool {
	return u.Role.Name == RoleAdmin
}

// Profile carries the progression state. Level is derived from XP and is
// rewritten on every XP mutation.
type Profile struct {
	UserID    uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"user_id"`
	FullName  string                      `gorm:"size:100;not null;default:''" json:"full_name"`
	Bio       *string                     `gorm:"type:text" json:"bio,omitempty"`
	Skills    datatypes.JSONSlice[string] `json:"skills"`
	Interests datatypes.JSONSlice[string] `json:"interests"`
	Hobbies   datatypes.JSONSlice[string] `json:"hobbies"`
	Badges    datatypes.JSONSlice[string] `json:"badges"`

	XP            int `gorm:"column:xp;not null;default:0" json:"xp"`
	Level         int `gorm:"column:level;not null;default:1" json:"level"`
	DailyXPEarned int `gorm:"column:daily_xp_earned;not null;default:0" json:"daily_xp_earned"`
	// LastDailyReset is a calendar date (YYYY-MM-DD) in the configured zone.
	LastDailyReset string     `gorm:"column:last_daily_reset;size:10;not null;default:''" json:"last_daily_reset"`
	LastActivity   *time.Time `json:"last_activity,omitempty"`

	// Version is bumped on every progression write and guards compare-and-swap updates.
	Version int `gorm:"not null;default:0" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewProfile returns a fresh level-1 profile for userID.
func NewProfile(userID uuid.UUID, fullName string) *Profile {
	return &Profile{
		UserID:   userID,
		FullName: fullName,
		Level:    1,
	}
}

// IsComplete reports whether bio, skills, interests and hobbies are all filled in.
func (p *Profile) IsComplete() bool {
	return p.Bio != nil && strings.TrimSpace(*p.Bio) != "" &&
		len(p.Skills) > 0 && len(p.Interests) > 0 && len(p.Hobbies) > 0
}

func (p *Profile) HasBadge(badge string) bool {
	for _, b := range p.Badges {
		if b == badge {
			return true
		}
	}
	return false
}

// AddBadge inserts an already normalized badge identifier. It returns false
// when the badge was present.
func (p *Profile) AddBadge(badge string) bool {
	if p.HasBadge(badge) {
		return false
	}
	p.Badges = append(p.Badges, badge)
	return true
}
