package dto

import (
	"time"

	"anoa.com/venti/internal/modules/progression/curve"
	progressionDto "anoa.com/venti/internal/modules/progression/dto"
	"github.com/google/uuid"
)

// UpdateProfileInput represents the input for updating user profile. Nil
// fields are left unchanged; an empty list clears the set.
type UpdateProfileInput struct {
	FullName  *string   `json:"full_name" binding:"omitempty,max=100"`
	Bio       *string   `json:"bio" binding:"omitempty,max=2000"`
	Skills    *[]string `json:"skills" binding:"omitempty,max=30"`
	Interests *[]string `json:"interests" binding:"omitempty,max=30"`
	Hobbies   *[]string `json:"hobbies" binding:"omitempty,max=30"`
}

type ProfileResponse struct {
	UserID    uuid.UUID         `json:"user_id"`
	Username  string            `json:"username"`
	Role      string            `json:"role"`
	AvatarURL *string           `json:"avatar_url,omitempty"`
	FullName  string            `json:"full_name"`
	Bio       *string           `json:"bio,omitempty"`
	Skills    []string          `json:"skills"`
	Interests []string          `json:"interests"`
	Hobbies   []string          `json:"hobbies"`
	Badges    []string          `json:"badges"`
	Complete  bool              `json:"complete"`
	CreatedAt time.Time         `json:"created_at"`
	Progress  curve.LevelStatus `json:"progress"`
}

// UpdateProfileResponse is returned when updating profile, with every award
// the edit triggered.
type UpdateProfileResponse struct {
	Profile ProfileResponse              `json:"profile"`
	Awards  []progressionDto.AwardResult `json:"awards"`
}
