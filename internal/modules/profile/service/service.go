package profile

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"anoa.com/venti/internal/entity"
	"anoa.com/venti/internal/modules/progression/curve"
	progressionDto "anoa.com/venti/internal/modules/progression/dto"
	progression "anoa.com/venti/internal/modules/progression/service"
	profileDto "anoa.com/venti/internal/modules/profile/dto"
	userRepo "anoa.com/venti/internal/modules/user/repository"
	"anoa.com/venti/pkg/apperror"
	"anoa.com/venti/pkg/logger"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

type ProfileService interface {
	UpdateProfile(ctx context.Context, userID uuid.UUID, input profileDto.UpdateProfileInput) (*profileDto.UpdateProfileResponse, error)
	GetProfileByUsername(ctx context.Context, username string) (*profileDto.ProfileResponse, error)
	// GetCurrentProfile provisions the caller's profile on first use and
	// grants the account_created reward.
	GetCurrentProfile(ctx context.Context, userID uuid.UUID) (*profileDto.ProfileResponse, error)
}

type profileService struct {
	repo   userRepo.UserRepository
	xp     progression.XPService
	policy *bluemonday.Policy
	log    *logger.Logger
}

func NewProfileService(repo userRepo.UserRepository, xp progression.XPService, log *logger.Logger) ProfileService {
	if log == nil {
		log = logger.NewNop()
	}
	return &profileService{
		repo:   repo,
		xp:     xp,
		policy: bluemonday.StrictPolicy(),
		log:    log.With("component", "profile"),
	}
}

func (s *profileService) GetCurrentProfile(ctx context.Context, userID uuid.UUID) (*profileDto.ProfileResponse, error) {
	user, err := s.repo.FindByID(ctx, userID.String())
	if err != nil {
		return nil, err
	}

	if user.Profile == nil {
		profile := entity.NewProfile(user.ID, user.Username)
		created, err := s.repo.CreateProfile(ctx, profile)
		if err != nil {
			return nil, apperror.New(http.StatusInternalServerError, "failed to create profile", fmt.Errorf("%w: %v", apperror.ErrInternal, err))
		}
		// A concurrent first request may have provisioned it; only the inserter is rewarded.
		if created {
			if _, err := s.xp.AddXPByReason(ctx, user.ID, entity.ReasonAccountCreated, "Account created"); err != nil {
				s.log.Error("failed to grant signup xp", "user_id", user.ID, "error", err)
			}
		}
		if user, err = s.repo.FindByID(ctx, userID.String()); err != nil {
			return nil, err
		}
	}

	return toResponse(user), nil
}

func (s *profileService) GetProfileByUsername(ctx context.Context, username string) (*profileDto.ProfileResponse, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user.Profile == nil {
		return nil, userRepo.ErrUserNotFound
	}
	return toResponse(user), nil
}

// UpdateProfile saves the edit, then grants profile_edit, one skill_added per
// new skill and, when the edit completes the profile, the completion bonus.
// Award failures are logged; the edit itself has already been saved.
func (s *profileService) UpdateProfile(ctx context.Context, userID uuid.UUID, input profileDto.UpdateProfileInput) (*profileDto.UpdateProfileResponse, error) {
	user, err := s.repo.FindByID(ctx, userID.String())
	if err != nil {
		return nil, err
	}
	profile := user.Profile
	if profile == nil {
		return nil, userRepo.ErrUserNotFound
	}

	previousSkills := []string(profile.Skills)

	if input.FullName != nil {
		profile.FullName = strings.TrimSpace(s.policy.Sanitize(*input.FullName))
	}
	if input.Bio != nil {
		profile.Bio = s.normalizeOptional(*input.Bio)
	}
	if input.Skills != nil {
		profile.Skills = entity.NormalizeTagSet(*input.Skills)
	}
	if input.Interests != nil {
		profile.Interests = entity.NormalizeTagSet(*input.Interests)
	}
	if input.Hobbies != nil {
		profile.Hobbies = entity.NormalizeTagSet(*input.Hobbies)
	}

	if err := s.repo.UpdateProfileDetails(ctx, profile); err != nil {
		return nil, err
	}

	awards := make([]progressionDto.AwardResult, 0, 2)
	record := func(res *progressionDto.AwardResult, err error) {
		if err != nil {
			s.log.Error("profile award failed", "user_id", userID, "error", err)
			return
		}
		if res.Success {
			awards = append(awards, *res)
		}
	}

	record(s.xp.AddXPByReason(ctx, userID, entity.ReasonProfileEdit, "Edited profile"))
	for _, skill := range entity.NewTags(previousSkills, profile.Skills) {
		record(s.xp.AddXPByReason(ctx, userID, entity.ReasonSkillAdded, "Added skill "+skill))
	}
	if profile.IsComplete() {
		record(s.xp.AwardProfileCompletion(ctx, userID))
	}

	updated, err := s.repo.FindByID(ctx, userID.String())
	if err != nil {
		return nil, err
	}

	return &profileDto.UpdateProfileResponse{
		Profile: *toResponse(updated),
		Awards:  awards,
	}, nil
}

func (s *profileService) normalizeOptional(value string) *string {
	trimmed := strings.TrimSpace(s.policy.Sanitize(value))
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func toResponse(user *entity.User) *profileDto.ProfileResponse {
	p := user.Profile
	res := &profileDto.ProfileResponse{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role.Name,
		AvatarURL: user.AvatarURL,
		FullName:  p.FullName,
		Bio:       p.Bio,
		Skills:    nonNil(p.Skills),
		Interests: nonNil(p.Interests),
		Hobbies:   nonNil(p.Hobbies),
		Badges:    nonNil(p.Badges),
		Complete:  p.IsComplete(),
		CreatedAt: user.CreatedAt,
		Progress:  curve.Status(p.XP),
	}
	return res
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
