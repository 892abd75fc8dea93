package repository

import (
	"context"
	"errors"
	"fmt"

	"anoa.com/venti/internal/entity"
	"anoa.com/venti/pkg/apperror"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrUserNotFound = fmt.Errorf("user %w", apperror.ErrNotFound)

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByUsername(ctx context.Context, username string) (*entity.User, error)
	// CreateProfile inserts profile unless the user already has one and
	// reports whether this call inserted it.
	CreateProfile(ctx context.Context, profile *entity.Profile) (bool, error)
	// UpdateProfileDetails writes the descriptive profile columns only.
	// Progression columns belong to the XP engine.
	UpdateProfileDetails(ctx context.Context, profile *entity.Profile) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).
		Preload("Role").
		Preload("Profile").
		Where("id = ?", id).
		First(&user).Error; err != nil {
		return nil, notFound(err)
	}

	return &user, nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).
		Preload("Role").
		Preload("Profile").
		Where("username = ?", username).
		First(&user).Error; err != nil {
		return nil, notFound(err)
	}

	return &user, nil
}

func (r *userRepository) CreateProfile(ctx context.Context, profile *entity.Profile) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(profile)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *userRepository) UpdateProfileDetails(ctx context.Context, profile *entity.Profile) error {
	return r.db.WithContext(ctx).
		Model(profile).
		Select("full_name", "bio", "skills", "interests", "hobbies").
		Updates(profile).Error
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	return err
}
