package repository_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anoa.com/venti/internal/entity"
	"anoa.com/venti/internal/modules/user/repository"
	"anoa.com/venti/internal/testutil"
	"anoa.com/venti/pkg/apperror"
)

func TestCreateProfileOnce(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()

	user := entity.User{Username: "frank", Email: "frank@example.com"}
	require.NoError(t, db.Create(&user).Error)

	created, err := repo.CreateProfile(ctx, entity.NewProfile(user.ID, "Frank"))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.CreateProfile(ctx, entity.NewProfile(user.ID, "Someone Else"))
	require.NoError(t, err)
	assert.False(t, created)

	found, err := repo.FindByID(ctx, user.ID.String())
	require.NoError(t, err)
	require.NotNil(t, found.Profile)
	assert.Equal(t, "Frank", found.Profile.FullName)
}

func TestFindByIDNotFound(t *testing.T) {
	repo := repository.NewUserRepository(testutil.OpenTestDB(t))

	_, err := repo.FindByID(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = repo.FindByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
