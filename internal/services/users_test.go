package services

import (
	"context"
	"testing"
	"time"

	"groupfinder/internal/db/dbtest"
	"groupfinder/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.users.Register(ctx, " Alice@Example.org ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.org", user.Email)
	assert.NotEqual(t, "secret1", user.Password)

	_, err = f.users.Register(ctx, "alice@example.org", "another")
	assert.ErrorIs(t, err, ErrDuplicateUser)

	_, err = f.users.Register(ctx, "not-an-email", "secret1")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.users.Register(ctx, "bob@example.org", "123")
	assert.ErrorIs(t, err, ErrInvalidInput)

	got, err := f.users.Authenticate(ctx, "alice@example.org", "secret1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = f.users.Authenticate(ctx, "alice@example.org", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.users.Authenticate(ctx, "nobody@example.org", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.users.Punish(ctx, user.ID, models.UserStatusBanned, 0)
	require.NoError(t, err)
	_, err = f.users.Authenticate(ctx, "alice@example.org", "secret1")
	assert.ErrorIs(t, err, ErrUserRestricted)
}

func TestUpdateProfileAwardsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := dbtest.User(t, f.db, "profile", models.RoleUser)

	updated, err := f.users.UpdateProfile(ctx, user.ID, ProfileInput{Bio: "I run <b>two</b> groups"})
	require.NoError(t, err)
	assert.Equal(t, "I run two groups", updated.Bio)
	assert.Equal(t, PointsProfileUpdate, updated.ReputationPoints)

	updated, err = f.users.UpdateProfile(ctx, user.ID, ProfileInput{Bio: "Now three"})
	require.NoError(t, err)
	assert.Equal(t, PointsProfileUpdate, updated.ReputationPoints)

	_, err = f.users.UpdateProfile(ctx, user.ID, ProfileInput{OldPassword: "bad", NewPassword: "newsecret"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestPunish(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := dbtest.User(t, f.db, "noisy", models.RoleUser)

	muted, err := f.users.Punish(ctx, user.ID, models.UserStatusMuted, 3)
	require.NoError(t, err)
	require.NotNil(t, muted.PunishExpires)
	assert.False(t, muted.CanPost(time.Now()))
	assert.True(t, muted.CanPost(time.Now().AddDate(0, 0, 4)))

	restored, err := f.users.Punish(ctx, user.ID, models.UserStatusActive, 0)
	require.NoError(t, err)
	assert.Nil(t, restored.PunishExpires)
	assert.True(t, restored.CanPost(time.Now()))

	_, err = f.users.Punish(ctx, user.ID, 7, 0)
	assert.ErrorIs(t, err, ErrInvalidStatus)
	_, err = f.users.Punish(ctx, 999, models.UserStatusMuted, 1)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
