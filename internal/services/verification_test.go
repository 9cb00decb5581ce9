package services

import (
	"context"
	"testing"

	"groupfinder/internal/db/dbtest"
	"groupfinder/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetVerificationScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := dbtest.User(t, f.db, "owner", models.RoleUser)
	admin1 := dbtest.User(t, f.db, "admin1", models.RoleAdmin)
	admin2 := dbtest.User(t, f.db, "admin2", models.RoleAdmin)
	group := dbtest.Group(t, f.db, owner, "groupx")

	res, err := f.verification.SetVerification(ctx, group.ID, admin1.ID, models.VerificationVerified, "looks good")
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, models.VerificationPending, res.Previous)
	assert.True(t, res.State.IsVerified)

	res, err = f.verification.SetVerification(ctx, group.ID, admin2.ID, models.VerificationFlagged, "re-check")
	require.NoError(t, err)
	assert.False(t, res.State.IsVerified)

	g := f.reloadGroup(t, group.ID)
	assert.Equal(t, models.VerificationFlagged, g.VerificationStatus)
	assert.False(t, g.IsVerified)
	require.NotNil(t, g.VerifiedBy)
	assert.Equal(t, admin2.ID, *g.VerifiedBy)
	assert.Equal(t, "re-check", g.VerificationNotes)
	assert.NotNil(t, g.VerificationDate)

	history, err := f.verification.History(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.VerificationFlagged, history[0].Status)
	assert.Equal(t, "admin2", history[0].Admin.Username)
	assert.Equal(t, models.VerificationVerified, history[1].Status)
	assert.Equal(t, "admin1", history[1].Admin.Username)
}

func TestVerificationAuditConsistency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := dbtest.User(t, f.db, "owner", models.RoleUser)
	admin := dbtest.User(t, f.db, "admin", models.RoleAdmin)
	group := dbtest.Group(t, f.db, owner, "audit")

	calls := []models.VerificationStatus{
		models.VerificationNeedsReview,
		models.VerificationVerified,
		models.VerificationVerified,
		models.VerificationRejected,
		models.VerificationPending,
		models.VerificationFlagged,
	}
	for _, st := range calls {
		_, err := f.verification.SetVerification(ctx, group.ID, admin.ID, st, "")
		require.NoError(t, err)

		g := f.reloadGroup(t, group.ID)
		history, err := f.verification.History(ctx, group.ID)
		require.NoError(t, err)
		assert.Equal(t, history[0].Status, g.VerificationStatus)
		assert.Equal(t, g.VerificationStatus == models.VerificationVerified, g.IsVerified)
	}

	var rows int64
	f.db.Model(&models.VerificationLog{}).Where("group_id = ?", group.ID).Count(&rows)
	assert.Equal(t, int64(len(calls)), rows)
}

func TestSetVerificationRepeatIsNoOpMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := dbtest.User(t, f.db, "owner", models.RoleUser)
	admin := dbtest.User(t, f.db, "admin", models.RoleAdmin)
	group := dbtest.Group(t, f.db, owner, "repeat")

	_, err := f.verification.SetVerification(ctx, group.ID, admin.ID, models.VerificationVerified, "")
	require.NoError(t, err)
	res, err := f.verification.SetVerification(ctx, group.ID, admin.ID, models.VerificationVerified, "")
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Contains(t, res.Message(), "unchanged")
}

func TestSetVerificationErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := dbtest.User(t, f.db, "owner", models.RoleUser)
	admin := dbtest.User(t, f.db, "admin", models.RoleAdmin)
	group := dbtest.Group(t, f.db, owner, "errs")

	_, err := f.verification.SetVerification(ctx, group.ID, admin.ID, "approved", "")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = f.verification.SetVerification(ctx, 31337, admin.ID, models.VerificationVerified, "")
	assert.ErrorIs(t, err, ErrGroupNotFound)

	var rows int64
	f.db.Model(&models.VerificationLog{}).Count(&rows)
	assert.Zero(t, rows)
}

func TestVerifiedGroupRewardsSubmitterOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := dbtest.User(t, f.db, "owner", models.RoleUser)
	admin := dbtest.User(t, f.db, "admin", models.RoleAdmin)
	group := dbtest.Group(t, f.db, owner, "reward")

	for _, st := range []models.VerificationStatus{models.VerificationVerified, models.VerificationFlagged, models.VerificationVerified} {
		_, err := f.verification.SetVerification(ctx, group.ID, admin.ID, st, "")
		require.NoError(t, err)
	}

	u := f.reloadUser(t, owner.ID)
	assert.Equal(t, PointsGroupVerified, u.ReputationPoints)

	notes, err := f.notifier.List(ctx, owner.ID, 10)
	require.NoError(t, err)
	assert.Len(t, notes, 3)
}

func TestCurrentDefaultsToPending(t *testing.T) {
	f := newFixture(t)
	owner := dbtest.User(t, f.db, "owner", models.RoleUser)
	group := dbtest.Group(t, f.db, owner, "fresh")

	state, err := f.verification.Current(context.Background(), group.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationPending, state.VerificationStatus)
	assert.False(t, state.IsVerified)

	queue, total, err := f.verification.Queue(context.Background(), models.VerificationPending, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, group.ID, queue[0].ID)
}
