package services

import (
	"context"
	"testing"

	"groupfinder/internal/db/dbtest"
	"groupfinder/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCastVoteScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := dbtest.User(t, f.db, "owner", models.RoleUser)
	userA := dbtest.User(t, f.db, "usera", models.RoleUser)
	group := dbtest.Group(t, f.db, owner, "groupx")

	res, err := f.aggregator.CastVote(ctx, group.ID, userA.ID, models.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, VoteCreated, res.Outcome)
	assert.Equal(t, 1, res.Upvotes)
	assert.Equal(t, 0, res.Downvotes)

	res, err = f.aggregator.CastVote(ctx, group.ID, userA.ID, models.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, VoteChanged, res.Outcome)
	assert.Equal(t, 0, res.Upvotes)
	assert.Equal(t, 1, res.Downvotes)

	res, err = f.aggregator.CastVote(ctx, group.ID, userA.ID, models.VoteRemove)
	require.NoError(t, err)
	assert.Equal(t, VoteRemoved, res.Outcome)
	assert.Equal(t, 0, res.Upvotes)
	assert.Equal(t, 0, res.Downvotes)

	g := f.reloadGroup(t, group.ID)
	assert.Equal(t, 0, g.Upvotes)
	assert.Equal(t, 0, g.Downvotes)
}

func TestCastVoteIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := dbtest.User(t, f.db, "owner", models.RoleUser)
	voter := dbtest.User(t, f.db, "voter", models.RoleUser)
	group := dbtest.Group(t, f.db, owner, "idem")

	for _, vt := range []models.VoteType{models.VoteUp, models.VoteDown} {
		first, err := f.aggregator.CastVote(ctx, group.ID, voter.ID, vt)
		require.NoError(t, err)
		second, err := f.aggregator.CastVote(ctx, group.ID, voter.ID, vt)
		require.NoError(t, err)

		assert.Equal(t, VoteUnchanged, second.Outcome)
		assert.Equal(t, first.Upvotes, second.Upvotes)
		assert.Equal(t, first.Downvotes, second.Downvotes)
	}

	var rows int64
	f.db.Model(&models.Vote{}).Where("group_id = ?", group.ID).Count(&rows)
	assert.Equal(t, int64(1), rows)
}

func TestCastVoteMatchesRecount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := dbtest.User(t, f.db, "owner", models.RoleUser)
	group := dbtest.Group(t, f.db, owner, "recount")

	voters := []*models.User{
		dbtest.User(t, f.db, "v1", models.RoleUser),
		dbtest.User(t, f.db, "v2", models.RoleUser),
		dbtest.User(t, f.db, "v3", models.RoleUser),
	}
	sequence := []models.VoteType{models.VoteUp, models.VoteDown, models.VoteUp, models.VoteRemove, models.VoteDown}

	for i, vt := range sequence {
		for j, v := range voters {
			// stagger so voters end in different states
			if (i+j)%2 == 0 {
				_, err := f.aggregator.CastVote(ctx, group.ID, v.ID, vt)
				require.NoError(t, err)
			}
		}
	}

	cached := f.reloadGroup(t, group.ID)
	recount, err := f.aggregator.RecountVotes(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, recount.Upvotes, cached.Upvotes)
	assert.Equal(t, recount.Downvotes, cached.Downvotes)
}

func TestCastVoteRemoveWithoutVote(t *testing.T) {
	f := newFixture(t)
	owner := dbtest.User(t, f.db, "owner", models.RoleUser)
	group := dbtest.Group(t, f.db, owner, "empty")

	res, err := f.aggregator.CastVote(context.Background(), group.ID, owner.ID, models.VoteRemove)
	require.NoError(t, err)
	assert.Equal(t, VoteNothingToRemove, res.Outcome)
	assert.Equal(t, 0, res.Upvotes)
	assert.Equal(t, 0, res.Downvotes)
	assert.Empty(t, f.ranking.scheduled)
}

func TestCastVoteCountersNeverNegative(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := dbtest.User(t, f.db, "owner", models.RoleUser)
	voter := dbtest.User(t, f.db, "voter", models.RoleUser)
	group := dbtest.Group(t, f.db, owner, "floor")

	_, err := f.aggregator.CastVote(ctx, group.ID, voter.ID, models.VoteUp)
	require.NoError(t, err)
	// simulate a stale cache that already lost the vote
	require.NoError(t, f.db.Model(&models.Group{}).Where("id = ?", group.ID).UpdateColumn("upvotes", 0).Error)

	res, err := f.aggregator.CastVote(ctx, group.ID, voter.ID, models.VoteRemove)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Upvotes)
}

func TestCastVoteErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := dbtest.User(t, f.db, "owner", models.RoleUser)
	group := dbtest.Group(t, f.db, owner, "errs")

	_, err := f.aggregator.CastVote(ctx, group.ID, owner.ID, models.VoteType("sideways"))
	assert.ErrorIs(t, err, ErrInvalidVoteType)

	_, err = f.aggregator.CastVote(ctx, 9999, owner.ID, models.VoteUp)
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestCastVoteAwardsVoterReputation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := dbtest.User(t, f.db, "owner", models.RoleUser)
	voter := dbtest.User(t, f.db, "voter", models.RoleUser)
	group := dbtest.Group(t, f.db, owner, "rep")

	_, err := f.aggregator.CastVote(ctx, group.ID, voter.ID, models.VoteUp)
	require.NoError(t, err)
	_, err = f.aggregator.CastVote(ctx, group.ID, voter.ID, models.VoteDown)
	require.NoError(t, err)

	u := f.reloadUser(t, voter.ID)
	assert.Equal(t, PointsVote, u.ReputationPoints)
	assert.Equal(t, []uint{group.ID, group.ID}, f.ranking.scheduled)
}
