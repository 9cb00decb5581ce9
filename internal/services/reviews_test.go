package services

import (
	"context"
	"testing"

	"groupfinder/internal/db/dbtest"
	"groupfinder/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitReviewUpdatesInPlace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := dbtest.User(t, f.db, "owner", models.RoleUser)
	reviewer := dbtest.User(t, f.db, "reviewer", models.RoleUser)
	group := dbtest.Group(t, f.db, owner, "groupx")

	first, err := f.aggregator.SubmitReview(ctx, group.ID, reviewer.ID, 5, "great")
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.InDelta(t, 5.0, first.AverageRating, 1e-9)

	second, err := f.aggregator.SubmitReview(ctx, group.ID, reviewer.ID, 3, "meh")
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Review.ID, second.Review.ID)
	assert.InDelta(t, 3.0, second.AverageRating, 1e-9)
	assert.Equal(t, 1, second.ReviewCount)

	g := f.reloadGroup(t, group.ID)
	assert.InDelta(t, 3.0, g.AverageRating, 1e-9)

	// only the first review earns reputation
	u := f.reloadUser(t, reviewer.ID)
	assert.Equal(t, PointsReview, u.ReputationPoints)
}

func TestAverageRatingIsExactMean(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := dbtest.User(t, f.db, "owner", models.RoleUser)
	group := dbtest.Group(t, f.db, owner, "mean")

	ratings := []int{5, 4, 4, 1, 2, 3, 5}
	var reviewIDs []uint
	sum := 0
	for i, r := range ratings {
		u := dbtest.User(t, f.db, "r"+string(rune('a'+i)), models.RoleUser)
		res, err := f.aggregator.SubmitReview(ctx, group.ID, u.ID, r, "")
		require.NoError(t, err)
		reviewIDs = append(reviewIDs, res.Review.ID)
		sum += r
	}

	g := f.reloadGroup(t, group.ID)
	assert.InDelta(t, float64(sum)/float64(len(ratings)), g.AverageRating, 1e-9)
	assert.Equal(t, len(ratings), g.ReviewCount)

	for _, id := range reviewIDs {
		_, err := f.aggregator.DeleteReview(ctx, id, 0, true)
		require.NoError(t, err)
	}

	g = f.reloadGroup(t, group.ID)
	assert.Equal(t, 0.0, g.AverageRating)
	assert.Equal(t, 0, g.ReviewCount)
}

func TestSubmitReviewRejectsBadRating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := dbtest.User(t, f.db, "owner", models.RoleUser)
	group := dbtest.Group(t, f.db, owner, "bad")

	for _, r := range []int{0, 6, -1} {
		_, err := f.aggregator.SubmitReview(ctx, group.ID, owner.ID, r, "")
		assert.ErrorIs(t, err, ErrInvalidRating)
	}

	var count int64
	f.db.Model(&models.Review{}).Count(&count)
	assert.Zero(t, count)

	_, err := f.aggregator.SubmitReview(ctx, 4242, owner.ID, 4, "")
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestSubmitReviewSanitizesComment(t *testing.T) {
	f := newFixture(t)
	owner := dbtest.User(t, f.db, "owner", models.RoleUser)
	group := dbtest.Group(t, f.db, owner, "xss")

	res, err := f.aggregator.SubmitReview(context.Background(), group.ID, owner.ID, 4, "<script>x()</script>nice")
	require.NoError(t, err)
	assert.NotContains(t, res.Review.Comment, "<script>")
	assert.Contains(t, res.Review.Comment, "nice")
}

func TestDeleteReviewPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := dbtest.User(t, f.db, "owner", models.RoleUser)
	author := dbtest.User(t, f.db, "author", models.RoleUser)
	other := dbtest.User(t, f.db, "other", models.RoleUser)
	group := dbtest.Group(t, f.db, owner, "perm")

	res, err := f.aggregator.SubmitReview(ctx, group.ID, author.ID, 2, "")
	require.NoError(t, err)

	_, err = f.aggregator.DeleteReview(ctx, res.Review.ID, other.ID, false)
	assert.ErrorIs(t, err, ErrForbidden)

	out, err := f.aggregator.DeleteReview(ctx, res.Review.ID, author.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 0, out.ReviewCount)

	_, err = f.aggregator.DeleteReview(ctx, res.Review.ID, author.ID, false)
	assert.ErrorIs(t, err, ErrReviewNotFound)
}

func TestListReviews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := dbtest.User(t, f.db, "owner", models.RoleUser)
	group := dbtest.Group(t, f.db, owner, "list")

	_, err := f.aggregator.SubmitReview(ctx, group.ID, owner.ID, 4, "ok")
	require.NoError(t, err)

	reviews, total, err := f.aggregator.ListReviews(ctx, group.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, reviews, 1)
	assert.Equal(t, "owner", reviews[0].User.Username)
}

func TestSubmitReviewKeepsPunctuation(t *testing.T) {
	f := newFixture(t)
	owner := dbtest.User(t, f.db, "owner", models.RoleUser)
	group := dbtest.Group(t, f.db, owner, "quotes")
	comment := `Tom's group & "friends"`

	res, err := f.aggregator.SubmitReview(context.Background(), group.ID, owner.ID, 5, comment)
	require.NoError(t, err)
	assert.Equal(t, comment, res.Review.Comment)

	var stored models.Review
	require.NoError(t, f.db.First(&stored, res.Review.ID).Error)
	assert.Equal(t, comment, stored.Comment)
}

func TestSubmitReviewRejectsMutedUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := dbtest.User(t, f.db, "owner", models.RoleUser)
	muted := dbtest.User(t, f.db, "muted", models.RoleUser)
	group := dbtest.Group(t, f.db, owner, "quiet-please")

	_, err := f.users.Punish(ctx, muted.ID, models.UserStatusMuted, 3)
	require.NoError(t, err)

	_, err = f.aggregator.SubmitReview(ctx, group.ID, muted.ID, 1, "spam spam")
	assert.ErrorIs(t, err, ErrUserRestricted)

	var count int64
	f.db.Model(&models.Review{}).Count(&count)
	assert.Zero(t, count)
	assert.Zero(t, f.reloadGroup(t, group.ID).ReviewCount)
}
