package services

import (
	"context"
	"errors"
	"unicode/utf8"

	"groupfinder/internal/models"
	"groupfinder/internal/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxCommentLength = 2000

// ReviewResult is the stored review and the group's rating after the write.
type ReviewResult struct {
	Review        models.Review `json:"review"`
	Created       bool          `json:"created"`
	AverageRating float64       `json:"average_rating"`
	ReviewCount   int           `json:"review_count"`
}

// SubmitReview inserts the user's review of a group or updates it in place,
// then recomputes the group's average over every remaining review.
func (a *Aggregator) SubmitReview(ctx context.Context, groupID, userID uint, rating int, comment string) (*ReviewResult, error) {
	if rating < models.MinRating || rating > models.MaxRating {
		return nil, ErrInvalidRating
	}
	comment = utils.SanitizePlain(comment)
	if utf8.RuneCountInString(comment) > maxCommentLength {
		return nil, ErrInvalidInput
	}
	if err := ensureCanPost(a.db.WithContext(ctx), userID); err != nil {
		return nil, err
	}

	result := &ReviewResult{}
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := groupExists(tx, groupID); err != nil {
			return err
		}

		var review models.Review
		err := tx.Where("group_id = ? AND user_id = ?", groupID, userID).First(&review).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			review = models.Review{GroupID: groupID, UserID: userID, Rating: rating, Comment: comment}
			if err := tx.Create(&review).Error; err != nil {
				return err
			}
			result.Created = true
		case err != nil:
			return err
		default:
			if err := tx.Model(&review).Updates(map[string]interface{}{
				"rating":  rating,
				"comment": comment,
			}).Error; err != nil {
				return err
			}
			review.Rating = rating
			review.Comment = comment
		}
		result.Review = review

		avg, count, err := recomputeRating(tx, groupID)
		if err != nil {
			return err
		}
		result.AverageRating, result.ReviewCount = avg, count
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Created && a.reputation != nil {
		if _, err := a.reputation.AwardCapped(ctx, userID, PointsReview, ReasonReviewWritten, models.SourceReview, &result.Review.ID); err != nil {
			a.log.Warn("failed to award review reputation", zap.Uint("user_id", userID), zap.Uint("group_id", groupID), zap.Error(err))
		}
	}
	a.rescore(groupID)
	return result, nil
}

// DeleteReview removes a review. Only its author may do so unless
// allowAny is set by the caller's authorizer.
func (a *Aggregator) DeleteReview(ctx context.Context, reviewID, actorID uint, allowAny bool) (*ReviewResult, error) {
	result := &ReviewResult{}
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var review models.Review
		if err := tx.First(&review, reviewID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReviewNotFound
			}
			return err
		}
		if review.UserID != actorID && !allowAny {
			return ErrForbidden
		}

		if err := tx.Delete(&review).Error; err != nil {
			return err
		}
		result.Review = review

		avg, count, err := recomputeRating(tx, review.GroupID)
		if err != nil {
			return err
		}
		result.AverageRating, result.ReviewCount = avg, count
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.rescore(result.Review.GroupID)
	return result, nil
}

// ListReviews returns a group's reviews, newest first, with author identity.
func (a *Aggregator) ListReviews(ctx context.Context, groupID uint, limit, offset int) ([]models.Review, int64, error) {
	limit, offset = utils.ClampPage(limit, offset, 20, 100)

	var total int64
	if err := a.db.WithContext(ctx).Model(&models.Review{}).Where("group_id = ?", groupID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reviews []models.Review
	err := a.db.WithContext(ctx).Preload("User").
		Where("group_id = ?", groupID).
		Order("updated_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&reviews).Error
	return reviews, total, err
}

// RecomputeRating rebuilds average_rating and review_count for a group.
func (a *Aggregator) RecomputeRating(ctx context.Context, groupID uint) (float64, int, error) {
	var avg float64
	var count int
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := groupExists(tx, groupID); err != nil {
			return err
		}
		var err error
		avg, count, err = recomputeRating(tx, groupID)
		return err
	})
	return avg, count, err
}

// recomputeRating is a full recompute: the mean over current rows, 0 when
// there are none.
func recomputeRating(tx *gorm.DB, groupID uint) (float64, int, error) {
	var agg struct {
		Total int64
		Cnt   int64
	}
	if err := tx.Model(&models.Review{}).
		Select("COALESCE(SUM(rating), 0) AS total, COUNT(*) AS cnt").
		Where("group_id = ?", groupID).
		Scan(&agg).Error; err != nil {
		return 0, 0, err
	}

	avg := 0.0
	if agg.Cnt > 0 {
		avg = float64(agg.Total) / float64(agg.Cnt)
	}

	err := tx.Model(&models.Group{}).Where("id = ?", groupID).UpdateColumns(map[string]interface{}{
		"average_rating": avg,
		"review_count":   int(agg.Cnt),
	}).Error
	return avg, int(agg.Cnt), err
}
