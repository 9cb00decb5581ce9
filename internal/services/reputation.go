package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"groupfinder/internal/models"
	"groupfinder/internal/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 积分值
const (
	PointsGroupSubmission = 5
	PointsGroupVerified   = 20
	PointsReview          = 3
	PointsVote            = 1
	PointsReport          = 2
)

// Reasons written to the ledger by automatic awards.
const (
	ReasonGroupSubmitted = "Submitted a group"
	ReasonGroupVerified  = "Submitted group was verified"
	ReasonReviewWritten  = "Reviewed a group"
	ReasonVoteCast       = "Voted on a group"
	ReasonReportFiled    = "Reported a group"
)

// Daily caps for automatic awards. Manual admin awards are never capped.
var dailyLimits = map[string]int{
	models.SourceGroupSubmission: 3,
	models.SourceReview:          5,
	models.SourceVote:            20,
	models.SourceReport:          5,
}

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100

	// matches the size of reputation_history.reason
	maxReasonLength = 200
)

type ReputationService struct {
	db       *gorm.DB
	log      *zap.Logger
	notifier *NotificationService
}

func NewReputationService(db *gorm.DB, log *zap.Logger, notifier *NotificationService) *ReputationService {
	return &ReputationService{db: db, log: log, notifier: notifier}
}

// ReputationSummary is the cached reputation of a user plus level progress.
type ReputationSummary struct {
	UserID       uint   `json:"user_id"`
	Points       int    `json:"points"`
	Level        int    `json:"level"`
	LevelName    string `json:"level_name"`
	BadgesCount  int    `json:"badges_count"`
	Progress     int    `json:"progress"`
	PointsToNext int    `json:"points_to_next"`
}

// AwardPoints appends a ledger row and moves the user's cached total and
// level in the same transaction.
func (s *ReputationService) AwardPoints(ctx context.Context, userID uint, points int, reason, sourceType string, sourceID *uint) (*models.ReputationHistory, error) {
	entry, err := newEntry(userID, points, reason, sourceType, sourceID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return awardPointsTx(tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// AwardCapped is AwardPoints subject to the daily cap of sourceType. It
// returns false without error when the cap is already reached.
func (s *ReputationService) AwardCapped(ctx context.Context, userID uint, points int, reason, sourceType string, sourceID *uint) (bool, error) {
	if !s.CanEarn(ctx, userID, sourceType) {
		return false, nil
	}
	if _, err := s.AwardPoints(ctx, userID, points, reason, sourceType, sourceID); err != nil {
		return false, err
	}
	return true, nil
}

// CanEarn checks today's automatic awards of sourceType against its cap.
func (s *ReputationService) CanEarn(ctx context.Context, userID uint, sourceType string) bool {
	limit, ok := dailyLimits[sourceType]
	if !ok {
		return true
	}
	startOfDay, endOfDay := getTodayRange()
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.ReputationHistory{}).
		Where("user_id = ? AND source_type = ? AND points > 0 AND created_at >= ? AND created_at < ?", userID, sourceType, startOfDay, endOfDay).
		Count(&count).Error; err != nil {
		s.log.Warn("failed to count today's awards", zap.Uint("user_id", userID), zap.String("source_type", sourceType), zap.Error(err))
		return false
	}
	return count < int64(limit)
}

// AwardBadge gives badgeID to userID, bumps badges_count and credits the
// badge's point value to the ledger.
func (s *ReputationService) AwardBadge(ctx context.Context, userID, badgeID uint) (*models.UserBadge, error) {
	var badge models.Badge
	var userBadge models.UserBadge

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&badge, badgeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBadgeNotFound
			}
			return err
		}

		var held int64
		if err := tx.Model(&models.UserBadge{}).Where("user_id = ? AND badge_id = ?", userID, badgeID).Count(&held).Error; err != nil {
			return err
		}
		if held > 0 {
			return ErrBadgeAlreadyAwarded
		}

		res := tx.Model(&models.User{}).Where("id = ?", userID).
			UpdateColumn("badges_count", gorm.Expr("badges_count + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}

		userBadge = models.UserBadge{UserID: userID, BadgeID: badgeID, AwardedAt: time.Now()}
		if err := tx.Create(&userBadge).Error; err != nil {
			return err
		}

		if badge.PointValue == 0 {
			return nil
		}
		entry := &models.ReputationHistory{
			UserID:     userID,
			Points:     badge.PointValue,
			Reason:     "Badge awarded: " + badge.Name,
			SourceType: models.SourceBadgeAwarded,
			SourceID:   &badge.ID,
		}
		return awardPointsTx(tx, entry)
	})
	if err != nil {
		return nil, err
	}

	userBadge.Badge = badge
	if s.notifier != nil {
		msg := fmt.Sprintf("You earned the %s %s badge.", badge.Icon, badge.Name)
		if err := s.notifier.Notify(ctx, userID, nil, models.NotificationTypeBadge, msg); err != nil {
			s.log.Warn("failed to send badge notification", zap.Uint("user_id", userID), zap.Error(err))
		}
	}
	return &userBadge, nil
}

// RevokeBadge removes the association. Points already credited stay in the
// ledger.
func (s *ReputationService) RevokeBadge(ctx context.Context, userID, badgeID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND badge_id = ?", userID, badgeID).Delete(&models.UserBadge{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrBadgeNotHeld
		}
		return tx.Model(&models.User{}).Where("id = ?", userID).
			UpdateColumn("badges_count", gorm.Expr("CASE WHEN badges_count > 0 THEN badges_count - 1 ELSE 0 END")).
			Error
	})
}

// History returns ledger rows newest first.
func (s *ReputationService) History(ctx context.Context, userID uint, limit, offset int) ([]models.ReputationHistory, int64, error) {
	limit, offset = utils.ClampPage(limit, offset, defaultHistoryLimit, maxHistoryLimit)

	var total int64
	q := s.db.WithContext(ctx).Model(&models.ReputationHistory{}).Where("user_id = ?", userID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	rows := make([]models.ReputationHistory, 0, limit)
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	return rows, total, err
}

func (s *ReputationService) Summary(ctx context.Context, userID uint) (*ReputationSummary, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return summarize(&user), nil
}

// Recalculate rebuilds the cached points, level and badge count from the
// ledger and the user_badges table.
func (s *ReputationService) Recalculate(ctx context.Context, userID uint) (*ReputationSummary, error) {
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		var total int64
		if err := tx.Model(&models.ReputationHistory{}).
			Select("COALESCE(SUM(points), 0)").
			Where("user_id = ?", userID).
			Scan(&total).Error; err != nil {
			return err
		}
		var badges int64
		if err := tx.Model(&models.UserBadge{}).Where("user_id = ?", userID).Count(&badges).Error; err != nil {
			return err
		}

		user.ReputationPoints = int(total)
		user.ReputationLevel = utils.ReputationLevel(user.ReputationPoints)
		user.BadgesCount = int(badges)
		return tx.Model(&models.User{}).Where("id = ?", userID).UpdateColumns(map[string]interface{}{
			"reputation_points": user.ReputationPoints,
			"reputation_level":  user.ReputationLevel,
			"badges_count":      user.BadgesCount,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return summarize(&user), nil
}

func (s *ReputationService) Badges(ctx context.Context) ([]models.Badge, error) {
	var badges []models.Badge
	err := s.db.WithContext(ctx).Order("id ASC").Find(&badges).Error
	return badges, err
}

func (s *ReputationService) UserBadges(ctx context.Context, userID uint) ([]models.UserBadge, error) {
	var rows []models.UserBadge
	err := s.db.WithContext(ctx).Preload("Badge").
		Where("user_id = ?", userID).
		Order("awarded_at DESC").
		Find(&rows).Error
	return rows, err
}

func summarize(u *models.User) *ReputationSummary {
	progress, remaining := utils.LevelProgress(u.ReputationPoints, u.ReputationLevel)
	return &ReputationSummary{
		UserID:       u.ID,
		Points:       u.ReputationPoints,
		Level:        u.ReputationLevel,
		LevelName:    utils.LevelName(u.ReputationLevel),
		BadgesCount:  u.BadgesCount,
		Progress:     progress,
		PointsToNext: remaining,
	}
}

func newEntry(userID uint, points int, reason, sourceType string, sourceID *uint) (*models.ReputationHistory, error) {
	if points == 0 {
		return nil, ErrInvalidPoints
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrEmptyReason
	}
	if utf8.RuneCountInString(reason) > maxReasonLength {
		return nil, ErrInvalidInput
	}
	sourceType = strings.TrimSpace(sourceType)
	if sourceType == "" {
		sourceType = models.SourceOther
	}
	return &models.ReputationHistory{
		UserID:     userID,
		Points:     points,
		Reason:     reason,
		SourceType: sourceType,
		SourceID:   sourceID,
	}, nil
}

// awardPointsTx must run inside a transaction.
func awardPointsTx(tx *gorm.DB, entry *models.ReputationHistory) error {
	res := tx.Model(&models.User{}).Where("id = ?", entry.UserID).
		UpdateColumn("reputation_points", gorm.Expr("reputation_points + ?", entry.Points))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}

	if err := tx.Create(entry).Error; err != nil {
		return err
	}

	var points int
	if err := tx.Model(&models.User{}).Select("reputation_points").Where("id = ?", entry.UserID).Scan(&points).Error; err != nil {
		return err
	}
	return tx.Model(&models.User{}).Where("id = ?", entry.UserID).
		UpdateColumn("reputation_level", utils.ReputationLevel(points)).
		Error
}

// getTodayRange 获取今日的开始和结束时间
func getTodayRange() (time.Time, time.Time) {
	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return startOfDay, startOfDay.Add(24 * time.Hour)
}
