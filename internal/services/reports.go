package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"groupfinder/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ReportService struct {
	db         *gorm.DB
	log        *zap.Logger
	reputation *ReputationService
	notifier   *NotificationService
}

func NewReportService(db *gorm.DB, log *zap.Logger, reputation *ReputationService, notifier *NotificationService) *ReportService {
	return &ReportService{db: db, log: log, reputation: reputation, notifier: notifier}
}

// Create files a report against a group and tells the admins about it.
func (s *ReportService) Create(ctx context.Context, userID, groupID uint, reason string) (*models.Report, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrEmptyReason
	}
	if utf8.RuneCountInString(reason) > 200 {
		return nil, ErrInvalidInput
	}

	if err := ensureCanPost(s.db.WithContext(ctx), userID); err != nil {
		return nil, err
	}

	var group models.Group
	if err := s.db.WithContext(ctx).Select("id", "name").First(&group, groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}

	report := models.Report{UserID: userID, GroupID: groupID, Reason: reason, Status: models.ReportOpen}
	if err := s.db.WithContext(ctx).Create(&report).Error; err != nil {
		return nil, err
	}

	if s.reputation != nil {
		if _, err := s.reputation.AwardCapped(ctx, userID, PointsReport, ReasonReportFiled, models.SourceReport, &report.ID); err != nil {
			s.log.Warn("failed to award report reputation", zap.Uint("user_id", userID), zap.Error(err))
		}
	}
	if s.notifier != nil {
		msg := fmt.Sprintf("Group \"%s\" was reported: %s", group.Name, reason)
		if err := s.notifier.NotifyAdmins(ctx, &userID, models.NotificationTypeReport, msg); err != nil {
			s.log.Warn("failed to notify admins of report", zap.Uint("report_id", report.ID), zap.Error(err))
		}
	}
	return &report, nil
}

func (s *ReportService) List(ctx context.Context, status string, limit int) ([]models.Report, error) {
	if status == "" {
		status = models.ReportOpen
	}
	var reports []models.Report
	err := s.db.WithContext(ctx).Preload("User").Preload("Group").
		Where("status = ?", status).
		Order("created_at DESC").
		Limit(limit).
		Find(&reports).Error
	return reports, err
}

// Resolve closes a report as resolved or dismissed.
func (s *ReportService) Resolve(ctx context.Context, reportID, adminID uint, status string) (*models.Report, error) {
	if status != models.ReportResolved && status != models.ReportDismissed {
		return nil, ErrInvalidStatus
	}

	var report models.Report
	if err := s.db.WithContext(ctx).First(&report, reportID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}

	report.Status = status
	report.ResolvedBy = &adminID
	if err := s.db.WithContext(ctx).Model(&report).Updates(map[string]interface{}{
		"status":      status,
		"resolved_by": adminID,
	}).Error; err != nil {
		return nil, err
	}
	return &report, nil
}
