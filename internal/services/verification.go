package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"groupfinder/internal/models"
	"groupfinder/internal/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// VerificationState is the current moderation state of a group.
type VerificationState struct {
	GroupID            uint                      `json:"group_id"`
	VerificationStatus models.VerificationStatus `json:"verification_status"`
	VerificationDate   *time.Time                `json:"verification_date"`
	VerifiedBy         *uint                     `json:"verified_by"`
	VerificationNotes  string                    `json:"verification_notes"`
	IsVerified         bool                      `json:"is_verified"`
}

// VerificationEntry is an audit row with the acting admin's public identity.
type VerificationEntry struct {
	ID        uint                      `json:"id"`
	Status    models.VerificationStatus `json:"status"`
	Notes     string                    `json:"notes"`
	CreatedAt time.Time                 `json:"created_at"`
	Admin     models.PublicUser         `json:"admin"`
}

type VerificationResult struct {
	State    VerificationState         `json:"verification"`
	Previous models.VerificationStatus `json:"previous_status"`
	Changed  bool                      `json:"changed"`
	LogID    uint                      `json:"log_id"`
}

func (r *VerificationResult) Message() string {
	if !r.Changed {
		return fmt.Sprintf("Verification status unchanged (%s)", r.State.VerificationStatus)
	}
	return fmt.Sprintf("Verification status updated to %s", r.State.VerificationStatus)
}

type VerificationService struct {
	db         *gorm.DB
	log        *zap.Logger
	reputation *ReputationService
	notifier   *NotificationService
}

func NewVerificationService(db *gorm.DB, log *zap.Logger, reputation *ReputationService, notifier *NotificationService) *VerificationService {
	return &VerificationService{db: db, log: log, reputation: reputation, notifier: notifier}
}

// SetVerification moves a group to status and appends the matching audit
// row. Any status may follow any other. Repeating the current status is not
// an error; it is still written to the audit log.
func (s *VerificationService) SetVerification(ctx context.Context, groupID, adminID uint, status models.VerificationStatus, notes string) (*VerificationResult, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	notes = strings.TrimSpace(notes)

	var group models.Group
	result := &VerificationResult{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&group, groupID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGroupNotFound
			}
			return err
		}
		result.Previous = group.VerificationStatus
		result.Changed = group.VerificationStatus != status

		now := time.Now()
		if err := tx.Model(&models.Group{}).Where("id = ?", groupID).UpdateColumns(map[string]interface{}{
			"verification_status": status,
			"verification_date":   now,
			"verified_by":         adminID,
			"verification_notes":  notes,
			"is_verified":         status == models.VerificationVerified,
			"updated_at":          now,
		}).Error; err != nil {
			return err
		}

		entry := models.VerificationLog{
			GroupID:   groupID,
			UserID:    adminID,
			Status:    status,
			Notes:     notes,
			CreatedAt: now,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		result.LogID = entry.ID

		group.VerificationStatus = status
		group.VerificationDate = &now
		group.VerifiedBy = &adminID
		group.VerificationNotes = notes
		group.IsVerified = status == models.VerificationVerified
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.State = stateOf(&group)
	utils.GetCache().Delete(utils.GroupCacheKey(groupID))

	if result.Changed {
		s.afterTransition(ctx, &group, adminID, result.Previous)
	}
	return result, nil
}

// afterTransition runs the best-effort side effects of a status change.
func (s *VerificationService) afterTransition(ctx context.Context, group *models.Group, adminID uint, previous models.VerificationStatus) {
	if group.VerificationStatus == models.VerificationVerified && s.reputation != nil {
		if err := s.awardVerifiedOnce(ctx, group); err != nil {
			s.log.Warn("failed to award verification reputation",
				zap.Uint("group_id", group.ID), zap.Uint("user_id", group.SubmittedBy), zap.Error(err))
		}
	}

	if s.notifier != nil && group.SubmittedBy != adminID {
		msg := fmt.Sprintf("Your group \"%s\" moved from %s to %s.", group.Name, previous, group.VerificationStatus)
		if group.VerificationNotes != "" {
			msg += " Notes: " + group.VerificationNotes
		}
		if err := s.notifier.Notify(ctx, group.SubmittedBy, &adminID, models.NotificationTypeVerification, msg); err != nil {
			s.log.Warn("failed to notify submitter", zap.Uint("group_id", group.ID), zap.Error(err))
		}
	}
}

// awardVerifiedOnce credits the submitter the first time a group is verified.
func (s *VerificationService) awardVerifiedOnce(ctx context.Context, group *models.Group) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.ReputationHistory{}).
		Where("user_id = ? AND source_type = ? AND source_id = ? AND reason = ?",
			group.SubmittedBy, models.SourceGroupSubmission, group.ID, ReasonGroupVerified).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, err := s.reputation.AwardPoints(ctx, group.SubmittedBy, PointsGroupVerified, ReasonGroupVerified, models.SourceGroupSubmission, &group.ID)
	return err
}

func (s *VerificationService) Current(ctx context.Context, groupID uint) (*VerificationState, error) {
	var group models.Group
	if err := s.db.WithContext(ctx).First(&group, groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	state := stateOf(&group)
	return &state, nil
}

// History returns a group's audit log, newest first.
func (s *VerificationService) History(ctx context.Context, groupID uint) ([]VerificationEntry, error) {
	var logs []models.VerificationLog
	if err := s.db.WithContext(ctx).Preload("User").
		Where("group_id = ?", groupID).
		Order("created_at DESC, id DESC").
		Find(&logs).Error; err != nil {
		return nil, err
	}

	entries := make([]VerificationEntry, 0, len(logs))
	for _, l := range logs {
		entries = append(entries, VerificationEntry{
			ID:        l.ID,
			Status:    l.Status,
			Notes:     l.Notes,
			CreatedAt: l.CreatedAt,
			Admin:     l.User.Public(),
		})
	}
	return entries, nil
}

// Queue lists groups in status for the moderation console, oldest first.
func (s *VerificationService) Queue(ctx context.Context, status models.VerificationStatus, limit, offset int) ([]models.Group, int64, error) {
	if !status.Valid() {
		return nil, 0, ErrInvalidStatus
	}
	limit, offset = utils.ClampPage(limit, offset, 50, 200)

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Group{}).Where("verification_status = ?", status).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var groups []models.Group
	err := s.db.WithContext(ctx).Preload("Category").Preload("Submitter").
		Where("verification_status = ?", status).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&groups).Error
	return groups, total, err
}

func stateOf(g *models.Group) VerificationState {
	return VerificationState{
		GroupID:            g.ID,
		VerificationStatus: g.VerificationStatus,
		VerificationDate:   g.VerificationDate,
		VerifiedBy:         g.VerifiedBy,
		VerificationNotes:  g.VerificationNotes,
		IsVerified:         g.IsVerified,
	}
}
