package services

import (
	"context"

	"groupfinder/internal/models"

	"gorm.io/gorm"
)

type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

func (s *NotificationService) Notify(ctx context.Context, userID uint, actorID *uint, typ models.NotificationType, message string) error {
	n := models.Notification{
		UserID:  userID,
		ActorID: actorID,
		Type:    typ,
		Message: message,
	}
	return s.db.WithContext(ctx).Create(&n).Error
}

// NotifyAdmins sends message to every admin account.
func (s *NotificationService) NotifyAdmins(ctx context.Context, actorID *uint, typ models.NotificationType, message string) error {
	var adminIDs []uint
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", models.RoleAdmin).Pluck("id", &adminIDs).Error; err != nil {
		return err
	}
	if len(adminIDs) == 0 {
		return nil
	}

	rows := make([]models.Notification, 0, len(adminIDs))
	for _, id := range adminIDs {
		rows = append(rows, models.Notification{UserID: id, ActorID: actorID, Type: typ, Message: message})
	}
	return s.db.WithContext(ctx).Create(&rows).Error
}

func (s *NotificationService) List(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
	var rows []models.Notification
	err := s.db.WithContext(ctx).Preload("Actor").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) int64 {
	var count int64
	s.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ? AND is_read = ?", userID, false).Count(&count)
	return count
}

// MarkRead returns false when the notification does not belong to userID.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	return res.RowsAffected > 0, res.Error
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
}

func (s *NotificationService) Delete(ctx context.Context, userID, id uint) (bool, error) {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Notification{})
	return res.RowsAffected > 0, res.Error
}
