package models

import (
	"time"
)

// SavedGroup 收藏 - a user's bookmarked group.
type SavedGroup struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index;uniqueIndex:idx_user_group" json:"user_id"`
	GroupID   uint      `gorm:"not null;index;uniqueIndex:idx_user_group" json:"group_id"`
	Group     Group     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"group"`
	CreatedAt time.Time `json:"created_at"`
}
