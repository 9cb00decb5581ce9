package models

import (
	"time"
)

// VerificationLog is append-only. Never update or delete rows.
type VerificationLog struct {
	ID        uint               `gorm:"primaryKey" json:"id"`
	GroupID   uint               `gorm:"not null;index" json:"group_id"`
	Group     Group              `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	UserID    uint               `gorm:"not null;index" json:"user_id"` // acting admin
	User      User               `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Status    VerificationStatus `gorm:"type:varchar(20);not null" json:"status"`
	Notes     string             `gorm:"type:text" json:"notes"`
	CreatedAt time.Time          `gorm:"index" json:"created_at"`
}
