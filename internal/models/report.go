package models

import (
	"time"
)

const (
	ReportOpen      = "open"
	ReportResolved  = "resolved"
	ReportDismissed = "dismissed"
)

type Report struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"` // Reporter
	User       User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	GroupID    uint      `gorm:"not null;index" json:"group_id"`
	Group      Group     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"group"`
	Reason     string    `gorm:"size:200;not null" json:"reason"`
	Status     string    `gorm:"size:20;default:'open';not null;index" json:"status"`
	ResolvedBy *uint     `json:"resolved_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
