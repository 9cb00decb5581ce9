package models

import (
	"time"
)

const (
	SourceGroupSubmission = "group_submission"
	SourceReview          = "review"
	SourceVote            = "vote"
	SourceReport          = "report"
	SourceProfileUpdate   = "profile_update"
	SourceBadgeAwarded    = "badge_awarded"
	SourceOther           = "other"
)

// ReputationHistory 积分明细, append-only. The sum of Points for a user equals
// User.ReputationPoints.
type ReputationHistory struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index:idx_rep_user_created,priority:1" json:"user_id"`
	User       User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Points     int       `gorm:"not null" json:"points"` // 正数为增加，负数为扣除
	Reason     string    `gorm:"size:200;not null" json:"reason"`
	SourceType string    `gorm:"size:50;not null;default:'other'" json:"source_type"`
	SourceID   *uint     `json:"source_id"`
	CreatedAt  time.Time `gorm:"index:idx_rep_user_created,priority:2" json:"created_at"`
}

// TableName keeps the table name singular like the ledger it is.
func (ReputationHistory) TableName() string {
	return "reputation_history"
}
