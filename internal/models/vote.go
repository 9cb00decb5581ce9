package models

import (
	"time"
)

type VoteType string

const (
	VoteUp     VoteType = "up"
	VoteDown   VoteType = "down"
	VoteRemove VoteType = "remove"
)

// Valid reports whether t is one of the accepted request literals.
func (t VoteType) Valid() bool {
	return t == VoteUp || t == VoteDown || t == VoteRemove
}

// Counter returns the Group column that tracks votes of this type.
func (t VoteType) Counter() string {
	if t == VoteDown {
		return "downvotes"
	}
	return "upvotes"
}

// One vote per (group, user); a revote updates the row.
type Vote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	GroupID   uint      `gorm:"not null;uniqueIndex:idx_vote_group_user" json:"group_id"`
	Group     Group     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	UserID    uint      `gorm:"not null;index;uniqueIndex:idx_vote_group_user" json:"user_id"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	VoteType  VoteType  `gorm:"type:varchar(8);not null" json:"vote_type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
