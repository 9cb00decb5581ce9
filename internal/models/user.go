package models

import (
	"time"
)

// User 状态
const (
	UserStatusActive = 0
	UserStatusMuted  = 1
	UserStatusBanned = 2
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Username         string     `gorm:"not null" json:"username"`
	Email            string     `gorm:"uniqueIndex;not null" json:"-"`
	Password         string     `gorm:"not null" json:"-"` // bcrypt hash
	Avatar           string     `gorm:"default:👥" json:"avatar"`
	Bio              string     `gorm:"size:200" json:"bio"`
	Role             string     `gorm:"size:20;default:'user';not null" json:"role"`
	Status           int        `gorm:"default:0" json:"status"`
	PunishExpires    *time.Time `json:"punish_expires,omitempty"`
	ReputationPoints int        `gorm:"default:0;not null" json:"reputation_points"`
	ReputationLevel  int        `gorm:"default:0;not null" json:"reputation_level"`
	BadgesCount      int        `gorm:"default:0;not null" json:"badges_count"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// PublicUser is the identity shown next to audit rows and reviews.
type PublicUser struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, Avatar: u.Avatar}
}

// CanPost reports whether the user may write content right now.
func (u *User) CanPost(now time.Time) bool {
	switch u.Status {
	case UserStatusBanned, UserStatusMuted:
		return u.PunishExpires != nil && now.After(*u.PunishExpires)
	}
	return true
}

// IsBanned reports an active ban. A ban without expiry never lifts.
func (u *User) IsBanned(now time.Time) bool {
	return u.Status == UserStatusBanned && (u.PunishExpires == nil || now.Before(*u.PunishExpires))
}
