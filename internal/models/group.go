package models

import (
	"time"
)

type VerificationStatus string

const (
	VerificationPending     VerificationStatus = "pending"
	VerificationVerified    VerificationStatus = "verified"
	VerificationRejected    VerificationStatus = "rejected"
	VerificationNeedsReview VerificationStatus = "needs_review"
	VerificationFlagged     VerificationStatus = "flagged"
)

var VerificationStatuses = []VerificationStatus{
	VerificationPending,
	VerificationVerified,
	VerificationRejected,
	VerificationNeedsReview,
	VerificationFlagged,
}

func (s VerificationStatus) Valid() bool {
	for _, v := range VerificationStatuses {
		if s == v {
			return true
		}
	}
	return false
}

const (
	PrivacyPublic  = "public"
	PrivacyPrivate = "private"
)

// Group is a listed Facebook group. Upvotes, Downvotes, AverageRating and
// ReviewCount are caches of the votes and reviews tables; the verification
// fields mirror the newest VerificationLog row.
type Group struct {
	ID          uint     `gorm:"primaryKey" json:"id"`
	Gid         string   `gorm:"uniqueIndex;size:8;not null" json:"gid"`
	Name        string   `gorm:"not null" json:"name"`
	URL         string   `gorm:"uniqueIndex;not null" json:"url"`
	Description string   `gorm:"type:text" json:"description"`
	CategoryID  uint     `gorm:"not null;index;default:1" json:"category_id"`
	Category    Category `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"category"`
	Tags        []Tag    `gorm:"many2many:group_tags;" json:"tags"`
	Privacy     string   `gorm:"size:10;default:'public'" json:"privacy"`
	MemberCount int      `gorm:"default:0" json:"member_count"`
	SubmittedBy uint     `gorm:"not null;index" json:"submitted_by"`
	Submitter   User     `gorm:"foreignKey:SubmittedBy;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"submitter"`

	Upvotes       int     `gorm:"default:0;not null" json:"upvotes"`
	Downvotes     int     `gorm:"default:0;not null" json:"downvotes"`
	AverageRating float64 `gorm:"default:0;not null" json:"average_rating"`
	ReviewCount   int     `gorm:"default:0;not null" json:"review_count"`

	VerificationStatus VerificationStatus `gorm:"type:varchar(20);default:'pending';not null;index" json:"verification_status"`
	VerificationDate   *time.Time         `json:"verification_date"`
	VerifiedBy         *uint              `json:"verified_by"`
	VerificationNotes  string             `gorm:"type:text" json:"verification_notes"`
	IsVerified         bool               `gorm:"default:false" json:"is_verified"`

	Score     int       `gorm:"default:0;index" json:"score"` // hot rank
	Views     int       `gorm:"default:0" json:"views"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
