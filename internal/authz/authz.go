// Package authz is the one place that decides who may perform privileged
// operations. Handlers and services never compare roles or emails themselves.
package authz

import (
	"strings"
	"time"

	"groupfinder/internal/models"
)

type Capability string

const (
	// Moderate covers verification changes, report handling and ledger repair.
	Moderate Capability = "moderate"
	// ManageReputation covers manual point and badge awards.
	ManageReputation Capability = "manage_reputation"
	// DeleteAnyReview lets a moderator remove someone else's review.
	DeleteAnyReview Capability = "delete_any_review"
)

type Authorizer interface {
	Can(user *models.User, capability Capability) bool
}

// RoleAuthorizer grants every capability to users with the admin role and,
// when AdminEmailDomain is set, to accounts on that domain.
type RoleAuthorizer struct {
	AdminEmailDomain string
}

func NewRoleAuthorizer(adminEmailDomain string) *RoleAuthorizer {
	return &RoleAuthorizer{AdminEmailDomain: strings.ToLower(strings.TrimPrefix(adminEmailDomain, "@"))}
}

func (a *RoleAuthorizer) Can(user *models.User, capability Capability) bool {
	if user == nil || user.IsBanned(time.Now()) {
		return false
	}
	return a.IsAdmin(user)
}

func (a *RoleAuthorizer) IsAdmin(user *models.User) bool {
	if user == nil {
		return false
	}
	if user.Role == models.RoleAdmin {
		return true
	}
	if a.AdminEmailDomain == "" {
		return false
	}
	return strings.HasSuffix(strings.ToLower(user.Email), "@"+a.AdminEmailDomain)
}
