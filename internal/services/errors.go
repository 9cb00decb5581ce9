package services

import (
	"errors"
)

// Validation errors carry a machine readable code, see Code.
var (
	ErrInvalidVoteType = errors.New("invalid_vote_type")
	ErrInvalidRating   = errors.New("invalid_rating")
	ErrInvalidStatus   = errors.New("invalid_status")
	ErrInvalidPoints   = errors.New("invalid_points")
	ErrEmptyReason     = errors.New("empty_reason")
	ErrInvalidInput    = errors.New("invalid_input")
)

var (
	ErrGroupNotFound  = errors.New("group not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrBadgeNotFound  = errors.New("badge not found")
	ErrReviewNotFound = errors.New("review not found")
	ErrReportNotFound = errors.New("report not found")

	ErrForbidden           = errors.New("forbidden")
	ErrBadgeAlreadyAwarded = errors.New("badge already awarded")
	ErrBadgeNotHeld        = errors.New("badge not held by user")
	ErrDuplicateGroup      = errors.New("group already listed")
	ErrDuplicateUser       = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrUserRestricted      = errors.New("user is muted or banned")
)

var validationErrors = []error{
	ErrInvalidVoteType,
	ErrInvalidRating,
	ErrInvalidStatus,
	ErrInvalidPoints,
	ErrEmptyReason,
	ErrInvalidInput,
}

// IsValidation reports whether err was caused by bad input.
func IsValidation(err error) bool {
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

// Code returns the reason string clients switch on.
func Code(err error) string {
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return v.Error()
		}
	}
	switch {
	case errors.Is(err, ErrGroupNotFound), errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrBadgeNotFound), errors.Is(err, ErrReviewNotFound),
		errors.Is(err, ErrReportNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrUserRestricted):
		return "forbidden"
	case errors.Is(err, ErrBadgeAlreadyAwarded), errors.Is(err, ErrDuplicateGroup), errors.Is(err, ErrDuplicateUser):
		return "conflict"
	case errors.Is(err, ErrInvalidCredentials):
		return "unauthorized"
	case errors.Is(err, ErrBadgeNotHeld):
		return "not_found"
	}
	return "internal_error"
}
