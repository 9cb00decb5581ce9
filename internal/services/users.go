package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"groupfinder/internal/auth"
	"groupfinder/internal/models"
	"groupfinder/internal/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	minPasswordLength    = 6
	PointsProfileUpdate  = 5
	ReasonProfileUpdated = "Completed profile"
)

// ProfileInput is the editable part of an account. Empty fields are left
// untouched except Bio, which may be cleared.
type ProfileInput struct {
	Username    string
	Avatar      string
	Bio         string
	OldPassword string
	NewPassword string
}

type UserService struct {
	db         *gorm.DB
	log        *zap.Logger
	reputation *ReputationService
}

func NewUserService(db *gorm.DB, log *zap.Logger, reputation *ReputationService) *UserService {
	return &UserService{db: db, log: log, reputation: reputation}
}

// Register creates an account named after the local part of email.
func (s *UserService) Register(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return nil, ErrInvalidInput
	}
	if len(password) < minPasswordLength {
		return nil, ErrInvalidInput
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrDuplicateUser
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := models.User{
		Username: strings.SplitN(email, "@", 2)[0],
		Email:    email,
		Password: hash,
		Avatar:   utils.GetRandomEmoji(),
		Role:     models.RoleUser,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Authenticate checks credentials. Banned accounts cannot sign in.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(user.Password, password) {
		return nil, ErrInvalidCredentials
	}
	if user.IsBanned(time.Now()) {
		return nil, ErrUserRestricted
	}
	return &user, nil
}

func (s *UserService) Get(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return &user, err
}

// UpdateProfile saves profile changes. Filling in a bio for the first time
// earns a one-off reputation award.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in ProfileInput) (*models.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if name := strings.TrimSpace(in.Username); name != "" && name != user.Username {
		if utf8.RuneCountInString(name) > 50 {
			return nil, ErrInvalidInput
		}
		updates["username"] = name
	}
	if in.Avatar != "" {
		updates["avatar"] = in.Avatar
	}
	bio := utils.SanitizePlain(in.Bio)
	if utf8.RuneCountInString(bio) > 200 {
		return nil, ErrInvalidInput
	}
	if bio != user.Bio {
		updates["bio"] = bio
	}

	if in.OldPassword != "" || in.NewPassword != "" {
		if !auth.CheckPassword(user.Password, in.OldPassword) {
			return nil, ErrInvalidCredentials
		}
		if len(in.NewPassword) < minPasswordLength {
			return nil, ErrInvalidInput
		}
		hash, err := auth.HashPassword(in.NewPassword)
		if err != nil {
			return nil, err
		}
		updates["password"] = hash
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
			return nil, err
		}
	}

	if bio != "" && s.reputation != nil {
		if err := s.awardProfileOnce(ctx, userID); err != nil {
			s.log.Warn("failed to award profile reputation", zap.Uint("user_id", userID), zap.Error(err))
		}
	}
	return s.Get(ctx, userID)
}

func (s *UserService) awardProfileOnce(ctx context.Context, userID uint) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.ReputationHistory{}).
		Where("user_id = ? AND source_type = ?", userID, models.SourceProfileUpdate).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, err := s.reputation.AwardPoints(ctx, userID, PointsProfileUpdate, ReasonProfileUpdated, models.SourceProfileUpdate, nil)
	return err
}

// Punish mutes or bans a user for days (0 means indefinitely). Status 0
// lifts any punishment.
func (s *UserService) Punish(ctx context.Context, userID uint, status, days int) (*models.User, error) {
	if status < models.UserStatusActive || status > models.UserStatusBanned || days < 0 {
		return nil, ErrInvalidStatus
	}
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"status": status}
	if status != models.UserStatusActive && days > 0 {
		expires := time.Now().AddDate(0, 0, days)
		updates["punish_expires"] = &expires
	} else {
		updates["punish_expires"] = nil
	}
	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

// ensureCanPost loads userID and rejects muted or banned accounts.
func ensureCanPost(db *gorm.DB, userID uint) error {
	var user models.User
	err := db.Select("id", "status", "punish_expires").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	if !user.CanPost(time.Now()) {
		return ErrUserRestricted
	}
	return nil
}
