package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"groupfinder/internal/models"
	"groupfinder/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxTagsPerGroup = 8
	categoryTTL     = 10 * time.Minute
)

// SubmitGroupInput is what a user fills in when listing a group.
type SubmitGroupInput struct {
	Name        string   `json:"name"`
	URL         string   `json:"url"`
	Description string   `json:"description"`
	CategoryID  uint     `json:"category_id"`
	Tags        []string `json:"tags"`
	Privacy     string   `json:"privacy"`
	MemberCount int      `json:"member_count"`
}

// GroupFilter drives the directory listing.
type GroupFilter struct {
	CategorySlug string
	Tag          string
	Query        string
	Status       models.VerificationStatus
	VerifiedOnly bool
	Sort         string // hot, new, top, rating
	Limit        int
	Offset       int
}

type GroupService struct {
	db         *gorm.DB
	log        *zap.Logger
	reputation *ReputationService
	notifier   *NotificationService
	ranking    Rescorer
}

func NewGroupService(db *gorm.DB, log *zap.Logger, reputation *ReputationService, notifier *NotificationService, ranking Rescorer) *GroupService {
	return &GroupService{db: db, log: log, reputation: reputation, notifier: notifier, ranking: ranking}
}

// Submit lists a new group in pending status.
func (s *GroupService) Submit(ctx context.Context, user *models.User, in SubmitGroupInput) (*models.Group, error) {
	if !user.CanPost(time.Now()) {
		return nil, ErrUserRestricted
	}

	in.Name = strings.TrimSpace(in.Name)
	in.URL = strings.TrimSpace(in.URL)
	if in.Name == "" || utf8.RuneCountInString(in.Name) > 120 || !utils.IsFacebookGroupURL(in.URL) {
		return nil, ErrInvalidInput
	}
	if in.MemberCount < 0 {
		return nil, ErrInvalidInput
	}
	if in.Privacy != models.PrivacyPrivate {
		in.Privacy = models.PrivacyPublic
	}
	if in.CategoryID == 0 {
		in.CategoryID = 1
	}

	group := models.Group{
		Gid:                uuid.NewString()[:8],
		Name:               in.Name,
		URL:                in.URL,
		Description:        strings.TrimSpace(in.Description),
		CategoryID:         in.CategoryID,
		Privacy:            in.Privacy,
		MemberCount:        in.MemberCount,
		SubmittedBy:        user.ID,
		VerificationStatus: models.VerificationPending,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cat int64
		if err := tx.Model(&models.Category{}).Where("id = ?", in.CategoryID).Count(&cat).Error; err != nil {
			return err
		}
		if cat == 0 {
			return ErrInvalidInput
		}

		var dup int64
		if err := tx.Model(&models.Group{}).Where("url = ?", in.URL).Count(&dup).Error; err != nil {
			return err
		}
		if dup > 0 {
			return ErrDuplicateGroup
		}

		tags, err := resolveTags(tx, in.Tags)
		if err != nil {
			return err
		}
		group.Tags = tags
		return tx.Create(&group).Error
	})
	if err != nil {
		return nil, err
	}

	if s.reputation != nil {
		if _, err := s.reputation.AwardCapped(ctx, user.ID, PointsGroupSubmission, ReasonGroupSubmitted, models.SourceGroupSubmission, &group.ID); err != nil {
			s.log.Warn("failed to award submission reputation", zap.Uint("user_id", user.ID), zap.Error(err))
		}
	}
	if s.notifier != nil {
		msg := fmt.Sprintf("New group \"%s\" is waiting for verification.", group.Name)
		if err := s.notifier.NotifyAdmins(ctx, &user.ID, models.NotificationTypeSystem, msg); err != nil {
			s.log.Warn("failed to notify admins of submission", zap.Uint("group_id", group.ID), zap.Error(err))
		}
	}
	if s.ranking != nil {
		s.ranking.ScheduleUpdate(group.ID)
	}
	return &group, nil
}

func resolveTags(tx *gorm.DB, names []string) ([]models.Tag, error) {
	seen := make(map[string]bool)
	tags := make([]models.Tag, 0, len(names))
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" || seen[name] || utf8.RuneCountInString(name) > 50 {
			continue
		}
		seen[name] = true
		if len(tags) == maxTagsPerGroup {
			break
		}

		var tag models.Tag
		if err := tx.Where(models.Tag{Name: name}).FirstOrCreate(&tag).Error; err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func (s *GroupService) Get(ctx context.Context, groupID uint) (*models.Group, error) {
	var group models.Group
	err := s.db.WithContext(ctx).
		Preload("Category").Preload("Tags").Preload("Submitter").
		First(&group, groupID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrGroupNotFound
	}
	return &group, err
}

func (s *GroupService) GetByGid(ctx context.Context, gid string) (*models.Group, error) {
	var group models.Group
	err := s.db.WithContext(ctx).
		Preload("Category").Preload("Tags").Preload("Submitter").
		Where("gid = ?", gid).
		First(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrGroupNotFound
	}
	return &group, err
}

// List returns a page of groups and the total number of matches.
func (s *GroupService) List(ctx context.Context, f GroupFilter) ([]models.Group, int64, error) {
	f.Limit, f.Offset = utils.ClampPage(f.Limit, f.Offset, 30, 100)

	q := s.db.WithContext(ctx).Model(&models.Group{})
	if f.CategorySlug != "" {
		q = q.Where("category_id IN (?)", s.db.Model(&models.Category{}).Select("id").Where("slug = ?", f.CategorySlug))
	}
	if f.Tag != "" {
		q = q.Where("id IN (?)", s.db.Table("group_tags").
			Select("group_tags.group_id").
			Joins("JOIN tags ON tags.id = group_tags.tag_id").
			Where("tags.name = ?", strings.ToLower(f.Tag)))
	}
	if f.Query != "" {
		pattern := "%" + strings.ToLower(f.Query) + "%"
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)", pattern, pattern)
	}
	switch {
	case f.VerifiedOnly:
		q = q.Where("verification_status = ?", models.VerificationVerified)
	case f.Status != "":
		q = q.Where("verification_status = ?", f.Status)
	default:
		q = q.Where("verification_status NOT IN ?", []models.VerificationStatus{models.VerificationRejected, models.VerificationFlagged})
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "score DESC, created_at DESC"
	switch f.Sort {
	case "new":
		order = "created_at DESC"
	case "top":
		order = "upvotes - downvotes DESC, created_at DESC"
	case "rating":
		order = "average_rating DESC, review_count DESC"
	}

	var groups []models.Group
	err := q.Preload("Category").Preload("Tags").
		Order(order).
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&groups).Error
	return groups, total, err
}

func (s *GroupService) IncrementViews(ctx context.Context, groupID uint) {
	if err := s.db.WithContext(ctx).Model(&models.Group{}).Where("id = ?", groupID).
		UpdateColumn("views", gorm.Expr("views + ?", 1)).Error; err != nil {
		s.log.Debug("failed to count view", zap.Uint("group_id", groupID), zap.Error(err))
	}
}

// ToggleSave bookmarks or un-bookmarks a group and reports the new state.
func (s *GroupService) ToggleSave(ctx context.Context, userID, groupID uint) (bool, error) {
	saved := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := groupExists(tx, groupID); err != nil {
			return err
		}
		res := tx.Where("user_id = ? AND group_id = ?", userID, groupID).Delete(&models.SavedGroup{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		saved = true
		return tx.Create(&models.SavedGroup{UserID: userID, GroupID: groupID}).Error
	})
	if err != nil {
		return false, err
	}
	if s.ranking != nil {
		s.ranking.ScheduleUpdate(groupID)
	}
	return saved, nil
}

func (s *GroupService) SavedGroups(ctx context.Context, userID uint) ([]models.Group, error) {
	var saved []models.SavedGroup
	if err := s.db.WithContext(ctx).Preload("Group").Preload("Group.Category").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(100).
		Find(&saved).Error; err != nil {
		return nil, err
	}
	groups := make([]models.Group, 0, len(saved))
	for _, sg := range saved {
		groups = append(groups, sg.Group)
	}
	return groups, nil
}

// Categories is cached in the process-wide LRU.
func (s *GroupService) Categories(ctx context.Context) ([]models.Category, error) {
	if cached, ok := utils.GetCache().Get(utils.CacheKeyCategories).([]models.Category); ok {
		return cached, nil
	}
	var categories []models.Category
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	utils.GetCache().Set(utils.CacheKeyCategories, categories, categoryTTL)
	return categories, nil
}
