package handlers

import (
	"fmt"
	"html/template"
	"math"
	"net/http"
	"strings"
	"time"

	"groupfinder/internal/middleware"
	"groupfinder/internal/models"
	"groupfinder/internal/services"
	"groupfinder/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	groupsPerPage  = 30
	descriptionTTL = 10 * time.Minute
)

type GroupHandler struct {
	groups       *services.GroupService
	aggregator   *services.Aggregator
	verification *services.VerificationService
	siteURL      string
	log          *zap.Logger
}

func NewGroupHandler(groups *services.GroupService, aggregator *services.Aggregator, verification *services.VerificationService, siteURL string, log *zap.Logger) *GroupHandler {
	return &GroupHandler{
		groups:       groups,
		aggregator:   aggregator,
		verification: verification,
		siteURL:      strings.TrimSuffix(siteURL, "/"),
		log:          log,
	}
}

func filterFromQuery(c *gin.Context) services.GroupFilter {
	return services.GroupFilter{
		CategorySlug: c.Query("category"),
		Tag:          c.Query("tag"),
		Query:        strings.TrimSpace(c.Query("q")),
		Status:       models.VerificationStatus(c.Query("status")),
		VerifiedOnly: c.Query("verified") == "1" || c.Query("verified") == "true",
		Sort:         c.DefaultQuery("sort", "hot"),
		Limit:        utils.StringToInt(c.Query("limit")),
		Offset:       utils.StringToInt(c.Query("offset")),
	}
}

// Index renders the directory home page.
func (h *GroupHandler) Index(c *gin.Context) {
	page := utils.StringToInt(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}

	f := filterFromQuery(c)
	if f.Status != "" && !f.Status.Valid() {
		f.Status = ""
	}
	f.Limit = groupsPerPage
	f.Offset = (page - 1) * groupsPerPage

	groups, total, err := h.groups.List(c.Request.Context(), f)
	if err != nil {
		h.log.Error("failed to list groups", zap.Error(err))
		RenderError(c, http.StatusInternalServerError, "Could not load groups")
		return
	}
	categories, err := h.groups.Categories(c.Request.Context())
	if err != nil {
		h.log.Warn("failed to load categories", zap.Error(err))
	}

	totalPages := int(math.Ceil(float64(total) / float64(groupsPerPage)))
	if totalPages == 0 {
		totalPages = 1
	}

	Render(c, http.StatusOK, "group/list.html", gin.H{
		"Title":       "Discover Facebook groups",
		"Groups":      groups,
		"Categories":  categories,
		"Filter":      f,
		"CurrentPage": page,
		"TotalPages":  totalPages,
		"FullURL":     h.siteURL + c.Request.URL.RequestURI(),
	})
}

// Detail renders /g/:gid
func (h *GroupHandler) Detail(c *gin.Context) {
	ctx := c.Request.Context()
	group, err := h.groups.GetByGid(ctx, c.Param("gid"))
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			RenderError(c, http.StatusNotFound, "Group not found")
			return
		}
		h.log.Error("failed to load group", zap.String("gid", c.Param("gid")), zap.Error(err))
		RenderError(c, http.StatusInternalServerError, "Could not load group")
		return
	}

	h.groups.IncrementViews(ctx, group.ID)

	reviews, _, err := h.aggregator.ListReviews(ctx, group.ID, 50, 0)
	if err != nil {
		h.log.Warn("failed to load reviews", zap.Uint("group_id", group.ID), zap.Error(err))
	}
	history, err := h.verification.History(ctx, group.ID)
	if err != nil {
		h.log.Warn("failed to load verification history", zap.Uint("group_id", group.ID), zap.Error(err))
	}

	var myVote models.VoteType
	if user := middleware.CurrentUser(c); user != nil {
		myVote, _ = h.aggregator.UserVote(ctx, group.ID, user.ID)
	}

	Render(c, http.StatusOK, "group/detail.html", gin.H{
		"Title":           group.Name,
		"Group":           group,
		"DescriptionHTML": h.description(group),
		"Reviews":         reviews,
		"History":         history,
		"MyVote":          myVote,
		"FullURL":         fmt.Sprintf("%s/g/%s", h.siteURL, group.Gid),
	})
}

// description renders a group's markdown once per cache lifetime.
func (h *GroupHandler) description(group *models.Group) template.HTML {
	key := utils.GroupCacheKey(group.ID)
	if cached, ok := utils.GetCache().Get(key).(template.HTML); ok {
		return cached
	}
	rendered := utils.RenderMarkdown(group.Description)
	utils.GetCache().Set(key, rendered, descriptionTTL)
	return rendered
}

// List handles GET /api/groups
func (h *GroupHandler) List(c *gin.Context) {
	f := filterFromQuery(c)
	if f.Status != "" && !f.Status.Valid() {
		respondError(c, h.log, services.ErrInvalidStatus)
		return
	}

	groups, total, err := h.groups.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups, "total": total})
}

// Get handles GET /api/groups/:id
func (h *GroupHandler) Get(c *gin.Context) {
	groupID, ok := idParam(c, "id")
	if !ok {
		return
	}
	group, err := h.groups.Get(c.Request.Context(), groupID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"group": group})
}

type submitGroupRequest struct {
	services.SubmitGroupInput
	Captcha string `json:"captcha"`
}

// Submit handles POST /api/groups. Session callers must answer the submit
// captcha; token callers are exempt.
func (h *GroupHandler) Submit(c *gin.Context) {
	user := currentUser(c)

	var req submitGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, services.ErrInvalidInput)
		return
	}
	if !c.GetBool(middleware.TokenAuthKey) && !checkCaptcha(c, captchaSubmitKey, req.Captcha) {
		badRequest(c, "invalid_captcha", "Wrong captcha answer")
		return
	}

	group, err := h.groups.Submit(c.Request.Context(), user, req.SubmitGroupInput)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info("group submitted", zap.Uint("group_id", group.ID), zap.Uint("user_id", user.ID))
	c.JSON(http.StatusCreated, gin.H{"group": group})
}

// Save handles POST /api/groups/:id/save
func (h *GroupHandler) Save(c *gin.Context) {
	user := currentUser(c)
	groupID, ok := idParam(c, "id")
	if !ok {
		return
	}

	saved, err := h.groups.ToggleSave(c.Request.Context(), user.ID, groupID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": saved})
}

// Saved handles GET /api/saved
func (h *GroupHandler) Saved(c *gin.Context) {
	user := currentUser(c)
	groups, err := h.groups.SavedGroups(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// Categories handles GET /api/categories
func (h *GroupHandler) Categories(c *gin.Context) {
	categories, err := h.groups.Categories(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}
