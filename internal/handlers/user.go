package handlers

import (
	"net/http"

	"groupfinder/internal/services"
	"groupfinder/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UserHandler struct {
	users      *services.UserService
	reputation *services.ReputationService
	groups     *services.GroupService
	log        *zap.Logger
}

func NewUserHandler(users *services.UserService, reputation *services.ReputationService, groups *services.GroupService, log *zap.Logger) *UserHandler {
	return &UserHandler{users: users, reputation: reputation, groups: groups, log: log}
}

// Reputation renders /dashboard/reputation: level, badges and the ledger.
func (h *UserHandler) Reputation(c *gin.Context) {
	user := currentUser(c)
	ctx := c.Request.Context()

	summary, err := h.reputation.Summary(ctx, user.ID)
	if err != nil {
		h.log.Error("failed to load reputation", zap.Uint("user_id", user.ID), zap.Error(err))
		RenderError(c, http.StatusInternalServerError, "Could not load reputation")
		return
	}
	history, _, err := h.reputation.History(ctx, user.ID, 100, 0)
	if err != nil {
		h.log.Warn("failed to load reputation history", zap.Uint("user_id", user.ID), zap.Error(err))
	}
	badges, err := h.reputation.UserBadges(ctx, user.ID)
	if err != nil {
		h.log.Warn("failed to load badges", zap.Uint("user_id", user.ID), zap.Error(err))
	}
	saved, err := h.groups.SavedGroups(ctx, user.ID)
	if err != nil {
		h.log.Warn("failed to load saved groups", zap.Uint("user_id", user.ID), zap.Error(err))
	}

	Render(c, http.StatusOK, "dashboard/reputation.html", gin.H{
		"Title":      "My reputation",
		"User":       user,
		"Reputation": summary,
		"History":    history,
		"Badges":     badges,
		"Saved":      saved,
		"Thresholds": utils.LevelThresholds,
		"DaysSince":  utils.GetDaysSinceJoined(user.CreatedAt),
	})
}

// Profile renders the public page /u/:id
func (h *UserHandler) Profile(c *gin.Context) {
	userID, ok := utils.ParseID(c.Param("id"))
	if !ok {
		RenderError(c, http.StatusNotFound, "User not found")
		return
	}
	ctx := c.Request.Context()

	user, err := h.users.Get(ctx, userID)
	if err != nil {
		RenderError(c, statusOf(err), "User not found")
		return
	}
	summary, err := h.reputation.Summary(ctx, userID)
	if err != nil {
		h.log.Warn("failed to load reputation", zap.Uint("user_id", userID), zap.Error(err))
	}
	badges, err := h.reputation.UserBadges(ctx, userID)
	if err != nil {
		h.log.Warn("failed to load badges", zap.Uint("user_id", userID), zap.Error(err))
	}

	Render(c, http.StatusOK, "user/public.html", gin.H{
		"Title":      user.Username,
		"User":       user,
		"Reputation": summary,
		"Badges":     badges,
		"DaysSince":  utils.GetDaysSinceJoined(user.CreatedAt),
	})
}

type profileRequest struct {
	Username    string `json:"username"`
	Avatar      string `json:"avatar"`
	Bio         string `json:"bio"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// UpdateProfile handles PUT /api/profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	user := currentUser(c)

	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, services.ErrInvalidInput)
		return
	}

	updated, err := h.users.UpdateProfile(c.Request.Context(), user.ID, services.ProfileInput(req))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": updated})
}
