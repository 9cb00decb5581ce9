package handlers

import (
	"net/http"

	"groupfinder/internal/services"
	"groupfinder/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ReputationHandler struct {
	reputation *services.ReputationService
	log        *zap.Logger
}

func NewReputationHandler(reputation *services.ReputationService, log *zap.Logger) *ReputationHandler {
	return &ReputationHandler{reputation: reputation, log: log}
}

type awardRequest struct {
	UserID     uint   `json:"userId"`
	Points     int    `json:"points"`
	Reason     string `json:"reason"`
	SourceType string `json:"sourceType"`
	SourceID   *uint  `json:"sourceId"`
}

type badgeRequest struct {
	UserID  uint `json:"userId"`
	BadgeID uint `json:"badgeId"`
}

// Award handles POST /api/reputation (admin)
func (h *ReputationHandler) Award(c *gin.Context) {
	admin := currentUser(c)

	var req awardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, services.ErrInvalidInput)
		return
	}

	entry, err := h.reputation.AwardPoints(c.Request.Context(), req.UserID, req.Points, req.Reason, req.SourceType, req.SourceID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	summary, err := h.reputation.Summary(c.Request.Context(), req.UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info("reputation awarded",
		zap.Uint("admin_id", admin.ID),
		zap.Uint("user_id", req.UserID),
		zap.Int("points", req.Points),
		zap.String("source_type", entry.SourceType))

	c.JSON(http.StatusCreated, gin.H{"success": true, "entry": entry, "reputation": summary})
}

// Get handles GET /api/reputation?userId=&limit=&offset=. Without userId it
// reports on the caller.
func (h *ReputationHandler) Get(c *gin.Context) {
	userID, ok := utils.ParseID(c.Query("userId"))
	if !ok {
		if c.Query("userId") != "" {
			respondError(c, h.log, services.ErrUserNotFound)
			return
		}
		user := currentUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required", "code": "unauthorized"})
			return
		}
		userID = user.ID
	}

	summary, err := h.reputation.Summary(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	limit := utils.StringToInt(c.Query("limit"))
	offset := utils.StringToInt(c.Query("offset"))
	history, total, err := h.reputation.History(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reputation": summary, "history": history, "total": total})
}

// Recalculate handles POST /api/admin/users/:id/recalculate
func (h *ReputationHandler) Recalculate(c *gin.Context) {
	userID, ok := idParam(c, "id")
	if !ok {
		return
	}
	summary, err := h.reputation.Recalculate(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reputation": summary})
}

// Badges handles GET /api/badges
func (h *ReputationHandler) Badges(c *gin.Context) {
	badges, err := h.reputation.Badges(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"badges": badges})
}

// AwardBadge handles POST /api/user-badges (admin)
func (h *ReputationHandler) AwardBadge(c *gin.Context) {
	var req badgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, services.ErrInvalidInput)
		return
	}

	ub, err := h.reputation.AwardBadge(c.Request.Context(), req.UserID, req.BadgeID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "user_badge": ub})
}

// RevokeBadge handles DELETE /api/user-badges (admin)
func (h *ReputationHandler) RevokeBadge(c *gin.Context) {
	var req badgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, services.ErrInvalidInput)
		return
	}

	if err := h.reputation.RevokeBadge(c.Request.Context(), req.UserID, req.BadgeID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
