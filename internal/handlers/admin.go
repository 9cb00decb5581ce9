package handlers

import (
	"net/http"

	"groupfinder/internal/services"
	"groupfinder/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler serves the moderation endpoints. Every route is mounted
// behind middleware.AdminRequired.
type AdminHandler struct {
	reports    *services.ReportService
	aggregator *services.Aggregator
	users      *services.UserService
	log        *zap.Logger
}

func NewAdminHandler(reports *services.ReportService, aggregator *services.Aggregator, users *services.UserService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{reports: reports, aggregator: aggregator, users: users, log: log}
}

// ListReports handles GET /api/admin/reports?status=
func (h *AdminHandler) ListReports(c *gin.Context) {
	limit, _ := utils.ClampPage(utils.StringToInt(c.Query("limit")), 0, 50, 200)
	reports, err := h.reports.List(c.Request.Context(), c.Query("status"), limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

type resolveRequest struct {
	Status string `json:"status"`
}

// ResolveReport handles POST /api/admin/reports/:id/resolve
func (h *AdminHandler) ResolveReport(c *gin.Context) {
	admin := currentUser(c)
	reportID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, services.ErrInvalidStatus)
		return
	}

	report, err := h.reports.Resolve(c.Request.Context(), reportID, admin.ID, req.Status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "report": report})
}

// Recount handles POST /api/admin/groups/:id/recount and rebuilds the vote
// and rating caches from their fact tables.
func (h *AdminHandler) Recount(c *gin.Context) {
	groupID, ok := idParam(c, "id")
	if !ok {
		return
	}

	votes, err := h.aggregator.RecountVotes(c.Request.Context(), groupID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	avg, count, err := h.aggregator.RecomputeRating(c.Request.Context(), groupID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info("group counters rebuilt", zap.Uint("group_id", groupID),
		zap.Int("upvotes", votes.Upvotes), zap.Int("downvotes", votes.Downvotes), zap.Int("reviews", count))

	c.JSON(http.StatusOK, gin.H{
		"upvotes":        votes.Upvotes,
		"downvotes":      votes.Downvotes,
		"average_rating": avg,
		"review_count":   count,
	})
}

type punishRequest struct {
	Status int `json:"status"` // 0: active, 1: muted, 2: banned
	Days   int `json:"days"`
}

// PunishUser handles POST /api/admin/users/:id/punish
func (h *AdminHandler) PunishUser(c *gin.Context) {
	admin := currentUser(c)
	userID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req punishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, services.ErrInvalidStatus)
		return
	}
	if userID == admin.ID {
		respondError(c, h.log, services.ErrForbidden)
		return
	}

	user, err := h.users.Punish(c.Request.Context(), userID, req.Status, req.Days)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info("user punished", zap.Uint("admin_id", admin.ID), zap.Uint("user_id", userID),
		zap.Int("status", req.Status), zap.Int("days", req.Days))
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}
