package handlers

import (
	"net/http"

	"groupfinder/internal/models"
	"groupfinder/internal/services"
	"groupfinder/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type VerificationHandler struct {
	verification *services.VerificationService
	log          *zap.Logger
}

func NewVerificationHandler(verification *services.VerificationService, log *zap.Logger) *VerificationHandler {
	return &VerificationHandler{verification: verification, log: log}
}

type verificationRequest struct {
	Status models.VerificationStatus `json:"verification_status"`
	Notes  string                    `json:"notes"`
}

// Set handles PUT /api/groups/:id/verification (admin)
func (h *VerificationHandler) Set(c *gin.Context) {
	admin := currentUser(c)
	groupID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req verificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, services.ErrInvalidStatus)
		return
	}

	result, err := h.verification.SetVerification(c.Request.Context(), groupID, admin.ID, req.Status, req.Notes)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info("verification status set",
		zap.Uint("group_id", groupID),
		zap.Uint("admin_id", admin.ID),
		zap.String("from", string(result.Previous)),
		zap.String("to", string(result.State.VerificationStatus)))

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      result.Message(),
		"verification": result.State,
	})
}

// Get handles GET /api/groups/:id/verification
func (h *VerificationHandler) Get(c *gin.Context) {
	groupID, ok := idParam(c, "id")
	if !ok {
		return
	}

	state, err := h.verification.Current(c.Request.Context(), groupID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	history, err := h.verification.History(c.Request.Context(), groupID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verification": state, "history": history})
}

// Queue handles GET /api/admin/queue?status=
func (h *VerificationHandler) Queue(c *gin.Context) {
	status := models.VerificationStatus(c.DefaultQuery("status", string(models.VerificationPending)))
	limit := utils.StringToInt(c.Query("limit"))
	offset := utils.StringToInt(c.Query("offset"))

	groups, total, err := h.verification.Queue(c.Request.Context(), status, limit, offset)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups, "total": total, "status": status})
}

// Console renders the moderation page /admin/verification
func (h *VerificationHandler) Console(c *gin.Context) {
	status := models.VerificationStatus(c.DefaultQuery("status", string(models.VerificationPending)))
	if !status.Valid() {
		status = models.VerificationPending
	}

	groups, total, err := h.verification.Queue(c.Request.Context(), status, 100, 0)
	if err != nil {
		h.log.Error("failed to load verification queue", zap.Error(err))
		RenderError(c, http.StatusInternalServerError, "Could not load the verification queue")
		return
	}

	Render(c, http.StatusOK, "admin/verification.html", gin.H{
		"Title":    "Verification queue",
		"Groups":   groups,
		"Total":    total,
		"Status":   status,
		"Statuses": models.VerificationStatuses,
	})
}
