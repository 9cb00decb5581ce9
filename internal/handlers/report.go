package handlers

import (
	"net/http"

	"groupfinder/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ReportHandler struct {
	reports *services.ReportService
	log     *zap.Logger
}

func NewReportHandler(reports *services.ReportService, log *zap.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, log: log}
}

type reportRequest struct {
	Reason string `json:"reason"`
}

// Create handles POST /api/groups/:id/report
func (h *ReportHandler) Create(c *gin.Context) {
	user := currentUser(c)
	groupID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, services.ErrEmptyReason)
		return
	}

	report, err := h.reports.Create(c.Request.Context(), user.ID, groupID, req.Reason)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "report_id": report.ID})
}
