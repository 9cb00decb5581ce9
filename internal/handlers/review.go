package handlers

import (
	"net/http"

	"groupfinder/internal/authz"
	"groupfinder/internal/services"
	"groupfinder/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ReviewHandler struct {
	aggregator *services.Aggregator
	authorizer authz.Authorizer
	log        *zap.Logger
}

func NewReviewHandler(aggregator *services.Aggregator, authorizer authz.Authorizer, log *zap.Logger) *ReviewHandler {
	return &ReviewHandler{aggregator: aggregator, authorizer: authorizer, log: log}
}

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// Submit handles POST /api/groups/:id/review
func (h *ReviewHandler) Submit(c *gin.Context) {
	user := currentUser(c)
	groupID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, services.ErrInvalidRating)
		return
	}

	result, err := h.aggregator.SubmitReview(c.Request.Context(), groupID, user.ID, req.Rating, req.Comment)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"review_id":      result.Review.ID,
		"average_rating": result.AverageRating,
		"review_count":   result.ReviewCount,
	})
}

// Delete handles DELETE /api/reviews/:id
func (h *ReviewHandler) Delete(c *gin.Context) {
	user := currentUser(c)
	reviewID, ok := idParam(c, "id")
	if !ok {
		return
	}

	allowAny := h.authorizer.Can(user, authz.DeleteAnyReview)
	result, err := h.aggregator.DeleteReview(c.Request.Context(), reviewID, user.ID, allowAny)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"average_rating": result.AverageRating,
		"review_count":   result.ReviewCount,
	})
}

// List handles GET /api/groups/:id/reviews
func (h *ReviewHandler) List(c *gin.Context) {
	groupID, ok := idParam(c, "id")
	if !ok {
		return
	}
	limit := utils.StringToInt(c.Query("limit"))
	offset := utils.StringToInt(c.Query("offset"))

	reviews, total, err := h.aggregator.ListReviews(c.Request.Context(), groupID, limit, offset)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews, "total": total})
}
