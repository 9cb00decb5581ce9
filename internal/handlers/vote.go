package handlers

import (
	"net/http"

	"groupfinder/internal/models"
	"groupfinder/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type VoteHandler struct {
	aggregator *services.Aggregator
	log        *zap.Logger
}

func NewVoteHandler(aggregator *services.Aggregator, log *zap.Logger) *VoteHandler {
	return &VoteHandler{aggregator: aggregator, log: log}
}

type voteRequest struct {
	VoteType models.VoteType `json:"voteType"`
}

// Vote handles POST /api/groups/:id/vote
func (h *VoteHandler) Vote(c *gin.Context) {
	user := currentUser(c)
	groupID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.VoteType.Valid() {
		respondError(c, h.log, services.ErrInvalidVoteType)
		return
	}

	result, err := h.aggregator.CastVote(c.Request.Context(), groupID, user.ID, req.VoteType)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"upvotes":   result.Upvotes,
		"downvotes": result.Downvotes,
		"status":    result.Outcome,
		"message":   result.Outcome.Message(),
	})
}

// MyVote handles GET /api/groups/:id/vote
func (h *VoteHandler) MyVote(c *gin.Context) {
	user := currentUser(c)
	groupID, ok := idParam(c, "id")
	if !ok {
		return
	}
	vt, err := h.aggregator.UserVote(c.Request.Context(), groupID, user.ID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"voteType": vt})
}
