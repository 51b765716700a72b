package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/prompt-board/backend/internal/middleware"
	"github.com/emilythestrangee/prompt-board/backend/internal/models"
)

type VoteHandler struct {
	engine VoteEngine
}

func NewVoteHandler(engine VoteEngine) *VoteHandler {
	return &VoteHandler{engine: engine}
}

// Vote handles POST /votes. Sending the current vote again removes it.
func (h *VoteHandler) Vote(c *gin.Context) {
	var req models.VoteRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	result, err := h.engine.Apply(c.Request.Context(), middleware.UserID(c), req.PromptID, req.Value)
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, fmt.Sprintf("Vote %s successfully", result.Action), result)
}

// GetVote handles GET /votes/:promptId.
func (h *VoteHandler) GetVote(c *gin.Context) {
	vote, err := h.engine.UserVote(c.Request.Context(), middleware.UserID(c), c.Param("promptId"))
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusOK, "", gin.H{"vote": vote})
}
