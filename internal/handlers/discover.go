package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/emilythestrangee/prompt-board/backend/internal/apperr"
	"github.com/emilythestrangee/prompt-board/backend/internal/middleware"
	"github.com/emilythestrangee/prompt-board/backend/internal/models"
)

// DiscoverHandler serves the public feed: prompts of public accounts in good standing.
type DiscoverHandler struct {
	db    *gorm.DB
	votes VoteEngine
}

func NewDiscoverHandler(db *gorm.DB, votes VoteEngine) *DiscoverHandler {
	return &DiscoverHandler{db: db, votes: votes}
}

func (h *DiscoverHandler) visible(c *gin.Context) *gorm.DB {
	return h.db.WithContext(c.Request.Context()).
		Model(&models.Prompt{}).
		Joins("JOIN users ON users.id = prompts.user_id").
		Where("users.is_private = ? AND users.is_deleted = ? AND users.is_banned = ? AND users.is_suspended = ?",
			false, false, false, false)
}

// GetDiscoverPrompts handles GET /discover?categoryId&modelId&tag
func (h *DiscoverHandler) GetDiscoverPrompts(c *gin.Context) {
	query, err := filterByID(c, h.visible(c), "categoryId", "prompts.category_id")
	if err != nil {
		respondError(c, err)
		return
	}
	query, err = filterByID(c, query, "modelId", "prompts.model_id")
	if err != nil {
		respondError(c, err)
		return
	}
	if tag := c.Query("tag"); tag != "" {
		query = query.Where("prompts.tags @> ?", pq.StringArray{tag})
	}

	result, err := page(c, h.votes, query)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Discover prompts retrieved successfully", result)
}

// GetDiscoverPrompt handles GET /discover/:id
func (h *DiscoverHandler) GetDiscoverPrompt(c *gin.Context) {
	ctx := c.Request.Context()

	prompt, err := findPrompt(ctx, h.db, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	var owner models.User
	if err := h.db.WithContext(ctx).Where("id = ?", prompt.UserID).Take(&owner).Error; err != nil {
		respondError(c, apperr.FromDB(err, "Prompt not found"))
		return
	}
	if owner.IsPrivate || !owner.Accessible() {
		respondError(c, apperr.New(apperr.Forbidden, "Prompt not available"))
		return
	}

	decorated, err := decorate(ctx, h.votes, middleware.UserID(c), []models.Prompt{*prompt})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Prompt retrieved successfully", gin.H{"prompt": decorated[0]})
}
