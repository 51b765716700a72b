package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/prompt-board/backend/internal/apperr"
	"github.com/emilythestrangee/prompt-board/backend/internal/middleware"
	"github.com/emilythestrangee/prompt-board/backend/internal/models"
)

type UserHandler struct {
	db    *gorm.DB
	votes VoteEngine
}

func NewUserHandler(db *gorm.DB, votes VoteEngine) *UserHandler {
	return &UserHandler{db: db, votes: votes}
}

type userProfile struct {
	models.UserSummary
	Bio         *string `json:"bio"`
	PromptCount int64   `json:"promptCount"`
	UpVotes     int64   `json:"upVotes"`
}

// visibleUser loads the account at :id. Private accounts are only visible to their owner.
func (h *UserHandler) visibleUser(c *gin.Context) (*models.User, error) {
	id := c.Param("id")
	if !validID(id) {
		return nil, apperr.New(apperr.NotFound, "User not found")
	}

	var user models.User
	if err := h.db.WithContext(c.Request.Context()).Where("id = ?", id).Take(&user).Error; err != nil {
		return nil, apperr.FromDB(err, "User not found")
	}
	if !user.Accessible() {
		return nil, apperr.New(apperr.NotFound, "User not found")
	}
	if user.IsPrivate && user.ID != middleware.UserID(c) {
		return nil, apperr.New(apperr.Forbidden, "This profile is private")
	}
	return &user, nil
}

// GetUserProfile returns a user's public profile with totals over their prompts.
func (h *UserHandler) GetUserProfile(c *gin.Context) {
	user, err := h.visibleUser(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var totals struct {
		PromptCount int64
		UpVotes     int64
	}
	err = h.db.WithContext(c.Request.Context()).
		Model(&models.Prompt{}).
		Select("COUNT(*) AS prompt_count, COALESCE(SUM(up_votes), 0) AS up_votes").
		Where("user_id = ?", user.ID).
		Scan(&totals).Error
	if err != nil {
		respondError(c, apperr.FromDB(err, ""))
		return
	}

	profile := userProfile{
		UserSummary: models.UserSummary{
			ID:              user.ID,
			Email:           user.Email,
			Name:            user.Name,
			ProfileImageURL: user.ProfileImageURL,
		},
		Bio:         user.Bio,
		PromptCount: totals.PromptCount,
		UpVotes:     totals.UpVotes,
	}
	respond(c, http.StatusOK, "", gin.H{"user": profile})
}

// GetUserPrompts returns one page of a user's prompts, newest first.
func (h *UserHandler) GetUserPrompts(c *gin.Context) {
	user, err := h.visibleUser(c)
	if err != nil {
		respondError(c, err)
		return
	}

	query := h.db.WithContext(c.Request.Context()).
		Model(&models.Prompt{}).
		Where("prompts.user_id = ?", user.ID)

	result, err := page(c, h.votes, query)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Prompts retrieved successfully", result)
}
