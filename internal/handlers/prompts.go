package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/emilythestrangee/prompt-board/backend/internal/apperr"
	"github.com/emilythestrangee/prompt-board/backend/internal/middleware"
	"github.com/emilythestrangee/prompt-board/backend/internal/models"
)

type PromptHandler struct {
	db    *gorm.DB
	votes VoteEngine
}

func NewPromptHandler(db *gorm.DB, votes VoteEngine) *PromptHandler {
	return &PromptHandler{db: db, votes: votes}
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("User").Preload("Category").Preload("Model")
}

// findPrompt loads a prompt with its owner, category and model.
func findPrompt(ctx context.Context, db *gorm.DB, id string) (*models.Prompt, error) {
	if !validID(id) {
		return nil, apperr.New(apperr.NotFound, "Prompt not found")
	}
	var prompt models.Prompt
	if err := withRelations(db.WithContext(ctx)).Where("id = ?", id).Take(&prompt).Error; err != nil {
		return nil, apperr.FromDB(err, "Prompt not found")
	}
	return &prompt, nil
}

// decorate attaches the caller's vote to each prompt. Anonymous callers get null everywhere.
func decorate(ctx context.Context, engine VoteEngine, userID string, prompts []models.Prompt) ([]models.PromptWithVote, error) {
	out := make([]models.PromptWithVote, len(prompts))
	for i := range prompts {
		out[i].Prompt = prompts[i]
	}
	if userID == "" || len(prompts) == 0 || engine == nil {
		return out, nil
	}

	ids := make([]string, len(prompts))
	for i, p := range prompts {
		ids[i] = p.ID
	}
	userVotes, err := engine.UserVotes(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		if v, ok := userVotes[out[i].ID]; ok {
			out[i].UserVote = &v
		}
	}
	return out, nil
}

// page runs query for one page of prompts, newest first, and decorates the result.
func page(c *gin.Context, engine VoteEngine, query *gorm.DB) (*models.PromptPage, error) {
	pageNum, limit := pageParams(c)

	var total int64
	if err := query.Session(&gorm.Session{}).Model(&models.Prompt{}).Count(&total).Error; err != nil {
		return nil, apperr.FromDB(err, "")
	}

	var prompts []models.Prompt
	err := withRelations(query.Session(&gorm.Session{})).
		Order("prompts.created_at DESC").
		Offset((pageNum - 1) * limit).
		Limit(limit).
		Find(&prompts).Error
	if err != nil {
		return nil, apperr.FromDB(err, "")
	}

	decorated, err := decorate(c.Request.Context(), engine, middleware.UserID(c), prompts)
	if err != nil {
		return nil, err
	}

	return &models.PromptPage{
		Prompts:    decorated,
		Pagination: newPagination(pageNum, limit, total),
	}, nil
}

// checkCatalogRefs verifies the category and model a prompt points at exist.
func checkCatalogRefs(ctx context.Context, db *gorm.DB, categoryID, modelID *string) error {
	if categoryID != nil {
		if !validID(*categoryID) {
			return apperr.New(apperr.NotFound, "Category not found")
		}
		if err := db.WithContext(ctx).Select("id").Where("id = ?", *categoryID).Take(&models.Category{}).Error; err != nil {
			return apperr.FromDB(err, "Category not found")
		}
	}
	if modelID != nil {
		if !validID(*modelID) {
			return apperr.New(apperr.NotFound, "Model not found")
		}
		if err := db.WithContext(ctx).Select("id").Where("id = ?", *modelID).Take(&models.AIModel{}).Error; err != nil {
			return apperr.FromDB(err, "Model not found")
		}
	}
	return nil
}

// filterByID narrows query to rows whose column matches the id in query parameter param.
func filterByID(c *gin.Context, query *gorm.DB, param, column string) (*gorm.DB, error) {
	id := c.Query(param)
	if id == "" {
		return query, nil
	}
	if !validID(id) {
		return nil, apperr.InvalidArgumentf("Invalid %s", param)
	}
	return query.Where(column+" = ?", id), nil
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// GetPrompts handles GET /prompts
func (h *PromptHandler) GetPrompts(c *gin.Context) {
	query := h.db.WithContext(c.Request.Context()).Model(&models.Prompt{})
	query, err := filterByID(c, query, "categoryId", "prompts.category_id")
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := page(c, h.votes, query)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Prompts retrieved successfully", result)
}

// GetMyPrompts handles GET /prompts/my
func (h *PromptHandler) GetMyPrompts(c *gin.Context) {
	query := h.db.WithContext(c.Request.Context()).
		Model(&models.Prompt{}).
		Where("prompts.user_id = ?", middleware.UserID(c))

	result, err := page(c, h.votes, query)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Prompts retrieved successfully", result)
}

// GetPrompt handles GET /prompts/:id
func (h *PromptHandler) GetPrompt(c *gin.Context) {
	prompt, err := findPrompt(c.Request.Context(), h.db, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Prompt retrieved successfully", gin.H{"prompt": prompt})
}

// CreatePrompt handles POST /prompts
func (h *PromptHandler) CreatePrompt(c *gin.Context) {
	var req models.CreatePromptRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := checkCatalogRefs(ctx, h.db, &req.CategoryID, &req.ModelID); err != nil {
		respondError(c, err)
		return
	}

	prompt := models.Prompt{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		ImageURL:    req.ImageURL,
		Tags:        cleanTags(req.Tags),
		UserID:      middleware.UserID(c),
		CategoryID:  req.CategoryID,
		ModelID:     req.ModelID,
	}
	if err := h.db.WithContext(ctx).Omit("User", "Category", "Model").Create(&prompt).Error; err != nil {
		respondError(c, apperr.FromDB(err, ""))
		return
	}

	created, err := findPrompt(ctx, h.db, prompt.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Prompt created successfully", gin.H{"prompt": created})
}

// ownedPrompt loads the prompt at :id and checks the caller owns it.
func (h *PromptHandler) ownedPrompt(c *gin.Context, verb string) (*models.Prompt, error) {
	prompt, err := findPrompt(c.Request.Context(), h.db, c.Param("id"))
	if err != nil {
		return nil, err
	}
	if prompt.UserID != middleware.UserID(c) {
		return nil, apperr.New(apperr.Forbidden, "Not authorized to "+verb+" this prompt")
	}
	return prompt, nil
}

// UpdatePrompt handles PUT /prompts/:id. Vote counters are never writable here.
func (h *PromptHandler) UpdatePrompt(c *gin.Context) {
	var req models.UpdatePromptRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	prompt, err := h.ownedPrompt(c, "update")
	if err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := checkCatalogRefs(ctx, h.db, req.CategoryID, req.ModelID); err != nil {
		respondError(c, err)
		return
	}

	updates := map[string]any{}
	if req.Title != nil {
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	if req.ImageURL != nil {
		updates["image_url"] = *req.ImageURL
	}
	if req.CategoryID != nil {
		updates["category_id"] = *req.CategoryID
	}
	if req.ModelID != nil {
		updates["model_id"] = *req.ModelID
	}
	if req.Tags != nil {
		updates["tags"] = pq.StringArray(cleanTags(req.Tags))
	}

	if len(updates) > 0 {
		err := h.db.WithContext(ctx).Model(&models.Prompt{}).Where("id = ?", prompt.ID).Updates(updates).Error
		if err != nil {
			respondError(c, apperr.FromDB(err, "Prompt not found"))
			return
		}
	}

	updated, err := findPrompt(ctx, h.db, prompt.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Prompt updated successfully", gin.H{"prompt": updated})
}

// DeletePrompt handles DELETE /prompts/:id. Votes on the prompt go with it.
func (h *PromptHandler) DeletePrompt(c *gin.Context) {
	prompt, err := h.ownedPrompt(c, "delete")
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.db.WithContext(c.Request.Context()).Delete(&models.Prompt{}, "id = ?", prompt.ID).Error; err != nil {
		respondError(c, apperr.FromDB(err, "Prompt not found"))
		return
	}
	respond(c, http.StatusOK, "Prompt deleted successfully", nil)
}
