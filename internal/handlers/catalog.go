package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/prompt-board/backend/internal/apperr"
	"github.com/emilythestrangee/prompt-board/backend/internal/cache"
	"github.com/emilythestrangee/prompt-board/backend/internal/models"
)

const catalogTTL = 10 * time.Minute

// catalogRecord is a pointer to a catalog model (*models.Category or *models.AIModel).
type catalogRecord[T any] interface {
	*T
	Entry() *models.CatalogEntry
}

// catalogKind describes one catalog table.
type catalogKind struct {
	label        string // "Category"
	plural       string // "Categories"
	promptColumn string
	cacheKey     string
}

var (
	categoryKind = catalogKind{label: "Category", plural: "Categories", promptColumn: "category_id", cacheKey: "catalog:categories"}
	modelKind    = catalogKind{label: "Model", plural: "Models", promptColumn: "model_id", cacheKey: "catalog:models"}
)

// CatalogHandler serves categories and models. Lists are cached and
// invalidated on every admin write.
type CatalogHandler struct {
	db    *gorm.DB
	cache cache.Cache
}

func NewCatalogHandler(db *gorm.DB, c cache.Cache) *CatalogHandler {
	return &CatalogHandler{db: db, cache: c}
}

func (h *CatalogHandler) ListCategories(c *gin.Context) {
	listCatalog[models.Category](c, h, categoryKind, "categories")
}

func (h *CatalogHandler) GetCategory(c *gin.Context) {
	getCatalog[models.Category](c, h, categoryKind, "category")
}

func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	createCatalog[models.Category](c, h, categoryKind, "category")
}

func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	updateCatalog[models.Category](c, h, categoryKind, "category")
}

func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	deleteCatalog[models.Category](c, h, categoryKind)
}

func (h *CatalogHandler) ListModels(c *gin.Context) {
	listCatalog[models.AIModel](c, h, modelKind, "models")
}

func (h *CatalogHandler) GetModel(c *gin.Context) {
	getCatalog[models.AIModel](c, h, modelKind, "model")
}

func (h *CatalogHandler) CreateModel(c *gin.Context) {
	createCatalog[models.AIModel](c, h, modelKind, "model")
}

func (h *CatalogHandler) UpdateModel(c *gin.Context) {
	updateCatalog[models.AIModel](c, h, modelKind, "model")
}

func (h *CatalogHandler) DeleteModel(c *gin.Context) {
	deleteCatalog[models.AIModel](c, h, modelKind)
}

func (h *CatalogHandler) promptCount(ctx context.Context, kind catalogKind, id string) (int64, error) {
	var n int64
	err := h.db.WithContext(ctx).Model(&models.Prompt{}).Where(kind.promptColumn+" = ?", id).Count(&n).Error
	return n, err
}

func findCatalog[T any, P catalogRecord[T]](ctx context.Context, db *gorm.DB, kind catalogKind, id string) (*T, error) {
	if !validID(id) {
		return nil, apperr.New(apperr.NotFound, kind.label+" not found")
	}
	var rec T
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error; err != nil {
		return nil, apperr.FromDB(err, kind.label+" not found")
	}
	return &rec, nil
}

// nameTaken reports whether another entry already uses name, ignoring case.
func nameTaken[T any](ctx context.Context, db *gorm.DB, name, exceptID string) (bool, error) {
	query := db.WithContext(ctx).Model(new(T)).Where("LOWER(name) = LOWER(?)", name)
	if exceptID != "" {
		query = query.Where("id <> ?", exceptID)
	}
	var n int64
	if err := query.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func listCatalog[T any, P catalogRecord[T]](c *gin.Context, h *CatalogHandler, kind catalogKind, key string) {
	ctx := c.Request.Context()
	items, err := cache.Load(ctx, h.cache, kind.cacheKey, catalogTTL, func(ctx context.Context) ([]T, error) {
		var items []T
		if err := h.db.WithContext(ctx).Order("name ASC").Find(&items).Error; err != nil {
			return nil, apperr.FromDB(err, "")
		}
		return items, nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, kind.plural+" retrieved successfully", gin.H{key: items})
}

func getCatalog[T any, P catalogRecord[T]](c *gin.Context, h *CatalogHandler, kind catalogKind, key string) {
	ctx := c.Request.Context()
	rec, err := findCatalog[T, P](ctx, h.db, kind, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	entry := P(rec).Entry()
	n, err := h.promptCount(ctx, kind, entry.ID)
	if err != nil {
		respondError(c, apperr.FromDB(err, ""))
		return
	}
	entry.PromptCount = &n

	respond(c, http.StatusOK, kind.label+" retrieved successfully", gin.H{key: rec})
}

func createCatalog[T any, P catalogRecord[T]](c *gin.Context, h *CatalogHandler, kind catalogKind, key string) {
	var req models.CatalogEntryRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	name := strings.TrimSpace(req.Name)
	duplicate := apperr.New(apperr.Conflict, kind.label+" with this name already exists")

	taken, err := nameTaken[T](ctx, h.db, name, "")
	if err != nil {
		respondError(c, apperr.FromDB(err, ""))
		return
	}
	if taken {
		respondError(c, duplicate)
		return
	}

	rec := new(T)
	entry := P(rec).Entry()
	entry.Name = name
	entry.Description = strings.TrimSpace(req.Description)

	if err := h.db.WithContext(ctx).Create(rec).Error; err != nil {
		// Lost a race with a concurrent create of the same name.
		if err = apperr.FromDB(err, ""); errors.Is(err, apperr.ErrConflict) {
			err = duplicate
		}
		respondError(c, err)
		return
	}

	cache.Invalidate(ctx, h.cache, kind.cacheKey)
	respond(c, http.StatusCreated, kind.label+" created successfully", gin.H{key: rec})
}

func updateCatalog[T any, P catalogRecord[T]](c *gin.Context, h *CatalogHandler, kind catalogKind, key string) {
	var req models.CatalogEntryUpdateRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	rec, err := findCatalog[T, P](ctx, h.db, kind, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	entry := P(rec).Entry()
	duplicate := apperr.New(apperr.Conflict, kind.label+" with this name already exists")

	updates := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if !strings.EqualFold(name, entry.Name) {
			taken, err := nameTaken[T](ctx, h.db, name, entry.ID)
			if err != nil {
				respondError(c, apperr.FromDB(err, ""))
				return
			}
			if taken {
				respondError(c, duplicate)
				return
			}
		}
		updates["name"] = name
	}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}

	if len(updates) > 0 {
		if err := h.db.WithContext(ctx).Model(new(T)).Where("id = ?", entry.ID).Updates(updates).Error; err != nil {
			if err = apperr.FromDB(err, kind.label+" not found"); errors.Is(err, apperr.ErrConflict) {
				err = duplicate
			}
			respondError(c, err)
			return
		}
		cache.Invalidate(ctx, h.cache, kind.cacheKey)
	}

	updated, err := findCatalog[T, P](ctx, h.db, kind, entry.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, kind.label+" updated successfully", gin.H{key: updated})
}

// deleteCatalog refuses to delete an entry that prompts still reference.
func deleteCatalog[T any, P catalogRecord[T]](c *gin.Context, h *CatalogHandler, kind catalogKind) {
	ctx := c.Request.Context()
	rec, err := findCatalog[T, P](ctx, h.db, kind, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	id := P(rec).Entry().ID

	n, err := h.promptCount(ctx, kind, id)
	if err != nil {
		respondError(c, apperr.FromDB(err, ""))
		return
	}
	if n > 0 {
		respondError(c, apperr.New(apperr.Conflict, "Cannot delete "+strings.ToLower(kind.label)+" with associated prompts"))
		return
	}

	if err := h.db.WithContext(ctx).Where("id = ?", id).Delete(new(T)).Error; err != nil {
		respondError(c, apperr.FromDB(err, kind.label+" not found"))
		return
	}

	cache.Invalidate(ctx, h.cache, kind.cacheKey)
	respond(c, http.StatusOK, kind.label+" deleted successfully", nil)
}
