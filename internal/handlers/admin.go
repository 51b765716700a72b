package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/prompt-board/backend/internal/apperr"
	"github.com/emilythestrangee/prompt-board/backend/internal/auth"
	"github.com/emilythestrangee/prompt-board/backend/internal/middleware"
	"github.com/emilythestrangee/prompt-board/backend/internal/models"
)

type AdminHandler struct {
	db     *gorm.DB
	tokens *auth.Tokens
}

func NewAdminHandler(db *gorm.DB, tokens *auth.Tokens) *AdminHandler {
	return &AdminHandler{db: db, tokens: tokens}
}

// Login handles POST /admin/auth/login
func (h *AdminHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	invalid := apperr.New(apperr.Unauthorized, "Invalid email or password")

	var admin models.Admin
	err := h.db.WithContext(c.Request.Context()).
		Where("email = ?", strings.ToLower(req.Email)).
		Take(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, invalid)
		return
	}
	if err != nil {
		respondError(c, apperr.FromDB(err, ""))
		return
	}
	if !auth.CheckPassword(admin.Password, req.Password) {
		respondError(c, invalid)
		return
	}

	token, err := h.tokens.IssueAdmin(admin.ID)
	if err != nil {
		respondError(c, apperr.Wrap(apperr.Internal, "Failed to generate token", err))
		return
	}
	respond(c, http.StatusOK, "Admin login successful", gin.H{"admin": admin, "token": token})
}

// Profile handles GET /admin/auth/profile
func (h *AdminHandler) Profile(c *gin.Context) {
	var admin models.Admin
	err := h.db.WithContext(c.Request.Context()).Where("id = ?", middleware.AdminID(c)).Take(&admin).Error
	if err != nil {
		respondError(c, apperr.FromDB(err, "Admin not found"))
		return
	}
	respond(c, http.StatusOK, "", gin.H{"admin": admin})
}
