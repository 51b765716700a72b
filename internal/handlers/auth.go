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

type AuthHandler struct {
	db     *gorm.DB
	tokens *auth.Tokens
	google GoogleVerifier
}

func NewAuthHandler(db *gorm.DB, tokens *auth.Tokens, google GoogleVerifier) *AuthHandler {
	return &AuthHandler{db: db, tokens: tokens, google: google}
}

func (h *AuthHandler) authResponse(c *gin.Context, status int, message string, user *models.User) {
	token, err := h.tokens.IssueUser(user.ID)
	if err != nil {
		respondError(c, apperr.Wrap(apperr.Internal, "Failed to generate token", err))
		return
	}
	respond(c, status, message, models.AuthResponse{Token: token, User: *user})
}

// Register handles user registration
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(c, apperr.Wrap(apperr.Internal, "Failed to hash password", err))
		return
	}

	user := models.User{
		Email:    strings.ToLower(req.Email),
		Password: hashed,
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = &name
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		err = apperr.FromDB(err, "")
		if errors.Is(err, apperr.ErrConflict) {
			err = apperr.New(apperr.Conflict, "User with this email already exists")
		}
		respondError(c, err)
		return
	}

	h.authResponse(c, http.StatusCreated, "User registered successfully", &user)
}

// Login handles user login
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	invalid := apperr.New(apperr.Unauthorized, "Invalid email or password")

	var user models.User
	err := h.db.WithContext(c.Request.Context()).
		Where("email = ?", strings.ToLower(req.Email)).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, invalid)
		return
	}
	if err != nil {
		respondError(c, apperr.FromDB(err, ""))
		return
	}

	if !user.Accessible() {
		respondError(c, apperr.New(apperr.Forbidden, "Account is not accessible"))
		return
	}
	if !auth.CheckPassword(user.Password, req.Password) {
		respondError(c, invalid)
		return
	}

	h.authResponse(c, http.StatusOK, "Login successful", &user)
}

// GoogleLogin signs in with a Google ID token, creating the account on first use.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	var req models.GoogleAuthRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	googleUser, err := h.google.Verify(ctx, req.Token)
	if err != nil {
		respondError(c, apperr.Wrap(apperr.Unauthorized, "Invalid Google token", err))
		return
	}

	email := strings.ToLower(googleUser.Email)

	var user models.User
	err = h.db.WithContext(ctx).
		Where("google_id = ? OR email = ?", googleUser.Sub, email).
		Order("google_id IS NULL").
		Take(&user).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			Email:    email,
			GoogleID: &googleUser.Sub,
		}
		if googleUser.Name != "" {
			user.Name = &googleUser.Name
		}
		if googleUser.Picture != "" {
			user.ProfileImageURL = &googleUser.Picture
		}
		if err := h.db.WithContext(ctx).Create(&user).Error; err != nil {
			respondError(c, apperr.FromDB(err, ""))
			return
		}
		h.authResponse(c, http.StatusCreated, "User registered successfully", &user)
		return

	case err != nil:
		respondError(c, apperr.FromDB(err, ""))
		return
	}

	if !user.Accessible() {
		respondError(c, apperr.New(apperr.Forbidden, "Account is not accessible"))
		return
	}

	updates := map[string]any{}
	if user.GoogleID == nil {
		user.GoogleID = &googleUser.Sub
		updates["google_id"] = googleUser.Sub
	}
	if user.ProfileImageURL == nil && googleUser.Picture != "" {
		user.ProfileImageURL = &googleUser.Picture
		updates["profile_image_url"] = googleUser.Picture
	}
	if len(updates) > 0 {
		if err := h.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			respondError(c, apperr.FromDB(err, ""))
			return
		}
	}

	h.authResponse(c, http.StatusOK, "Login successful", &user)
}

// GetMe returns the authenticated user.
func (h *AuthHandler) GetMe(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, apperr.New(apperr.Unauthorized, "Not authorized"))
		return
	}
	respond(c, http.StatusOK, "", gin.H{"user": user})
}

// UpdateMe changes the authenticated user's name, bio or password.
func (h *AuthHandler) UpdateMe(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, apperr.New(apperr.Unauthorized, "Not authorized"))
		return
	}

	var req models.UpdateProfileRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	updates := map[string]any{}
	if name := strings.TrimSpace(req.Name); name != "" {
		updates["name"] = name
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}

	if req.NewPassword != "" {
		if req.OldPassword == "" {
			respondError(c, apperr.New(apperr.InvalidArgument, "Current password is required to change password"))
			return
		}
		if !auth.CheckPassword(user.Password, req.OldPassword) {
			respondError(c, apperr.New(apperr.Unauthorized, "Invalid current password"))
			return
		}
		hashed, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			respondError(c, apperr.Wrap(apperr.Internal, "Failed to hash password", err))
			return
		}
		updates["password"] = hashed
	}

	if len(updates) > 0 {
		db := h.db.WithContext(c.Request.Context())
		if err := db.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			respondError(c, apperr.FromDB(err, "User not found"))
			return
		}
		if err := db.Where("id = ?", user.ID).Take(user).Error; err != nil {
			respondError(c, apperr.FromDB(err, "User not found"))
			return
		}
	}

	respond(c, http.StatusOK, "Profile updated successfully", gin.H{"user": user})
}
