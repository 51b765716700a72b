package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/prompt-board/backend/internal/auth"
	"github.com/emilythestrangee/prompt-board/backend/internal/models"
)

const (
	userIDKey  = "user_id"
	userKey    = "user"
	adminIDKey = "admin_id"
)

// UserLoader resolves a user id from a token to the stored account.
type UserLoader func(ctx context.Context, id string) (*models.User, error)

// AdminLoader resolves an admin id from a token to the stored account.
type AdminLoader func(ctx context.Context, id string) (*models.Admin, error)

func GormUserLoader(db *gorm.DB) UserLoader {
	return func(ctx context.Context, id string) (*models.User, error) {
		var user models.User
		if err := db.WithContext(ctx).Where("id = ?", id).Take(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
}

func GormAdminLoader(db *gorm.DB) AdminLoader {
	return func(ctx context.Context, id string) (*models.Admin, error) {
		var admin models.Admin
		if err := db.WithContext(ctx).Where("id = ?", id).Take(&admin).Error; err != nil {
			return nil, err
		}
		return &admin, nil
	}
}

type Auth struct {
	tokens *auth.Tokens
	users  UserLoader
	admins AdminLoader
}

func NewAuth(tokens *auth.Tokens, users UserLoader, admins AdminLoader) *Auth {
	return &Auth{tokens: tokens, users: users, admins: admins}
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// resolveUser returns the account behind the request's bearer token along
// with the status and message to reject it with.
func (a *Auth) resolveUser(c *gin.Context) (*models.User, int, string) {
	token := bearerToken(c)
	if token == "" {
		return nil, http.StatusUnauthorized, "Not authorized, no token"
	}

	userID, err := a.tokens.ParseUser(token)
	if err != nil {
		return nil, http.StatusUnauthorized, "Not authorized, token failed"
	}

	user, err := a.users(c.Request.Context(), userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, http.StatusUnauthorized, "User not found"
	}
	if err != nil {
		return nil, http.StatusInternalServerError, "Internal server error"
	}

	if !user.Accessible() {
		return nil, http.StatusForbidden, "Account is not accessible"
	}
	return user, 0, ""
}

// Authenticate rejects requests without a valid user token.
func (a *Auth) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, status, message := a.resolveUser(c)
		if user == nil {
			abort(c, status, message)
			return
		}
		SetUser(c, user)
		c.Next()
	}
}

// OptionalAuthenticate attaches the user when a valid token is present and
// lets anonymous requests through otherwise.
func (a *Auth) OptionalAuthenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if bearerToken(c) != "" {
			if user, _, _ := a.resolveUser(c); user != nil {
				SetUser(c, user)
			}
		}
		c.Next()
	}
}

// AuthenticateAdmin rejects requests without a valid admin token.
func (a *Auth) AuthenticateAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abort(c, http.StatusUnauthorized, "Not authorized, no token")
			return
		}

		adminID, err := a.tokens.ParseAdmin(token)
		if err != nil {
			abort(c, http.StatusUnauthorized, "Not authorized as admin")
			return
		}

		if _, err := a.admins(c.Request.Context(), adminID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				abort(c, http.StatusUnauthorized, "Admin not found")
				return
			}
			abort(c, http.StatusInternalServerError, "Internal server error")
			return
		}

		c.Set(adminIDKey, adminID)
		c.Next()
	}
}

// SetUser marks the request as made by user.
func SetUser(c *gin.Context, user *models.User) {
	c.Set(userIDKey, user.ID)
	c.Set(userKey, user)
}

// UserID returns the authenticated user's id, or "" for anonymous requests.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// CurrentUser returns the authenticated user loaded by Authenticate.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

func AdminID(c *gin.Context) string {
	return c.GetString(adminIDKey)
}
