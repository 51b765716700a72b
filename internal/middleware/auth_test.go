package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/emilythestrangee/prompt-board/backend/internal/auth"
	"github.com/emilythestrangee/prompt-board/backend/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestAuth(users map[string]*models.User, admins map[string]*models.Admin) (*Auth, *auth.Tokens) {
	tokens := auth.NewTokens("test-secret", time.Hour)
	userLoader := func(_ context.Context, id string) (*models.User, error) {
		if u, ok := users[id]; ok {
			return u, nil
		}
		return nil, gorm.ErrRecordNotFound
	}
	adminLoader := func(_ context.Context, id string) (*models.Admin, error) {
		if a, ok := admins[id]; ok {
			return a, nil
		}
		return nil, gorm.ErrRecordNotFound
	}
	return NewAuth(tokens, userLoader, adminLoader), tokens
}

func performRequest(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticate(t *testing.T) {
	users := map[string]*models.User{
		"active": {ID: "active"},
		"banned": {ID: "banned", IsBanned: true},
	}
	mw, tokens := newTestAuth(users, nil)

	r := gin.New()
	r.GET("/", mw.Authenticate(), func(c *gin.Context) {
		user, ok := CurrentUser(c)
		require.True(t, ok)
		c.String(http.StatusOK, UserID(c)+":"+user.ID)
	})

	active, err := tokens.IssueUser("active")
	require.NoError(t, err)
	banned, err := tokens.IssueUser("banned")
	require.NoError(t, err)
	missing, err := tokens.IssueUser("missing")
	require.NoError(t, err)
	admin, err := tokens.IssueAdmin("active")
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"valid user", active, http.StatusOK},
		{"no token", "", http.StatusUnauthorized},
		{"garbage token", "garbage", http.StatusUnauthorized},
		{"admin token", admin, http.StatusUnauthorized},
		{"unknown user", missing, http.StatusUnauthorized},
		{"banned user", banned, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(r, tt.token)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "active:active", w.Body.String())
			} else {
				assert.Contains(t, w.Body.String(), `"success":false`)
			}
		})
	}
}

func TestOptionalAuthenticate(t *testing.T) {
	mw, tokens := newTestAuth(map[string]*models.User{"u1": {ID: "u1"}}, nil)

	r := gin.New()
	r.GET("/", mw.OptionalAuthenticate(), func(c *gin.Context) {
		c.String(http.StatusOK, "user=%s", UserID(c))
	})

	token, err := tokens.IssueUser("u1")
	require.NoError(t, err)

	w := performRequest(r, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user=u1", w.Body.String())

	w = performRequest(r, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user=", w.Body.String())

	w = performRequest(r, "garbage")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user=", w.Body.String())
}

func TestAuthenticateAdmin(t *testing.T) {
	mw, tokens := newTestAuth(
		map[string]*models.User{"u1": {ID: "u1"}},
		map[string]*models.Admin{"a1": {ID: "a1"}},
	)

	r := gin.New()
	r.GET("/", mw.AuthenticateAdmin(), func(c *gin.Context) {
		c.String(http.StatusOK, AdminID(c))
	})

	adminToken, err := tokens.IssueAdmin("a1")
	require.NoError(t, err)
	userToken, err := tokens.IssueUser("u1")
	require.NoError(t, err)
	ghostToken, err := tokens.IssueAdmin("ghost")
	require.NoError(t, err)

	w := performRequest(r, adminToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a1", w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, performRequest(r, userToken).Code)
	assert.Equal(t, http.StatusUnauthorized, performRequest(r, ghostToken).Code)
	assert.Equal(t, http.StatusUnauthorized, performRequest(r, "").Code)
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := gin.New()
	r.Use(RequestLogger(logger))
	r.GET("/missing", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	assert.Contains(t, line, `"level":"WARN"`)
	assert.Contains(t, line, `"path":"/missing"`)
	assert.Contains(t, line, `"status":404`)
}
