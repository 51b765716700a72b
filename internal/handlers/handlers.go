package handlers

import (
	"context"

	"gorm.io/gorm"

	"github.com/emilythestrangee/prompt-board/backend/internal/auth"
	"github.com/emilythestrangee/prompt-board/backend/internal/cache"
	"github.com/emilythestrangee/prompt-board/backend/internal/models"
	"github.com/emilythestrangee/prompt-board/backend/internal/storage"
	"github.com/emilythestrangee/prompt-board/backend/internal/votes"
)

// VoteEngine is the vote transition engine as seen by the HTTP layer.
type VoteEngine interface {
	Apply(ctx context.Context, userID, promptID string, value int) (*votes.Result, error)
	UserVote(ctx context.Context, userID, promptID string) (*models.Vote, error)
	UserVotes(ctx context.Context, userID string, promptIDs []string) (map[string]int, error)
}

// GoogleVerifier resolves a Google ID token to the account behind it.
type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (*auth.GoogleUserInfo, error)
}

type Deps struct {
	DB     *gorm.DB
	Tokens *auth.Tokens
	Google GoogleVerifier
	Votes  VoteEngine
	Cache  cache.Cache
	Images storage.ImageStore
}

// Handler combines all handler types
type Handler struct {
	Auth     *AuthHandler
	Admin    *AdminHandler
	Catalog  *CatalogHandler
	Prompt   *PromptHandler
	Discover *DiscoverHandler
	Vote     *VoteHandler
	Upload   *UploadHandler
	User     *UserHandler
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(d Deps) *Handler {
	useJSONFieldNames()

	if d.Cache == nil {
		d.Cache = cache.Nop{}
	}
	if d.Images == nil {
		d.Images = storage.Disabled{}
	}

	return &Handler{
		Auth:     NewAuthHandler(d.DB, d.Tokens, d.Google),
		Admin:    NewAdminHandler(d.DB, d.Tokens),
		Catalog:  NewCatalogHandler(d.DB, d.Cache),
		Prompt:   NewPromptHandler(d.DB, d.Votes),
		Discover: NewDiscoverHandler(d.DB, d.Votes),
		Vote:     NewVoteHandler(d.Votes),
		Upload:   NewUploadHandler(d.Images),
		User:     NewUserHandler(d.DB, d.Votes),
	}
}
