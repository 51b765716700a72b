package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/emilythestrangee/prompt-board/backend/internal/database"
	"github.com/emilythestrangee/prompt-board/backend/internal/handlers"
	"github.com/emilythestrangee/prompt-board/backend/internal/middleware"
)

type Server struct {
	db          database.Service
	handler     *handlers.Handler
	auth        *middleware.Auth
	corsOrigins []string
	logger      *slog.Logger
}

type Options struct {
	CORSOrigins []string
	Logger      *slog.Logger
}

func New(db database.Service, handler *handlers.Handler, auth *middleware.Auth, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		db:          db,
		handler:     handler,
		auth:        auth,
		corsOrigins: opts.CORSOrigins,
		logger:      logger,
	}
}

// HTTPServer wraps the router in an *http.Server listening on port.
func (s *Server) HTTPServer(port string) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%s", port),
		Handler:      otelhttp.NewHandler(s.RegisterRoutes(), "prompt-board-api"),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(s.corsOrigins) == 0 || (len(s.corsOrigins) == 1 && s.corsOrigins[0] == "*") {
		// Echo the request origin; "*" is not allowed together with credentials.
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = s.corsOrigins
	}
	return cfg
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(cors.New(s.corsConfig()))

	r.GET("/health", s.healthHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := s.handler
	api := r.Group("/api/v1")
	{
		api.GET("/health", s.healthHandler)

		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/register", h.Auth.Register)
			authRoutes.POST("/login", h.Auth.Login)
			authRoutes.POST("/google", h.Auth.GoogleLogin)
			authRoutes.GET("/me", s.auth.Authenticate(), h.Auth.GetMe)
			authRoutes.PUT("/me", s.auth.Authenticate(), h.Auth.UpdateMe)
		}

		// Catalog (public reads)
		api.GET("/categories", h.Catalog.ListCategories)
		api.GET("/categories/:id", h.Catalog.GetCategory)
		api.GET("/models", h.Catalog.ListModels)
		api.GET("/models/:id", h.Catalog.GetModel)

		// Feeds (optional auth adds the caller's vote)
		optional := api.Group("", s.auth.OptionalAuthenticate())
		{
			optional.GET("/prompts", h.Prompt.GetPrompts)
			optional.GET("/discover", h.Discover.GetDiscoverPrompts)
			optional.GET("/discover/:id", h.Discover.GetDiscoverPrompt)
			optional.GET("/users/:id", h.User.GetUserProfile)
			optional.GET("/users/:id/prompts", h.User.GetUserPrompts)
		}

		protected := api.Group("", s.auth.Authenticate())
		{
			protected.GET("/prompts/my", h.Prompt.GetMyPrompts)
			protected.POST("/prompts", h.Prompt.CreatePrompt)
			protected.PUT("/prompts/:id", h.Prompt.UpdatePrompt)
			protected.DELETE("/prompts/:id", h.Prompt.DeletePrompt)

			protected.POST("/votes", h.Vote.Vote)
			protected.GET("/votes/:promptId", h.Vote.GetVote)

			protected.POST("/upload/image", h.Upload.UploadImage)
			protected.POST("/upload/images", h.Upload.UploadImages)
			protected.DELETE("/upload/image", h.Upload.DeleteImage)
		}

		api.GET("/prompts/:id", h.Prompt.GetPrompt)

		admin := api.Group("/admin")
		{
			admin.POST("/auth/login", h.Admin.Login)

			adminOnly := admin.Group("", s.auth.AuthenticateAdmin())
			{
				adminOnly.GET("/auth/profile", h.Admin.Profile)

				adminOnly.POST("/categories", h.Catalog.CreateCategory)
				adminOnly.PUT("/categories/:id", h.Catalog.UpdateCategory)
				adminOnly.DELETE("/categories/:id", h.Catalog.DeleteCategory)

				adminOnly.POST("/models", h.Catalog.CreateModel)
				adminOnly.PUT("/models/:id", h.Catalog.UpdateModel)
				adminOnly.DELETE("/models/:id", h.Catalog.DeleteModel)
			}
		}
	}

	return r
}

func (s *Server) healthHandler(c *gin.Context) {
	stats := s.db.Health()
	status := http.StatusOK
	if stats["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"success": status == http.StatusOK, "data": stats})
}
