package database

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/emilythestrangee/prompt-board/backend/internal/models"
)

// Service represents a service that interacts with a database.
type Service interface {
	// Health returns a map of health status information.
	// The keys and values in the map are service-specific.
	Health() map[string]string

	// Close terminates the database connection.
	// It returns an error if the connection cannot be closed.
	Close() error
	GetDB() *gorm.DB
}

type service struct {
	db *gorm.DB
}

// New opens the connection pool, runs migrations and returns the service.
func New(dsn string, level slog.Level) (Service, error) {
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogLevel(level),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	slog.Info("database connected")

	if err := Migrate(db); err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("error getting database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &service{db: db}, nil
}

// Migrate creates or updates every table the API uses.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Admin{},
		&models.Category{},
		&models.AIModel{},
		&models.Prompt{},
		&models.Vote{},
	)
	if err != nil {
		return fmt.Errorf("error migrating database: %w", err)
	}

	// Backs the containment (@>) tag filter on the discover feed.
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_prompts_tags ON prompts USING GIN (tags)").Error; err != nil {
		return fmt.Errorf("error creating tag index: %w", err)
	}
	if err := db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_name_lower ON categories (LOWER(name))").Error; err != nil {
		return fmt.Errorf("error creating category name index: %w", err)
	}
	if err := db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_ai_models_name_lower ON ai_models (LOWER(name))").Error; err != nil {
		return fmt.Errorf("error creating model name index: %w", err)
	}

	slog.Info("database migrations completed")
	return nil
}

func gormLogLevel(level slog.Level) logger.LogLevel {
	switch {
	case level <= slog.LevelDebug:
		return logger.Info
	case level <= slog.LevelWarn:
		return logger.Warn
	default:
		return logger.Error
	}
}

// Wrap adapts an already opened *gorm.DB, used by tests.
func Wrap(db *gorm.DB) Service {
	return &service{db: db}
}

func (s *service) GetDB() *gorm.DB {
	return s.db
}

// Health checks the health of the database connection by pinging the database.
func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stats := make(map[string]string)

	sqlDB, err := s.db.DB()
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db error: %v", err)
		return stats
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"

	dbStats := sqlDB.Stats()
	stats["open_connections"] = fmt.Sprintf("%d", dbStats.OpenConnections)
	stats["in_use"] = fmt.Sprintf("%d", dbStats.InUse)
	stats["idle"] = fmt.Sprintf("%d", dbStats.Idle)

	return stats
}

// Close closes the database connection.
func (s *service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	slog.Info("disconnected from database")
	return sqlDB.Close()
}
