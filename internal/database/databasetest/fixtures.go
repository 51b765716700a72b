package databasetest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/emilythestrangee/prompt-board/backend/internal/models"
)

// CreateUser inserts an active public user.
func CreateUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	name := "user-" + uuid.NewString()[:8]
	user := &models.User{
		Email:    name + "@example.com",
		Password: "not-a-real-hash",
		Name:     &name,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

// CreatePrompt inserts a prompt owned by owner, along with a fresh category and model.
func CreatePrompt(t *testing.T, db *gorm.DB, owner *models.User, tags ...string) *models.Prompt {
	t.Helper()

	suffix := uuid.NewString()[:8]
	category := &models.Category{CatalogEntry: models.CatalogEntry{Name: "category-" + suffix, Description: "test category"}}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create category: %v", err)
	}
	model := &models.AIModel{CatalogEntry: models.CatalogEntry{Name: "model-" + suffix, Description: "test model"}}
	if err := db.Create(model).Error; err != nil {
		t.Fatalf("failed to create model: %v", err)
	}

	prompt := &models.Prompt{
		Title:       fmt.Sprintf("Prompt %s", suffix),
		Description: "A prompt used by the test suite",
		ImageURL:    "https://images.example.com/" + suffix + ".png",
		Tags:        pq.StringArray(tags),
		UserID:      owner.ID,
		CategoryID:  category.ID,
		ModelID:     model.ID,
	}
	if err := db.Create(prompt).Error; err != nil {
		t.Fatalf("failed to create prompt: %v", err)
	}
	return prompt
}
