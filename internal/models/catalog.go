package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogEntry holds the columns shared by categories and models.
type CatalogEntry struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	PromptCount *int64    `gorm:"-" json:"promptCount,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (e *CatalogEntry) BeforeCreate(*gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

func (e *CatalogEntry) Entry() *CatalogEntry { return e }

type Category struct {
	CatalogEntry
}

// AIModel is the generative model a prompt targets. It is called "model" on the wire.
type AIModel struct {
	CatalogEntry
}

func (AIModel) TableName() string { return "ai_models" }

type CatalogEntryRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=50"`
	Description string `json:"description" binding:"required,min=5,max=500"`
}

type CatalogEntryUpdateRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=2,max=50"`
	Description *string `json:"description" binding:"omitempty,min=5,max=500"`
}
