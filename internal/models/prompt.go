package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Prompt is the votable entity. UpVotes and DownVotes are a denormalized
// count of its Vote rows and are only ever changed by the vote engine.
type Prompt struct {
	ID          string         `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"type:text;not null" json:"description"`
	ImageURL    string         `gorm:"column:image_url;not null" json:"imageUrl"`
	Tags        pq.StringArray `gorm:"type:text[];not null;default:'{}'" json:"tags"`
	UpVotes     int            `gorm:"not null;default:0;check:up_votes >= 0" json:"upVotes"`
	DownVotes   int            `gorm:"not null;default:0;check:down_votes >= 0" json:"downVotes"`

	UserID     string       `gorm:"type:uuid;not null;index" json:"userId"`
	User       *UserSummary `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CategoryID string       `gorm:"type:uuid;not null;index" json:"categoryId"`
	Category   *Category    `gorm:"constraint:OnDelete:RESTRICT" json:"category,omitempty"`
	ModelID    string       `gorm:"type:uuid;not null;index" json:"modelId"`
	Model      *AIModel     `gorm:"foreignKey:ModelID;constraint:OnDelete:RESTRICT" json:"model,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *Prompt) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Tags == nil {
		p.Tags = pq.StringArray{}
	}
	return nil
}

// PromptWithVote decorates a prompt with the caller's vote (1, -1 or null).
type PromptWithVote struct {
	Prompt
	UserVote *int `json:"userVote"`
}

type CreatePromptRequest struct {
	Title       string   `json:"title" binding:"required,min=3,max=100"`
	Description string   `json:"description" binding:"required,min=10,max=2000"`
	ImageURL    string   `json:"imageUrl" binding:"required,url"`
	CategoryID  string   `json:"categoryId" binding:"required"`
	ModelID     string   `json:"modelId" binding:"required"`
	Tags        []string `json:"tags" binding:"omitempty,max=10,dive,min=1,max=20"`
}

type UpdatePromptRequest struct {
	Title       *string  `json:"title" binding:"omitempty,min=3,max=100"`
	Description *string  `json:"description" binding:"omitempty,min=10,max=2000"`
	ImageURL    *string  `json:"imageUrl" binding:"omitempty,url"`
	CategoryID  *string  `json:"categoryId"`
	ModelID     *string  `json:"modelId"`
	Tags        []string `json:"tags" binding:"omitempty,max=10,dive,min=1,max=20"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type PromptPage struct {
	Prompts    []PromptWithVote `json:"prompts"`
	Pagination Pagination       `json:"pagination"`
}
