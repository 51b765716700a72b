package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vote tracks one user's vote on one prompt. A row exists only while the
// vote is active; Value is 1 (up) or -1 (down), never zero.
type Vote struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_votes_user_prompt" json:"userId"`
	PromptID  string    `gorm:"type:uuid;not null;uniqueIndex:idx_votes_user_prompt;index" json:"promptId"`
	Prompt    *Prompt   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Value     int       `gorm:"not null;check:chk_votes_value,value IN (-1, 1)" json:"value"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (v *Vote) BeforeCreate(*gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

type VoteRequest struct {
	PromptID string `json:"promptId" binding:"required"`
	Value    int    `json:"value" binding:"required,oneof=-1 1"`
}
