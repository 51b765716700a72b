package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID              string  `gorm:"type:uuid;primaryKey" json:"id"`
	Email           string  `gorm:"uniqueIndex;not null" json:"email"`
	Password        string  `gorm:"not null" json:"-"`
	Name            *string `json:"name"`
	ProfileImageURL *string `gorm:"column:profile_image_url" json:"profileImageUrl"`
	Bio             *string `json:"bio"`

	// OAuth
	GoogleID *string `gorm:"uniqueIndex" json:"-"`

	// Account state
	IsPrivate   bool `gorm:"not null;default:false" json:"isPrivate"`
	IsDeleted   bool `gorm:"not null;default:false" json:"-"`
	IsBanned    bool `gorm:"not null;default:false" json:"-"`
	IsSuspended bool `gorm:"not null;default:false" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Accessible reports whether the account may sign in and act.
func (u *User) Accessible() bool {
	return !u.IsDeleted && !u.IsBanned && !u.IsSuspended
}

// UserSummary is the public projection embedded in prompts.
type UserSummary struct {
	ID              string  `json:"id"`
	Email           string  `json:"email"`
	Name            *string `json:"name"`
	ProfileImageURL *string `gorm:"column:profile_image_url" json:"profileImageUrl"`
}

func (UserSummary) TableName() string { return "users" }

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"omitempty,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type GoogleAuthRequest struct {
	Token string `json:"token" binding:"required"`
}

type UpdateProfileRequest struct {
	Name        string  `json:"name" binding:"omitempty,max=100"`
	Bio         *string `json:"bio" binding:"omitempty,max=500"`
	OldPassword string  `json:"oldPassword"`
	NewPassword string  `json:"newPassword" binding:"omitempty,min=6"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
