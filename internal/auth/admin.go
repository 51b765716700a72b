package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/emilythestrangee/prompt-board/backend/internal/models"
)

// EnsureAdmin creates the bootstrap admin account when it does not exist yet.
// Nothing happens when email or password is empty.
func EnsureAdmin(ctx context.Context, db *gorm.DB, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}

	var existing models.Admin
	err := db.WithContext(ctx).Where("email = ?", email).Take(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("looking up admin: %w", err)
	}

	hashed, err := HashPassword(password)
	if err != nil {
		return err
	}

	admin := models.Admin{Email: email, Password: hashed, Name: "Admin"}
	if err := db.WithContext(ctx).Create(&admin).Error; err != nil {
		return fmt.Errorf("creating admin: %w", err)
	}

	slog.InfoContext(ctx, "bootstrap admin created", "email", email)
	return nil
}
