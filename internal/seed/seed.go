// Package seed applies an optional first-boot seed file creating the
// initial admin accounts. The file is only consulted while the users
// table is empty, so rerunning the server never duplicates accounts.
package seed

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/vector-skill/academy/internal/auth"
	"github.com/vector-skill/academy/internal/models"
)

// File is the seed file layout.
type File struct {
	Admins []Account `yaml:"admins"`
}

// Account is one seeded admin user.
type Account struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	FullName string `yaml:"full_name"`
	Phone    string `yaml:"phone"`
}

// Apply loads the seed file at path and creates its admin accounts if no
// users exist yet. A missing path is not an error.
func Apply(db *gorm.DB, path string, log zerolog.Logger) error {
	if path == "" {
		return nil
	}

	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}

	for _, acct := range file.Admins {
		if acct.Email == "" || acct.Password == "" {
			return fmt.Errorf("seed account missing email or password")
		}

		hash, err := auth.HashPassword(acct.Password)
		if err != nil {
			return fmt.Errorf("failed to hash seed password: %w", err)
		}

		user := &models.User{
			Email:        acct.Email,
			PasswordHash: hash,
			Role:         models.RoleAdmin,
			IsActive:     true,
		}
		if acct.FullName != "" {
			user.FullName = &acct.FullName
		}
		if acct.Phone != "" {
			user.Phone = &acct.Phone
		}

		if err := db.Create(user).Error; err != nil {
			return fmt.Errorf("failed to create seed admin %s: %w", acct.Email, err)
		}

		log.Info().Str("email", acct.Email).Msg("Seed admin created")
	}

	return nil
}
