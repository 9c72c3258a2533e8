package models

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// Role values assigned to users. The backend is the only authority on
// roles; clients never infer privilege from anything but /auth/me.
const (
	RoleAdmin    = "admin"
	RoleStudent  = "student"
	RoleProspect = "prospect"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// User is a platform account. Email is the primary identifier; phone is
// optional and only used for OTP login once set.
type User struct {
	BaseModel
	Email        string     `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string     `json:"-" gorm:"not null"`
	FullName     *string    `json:"full_name"`
	Phone        *string    `json:"phone"`
	Role         string     `json:"role" gorm:"not null;default:prospect"`
	IsActive     bool       `json:"is_active" gorm:"not null;default:true"`
	UpdatedAt    *time.Time `json:"updated_at" gorm:"autoUpdateTime:false"`
}

// PhoneDigits returns the user's phone number reduced to digits only,
// or empty if no phone is set. Used to match provider-verified numbers
// regardless of formatting.
func (u *User) PhoneDigits() string {
	if u.Phone == nil {
		return ""
	}
	return DigitsOnly(*u.Phone)
}

// DigitsOnly strips everything but ASCII digits from s.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PasswordResetToken holds a hashed single-use password reset credential.
// The raw token is only ever sent to the account's email address.
type PasswordResetToken struct {
	BaseModel
	Email     string    `json:"email" gorm:"index;not null"`
	TokenHash string    `json:"-" gorm:"not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null"`
}

// Expired reports whether the token is past its expiry at the given time.
func (t *PasswordResetToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &PasswordResetToken{})
}
