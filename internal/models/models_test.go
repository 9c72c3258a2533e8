package models

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func TestDigitsOnly(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+1 555-123-4567", "15551234567"},
		{"+15551234567", "15551234567"},
		{"555 123 4567", "5551234567"},
		{"", ""},
		{"no digits", ""},
	}

	for _, tt := range tests {
		if got := DigitsOnly(tt.in); got != tt.want {
			t.Errorf("DigitsOnly(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUser_PhoneDigits(t *testing.T) {
	phone := "+1 555-123-4567"
	u := &User{Phone: &phone}
	if got := u.PhoneDigits(); got != "15551234567" {
		t.Errorf("expected 15551234567, got %q", got)
	}

	none := &User{}
	if got := none.PhoneDigits(); got != "" {
		t.Errorf("expected empty for nil phone, got %q", got)
	}
}

func TestPasswordResetToken_Expired(t *testing.T) {
	now := time.Now()
	token := &PasswordResetToken{ExpiresAt: now.Add(time.Minute)}

	if token.Expired(now) {
		t.Error("expected token valid before expiry")
	}
	if !token.Expired(now.Add(2 * time.Minute)) {
		t.Error("expected token expired after expiry")
	}
}

func TestBaseModel_GeneratesULID(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	user := &User{Email: "ada@example.com", PasswordHash: "x", Role: RoleStudent, IsActive: true}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	if len(user.ID) != 26 {
		t.Errorf("expected 26-character ULID, got %q", user.ID)
	}

	// A preset ID is kept as-is
	preset := &User{BaseModel: BaseModel{ID: "custom-id"}, Email: "grace@example.com", PasswordHash: "x", Role: RoleStudent, IsActive: true}
	if err := db.Create(preset).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	if preset.ID != "custom-id" {
		t.Errorf("expected preset ID kept, got %q", preset.ID)
	}
}
