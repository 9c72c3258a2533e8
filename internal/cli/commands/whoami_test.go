package commands

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	cliauth "github.com/vector-skill/academy/internal/cli/auth"
	"github.com/vector-skill/academy/internal/session"
)

// stubBackend answers the session manager with canned responses.
type stubBackend struct {
	token string
	user  *session.User
	meErr error
}

func (s *stubBackend) Login(ctx context.Context, email, password string) (string, error) {
	return s.token, nil
}

func (s *stubBackend) VerifyPhone(ctx context.Context, assertion string) (string, error) {
	return s.token, nil
}

func (s *stubBackend) Register(ctx context.Context, params session.RegisterParams) (string, error) {
	return s.token, nil
}

func (s *stubBackend) Me(ctx context.Context, token string) (*session.User, error) {
	if s.meErr != nil {
		return nil, s.meErr
	}
	u := *s.user
	return &u, nil
}

func stubUser() *session.User {
	name := "Ada Lovelace"
	phone := "+1 555-123-4567"
	return &session.User{
		ID:       "u1",
		Email:    "ada@example.com",
		FullName: &name,
		Phone:    &phone,
		Role:     "student",
		IsActive: true,
	}
}

func TestWhoamiCommand_LoggedIn(t *testing.T) {
	store := &cliauth.MemoryStore{Token: "tok-123"}
	backend := &stubBackend{token: "tok-123", user: stubUser()}
	sess := session.New(backend, store, zerolog.Nop())

	var output bytes.Buffer
	err := runWhoami("",
		WithWhoamiSession(sess),
		WithWhoamiOutput(&output),
	)
	if err != nil {
		t.Fatalf("expected success, got: %v", err)
	}

	out := output.String()
	if !strings.Contains(out, "Ada Lovelace <ada@example.com>") {
		t.Errorf("expected user line, got: %s", out)
	}
	if !strings.Contains(out, "Role:   student") {
		t.Errorf("expected role line, got: %s", out)
	}
	if !strings.Contains(out, "+1 555-123-4567") {
		t.Errorf("expected phone line, got: %s", out)
	}
}

func TestWhoamiCommand_NotLoggedIn(t *testing.T) {
	store := &cliauth.MemoryStore{}
	backend := &stubBackend{user: stubUser()}
	sess := session.New(backend, store, zerolog.Nop())

	var output bytes.Buffer
	err := runWhoami("",
		WithWhoamiSession(sess),
		WithWhoamiOutput(&output),
	)
	if err != nil {
		t.Fatalf("expected success, got: %v", err)
	}

	if !strings.Contains(output.String(), "Not logged in") {
		t.Errorf("expected not-logged-in message, got: %s", output.String())
	}
}

func TestWhoamiCommand_StaleToken(t *testing.T) {
	// A stored token the backend rejects should read as logged out, and
	// the dead token should be purged from the store.
	store := &cliauth.MemoryStore{Token: "tok-stale"}
	backend := &stubBackend{meErr: errors.New("Could not validate credentials")}
	sess := session.New(backend, store, zerolog.Nop())

	var output bytes.Buffer
	err := runWhoami("",
		WithWhoamiSession(sess),
		WithWhoamiOutput(&output),
	)
	if err != nil {
		t.Fatalf("expected success, got: %v", err)
	}

	if !strings.Contains(output.String(), "Not logged in") {
		t.Errorf("expected not-logged-in message, got: %s", output.String())
	}
	if store.Token != "" {
		t.Errorf("expected stale token purged from store, got %q", store.Token)
	}
}

func TestWhoamiCommand_NoName(t *testing.T) {
	user := stubUser()
	user.FullName = nil
	user.Phone = nil

	store := &cliauth.MemoryStore{Token: "tok-123"}
	backend := &stubBackend{token: "tok-123", user: user}
	sess := session.New(backend, store, zerolog.Nop())

	var output bytes.Buffer
	if err := runWhoami("", WithWhoamiSession(sess), WithWhoamiOutput(&output)); err != nil {
		t.Fatalf("expected success, got: %v", err)
	}

	if !strings.Contains(output.String(), "(no name) <ada@example.com>") {
		t.Errorf("expected placeholder name, got: %s", output.String())
	}
	if strings.Contains(output.String(), "Phone:") {
		t.Errorf("expected no phone line, got: %s", output.String())
	}
}
