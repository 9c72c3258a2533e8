package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	cliauth "github.com/vector-skill/academy/internal/cli/auth"
	"github.com/vector-skill/academy/internal/session"
)

func TestLogoutCommand_ClearsStoredToken(t *testing.T) {
	store := &cliauth.MemoryStore{Token: "tok-123"}
	backend := &stubBackend{token: "tok-123", user: stubUser()}
	sess := session.New(backend, store, zerolog.Nop())

	var output bytes.Buffer
	err := runLogout("",
		WithLogoutSession(sess),
		WithLogoutOutput(&output),
	)
	if err != nil {
		t.Fatalf("expected success, got: %v", err)
	}

	if store.Token != "" {
		t.Errorf("expected stored token cleared, got %q", store.Token)
	}
	if sess.IsAuthenticated() {
		t.Error("expected session anonymous after logout")
	}
	if !strings.Contains(output.String(), "Logged out") {
		t.Errorf("expected confirmation message, got: %s", output.String())
	}
}

func TestLogoutCommand_WhenNotLoggedIn(t *testing.T) {
	// Logging out twice, or without ever logging in, still succeeds
	store := &cliauth.MemoryStore{}
	backend := &stubBackend{user: stubUser()}
	sess := session.New(backend, store, zerolog.Nop())

	var output bytes.Buffer
	err := runLogout("",
		WithLogoutSession(sess),
		WithLogoutOutput(&output),
	)
	if err != nil {
		t.Fatalf("expected logout to be idempotent, got: %v", err)
	}
}
