// Package session owns client-side authentication state: credential
// exchange, token persistence, current-user resolution, and hydration at
// startup. Everything else in the client reads session state and calls
// the operations here; nothing else touches the token store.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// State is the session lifecycle state.
type State string

const (
	// StateAnonymous means no token is held.
	StateAnonymous State = "anonymous"
	// StatePendingVerification means a stored token was hydrated and is
	// optimistically trusted while the profile fetch confirms it.
	StatePendingVerification State = "pending_verification"
	// StateAuthenticated means the token has been confirmed by a
	// successful profile fetch.
	StateAuthenticated State = "authenticated"
)

// User is the authenticated account profile as returned by the backend.
// Role is only ever taken from here; clients never infer privilege from
// anything else.
type User struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
	Role     string  `json:"role"`
	IsActive bool    `json:"is_active"`
}

// RegisterParams are the inputs to account registration. Email and
// Password are required; the backend enforces the password policy.
type RegisterParams struct {
	Email    string
	Password string
	FullName string
	Phone    string
}

// Backend is the credential-exchange surface the manager needs. The
// full API client satisfies it.
type Backend interface {
	Login(ctx context.Context, email, password string) (string, error)
	VerifyPhone(ctx context.Context, assertion string) (string, error)
	Register(ctx context.Context, params RegisterParams) (string, error)
	Me(ctx context.Context, token string) (*User, error)
}

// TokenStore is durable storage for the bearer token. Load returns an
// empty string when no token is stored.
type TokenStore interface {
	Save(token string) error
	Load() (string, error)
	Delete() error
}

// Snapshot is a point-in-time copy of session state.
type Snapshot struct {
	State           State
	Token           string
	User            *User
	IsAuthenticated bool
	IsLoading       bool
}

// Manager is the single source of truth for whether the current client
// is authenticated and who they are. One mutex guards all state; within
// an operation the durable-store write always happens before the
// in-memory state flip, so an observer never sees "authenticated"
// without a persisted token.
type Manager struct {
	api   Backend
	store TokenStore
	otp   CodeSender
	log   zerolog.Logger

	mu          sync.Mutex
	state       State
	token       string
	user        *User
	loading     bool
	initialized bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithCodeSender attaches an OTP provider for LoginWithOTP.
func WithCodeSender(sender CodeSender) Option {
	return func(m *Manager) {
		m.otp = sender
	}
}

// New creates a session manager. The session starts anonymous; call
// Initialize to hydrate from the token store.
func New(api Backend, store TokenStore, log zerolog.Logger, opts ...Option) *Manager {
	m := &Manager{
		api:   api,
		store: store,
		log:   log,
		state: StateAnonymous,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot returns a copy of the current session state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	var user *User
	if m.user != nil {
		u := *m.user
		user = &u
	}

	return Snapshot{
		State:           m.state,
		Token:           m.token,
		User:            user,
		IsAuthenticated: m.token != "",
		IsLoading:       m.loading,
	}
}

// IsAuthenticated reports whether a token is held. It is true during
// PendingVerification so consumers do not flash a logged-out view while
// a hydrated token is being confirmed.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token != ""
}

// Token returns the current bearer token, or empty when anonymous.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// User returns the current profile, or nil before a successful fetch.
func (m *Manager) User() *User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// Login exchanges email and password for a bearer token, persists it,
// and resolves the profile. Backend errors propagate unchanged and
// leave the session anonymous.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, err := m.api.Login(ctx, email, password)
	if err != nil {
		return err
	}

	return m.adoptTokenLocked(ctx, token)
}

// LoginWithPhone exchanges a verified identity assertion from the OTP
// provider for a bearer token. A 404 / "not registered" response is
// surfaced as apierr.KindPhoneNotRegistered so callers can route to
// registration instead of showing a generic error.
func (m *Manager) LoginWithPhone(ctx context.Context, assertion string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, err := m.api.VerifyPhone(ctx, assertion)
	if err != nil {
		return err
	}

	return m.adoptTokenLocked(ctx, token)
}

// LoginWithOTP runs the full phone flow: request a code for the number,
// obtain the code from the caller, verify it with the provider, then
// exchange the resulting assertion. Provider failures surface before any
// session state changes.
func (m *Manager) LoginWithOTP(ctx context.Context, phone string, promptCode func() (string, error)) error {
	if m.otp == nil {
		return fmt.Errorf("no OTP provider configured")
	}

	challenge, err := m.otp.RequestCode(ctx, phone)
	if err != nil {
		return fmt.Errorf("failed to send verification code: %w", err)
	}

	code, err := promptCode()
	if err != nil {
		return err
	}

	assertion, err := challenge.Verify(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to verify code: %w", err)
	}

	return m.LoginWithPhone(ctx, assertion)
}

// Register creates an account. The backend returns a token directly, so
// the end state is identical to a successful Login: token persisted,
// profile fetched.
func (m *Manager) Register(ctx context.Context, params RegisterParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, err := m.api.Register(ctx, params)
	if err != nil {
		return err
	}

	return m.adoptTokenLocked(ctx, token)
}

// Logout clears durable storage and in-memory state. Idempotent; never
// fails.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logoutLocked()
}

// FetchUser resolves the profile for the current token. Any failure is
// treated as an invalid token and forces a logout; this is the sole
// mechanism by which a stale token is detected and purged.
func (m *Manager) FetchUser(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetchUserLocked(ctx)
}

// Initialize hydrates the session from durable storage. With a stored
// token the session is optimistically authenticated (PendingVerification)
// while the profile fetch confirms it, so consumers do not flash a
// logged-out view during the round trip. Runs once; later calls are
// no-ops.
func (m *Manager) Initialize(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return
	}
	m.initialized = true

	token, err := m.store.Load()
	if err != nil {
		m.log.Warn().Err(err).Msg("Failed to load stored token")
		return
	}
	if token == "" {
		return
	}

	m.token = token
	m.state = StatePendingVerification
	m.loading = true

	// Trust but verify: a stale token is purged by the fetch failure path.
	if err := m.fetchUserLocked(ctx); err != nil {
		m.log.Debug().Err(err).Msg("Stored token rejected during hydration")
	}

	m.loading = false
}

// adoptTokenLocked persists a token and completes the login sequence.
// Store write happens before the in-memory flip so authenticated state
// always implies a persisted token.
func (m *Manager) adoptTokenLocked(ctx context.Context, token string) error {
	if err := m.store.Save(token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	m.token = token
	m.state = StateAuthenticated

	return m.fetchUserLocked(ctx)
}

func (m *Manager) fetchUserLocked(ctx context.Context) error {
	if m.token == "" {
		return fmt.Errorf("not authenticated")
	}

	user, err := m.api.Me(ctx, m.token)
	if err != nil {
		m.logoutLocked()
		return err
	}

	m.user = user
	m.state = StateAuthenticated
	return nil
}

func (m *Manager) logoutLocked() {
	if err := m.store.Delete(); err != nil {
		// Logout never fails; a store error cannot leave the session
		// half cleared in memory.
		m.log.Warn().Err(err).Msg("Failed to clear stored token")
	}
	m.token = ""
	m.user = nil
	m.state = StateAnonymous
}
