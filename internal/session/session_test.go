package session

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/vector-skill/academy/internal/apierr"
)

// fakeBackend lets each test script the credential exchange surface.
type fakeBackend struct {
	loginFn       func(ctx context.Context, email, password string) (string, error)
	verifyPhoneFn func(ctx context.Context, assertion string) (string, error)
	registerFn    func(ctx context.Context, params RegisterParams) (string, error)
	meFn          func(ctx context.Context, token string) (*User, error)

	meCalls int
}

func (f *fakeBackend) Login(ctx context.Context, email, password string) (string, error) {
	return f.loginFn(ctx, email, password)
}

func (f *fakeBackend) VerifyPhone(ctx context.Context, assertion string) (string, error) {
	return f.verifyPhoneFn(ctx, assertion)
}

func (f *fakeBackend) Register(ctx context.Context, params RegisterParams) (string, error) {
	return f.registerFn(ctx, params)
}

func (f *fakeBackend) Me(ctx context.Context, token string) (*User, error) {
	f.meCalls++
	return f.meFn(ctx, token)
}

// fakeStore is an in-memory token store that records calls and can be
// made to fail.
type fakeStore struct {
	token string

	saveErr   error
	loadErr   error
	deleteErr error

	saves   int
	deletes int
}

func (s *fakeStore) Save(token string) error {
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.token = token
	return nil
}

func (s *fakeStore) Load() (string, error) {
	if s.loadErr != nil {
		return "", s.loadErr
	}
	return s.token, nil
}

func (s *fakeStore) Delete() error {
	s.deletes++
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.token = ""
	return nil
}

func testUser() *User {
	name := "Ada Lovelace"
	return &User{
		ID:       "01HTEST0000000000000000000",
		Email:    "ada@example.com",
		FullName: &name,
		Role:     "student",
		IsActive: true,
	}
}

func okBackend(token string, user *User) *fakeBackend {
	return &fakeBackend{
		loginFn: func(ctx context.Context, email, password string) (string, error) {
			return token, nil
		},
		verifyPhoneFn: func(ctx context.Context, assertion string) (string, error) {
			return token, nil
		},
		registerFn: func(ctx context.Context, params RegisterParams) (string, error) {
			return token, nil
		},
		meFn: func(ctx context.Context, got string) (*User, error) {
			if got != token {
				return nil, errors.New("wrong token")
			}
			u := *user
			return &u, nil
		},
	}
}

func newTestManager(api Backend, store TokenStore, opts ...Option) *Manager {
	return New(api, store, zerolog.Nop(), opts...)
}

func TestLogin_Success(t *testing.T) {
	store := &fakeStore{}
	api := okBackend("tok-123", testUser())
	m := newTestManager(api, store)

	if err := m.Login(context.Background(), "ada@example.com", "secret"); err != nil {
		t.Fatalf("expected login to succeed, got: %v", err)
	}

	snap := m.Snapshot()
	if snap.State != StateAuthenticated {
		t.Errorf("expected authenticated state, got %s", snap.State)
	}
	if !snap.IsAuthenticated {
		t.Error("expected IsAuthenticated to be true")
	}
	if snap.Token != "tok-123" {
		t.Errorf("expected token tok-123, got %q", snap.Token)
	}
	if snap.User == nil || snap.User.Email != "ada@example.com" {
		t.Errorf("expected user profile to be resolved, got %+v", snap.User)
	}

	// Token must be durably stored, not just held in memory
	if store.token != "tok-123" {
		t.Errorf("expected token persisted to store, got %q", store.token)
	}
}

func TestLogin_BackendError_LeavesSessionAnonymous(t *testing.T) {
	store := &fakeStore{}
	api := okBackend("", nil)
	api.loginFn = func(ctx context.Context, email, password string) (string, error) {
		return "", &apierr.Error{Kind: apierr.KindInvalidCredentials, Message: "Incorrect email or password", Status: 401}
	}
	m := newTestManager(api, store)

	err := m.Login(context.Background(), "ada@example.com", "wrong")
	if err == nil {
		t.Fatal("expected login to fail")
	}
	if !apierr.IsKind(err, apierr.KindInvalidCredentials) {
		t.Errorf("expected invalid credentials error to propagate, got: %v", err)
	}

	snap := m.Snapshot()
	if snap.State != StateAnonymous || snap.Token != "" || snap.User != nil {
		t.Errorf("expected session untouched after failed login, got %+v", snap)
	}
	if store.saves != 0 {
		t.Errorf("expected no store write after failed login, got %d saves", store.saves)
	}
}

func TestLogin_StoreSaveFailure_DoesNotFlipState(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("keyring locked")}
	api := okBackend("tok-123", testUser())
	m := newTestManager(api, store)

	err := m.Login(context.Background(), "ada@example.com", "secret")
	if err == nil {
		t.Fatal("expected login to fail when the store write fails")
	}

	// The store write happens before the in-memory flip, so a failed
	// write must leave the session anonymous.
	snap := m.Snapshot()
	if snap.IsAuthenticated || snap.Token != "" {
		t.Errorf("expected anonymous session after store failure, got %+v", snap)
	}
	if api.meCalls != 0 {
		t.Errorf("expected no profile fetch after store failure, got %d", api.meCalls)
	}
}

func TestLogin_FetchFailure_ForcesLogout(t *testing.T) {
	store := &fakeStore{}
	api := okBackend("tok-123", testUser())
	api.meFn = func(ctx context.Context, token string) (*User, error) {
		return nil, &apierr.Error{Kind: apierr.KindUnauthorized, Message: "Could not validate credentials", Status: 401}
	}
	m := newTestManager(api, store)

	err := m.Login(context.Background(), "ada@example.com", "secret")
	if err == nil {
		t.Fatal("expected login to fail when profile fetch fails")
	}

	snap := m.Snapshot()
	if snap.State != StateAnonymous || snap.Token != "" || snap.User != nil {
		t.Errorf("expected forced logout after fetch failure, got %+v", snap)
	}
	if store.token != "" {
		t.Errorf("expected stored token purged, got %q", store.token)
	}
}

func TestSnapshot_TokenAndFlagCoherent(t *testing.T) {
	store := &fakeStore{}
	api := okBackend("tok-123", testUser())
	m := newTestManager(api, store)

	check := func(stage string) {
		snap := m.Snapshot()
		if snap.IsAuthenticated != (snap.Token != "") {
			t.Errorf("%s: IsAuthenticated=%v but token=%q", stage, snap.IsAuthenticated, snap.Token)
		}
	}

	check("initial")
	if err := m.Login(context.Background(), "ada@example.com", "secret"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	check("after login")
	m.Logout()
	check("after logout")
}

func TestLogout_Idempotent(t *testing.T) {
	store := &fakeStore{}
	api := okBackend("tok-123", testUser())
	m := newTestManager(api, store)

	if err := m.Login(context.Background(), "ada@example.com", "secret"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	m.Logout()
	m.Logout()

	snap := m.Snapshot()
	if snap.State != StateAnonymous || snap.Token != "" || snap.User != nil {
		t.Errorf("expected fully cleared session, got %+v", snap)
	}
	if store.token != "" {
		t.Errorf("expected stored token cleared, got %q", store.token)
	}
}

func TestLogout_StoreDeleteFailure_StillClearsMemory(t *testing.T) {
	store := &fakeStore{deleteErr: errors.New("keyring unavailable")}
	api := okBackend("tok-123", testUser())
	m := newTestManager(api, store)

	if err := m.Login(context.Background(), "ada@example.com", "secret"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	m.Logout()

	snap := m.Snapshot()
	if snap.IsAuthenticated || snap.Token != "" || snap.User != nil {
		t.Errorf("expected in-memory state cleared despite store error, got %+v", snap)
	}
}

func TestFetchUser_Failure_ForcesLogout(t *testing.T) {
	store := &fakeStore{}
	api := okBackend("tok-123", testUser())
	m := newTestManager(api, store)

	if err := m.Login(context.Background(), "ada@example.com", "secret"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	// Token goes stale server-side; the next fetch must purge it.
	api.meFn = func(ctx context.Context, token string) (*User, error) {
		return nil, &apierr.Error{Kind: apierr.KindUnauthorized, Message: "Could not validate credentials", Status: 401}
	}

	err := m.FetchUser(context.Background())
	if err == nil {
		t.Fatal("expected fetch to fail")
	}

	snap := m.Snapshot()
	if snap.IsAuthenticated || snap.Token != "" || snap.User != nil {
		t.Errorf("expected forced logout, got %+v", snap)
	}
	if store.token != "" {
		t.Errorf("expected stored token purged, got %q", store.token)
	}
}

func TestFetchUser_WithoutToken(t *testing.T) {
	m := newTestManager(okBackend("tok-123", testUser()), &fakeStore{})

	if err := m.FetchUser(context.Background()); err == nil {
		t.Fatal("expected error fetching user without a token")
	}
}

func TestInitialize_NoStoredToken(t *testing.T) {
	store := &fakeStore{}
	api := okBackend("tok-123", testUser())
	m := newTestManager(api, store)

	m.Initialize(context.Background())

	snap := m.Snapshot()
	if snap.State != StateAnonymous || snap.IsAuthenticated {
		t.Errorf("expected anonymous session, got %+v", snap)
	}
	if api.meCalls != 0 {
		t.Errorf("expected no profile fetch without a stored token, got %d", api.meCalls)
	}
}

func TestInitialize_StoredTokenValid(t *testing.T) {
	store := &fakeStore{token: "tok-stored"}
	api := okBackend("tok-stored", testUser())
	m := newTestManager(api, store)

	m.Initialize(context.Background())

	snap := m.Snapshot()
	if snap.State != StateAuthenticated {
		t.Errorf("expected authenticated after hydration, got %s", snap.State)
	}
	if snap.Token != "tok-stored" {
		t.Errorf("expected hydrated token, got %q", snap.Token)
	}
	if snap.User == nil || snap.User.Email != "ada@example.com" {
		t.Errorf("expected resolved profile, got %+v", snap.User)
	}
	if snap.IsLoading {
		t.Error("expected loading cleared after hydration")
	}
}

func TestInitialize_StoredTokenRejected(t *testing.T) {
	store := &fakeStore{token: "tok-stale"}
	api := okBackend("tok-stale", testUser())
	api.meFn = func(ctx context.Context, token string) (*User, error) {
		return nil, &apierr.Error{Kind: apierr.KindUnauthorized, Message: "Could not validate credentials", Status: 401}
	}
	m := newTestManager(api, store)

	m.Initialize(context.Background())

	snap := m.Snapshot()
	if snap.State != StateAnonymous || snap.Token != "" || snap.User != nil {
		t.Errorf("expected stale token purged during hydration, got %+v", snap)
	}
	if store.token != "" {
		t.Errorf("expected stored token deleted, got %q", store.token)
	}
	if snap.IsLoading {
		t.Error("expected loading cleared after hydration")
	}
}

func TestInitialize_RunsOnce(t *testing.T) {
	store := &fakeStore{token: "tok-stored"}
	api := okBackend("tok-stored", testUser())
	m := newTestManager(api, store)

	m.Initialize(context.Background())
	m.Initialize(context.Background())

	if api.meCalls != 1 {
		t.Errorf("expected exactly one profile fetch across repeated Initialize calls, got %d", api.meCalls)
	}
}

func TestInitialize_StoreLoadFailure(t *testing.T) {
	store := &fakeStore{loadErr: errors.New("keyring unavailable")}
	api := okBackend("tok-123", testUser())
	m := newTestManager(api, store)

	m.Initialize(context.Background())

	snap := m.Snapshot()
	if snap.State != StateAnonymous || snap.IsAuthenticated {
		t.Errorf("expected anonymous session when store load fails, got %+v", snap)
	}
}

func TestRegister_Success(t *testing.T) {
	store := &fakeStore{}
	api := okBackend("tok-new", testUser())
	var gotParams RegisterParams
	api.registerFn = func(ctx context.Context, params RegisterParams) (string, error) {
		gotParams = params
		return "tok-new", nil
	}
	m := newTestManager(api, store)

	params := RegisterParams{
		Email:    "ada@example.com",
		Password: "secret123",
		FullName: "Ada Lovelace",
	}
	if err := m.Register(context.Background(), params); err != nil {
		t.Fatalf("expected register to succeed, got: %v", err)
	}

	if gotParams.FullName != "Ada Lovelace" {
		t.Errorf("expected full name forwarded to backend, got %q", gotParams.FullName)
	}

	snap := m.Snapshot()
	if snap.State != StateAuthenticated || snap.Token != "tok-new" {
		t.Errorf("expected authenticated session after register, got %+v", snap)
	}
	if snap.User == nil || snap.User.FullName == nil || *snap.User.FullName != "Ada Lovelace" {
		t.Errorf("expected profile with full name, got %+v", snap.User)
	}
	if store.token != "tok-new" {
		t.Errorf("expected token persisted, got %q", store.token)
	}
}

func TestRegister_AlreadyRegistered(t *testing.T) {
	store := &fakeStore{}
	api := okBackend("", nil)
	api.registerFn = func(ctx context.Context, params RegisterParams) (string, error) {
		return "", &apierr.Error{Kind: apierr.KindAlreadyRegistered, Message: "Email already registered", Status: 400}
	}
	m := newTestManager(api, store)

	err := m.Register(context.Background(), RegisterParams{Email: "ada@example.com", Password: "secret123"})
	if !apierr.IsKind(err, apierr.KindAlreadyRegistered) {
		t.Errorf("expected already-registered error, got: %v", err)
	}
	if m.IsAuthenticated() {
		t.Error("expected session to stay anonymous after failed registration")
	}
}

func TestLoginWithPhone_NotRegistered(t *testing.T) {
	store := &fakeStore{}
	api := okBackend("", nil)
	api.verifyPhoneFn = func(ctx context.Context, assertion string) (string, error) {
		return "", &apierr.Error{
			Kind:    apierr.KindPhoneNotRegistered,
			Message: "This phone number is not registered. Please register first and add your phone number, or sign in with email.",
			Status:  404,
		}
	}
	m := newTestManager(api, store)

	err := m.LoginWithPhone(context.Background(), "assertion-abc")
	if err == nil {
		t.Fatal("expected phone login to fail")
	}
	if !apierr.IsKind(err, apierr.KindPhoneNotRegistered) {
		t.Errorf("expected phone-not-registered kind so callers can route to registration, got: %v", err)
	}
	if m.IsAuthenticated() {
		t.Error("expected session to stay anonymous")
	}
}

func TestLoginWithPhone_Success(t *testing.T) {
	store := &fakeStore{}
	api := okBackend("tok-phone", testUser())
	api.verifyPhoneFn = func(ctx context.Context, assertion string) (string, error) {
		if assertion != "assertion-abc" {
			return "", errors.New("unexpected assertion")
		}
		return "tok-phone", nil
	}
	m := newTestManager(api, store)

	if err := m.LoginWithPhone(context.Background(), "assertion-abc"); err != nil {
		t.Fatalf("expected phone login to succeed, got: %v", err)
	}

	snap := m.Snapshot()
	if snap.State != StateAuthenticated || snap.Token != "tok-phone" {
		t.Errorf("expected authenticated session, got %+v", snap)
	}
}

// scriptedChallenge verifies a fixed code and returns a fixed assertion.
type scriptedChallenge struct {
	code      string
	assertion string
	verifyErr error
}

func (c *scriptedChallenge) Verify(ctx context.Context, code string) (string, error) {
	if c.verifyErr != nil {
		return "", c.verifyErr
	}
	if code != c.code {
		return "", errors.New("bad code")
	}
	return c.assertion, nil
}

type scriptedSender struct {
	challenge  Challenge
	requestErr error
	gotPhone   string
}

func (s *scriptedSender) RequestCode(ctx context.Context, phone string) (Challenge, error) {
	s.gotPhone = phone
	if s.requestErr != nil {
		return nil, s.requestErr
	}
	return s.challenge, nil
}

func TestLoginWithOTP_FullFlow(t *testing.T) {
	store := &fakeStore{}
	api := okBackend("tok-phone", testUser())
	api.verifyPhoneFn = func(ctx context.Context, assertion string) (string, error) {
		if assertion != "assertion-abc" {
			return "", errors.New("unexpected assertion")
		}
		return "tok-phone", nil
	}

	sender := &scriptedSender{
		challenge: &scriptedChallenge{code: "123456", assertion: "assertion-abc"},
	}
	m := newTestManager(api, store, WithCodeSender(sender))

	err := m.LoginWithOTP(context.Background(), "+15551234567", func() (string, error) {
		return "123456", nil
	})
	if err != nil {
		t.Fatalf("expected OTP login to succeed, got: %v", err)
	}

	if sender.gotPhone != "+15551234567" {
		t.Errorf("expected phone passed to provider, got %q", sender.gotPhone)
	}
	if !m.IsAuthenticated() {
		t.Error("expected authenticated session after OTP login")
	}
}

func TestLoginWithOTP_ProviderFailure(t *testing.T) {
	store := &fakeStore{}
	api := okBackend("tok-phone", testUser())
	sender := &scriptedSender{requestErr: errors.New("quota exceeded")}
	m := newTestManager(api, store, WithCodeSender(sender))

	err := m.LoginWithOTP(context.Background(), "+15551234567", func() (string, error) {
		t.Fatal("code prompt should not run when sending fails")
		return "", nil
	})
	if err == nil {
		t.Fatal("expected error when provider fails to send")
	}
	if m.IsAuthenticated() {
		t.Error("expected session untouched by provider failure")
	}
}

func TestLoginWithOTP_WrongCode(t *testing.T) {
	store := &fakeStore{}
	api := okBackend("tok-phone", testUser())
	sender := &scriptedSender{
		challenge: &scriptedChallenge{code: "123456", assertion: "assertion-abc"},
	}
	m := newTestManager(api, store, WithCodeSender(sender))

	err := m.LoginWithOTP(context.Background(), "+15551234567", func() (string, error) {
		return "000000", nil
	})
	if err == nil {
		t.Fatal("expected error with wrong code")
	}
	if m.IsAuthenticated() {
		t.Error("expected session untouched by failed verification")
	}
}

func TestLoginWithOTP_NoProviderConfigured(t *testing.T) {
	m := newTestManager(okBackend("tok", testUser()), &fakeStore{})

	err := m.LoginWithOTP(context.Background(), "+15551234567", func() (string, error) {
		return "123456", nil
	})
	if err == nil {
		t.Fatal("expected error without an OTP provider")
	}
}

// Full lifecycle: login, restart with the same store, then discover the
// token went stale on the next restart.
func TestSessionLifecycle_AcrossRestarts(t *testing.T) {
	store := &fakeStore{}
	user := testUser()

	// First run: log in.
	api1 := okBackend("tok-123", user)
	m1 := newTestManager(api1, store)
	m1.Initialize(context.Background())
	if m1.IsAuthenticated() {
		t.Fatal("expected anonymous session before login")
	}
	if err := m1.Login(context.Background(), "ada@example.com", "secret"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	// Second run: same store, fresh manager. Hydration restores the
	// session without credentials.
	api2 := okBackend("tok-123", user)
	m2 := newTestManager(api2, store)
	m2.Initialize(context.Background())
	snap := m2.Snapshot()
	if snap.State != StateAuthenticated || snap.User == nil {
		t.Fatalf("expected restored session, got %+v", snap)
	}

	// Third run: token revoked server-side.
	api3 := okBackend("tok-123", user)
	api3.meFn = func(ctx context.Context, token string) (*User, error) {
		return nil, &apierr.Error{Kind: apierr.KindUnauthorized, Message: "Could not validate credentials", Status: 401}
	}
	m3 := newTestManager(api3, store)
	m3.Initialize(context.Background())
	if m3.IsAuthenticated() {
		t.Error("expected anonymous session after revoked token")
	}
	if store.token != "" {
		t.Errorf("expected stale token purged from store, got %q", store.token)
	}
}

func TestUserAndSnapshot_ReturnCopies(t *testing.T) {
	store := &fakeStore{}
	api := okBackend("tok-123", testUser())
	m := newTestManager(api, store)
	if err := m.Login(context.Background(), "ada@example.com", "secret"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	u := m.User()
	u.Email = "mutated@example.com"

	if got := m.User().Email; got != "ada@example.com" {
		t.Errorf("expected internal state unaffected by caller mutation, got %q", got)
	}
}
