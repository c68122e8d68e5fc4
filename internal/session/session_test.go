package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/cafebloom/internal/backend"
	"github.com/mmeshcher/cafebloom/internal/model"
	"github.com/mmeshcher/cafebloom/internal/validation"
)

type stubAuth struct {
	mu sync.Mutex

	signInSession *backend.AuthSession
	signInErr     error
	signUpErr     error
	signOutErr    error
	updatePwErr   error

	signInCalls  int
	signUpCalls  int
	signOutCalls int
	updatePwArgs []string
}

func (s *stubAuth) SignIn(ctx context.Context, email, password string) (*backend.AuthSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signInCalls++
	return s.signInSession, s.signInErr
}

func (s *stubAuth) SignUp(ctx context.Context, req backend.SignUpRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signUpCalls++
	return s.signUpErr
}

func (s *stubAuth) SignOut(ctx context.Context, accessToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signOutCalls++
	return s.signOutErr
}

func (s *stubAuth) UpdatePassword(ctx context.Context, accessToken, userID, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updatePwArgs = append(s.updatePwArgs, accessToken, userID, password)
	return s.updatePwErr
}

func (s *stubAuth) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signInCalls + s.signUpCalls + s.signOutCalls + len(s.updatePwArgs)
}

type stubProfiles struct {
	mu       sync.Mutex
	profiles map[string]*model.Profile
	getErr   error
	calls    int
	block    chan struct{}
}

func (s *stubProfiles) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.getErr != nil {
		return nil, s.getErr
	}
	p, ok := s.profiles[userID]
	if !ok {
		return nil, backend.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *stubProfiles) UpdateProfile(ctx context.Context, userID string, patch model.ProfilePatch) (*model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, backend.ErrNotFound
	}
	updated := patch.Apply(*p)
	s.profiles[userID] = &updated
	return &updated, nil
}

var adminCreds = Credentials{Email: "admin@restaurant.com", Password: "admin123"}

func newTestManager(auth *stubAuth, profiles *stubProfiles) *Manager {
	return NewManager(auth, profiles, adminCreds, zap.NewNop(), nil)
}

func newProfiles() *stubProfiles {
	return &stubProfiles{profiles: map[string]*model.Profile{
		"u1":    {ID: "u1", Name: "Ann", Email: "ann@example.com"},
		"boss1": {ID: "boss1", Name: "Boss", Email: "boss@example.com", IsAdmin: true},
	}}
}

func TestLogin_BuiltinAdminSkipsBackend(t *testing.T) {
	auth := &stubAuth{}
	profiles := newProfiles()
	m := newTestManager(auth, profiles)
	st := newState("s1", time.Now())

	require.NoError(t, m.Login(context.Background(), st, "Admin@Restaurant.com", "admin123"))

	assert.True(t, st.IsAdmin())
	assert.Equal(t, AdminGranted, st.AdminState())
	id, ok := st.Identity()
	require.True(t, ok)
	assert.Equal(t, AdminID, id.ID)
	assert.Equal(t, 0, auth.calls())
	assert.Equal(t, 0, profiles.calls)
}

func TestLogin_BuiltinAdminDisabled(t *testing.T) {
	auth := &stubAuth{signInErr: backend.ErrInvalidCredentials}
	m := NewManager(auth, newProfiles(), Credentials{}, zap.NewNop(), nil)
	st := newState("s1", time.Now())

	err := m.Login(context.Background(), st, "admin@restaurant.com", "admin123")
	assert.ErrorIs(t, err, backend.ErrInvalidCredentials)
	assert.Equal(t, 1, auth.calls())
	assert.False(t, st.IsAdmin())
}

func TestLogin_Backend(t *testing.T) {
	auth := &stubAuth{signInSession: &backend.AuthSession{
		Identity:    model.Identity{ID: "u1", Email: "ann@example.com"},
		AccessToken: "tok",
	}}
	m := newTestManager(auth, newProfiles())
	st := newState("s1", time.Now())

	require.NoError(t, m.Login(context.Background(), st, "ann@example.com", "secret1"))

	p := st.Profile()
	require.NotNil(t, p)
	assert.Equal(t, "Ann", p.Name)
	assert.Equal(t, AdminDenied, st.AdminState())
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		err      error
		want     error
		reason   string
	}{
		{
			name:     "invalid credentials",
			email:    "ann@example.com",
			password: "wrong",
			err:      backend.ErrInvalidCredentials,
			want:     backend.ErrInvalidCredentials,
			reason:   "Invalid email or password",
		},
		{
			name:     "network fault",
			email:    "ann@example.com",
			password: "secret1",
			err:      backend.ErrUnavailable,
			want:     backend.ErrUnavailable,
			reason:   "Service is temporarily unavailable, please try again",
		},
		{
			name:   "empty email",
			want:   validation.ErrInvalid,
			reason: "Email is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(&stubAuth{signInErr: tt.err}, newProfiles())
			st := newState("s1", time.Now())

			err := m.Login(context.Background(), st, tt.email, tt.password)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.reason, Reason(err))

			_, ok := st.Identity()
			assert.False(t, ok)
		})
	}
}

func TestAdminState(t *testing.T) {
	st := newState("s1", time.Now())
	assert.Equal(t, AdminDenied, st.AdminState(), "signed out")

	gen := st.setIdentity(&model.Identity{ID: "u1"}, "")
	assert.Equal(t, AdminUnknown, st.AdminState(), "profile loading")

	st.resolveProfile(gen, nil)
	assert.Equal(t, AdminDenied, st.AdminState(), "profile missing")

	gen = st.setIdentity(&model.Identity{ID: "boss1"}, "")
	assert.Equal(t, AdminUnknown, st.AdminState())
	st.resolveProfile(gen, &model.Profile{ID: "boss1", IsAdmin: true})
	assert.Equal(t, AdminGranted, st.AdminState())
}

func TestEnsureProfile_TransientErrorKeepsUnknown(t *testing.T) {
	profiles := newProfiles()
	profiles.getErr = backend.ErrUnavailable
	m := newTestManager(&stubAuth{}, profiles)
	st := newState("s1", time.Now())

	m.Restore(st, model.Identity{ID: "boss1"})
	m.EnsureProfile(context.Background(), st)
	assert.Equal(t, AdminUnknown, st.AdminState())

	profiles.mu.Lock()
	profiles.getErr = nil
	profiles.mu.Unlock()

	m.EnsureProfile(context.Background(), st)
	assert.Equal(t, AdminGranted, st.AdminState())

	m.EnsureProfile(context.Background(), st)
	assert.Equal(t, 2, profiles.calls, "resolved profile is not fetched again")
}

func TestEnsureProfile_LatestIdentityWins(t *testing.T) {
	profiles := newProfiles()
	profiles.block = make(chan struct{})
	m := newTestManager(&stubAuth{}, profiles)
	st := newState("s1", time.Now())

	m.Restore(st, model.Identity{ID: "boss1"})

	done := make(chan struct{})
	go func() {
		m.EnsureProfile(context.Background(), st)
		close(done)
	}()

	// пока профиль администратора загружается, в сеансе меняется пользователь
	time.Sleep(20 * time.Millisecond)
	m.Restore(st, model.Identity{ID: "u1"})
	close(profiles.block)
	<-done

	assert.Equal(t, AdminUnknown, st.AdminState(), "stale admin profile must be discarded")

	m.EnsureProfile(context.Background(), st)
	assert.Equal(t, "u1", st.Profile().ID)
	assert.Equal(t, AdminDenied, st.AdminState())
}

func TestRestore(t *testing.T) {
	m := newTestManager(&stubAuth{}, newProfiles())
	st := newState("s1", time.Now())

	m.Restore(st, model.Identity{ID: AdminID, Email: adminCreds.Email})
	assert.Equal(t, AdminGranted, st.AdminState(), "built-in admin is restored without a fetch")

	gen := st.generation
	m.Restore(st, model.Identity{ID: AdminID, Email: adminCreds.Email})
	assert.Equal(t, gen, st.generation, "same identity keeps the session")
}

func TestLogout(t *testing.T) {
	auth := &stubAuth{signInSession: &backend.AuthSession{
		Identity:    model.Identity{ID: "u1", Email: "ann@example.com"},
		AccessToken: "tok",
	}}
	m := newTestManager(auth, newProfiles())
	st := newState("s1", time.Now())
	ctx := context.Background()

	require.NoError(t, m.Login(ctx, st, "ann@example.com", "secret1"))

	auth.signOutErr = backend.ErrUnavailable
	assert.Error(t, m.Logout(ctx, st))
	_, ok := st.Identity()
	assert.True(t, ok, "identity stays when sign out fails")

	auth.signOutErr = nil
	require.NoError(t, m.Logout(ctx, st))
	_, ok = st.Identity()
	assert.False(t, ok)
	assert.Nil(t, st.Profile())
	assert.Equal(t, 2, auth.signOutCalls)
}

func TestLogout_BuiltinAdmin(t *testing.T) {
	auth := &stubAuth{}
	m := newTestManager(auth, newProfiles())
	st := newState("s1", time.Now())

	require.NoError(t, m.Login(context.Background(), st, adminCreds.Email, adminCreds.Password))
	require.NoError(t, m.Logout(context.Background(), st))

	assert.Equal(t, 0, auth.calls())
	assert.Equal(t, AdminDenied, st.AdminState())
}

func TestRegister(t *testing.T) {
	auth := &stubAuth{}
	m := newTestManager(auth, newProfiles())

	require.NoError(t, m.Register(context.Background(), "new@example.com", "secret1", RegisterInfo{Name: "New"}))
	assert.Equal(t, 1, auth.signUpCalls)
	assert.Equal(t, 0, auth.signInCalls, "registration does not sign in")

	err := m.Register(context.Background(), "new@example.com", "123", RegisterInfo{Name: "New"})
	assert.ErrorIs(t, err, validation.ErrInvalid)

	auth.signUpErr = backend.ErrUserExists
	err = m.Register(context.Background(), "new@example.com", "secret1", RegisterInfo{Name: "New"})
	assert.ErrorIs(t, err, backend.ErrUserExists)
}

func TestUpdateProfile(t *testing.T) {
	m := newTestManager(&stubAuth{}, newProfiles())
	ctx := context.Background()

	_, err := m.UpdateProfile(ctx, newState("anon", time.Now()), model.ProfilePatch{})
	assert.ErrorIs(t, err, ErrNoSession)

	st := newState("s1", time.Now())
	m.Restore(st, model.Identity{ID: "u1"})
	m.EnsureProfile(ctx, st)

	phone := "555-0100"
	p, err := m.UpdateProfile(ctx, st, model.ProfilePatch{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "555-0100", p.Phone)
	assert.Equal(t, "Ann", p.Name)
	assert.Equal(t, "555-0100", st.Profile().Phone)
}

func TestUpdateProfile_BuiltinAdminIsLocal(t *testing.T) {
	profiles := newProfiles()
	m := newTestManager(&stubAuth{}, profiles)
	st := newState("s1", time.Now())
	ctx := context.Background()

	require.NoError(t, m.Login(ctx, st, adminCreds.Email, adminCreds.Password))

	name := "Head Chef"
	p, err := m.UpdateProfile(ctx, st, model.ProfilePatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Head Chef", p.Name)
	assert.True(t, p.IsAdmin)
	assert.Equal(t, 0, profiles.calls)
}

func TestChangePassword(t *testing.T) {
	auth := &stubAuth{signInSession: &backend.AuthSession{
		Identity:    model.Identity{ID: "u1", Email: "ann@example.com"},
		AccessToken: "fresh",
	}}
	m := newTestManager(auth, newProfiles())
	st := newState("s1", time.Now())
	ctx := context.Background()

	assert.ErrorIs(t, m.ChangePassword(ctx, st, "a", "secret2"), ErrNoSession)

	m.Restore(st, model.Identity{ID: "u1", Email: "ann@example.com"})
	require.NoError(t, m.ChangePassword(ctx, st, "secret1", "secret2"))
	assert.Equal(t, []string{"fresh", "u1", "secret2"}, auth.updatePwArgs)

	auth.signInErr = backend.ErrInvalidCredentials
	assert.ErrorIs(t, m.ChangePassword(ctx, st, "bad", "secret3"), backend.ErrInvalidCredentials)

	admin := newState("s2", time.Now())
	require.NoError(t, m.Login(ctx, admin, adminCreds.Email, adminCreds.Password))
	assert.ErrorIs(t, m.ChangePassword(ctx, admin, adminCreds.Password, "secret4"), ErrBuiltinAdmin)
}

func TestRegistrySweep(t *testing.T) {
	r := NewRegistry(time.Minute, zap.NewNop(), nil)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	idle := r.Create()
	active := r.Create()
	assert.Equal(t, 2, r.Len())

	now = now.Add(50 * time.Second)
	_, ok := r.Get(active.ID)
	require.True(t, ok)

	now = now.Add(20 * time.Second)
	assert.Equal(t, 1, r.Sweep())

	_, ok = r.Get(idle.ID)
	assert.False(t, ok)
	_, ok = r.Get(active.ID)
	assert.True(t, ok)
}

func TestRegistrySweeperStopsWithContext(t *testing.T) {
	r := NewRegistry(time.Nanosecond, zap.NewNop(), nil)
	r.Create()

	ctx, cancel := context.WithCancel(context.Background())
	r.StartSweeper(ctx, time.Millisecond)

	assert.Eventually(t, func() bool { return r.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
}

func TestReason(t *testing.T) {
	assert.Equal(t, "", Reason(nil))
	assert.Equal(t, "An account with this email already exists", Reason(backend.ErrUserExists))
	assert.Equal(t, "Something went wrong, please try again", Reason(errors.New("boom")))
	assert.Equal(t, "Password must be at least 6 characters", Reason(validation.Password("1")))
}
