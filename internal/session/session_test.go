package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/neurolearn/marketplace/internal/core/domain"
)

// failingStorage wraps a Storage and fails Set/Remove for chosen keys.
type failingStorage struct {
	Storage
	failSet    map[string]bool
	failRemove bool
}

func (f *failingStorage) Set(ctx context.Context, key, value string) error {
	if f.failSet[key] {
		return errors.New("disk full")
	}
	return f.Storage.Set(ctx, key, value)
}

func (f *failingStorage) Remove(ctx context.Context, key string) error {
	if f.failRemove {
		return errors.New("read-only")
	}
	return f.Storage.Remove(ctx, key)
}

func testUser() *domain.User {
	return &domain.User{ID: "u1", Email: "a@x.it", Name: "Ada", Roles: domain.Roles{domain.RoleCreator}, IsActive: true}
}

func TestSession_LoadingUntilInit(t *testing.T) {
	s := New(NewMemoryStorage(), zerolog.Nop())
	if !s.Loading() {
		t.Fatalf("new session must be loading")
	}
	if d := s.Guard("/studio", Requirement{}); d.Outcome != OutcomeLoading {
		t.Fatalf("guard must wait for init, got %s", d.Outcome)
	}

	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if s.Loading() || s.Authenticated() {
		t.Fatalf("empty storage must yield a signed-out, loaded session")
	}
	if s.Permissions() != domain.NoPermissions() {
		t.Fatalf("signed-out session must have no permissions")
	}
}

func TestSession_BeginPersistsAndRehydrates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	s := New(store, zerolog.Nop())
	_ = s.Init(ctx)
	if err := s.Begin(ctx, "tok", testUser()); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if !s.Permissions().CanCreateCourses || s.Permissions().CanManageUsers {
		t.Fatalf("creator permissions expected, got %+v", s.Permissions())
	}

	restored := New(store, zerolog.Nop())
	if err := restored.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if restored.Token() != "tok" || restored.User().Email != "a@x.it" {
		t.Fatalf("session not rehydrated: %q %+v", restored.Token(), restored.User())
	}
	if d := restored.Guard("/studio", Requirement{Roles: []domain.Role{domain.RoleCreator}}); d.Outcome != OutcomeRender {
		t.Fatalf("creator page should render, got %+v", d)
	}
}

func TestSession_InitClearsInconsistentState(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		values map[string]string
	}{
		{"token without user", map[string]string{KeyAccessToken: "tok"}},
		{"user without token", map[string]string{KeyUser: `{"id":"u1"}`}},
		{"corrupt user", map[string]string{KeyAccessToken: "tok", KeyUser: "{not json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStorage()
			for k, v := range tt.values {
				_ = store.Set(ctx, k, v)
			}
			_ = store.Set(ctx, KeyTheme, "dark")

			s := New(store, zerolog.Nop())
			if err := s.Init(ctx); err != nil {
				t.Fatalf("init: %v", err)
			}
			if s.Authenticated() {
				t.Fatalf("inconsistent state must not authenticate")
			}
			for _, key := range []string{KeyAccessToken, KeyUser} {
				if _, ok, _ := store.Get(ctx, key); ok {
					t.Fatalf("%s should have been cleared", key)
				}
			}
			if s.Theme() != ThemeDark {
				t.Fatalf("theme must survive cleanup, got %s", s.Theme())
			}
		})
	}
}

func TestSession_TeardownKeepsTheme(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()
	s := New(store, zerolog.Nop())
	_ = s.Init(ctx)
	_ = s.Begin(ctx, "tok", testUser())
	if err := s.SetTheme(ctx, ThemeLight); err != nil {
		t.Fatalf("set theme: %v", err)
	}

	if err := s.Teardown(ctx); err != nil {
		t.Fatalf("teardown: %v", err)
	}
	if s.Authenticated() || s.Token() != "" || s.User() != nil {
		t.Fatalf("teardown must clear credentials")
	}
	if v, ok, _ := store.Get(ctx, KeyTheme); !ok || v != "light" {
		t.Fatalf("theme must be kept, got %q %v", v, ok)
	}
	if d := s.Guard("/studio", Requirement{}); d.Redirect != "/login?returnTo=%2Fstudio" {
		t.Fatalf("signed-out guard should redirect to login, got %+v", d)
	}
}

func TestSession_TeardownClearsMemoryEvenIfStorageFails(t *testing.T) {
	ctx := context.Background()
	store := &failingStorage{Storage: NewMemoryStorage()}
	s := New(store, zerolog.Nop())
	_ = s.Init(ctx)
	_ = s.Begin(ctx, "tok", testUser())

	store.failRemove = true
	if err := s.Teardown(ctx); err == nil {
		t.Fatalf("expected storage error")
	}
	if s.Authenticated() {
		t.Fatalf("memory state must be cleared regardless of storage")
	}
}

func TestSession_BeginRollsBackOnUserWriteFailure(t *testing.T) {
	ctx := context.Background()
	store := &failingStorage{Storage: NewMemoryStorage(), failSet: map[string]bool{KeyUser: true}}
	s := New(store, zerolog.Nop())
	_ = s.Init(ctx)

	if err := s.Begin(ctx, "tok", testUser()); err == nil {
		t.Fatalf("expected error")
	}
	if s.Authenticated() {
		t.Fatalf("failed begin must not authenticate")
	}
	if _, ok, _ := store.Get(ctx, KeyAccessToken); ok {
		t.Fatalf("token must be rolled back")
	}
}

func TestSession_SetUser(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryStorage(), zerolog.Nop())
	_ = s.Init(ctx)

	if err := s.SetUser(ctx, testUser()); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}

	_ = s.Begin(ctx, "tok", testUser())
	updated := testUser()
	updated.Roles = domain.Roles{domain.RoleAdmin}
	if err := s.SetUser(ctx, updated); err != nil {
		t.Fatalf("set user: %v", err)
	}
	if !s.Permissions().CanManageUsers {
		t.Fatalf("permissions must follow the refreshed roles")
	}

	// The cached user is not aliased by callers.
	u := s.User()
	u.Roles[0] = domain.RoleGuest
	if !s.Permissions().CanManageUsers {
		t.Fatalf("mutating a returned user leaked into the session")
	}
}

func TestSession_SetThemeRejectsUnknown(t *testing.T) {
	s := New(NewMemoryStorage(), zerolog.Nop())
	if err := s.SetTheme(context.Background(), Theme("neon")); err == nil {
		t.Fatalf("expected error for unknown theme")
	}
	if s.Theme() != DefaultTheme {
		t.Fatalf("theme must remain default, got %s", s.Theme())
	}
}

func TestSession_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryStorage(), zerolog.Nop())
	_ = s.Init(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Begin(ctx, "tok", testUser())
			_ = s.Teardown(ctx)
		}()
		go func() {
			defer wg.Done()
			_ = s.Guard("/studio", Requirement{Roles: []domain.Role{domain.RoleCreator}})
			_ = s.Permissions()
		}()
	}
	wg.Wait()
}

func TestSQLiteStorage_RoundTripAndPersistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")

	store, err := OpenSQLite(ctx, "file:"+path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok, err := store.Get(ctx, KeyTheme); ok || err != nil {
		t.Fatalf("missing key must be absent without error: %v %v", ok, err)
	}
	if err := store.Set(ctx, KeyTheme, "dark"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, KeyTheme, "light"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	_ = store.Set(ctx, KeyAccessToken, "tok")
	if err := store.Remove(ctx, KeyAccessToken); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := store.Remove(ctx, "never-set"); err != nil {
		t.Fatalf("removing a missing key: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := OpenSQLite(ctx, "file:"+path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	if v, ok, _ := reopened.Get(ctx, KeyTheme); !ok || v != "light" {
		t.Fatalf("expected persisted light theme, got %q %v", v, ok)
	}
	if _, ok, _ := reopened.Get(ctx, KeyAccessToken); ok {
		t.Fatalf("removed key came back")
	}
}

func TestSession_OnSQLiteStorage(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	s := New(store, zerolog.Nop())
	_ = s.Init(ctx)
	if err := s.Begin(ctx, "tok", testUser()); err != nil {
		t.Fatalf("begin: %v", err)
	}

	restored := New(store, zerolog.Nop())
	if err := restored.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if !restored.Authenticated() {
		t.Fatalf("expected rehydrated session")
	}
}
