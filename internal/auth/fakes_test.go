package auth

import (
	"context"
	"sync"
	"time"

	"github.com/lws803/soul/internal/cache"
	"github.com/lws803/soul/internal/domain/repository"
	"github.com/lws803/soul/internal/domain/types"
	"github.com/lws803/soul/internal/token"
)

// Repos in-memory para testear el flow engine sin Postgres.

type fakeUsers struct {
	mu    sync.Mutex
	byID  map[int64]*types.User
	users []*types.User
}

func newFakeUsers(users ...*types.User) *fakeUsers {
	f := &fakeUsers{byID: make(map[int64]*types.User)}
	for _, u := range users {
		f.byID[u.ID] = u
		f.users = append(f.users, u)
	}
	return f
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

type fakePlatforms struct {
	byID map[int64]*types.Platform
}

func newFakePlatforms(platforms ...*types.Platform) *fakePlatforms {
	f := &fakePlatforms{byID: make(map[int64]*types.Platform)}
	for _, p := range platforms {
		f.byID[p.ID] = p
	}
	return f
}

func (f *fakePlatforms) GetByID(_ context.Context, id int64) (*types.Platform, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

type fakePlatformUsers struct {
	mu   sync.Mutex
	byID map[int64]*types.PlatformUser
}

func newFakePlatformUsers(memberships ...*types.PlatformUser) *fakePlatformUsers {
	f := &fakePlatformUsers{byID: make(map[int64]*types.PlatformUser)}
	for _, m := range memberships {
		f.byID[m.ID] = m
	}
	return f
}

func (f *fakePlatformUsers) GetByID(_ context.Context, id int64) (*types.PlatformUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakePlatformUsers) GetByUserAndPlatform(_ context.Context, userID, platformID int64) (*types.PlatformUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.byID {
		if m.UserID == userID && m.PlatformID == platformID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakePlatformUsers) ListByPlatformAndRole(_ context.Context, platformID int64, role types.UserRole) ([]types.PlatformUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.PlatformUser
	for _, m := range f.byID {
		if m.PlatformID == platformID && types.HasRole(m.Roles, role) {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakePlatformUsers) UpdateRoles(_ context.Context, id int64, roles []types.UserRole) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	m.Roles = roles
	return nil
}

type fakeTokens struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*repository.RefreshToken

	users       *fakeUsers
	memberships *fakePlatformUsers
}

func newFakeTokens(users *fakeUsers, memberships *fakePlatformUsers) *fakeTokens {
	return &fakeTokens{nextID: 1, rows: make(map[int64]*repository.RefreshToken), users: users, memberships: memberships}
}

func (f *fakeTokens) Create(_ context.Context, in repository.CreateRefreshTokenInput) (*repository.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	row := &repository.RefreshToken{
		ID:             f.nextID,
		UserID:         in.UserID,
		PlatformUserID: in.PlatformUserID,
		Expires:        now.Add(in.TTL),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	f.nextID++
	f.rows[row.ID] = row
	cp := *row
	return &cp, nil
}

func (f *fakeTokens) GetByID(ctx context.Context, id int64) (*repository.RefreshToken, error) {
	f.mu.Lock()
	row, ok := f.rows[id]
	if !ok {
		f.mu.Unlock()
		return nil, repository.ErrNotFound
	}
	cp := *row
	f.mu.Unlock()

	user, err := f.users.GetByID(ctx, cp.UserID)
	if err != nil {
		return nil, err
	}
	cp.User = user
	if cp.PlatformUserID != nil {
		membership, err := f.memberships.GetByID(ctx, *cp.PlatformUserID)
		if err != nil {
			return nil, err
		}
		cp.PlatformUser = membership
	}
	return &cp, nil
}

func (f *fakeTokens) RevokeByID(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok || row.IsRevoked {
		return false, nil
	}
	row.IsRevoked = true
	row.UpdatedAt = time.Now().UTC()
	return true, nil
}

func matchesSelector(row *repository.RefreshToken, sel repository.RefreshTokenSelector) bool {
	if row.UserID != sel.UserID {
		return false
	}
	if sel.PlatformUserID == nil {
		return row.PlatformUserID == nil
	}
	return row.PlatformUserID != nil && *row.PlatformUserID == *sel.PlatformUserID
}

func (f *fakeTokens) RevokeBySelector(_ context.Context, sel repository.RefreshTokenSelector) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, row := range f.rows {
		if matchesSelector(row, sel) && !row.IsRevoked {
			row.IsRevoked = true
			n++
		}
	}
	return n, nil
}

func (f *fakeTokens) DeleteBySelector(_ context.Context, sel repository.RefreshTokenSelector) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, row := range f.rows {
		if matchesSelector(row, sel) {
			delete(f.rows, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeTokens) DeleteExpiredOrRevoked(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	var n int64
	for id, row := range f.rows {
		if row.IsRevoked || !row.Expires.After(now) {
			delete(f.rows, id)
			n++
		}
	}
	return n, nil
}

// count retorna cuántas filas vivas (no revocadas) matchean el selector.
func (f *fakeTokens) count(sel repository.RefreshTokenSelector) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, row := range f.rows {
		if matchesSelector(row, sel) && !row.IsRevoked {
			n++
		}
	}
	return n
}

// testEnv arma un engine completo sobre fakes con datos de fixture.
type testEnv struct {
	svc         *Service
	users       *fakeUsers
	platforms   *fakePlatforms
	memberships *fakePlatformUsers
	tokens      *fakeTokens
	codec       *token.Codec
	pkce        *ChallengeCache
}

const (
	fixtureHubID      = int64(1)
	fixturePlatformID = int64(2)
)

func newTestEnv(rotate bool) *testEnv {
	homepage := "https://p2.example.com"
	users := newFakeUsers(
		&types.User{ID: 10, Email: "ada@example.com", Username: "ada", IsActive: true},
		&types.User{ID: 11, Email: "bob@example.com", Username: "bob", IsActive: false},
	)
	platforms := newFakePlatforms(
		&types.Platform{ID: fixtureHubID, Name: "Hub", NameHandle: "hub#1", RedirectURIs: []string{"https://hub.example.com/callback"}},
		&types.Platform{ID: fixturePlatformID, Name: "Forum", NameHandle: "forum#2",
			RedirectURIs: []string{"https://p2.example.com/callback"}, HomepageURL: &homepage},
	)
	memberships := newFakePlatformUsers(
		&types.PlatformUser{ID: 100, UserID: 10, PlatformID: fixtureHubID, Roles: []types.UserRole{types.RoleAdmin, types.RoleMember}},
		&types.PlatformUser{ID: 101, UserID: 10, PlatformID: fixturePlatformID, Roles: []types.UserRole{types.RoleMember}},
	)
	toks := newFakeTokens(users, memberships)
	codec := token.NewCodec("test-secret")
	pkce := NewChallengeCache(cache.NewMemory("test"), 5*time.Minute)

	svc := NewService(Deps{
		Users:         users,
		Platforms:     platforms,
		PlatformUsers: memberships,
		Tokens:        toks,
		Codec:         codec,
		PKCE:          pkce,
		Config: Config{
			AccessTTL:           15 * time.Minute,
			RefreshTTL:          24 * time.Hour,
			CodeTTL:             time.Minute,
			RotateRefreshTokens: rotate,
			HostURL:             "https://soul.example.com",
		},
	})

	return &testEnv{svc: svc, users: users, platforms: platforms, memberships: memberships, tokens: toks, codec: codec, pkce: pkce}
}

func (e *testEnv) activeUser() *types.User {
	u, _ := e.users.GetByID(context.Background(), 10)
	return u
}

func (e *testEnv) inactiveUser() *types.User {
	u, _ := e.users.GetByID(context.Background(), 11)
	return u
}
