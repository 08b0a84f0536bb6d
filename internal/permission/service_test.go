package permission

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/pulseboard/pulseboard/testing"
)

type mockStore struct {
	roles  map[uuid.UUID]Role
	pages  map[uuid.UUID][]PageGrant
	charts map[uuid.UUID][]ChartGrant

	roleErr  error
	pagesErr error

	pageListCalls int
}

func newMockStore() *mockStore {
	return &mockStore{
		roles:  make(map[uuid.UUID]Role),
		pages:  make(map[uuid.UUID][]PageGrant),
		charts: make(map[uuid.UUID][]ChartGrant),
	}
}

func (m *mockStore) GetRole(_ context.Context, id uuid.UUID) (Role, error) {
	if m.roleErr != nil {
		return RoleUser, m.roleErr
	}
	role, ok := m.roles[id]
	if !ok {
		return RoleUser, nil
	}
	return role, nil
}

func (m *mockStore) HasRole(_ context.Context, id uuid.UUID, role Role) (bool, error) {
	if m.roleErr != nil {
		return false, m.roleErr
	}
	return m.roles[id] == role, nil
}

func (m *mockStore) CountAdmins(_ context.Context) (int, error) {
	count := 0
	for _, role := range m.roles {
		if role == RoleAdmin {
			count++
		}
	}
	return count, nil
}

func (m *mockStore) UpsertRole(_ context.Context, id uuid.UUID, role Role) error {
	m.roles[id] = role
	return nil
}

func (m *mockStore) ListPageGrants(_ context.Context, id uuid.UUID) ([]PageGrant, error) {
	m.pageListCalls++
	if m.pagesErr != nil {
		return nil, m.pagesErr
	}
	return m.pages[id], nil
}

func (m *mockStore) ListChartGrants(_ context.Context, id uuid.UUID) ([]ChartGrant, error) {
	return m.charts[id], nil
}

func (m *mockStore) ReplacePageGrants(_ context.Context, id uuid.UUID, grants []PageGrant) error {
	m.pages[id] = grants
	return nil
}

func (m *mockStore) ReplaceChartGrants(_ context.Context, id uuid.UUID, grants []ChartGrant) error {
	m.charts[id] = grants
	return nil
}

func (m *mockStore) DeleteAllForIdentity(_ context.Context, id uuid.UUID) error {
	delete(m.roles, id)
	delete(m.pages, id)
	delete(m.charts, id)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCache(t *testing.T) *Cache {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestServiceLoadDeniesOnRoleError(t *testing.T) {
	store := newMockStore()
	store.roleErr = errors.New("connection refused")
	svc := NewService(store, NewCache(nil, 0), discardLogger())

	set, err := svc.Load(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, StateUnknown, set.State)
	for _, page := range AllPages {
		assert.False(t, set.CanAccessPage(page))
	}
}

func TestServiceLoadDeniesOnGrantFetchError(t *testing.T) {
	id := uuid.New()
	store := newMockStore()
	store.roles[id] = RoleBusinessManager
	store.pagesErr = errors.New("timeout")
	svc := NewService(store, NewCache(nil, 0), discardLogger())

	set, err := svc.Load(context.Background(), id)
	require.Error(t, err)
	assert.Equal(t, RoleBusinessManager, set.Role)
	assert.False(t, set.CanAccessPage(PageDashboard))
}

func TestServiceLoadSynthesizesAdminSet(t *testing.T) {
	id := uuid.New()
	store := newMockStore()
	store.roles[id] = RoleAdmin
	svc := NewService(store, NewCache(nil, 0), discardLogger())

	set, err := svc.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, set.Role)
	for _, page := range AllPages {
		assert.True(t, set.CanAccessPage(page))
	}
	for chart := range ChartCatalog {
		assert.True(t, set.CanViewChart(chart, ""))
	}
	// Admin sets are synthesized, never read from grant tables.
	assert.Zero(t, store.pageListCalls)
}

func TestServiceLoadCachesNonAdminSet(t *testing.T) {
	id := uuid.New()
	store := newMockStore()
	store.roles[id] = RoleUser
	store.pages[id] = []PageGrant{{IdentityID: id, Page: PageSales, Allowed: true}}
	svc := NewService(store, testCache(t), discardLogger())

	first, err := svc.Load(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, first.CanAccessPage(PageSales))
	require.Equal(t, 1, store.pageListCalls)

	second, err := svc.Load(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, second.CanAccessPage(PageSales))
	assert.False(t, second.CanAccessPage(PageCreatives))
	assert.Equal(t, 1, store.pageListCalls, "second load should hit the cache")
}

func TestServiceInvalidateForcesReload(t *testing.T) {
	id := uuid.New()
	store := newMockStore()
	store.roles[id] = RoleUser
	store.pages[id] = []PageGrant{{IdentityID: id, Page: PageSales, Allowed: true}}
	svc := NewService(store, testCache(t), discardLogger())

	ctx := context.Background()
	_, err := svc.Load(ctx, id)
	require.NoError(t, err)

	// Replacement semantics: the new set fully supersedes the old one.
	store.pages[id] = []PageGrant{{IdentityID: id, Page: PageCreatives, Allowed: true}}
	svc.Invalidate(ctx, id)

	set, err := svc.Load(ctx, id)
	require.NoError(t, err)
	assert.False(t, set.CanAccessPage(PageSales))
	assert.True(t, set.CanAccessPage(PageCreatives))
	assert.Equal(t, 2, store.pageListCalls)
}

func TestCacheRefusesUnloadedSet(t *testing.T) {
	cache := testCache(t)
	err := cache.Put(context.Background(), uuid.New(), EmptyGrantSet(RoleUser))
	require.Error(t, err)
}

func TestCacheKeyedByRole(t *testing.T) {
	id := uuid.New()
	cache := testCache(t)
	ctx := context.Background()

	set := NewGrantSet(RoleUser, []PageGrant{{IdentityID: id, Page: PageSales, Allowed: true}}, nil)
	require.NoError(t, cache.Put(ctx, id, set))

	_, ok := cache.Get(ctx, id, RoleBusinessManager)
	assert.False(t, ok, "a snapshot must not survive a role switch")

	got, ok := cache.Get(ctx, id, RoleUser)
	require.True(t, ok)
	assert.True(t, got.CanAccessPage(PageSales))
}
