package matching

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/meshimatch/internal/models"
)

func setupTestEngine(t *testing.T, member string, opts ...Option) (*Engine, *fakeStore, *fakeScheduler) {
	t.Helper()
	store := newFakeStore()
	sched := &fakeScheduler{}
	opts = append([]Option{WithScheduler(sched)}, opts...)
	return NewEngine(store, staticIdentity(member), opts...), store, sched
}

func TestEngineCreateGroupSeedsPersonalLikes(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e, store, _ := setupTestEngine(t, "alice",
		WithPersonalLikes(staticLikes{"r1", "r2", "r1"}),
		WithProfile(models.MemberProfile{Name: "Alice"}),
		WithClock(func() time.Time { return created }),
	)

	g := e.CreateGroup(context.Background(), "Friday Dinner")

	assert.NotEmpty(t, g.ID)
	assert.Equal(t, g.Code, NormalizeCode(g.Code))
	assert.Equal(t, "Friday Dinner", g.Name)
	assert.Equal(t, []string{"alice"}, g.Members)
	assert.Equal(t, []string{"r1", "r2"}, g.Likes["alice"])
	assert.Equal(t, "Alice", g.Profiles["alice"].Name)
	assert.Equal(t, created.UnixMilli(), g.CreatedAt)
	assert.Equal(t, "alice", g.CreatedBy)

	require.Len(t, store.creates, 1)
	assert.Equal(t, g.ID, store.creates[0].ID)
}

func TestEngineCreateGroupSurvivesStoreFailure(t *testing.T) {
	e, store, _ := setupTestEngine(t, "alice")
	store.err = errors.New("offline")

	g := e.CreateGroup(context.Background(), "Lunch")

	loaded, ok := e.Group(g.ID)
	require.True(t, ok)
	assert.Equal(t, "Lunch", loaded.Name)
}

func TestEngineJoinGroup(t *testing.T) {
	e, store, _ := setupTestEngine(t, "bob", WithPersonalLikes(staticLikes{"r7"}))
	store.put(&models.Group{
		ID:      "g1",
		Code:    "MESH-AB12",
		Members: []string{"alice"},
		Likes:   map[string][]string{"alice": {"r1"}},
	})

	g, err := e.JoinGroup(context.Background(), "ab12")
	require.NoError(t, err)

	assert.Equal(t, []string{"alice", "bob"}, g.Members)
	assert.Equal(t, []string{"r7"}, g.Likes["bob"])
	assert.Equal(t, []string{"r1"}, g.Likes["alice"])

	calls := store.patchCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"bob"}, calls[0].Patch.AddMembers)
	assert.Equal(t, map[string][]string{"bob": {"r7"}}, calls[0].Patch.SetLikes)
}

func TestEngineJoinGroupIsIdempotent(t *testing.T) {
	e, store, _ := setupTestEngine(t, "bob")
	store.put(&models.Group{ID: "g1", Code: "MESH-AB12", Members: []string{"alice"}})

	_, err := e.JoinGroup(context.Background(), "MESH-AB12")
	require.NoError(t, err)
	g, err := e.JoinGroup(context.Background(), "MESH-AB12")
	require.NoError(t, err)

	assert.Equal(t, []string{"alice", "bob"}, g.Members)
	assert.Len(t, store.patchCalls(), 1, "second join writes nothing")
}

func TestEngineJoinGroupAlreadyMemberRemotely(t *testing.T) {
	e, store, _ := setupTestEngine(t, "bob")
	store.put(&models.Group{
		ID:      "g1",
		Code:    "MESH-AB12",
		Members: []string{"alice", "bob"},
		Likes:   map[string][]string{"bob": {"r2"}},
	})

	g, err := e.JoinGroup(context.Background(), "MESH-AB12")
	require.NoError(t, err)

	assert.Equal(t, []string{"alice", "bob"}, g.Members)
	assert.Equal(t, []string{"r2"}, g.Likes["bob"])
	assert.Empty(t, store.patchCalls())
}

func TestEngineJoinGroupNotFound(t *testing.T) {
	e, _, _ := setupTestEngine(t, "bob")

	_, err := e.JoinGroup(context.Background(), "MESH-ZZZZ")
	assert.ErrorIs(t, err, ErrGroupNotFound)
	assert.NotErrorIs(t, err, ErrStoreUnavailable)

	_, err = e.JoinGroup(context.Background(), "not a code")
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestEngineJoinGroupStoreUnavailable(t *testing.T) {
	e, store, _ := setupTestEngine(t, "bob")
	store.err = errors.New("dial tcp: connection refused")

	_, err := e.JoinGroup(context.Background(), "MESH-AB12")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.NotErrorIs(t, err, ErrGroupNotFound)
}

func TestEngineDebouncedSyncWritesLatestState(t *testing.T) {
	e, store, sched := setupTestEngine(t, "alice")
	g := e.CreateGroup(context.Background(), "Dinner")

	assert.True(t, e.RecordLike(g.ID, "r1"))
	assert.True(t, e.RecordLike(g.ID, "r2"))
	assert.False(t, e.RecordLike(g.ID, "r2"))
	assert.True(t, e.RevokeLike(g.ID, "r1"))
	assert.True(t, e.RecordLike(g.ID, "r3"))
	assert.Empty(t, store.patchCalls(), "nothing is written inside the window")

	sched.FireAll()

	calls := store.patchCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, g.ID, calls[0].GroupID)
	assert.Equal(t, map[string][]string{"alice": {"r2", "r3"}}, calls[0].Patch.SetLikes)
}

func TestEngineSyncReadsStateAtExpiry(t *testing.T) {
	e, store, sched := setupTestEngine(t, "alice")
	g := e.CreateGroup(context.Background(), "Dinner")
	_, err := e.Subscribe(context.Background(), g.ID)
	require.NoError(t, err)

	e.RecordLike(g.ID, "r1")
	// A remote echo lands between the like and the write; the own ledger survives it.
	store.push(&models.Group{ID: g.ID, Members: []string{"alice"}, Likes: map[string][]string{"alice": {}}})
	e.RecordLike(g.ID, "r2")

	sched.FireAll()
	calls := store.patchCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"r1", "r2"}, calls[0].Patch.SetLikes["alice"])
}

func TestEngineSyncFailureKeepsLocalState(t *testing.T) {
	e, store, sched := setupTestEngine(t, "alice")
	g := e.CreateGroup(context.Background(), "Dinner")
	store.err = errors.New("offline")

	e.RecordLike(g.ID, "r1")
	sched.FireAll()

	local, ok := e.Group(g.ID)
	require.True(t, ok)
	assert.Equal(t, []string{"r1"}, local.Likes["alice"])

	store.err = nil
	e.RecordLike(g.ID, "r2")
	sched.FireAll()

	calls := store.patchCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"r1", "r2"}, calls[1].Patch.SetLikes["alice"])
}

func TestEngineRecordLikeUnknownGroup(t *testing.T) {
	e, store, sched := setupTestEngine(t, "alice")

	assert.False(t, e.RecordLike("missing", "r1"))
	sched.FireAll()
	assert.Empty(t, store.patchCalls())
}

func TestEngineRecordLikeAll(t *testing.T) {
	e, _, _ := setupTestEngine(t, "alice")
	g1 := e.CreateGroup(context.Background(), "One")
	g2 := e.CreateGroup(context.Background(), "Two")

	e.RecordLikeAll("r9")

	for _, id := range []string{g1.ID, g2.ID} {
		g, ok := e.Group(id)
		require.True(t, ok)
		assert.Equal(t, []string{"r9"}, g.Likes["alice"])
	}
}

func TestEngineSubscribeMergesRemote(t *testing.T) {
	e, store, _ := setupTestEngine(t, "alice")
	g := e.CreateGroup(context.Background(), "Dinner")
	e.RecordLike(g.ID, "r1")

	unsubscribe, err := e.Subscribe(context.Background(), g.ID)
	require.NoError(t, err)

	store.push(&models.Group{
		ID:      g.ID,
		Code:    g.Code,
		Name:    "Renamed",
		Members: []string{"alice", "bob"},
		Likes:   map[string][]string{"alice": {"stale"}, "bob": {"r1"}},
	})

	merged, ok := e.Group(g.ID)
	require.True(t, ok)
	assert.Equal(t, "Renamed", merged.Name)
	assert.Equal(t, []string{"r1"}, merged.Likes["alice"])
	assert.Equal(t, []string{"r1"}, merged.Likes["bob"])
	assert.Equal(t, []string{"r1"}, matchIDs(e.Matches(g.ID, catalogOf("r1"))))

	unsubscribe()
	store.push(&models.Group{ID: g.ID, Name: "Ignored", Members: []string{"alice"}})
	after, _ := e.Group(g.ID)
	assert.Equal(t, "Renamed", after.Name)
}

func TestEngineLeaveGroup(t *testing.T) {
	e, store, sched := setupTestEngine(t, "bob")
	store.put(&models.Group{ID: "g1", Code: "MESH-AB12", Members: []string{"alice"}})
	_, err := e.JoinGroup(context.Background(), "MESH-AB12")
	require.NoError(t, err)

	e.RecordLike("g1", "r1")
	e.LeaveGroup(context.Background(), "g1")
	sched.FireAll()

	_, ok := e.Group("g1")
	assert.False(t, ok)

	calls := store.patchCalls()
	require.Len(t, calls, 2, "pending ledger write is dropped")
	assert.Equal(t, []string{"bob"}, calls[1].Patch.RemoveMembers)
	assert.Equal(t, []string{"bob"}, calls[1].Patch.RemoveLikes)
	assert.Empty(t, store.deletes)

	remote, err := store.GetGroupByCode(context.Background(), "MESH-AB12")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, remote.Members)
	assert.NotContains(t, remote.Likes, "bob")
}

func TestEngineLastMemberLeaveDeletesGroup(t *testing.T) {
	e, store, _ := setupTestEngine(t, "alice")
	g := e.CreateGroup(context.Background(), "Solo")

	e.LeaveGroup(context.Background(), g.ID)

	assert.Equal(t, []string{g.ID}, store.deletes)
	remote, err := store.GetGroupByCode(context.Background(), g.Code)
	require.NoError(t, err)
	assert.Nil(t, remote)
}

func TestEngineLoadGroups(t *testing.T) {
	cache := &memCache{}
	e, store, _ := setupTestEngine(t, "alice", WithLocalCache(cache))

	cached := &models.Group{ID: "g1", Code: "MESH-AAAA", Members: []string{"alice", "bob"},
		Likes: map[string][]string{"alice": {"r1", "r2"}}, CreatedAt: 1}
	require.NoError(t, cache.SaveGroups(context.Background(), "alice", []*models.Group{cached}))

	store.put(&models.Group{ID: "g1", Code: "MESH-AAAA", Members: []string{"alice", "bob"},
		Likes: map[string][]string{"alice": {"r1"}, "bob": {"r2"}}, CreatedAt: 1})
	store.put(&models.Group{ID: "g2", Code: "MESH-BBBB", Members: []string{"alice"}, CreatedAt: 2})

	require.NoError(t, e.LoadGroups(context.Background()))

	groups := e.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, "g1", groups[0].ID)
	assert.Equal(t, []string{"r1", "r2"}, groups[0].Likes["alice"], "cached own ledger wins")
	assert.Equal(t, []string{"r2"}, groups[0].Likes["bob"])

	saved, err := cache.LoadGroups(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, saved, 2)
}

func TestEngineLoadGroupsStoreUnavailable(t *testing.T) {
	cache := &memCache{}
	e, store, _ := setupTestEngine(t, "alice", WithLocalCache(cache))
	require.NoError(t, cache.SaveGroups(context.Background(), "alice",
		[]*models.Group{{ID: "g1", Members: []string{"alice"}}}))
	store.err = errors.New("offline")

	err := e.LoadGroups(context.Background())
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, ok := e.Group("g1")
	assert.True(t, ok, "cached groups stay visible")
}

func TestEngineUpdateMemberProfile(t *testing.T) {
	e, store, _ := setupTestEngine(t, "alice")
	g := e.CreateGroup(context.Background(), "Dinner")

	e.UpdateMemberProfile(context.Background(), models.MemberProfile{Name: "Alice", PhotoURI: "a.png"})

	local, _ := e.Group(g.ID)
	assert.Equal(t, "a.png", local.Profiles["alice"].PhotoURI)
	calls := store.patchCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Alice", calls[0].Patch.SetProfiles["alice"].Name)
}

func TestEngineCloseFlushesPendingWrites(t *testing.T) {
	cache := &memCache{}
	e, store, _ := setupTestEngine(t, "alice", WithLocalCache(cache))
	g := e.CreateGroup(context.Background(), "Dinner")
	e.RecordLike(g.ID, "r1")

	e.Close(context.Background())

	calls := store.patchCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"r1"}, calls[0].Patch.SetLikes["alice"])
	assert.Empty(t, e.Groups())

	saved, _ := cache.LoadGroups(context.Background(), "alice")
	require.Len(t, saved, 1)
	assert.Equal(t, []string{"r1"}, saved[0].Likes["alice"])
}
