package matching

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/meshimatch/internal/metrics"
	"github.com/mmynk/meshimatch/internal/models"
)

const defaultWriteTimeout = 10 * time.Second

// Engine holds the acting member's view of their groups.
//
// Group snapshots are only mutated through Engine methods: RecordLike, RevokeLike,
// membership operations and merged remote snapshots. Remote writes other than the
// debounced ledger sync run inside the calling method once local state is updated;
// their failures are logged and never undo the local change.
type Engine struct {
	store    RemoteStore
	identity IdentityProvider
	likes    PersonalLikes
	cache    LocalCache
	log      *slog.Logger
	now      func() time.Time

	window       time.Duration
	sched        Scheduler
	writeTimeout time.Duration
	syncer       *Debouncer

	mu      sync.Mutex
	groups  map[string]*models.Group
	profile models.MemberProfile
	subs    map[string]subscription
	subSeq  uint64
}

type subscription struct {
	id     uint64
	cancel func()
}

// Option configures an Engine.
type Option func(*Engine)

// WithPersonalLikes seeds created and joined groups with the member's saved likes.
func WithPersonalLikes(p PersonalLikes) Option {
	return func(e *Engine) { e.likes = p }
}

// WithLocalCache enables optimistic loading from and saving to a local cache.
func WithLocalCache(c LocalCache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithProfile sets the member's display profile recorded on created and joined groups.
func WithProfile(p models.MemberProfile) Option {
	return func(e *Engine) { e.profile = p }
}

// WithDebounceWindow overrides DefaultDebounceWindow.
func WithDebounceWindow(d time.Duration) Option {
	return func(e *Engine) { e.window = d }
}

// WithScheduler replaces the real-timer scheduler used for debouncing.
func WithScheduler(s Scheduler) Option {
	return func(e *Engine) { e.sched = s }
}

// WithWriteTimeout bounds each debounced remote write.
func WithWriteTimeout(d time.Duration) Option {
	return func(e *Engine) { e.writeTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithClock sets the time source used for group creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine for the member named by identity.
func NewEngine(store RemoteStore, identity IdentityProvider, opts ...Option) *Engine {
	e := &Engine{
		store:        store,
		identity:     identity,
		log:          slog.Default(),
		now:          time.Now,
		window:       DefaultDebounceWindow,
		writeTimeout: defaultWriteTimeout,
		groups:       make(map[string]*models.Group),
		subs:         make(map[string]subscription),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.syncer = NewDebouncer(e.window, e.sched)
	return e
}

// Group returns a copy of the loaded group.
func (e *Engine) Group(groupID string) (*models.Group, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	g, ok := e.groups[groupID]
	if !ok {
		return nil, false
	}
	return g.Clone(), true
}

// Groups returns copies of all loaded groups, oldest first.
func (e *Engine) Groups() []*models.Group {
	e.mu.Lock()
	out := make([]*models.Group, 0, len(e.groups))
	for _, g := range e.groups {
		out = append(out, g.Clone())
	}
	e.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// RecordLike adds restaurantID to the member's ledger in the group and schedules a
// remote sync. The group must already be loaded; it reports whether the ledger changed.
func (e *Engine) RecordLike(groupID, restaurantID string) bool {
	return e.mutateLedger(groupID, restaurantID, "like", AddLike)
}

// RevokeLike removes restaurantID from the member's ledger in the group and
// schedules a remote sync. It reports whether the ledger changed.
func (e *Engine) RevokeLike(groupID, restaurantID string) bool {
	return e.mutateLedger(groupID, restaurantID, "unlike", RemoveLike)
}

// RecordLikeAll records restaurantID in every loaded group.
func (e *Engine) RecordLikeAll(restaurantID string) {
	e.mu.Lock()
	ids := make([]string, 0, len(e.groups))
	for id := range e.groups {
		ids = append(ids, id)
	}
	e.mu.Unlock()

	for _, id := range ids {
		e.RecordLike(id, restaurantID)
	}
}

func (e *Engine) mutateLedger(groupID, restaurantID, action string, apply func(*models.Group, string, string) bool) bool {
	self := e.identity.CurrentMemberID()

	e.mu.Lock()
	g, ok := e.groups[groupID]
	if !ok {
		e.mu.Unlock()
		e.log.Warn("Ledger change for unloaded group ignored",
			"group_id", groupID,
			"action", action,
		)
		return false
	}
	changed := apply(g, self, restaurantID)
	e.mu.Unlock()

	if changed {
		metrics.LikesRecorded.WithLabelValues(action).Inc()
	}
	e.ScheduleRemoteSync(groupID, self, func() ([]string, bool) {
		return e.ledgerOf(groupID, self)
	})
	return changed
}

func (e *Engine) ledgerOf(groupID, memberID string) ([]string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	g, ok := e.groups[groupID]
	if !ok {
		return nil, false
	}
	ids := slices.Clone(g.Likes[memberID])
	if ids == nil {
		ids = []string{}
	}
	return ids, true
}

// ScheduleRemoteSync writes the member's full ledger for the group once no further
// change has arrived for one debounce window. The list is read through current when
// the window expires; current returning false (group no longer loaded) skips the
// write. Failures are logged; the next scheduled sync writes the latest state again.
func (e *Engine) ScheduleRemoteSync(groupID, memberID string, current func() ([]string, bool)) {
	e.syncer.Schedule(SyncKey{GroupID: groupID, MemberID: memberID}, func() {
		ids, ok := current()
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), e.writeTimeout)
		defer cancel()

		patch := models.GroupPatch{SetLikes: map[string][]string{memberID: ids}}
		if err := e.store.UpdateGroupFields(ctx, groupID, patch); err != nil {
			metrics.LedgerSyncs.WithLabelValues("error").Inc()
			e.log.Warn("Ledger sync failed",
				"group_id", groupID,
				"member_id", memberID,
				"likes_count", len(ids),
				"error", err,
			)
			return
		}
		metrics.LedgerSyncs.WithLabelValues("ok").Inc()
		e.log.Debug("Ledger synced",
			"group_id", groupID,
			"member_id", memberID,
			"likes_count", len(ids),
		)
	})
}

// Matches returns the group's current matches resolved against catalog.
func (e *Engine) Matches(groupID string, catalog map[string]models.Restaurant) []models.Restaurant {
	g, ok := e.Group(groupID)
	if !ok {
		return nil
	}
	return ComputeMatches(g, catalog)
}

// CreateGroup creates a group with the member as its only member. The member's
// pre-existing personal likes seed their ledger.
func (e *Engine) CreateGroup(ctx context.Context, name string) *models.Group {
	self := e.identity.CurrentMemberID()
	seed := e.seedLikes()

	e.mu.Lock()
	g := &models.Group{
		ID:        uuid.NewString(),
		Code:      GenerateCode(),
		Name:      name,
		Members:   []string{self},
		Likes:     map[string][]string{self: seed},
		CreatedAt: e.now().UnixMilli(),
		CreatedBy: self,
	}
	if e.profile.Name != "" {
		g.Profiles = map[string]models.MemberProfile{self: e.profile}
	}
	e.groups[g.ID] = g
	out := g.Clone()
	e.mu.Unlock()

	if err := e.store.CreateGroup(ctx, out.Clone()); err != nil {
		e.log.Warn("Remote group create failed",
			"group_id", out.ID,
			"code", out.Code,
			"error", err,
		)
	}
	e.saveCache(ctx)

	e.log.Info("Group created", "group_id", out.ID, "code", out.Code, "seed_likes", len(seed))
	return out
}

// JoinGroup joins the group with the given code, looking in loaded groups first and
// the remote store second. Joining a group the member already belongs to returns it
// unchanged. ErrGroupNotFound reports an unknown code; ErrStoreUnavailable reports a
// failed remote lookup.
func (e *Engine) JoinGroup(ctx context.Context, code string) (*models.Group, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, ErrGroupNotFound
	}
	self := e.identity.CurrentMemberID()

	e.mu.Lock()
	local := e.findByCodeLocked(normalized)
	if local != nil && local.HasMember(self) {
		out := local.Clone()
		e.mu.Unlock()
		return out, nil
	}
	e.mu.Unlock()

	if local == nil {
		remote, err := e.store.GetGroupByCode(ctx, normalized)
		if err != nil {
			return nil, fmt.Errorf("failed to look up group %s: %w", normalized, unavailable(err))
		}
		if remote == nil {
			return nil, ErrGroupNotFound
		}
		local = remote
	}

	if local.HasMember(self) {
		return e.reattach(ctx, local), nil
	}

	seed := e.seedLikes()
	e.mu.Lock()
	g := local.Clone()
	if existing, ok := e.groups[g.ID]; ok {
		g = existing
	}
	if !g.HasMember(self) {
		g.Members = append(g.Members, self)
	}
	if g.Likes == nil {
		g.Likes = make(map[string][]string)
	}
	g.Likes[self] = seed
	patch := models.GroupPatch{
		AddMembers: []string{self},
		SetLikes:   map[string][]string{self: slices.Clone(seed)},
	}
	if e.profile.Name != "" {
		if g.Profiles == nil {
			g.Profiles = make(map[string]models.MemberProfile)
		}
		g.Profiles[self] = e.profile
		patch.SetProfiles = map[string]models.MemberProfile{self: e.profile}
	}
	e.groups[g.ID] = g
	out := g.Clone()
	e.mu.Unlock()

	if err := e.store.UpdateGroupFields(ctx, out.ID, patch); err != nil {
		e.log.Warn("Remote group join failed", "group_id", out.ID, "error", err)
	}
	e.saveCache(ctx)

	e.log.Info("Group joined", "group_id", out.ID, "members_count", len(out.Members))
	return out, nil
}

// reattach loads a remote group the member already belongs to and refreshes
// their profile on it.
func (e *Engine) reattach(ctx context.Context, remote *models.Group) *models.Group {
	self := e.identity.CurrentMemberID()

	e.mu.Lock()
	g := MergeRemoteUpdate(e.groups[remote.ID], remote, self)
	profile := e.profile
	if profile.Name != "" {
		if g.Profiles == nil {
			g.Profiles = make(map[string]models.MemberProfile)
		}
		g.Profiles[self] = profile
	}
	e.groups[g.ID] = g
	out := g.Clone()
	e.mu.Unlock()

	if profile.Name != "" {
		patch := models.GroupPatch{SetProfiles: map[string]models.MemberProfile{self: profile}}
		if err := e.store.UpdateGroupFields(ctx, out.ID, patch); err != nil {
			e.log.Warn("Remote profile update failed", "group_id", out.ID, "error", err)
		}
	}
	e.saveCache(ctx)
	return out
}

func (e *Engine) findByCodeLocked(code string) *models.Group {
	for _, g := range e.groups {
		if g.Code == code {
			return g
		}
	}
	return nil
}

// LeaveGroup removes the member from the group. The last member leaving deletes the
// group remotely; otherwise only the member's membership, ledger and profile are
// stripped. Pending ledger writes and the subscription for the group are dropped.
func (e *Engine) LeaveGroup(ctx context.Context, groupID string) {
	self := e.identity.CurrentMemberID()

	e.mu.Lock()
	g, ok := e.groups[groupID]
	if !ok {
		e.mu.Unlock()
		return
	}
	remaining := 0
	for _, m := range g.Members {
		if m != self {
			remaining++
		}
	}
	delete(e.groups, groupID)
	sub, subscribed := e.subs[groupID]
	delete(e.subs, groupID)
	e.mu.Unlock()

	if subscribed {
		sub.cancel()
	}
	e.syncer.Cancel(SyncKey{GroupID: groupID, MemberID: self})

	if remaining == 0 {
		if err := e.store.DeleteGroup(ctx, groupID); err != nil {
			e.log.Warn("Remote group delete failed", "group_id", groupID, "error", err)
		}
	} else {
		patch := models.GroupPatch{
			RemoveMembers:  []string{self},
			RemoveLikes:    []string{self},
			RemoveProfiles: []string{self},
		}
		if err := e.store.UpdateGroupFields(ctx, groupID, patch); err != nil {
			e.log.Warn("Remote group leave failed", "group_id", groupID, "error", err)
		}
	}
	e.saveCache(ctx)

	e.log.Info("Group left", "group_id", groupID, "remaining_members", remaining)
}

// DeleteGroup is LeaveGroup: a group only disappears once its last member leaves.
func (e *Engine) DeleteGroup(ctx context.Context, groupID string) {
	e.LeaveGroup(ctx, groupID)
}

// Subscribe starts merging remote snapshots of the group into local state. Call the
// returned function when the group is no longer observed.
func (e *Engine) Subscribe(ctx context.Context, groupID string) (func(), error) {
	cancel, err := e.store.SubscribeToGroup(ctx, groupID, func(remote *models.Group) {
		e.applyRemote(groupID, remote)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to group %s: %w", groupID, unavailable(err))
	}

	e.mu.Lock()
	prev, hadPrev := e.subs[groupID]
	e.subSeq++
	id := e.subSeq
	e.subs[groupID] = subscription{id: id, cancel: cancel}
	e.mu.Unlock()

	if hadPrev {
		prev.cancel()
	}

	return func() {
		e.mu.Lock()
		cur, ok := e.subs[groupID]
		if ok && cur.id == id {
			delete(e.subs, groupID)
		}
		e.mu.Unlock()
		cancel()
	}, nil
}

// applyRemote merges a pushed snapshot. Snapshots for groups no longer loaded are
// ignored.
func (e *Engine) applyRemote(groupID string, remote *models.Group) {
	if remote == nil || remote.ID != groupID {
		return
	}
	self := e.identity.CurrentMemberID()

	e.mu.Lock()
	defer e.mu.Unlock()
	local, ok := e.groups[groupID]
	if !ok {
		return
	}
	e.groups[groupID] = MergeRemoteUpdate(local, remote, self)
}

// LoadGroups shows cached groups first, then replaces them with the member's remote
// groups merged against local state. On a remote failure the cached view stays and
// the error wraps ErrStoreUnavailable.
func (e *Engine) LoadGroups(ctx context.Context) error {
	self := e.identity.CurrentMemberID()

	if e.cache != nil {
		cached, err := e.cache.LoadGroups(ctx, self)
		if err != nil {
			e.log.Warn("Group cache load failed", "member_id", self, "error", err)
		}
		e.mu.Lock()
		for _, g := range cached {
			if _, ok := e.groups[g.ID]; !ok {
				e.groups[g.ID] = g.Clone()
			}
		}
		e.mu.Unlock()
	}

	remote, err := e.store.ListMemberGroups(ctx, self)
	if err != nil {
		return fmt.Errorf("failed to load groups: %w", unavailable(err))
	}

	e.mu.Lock()
	next := make(map[string]*models.Group, len(remote))
	for _, rg := range remote {
		next[rg.ID] = MergeRemoteUpdate(e.groups[rg.ID], rg, self)
	}
	e.groups = next
	e.mu.Unlock()

	e.saveCache(ctx)
	e.log.Info("Groups loaded", "member_id", self, "count", len(remote))
	return nil
}

// UpdateMemberProfile records the member's new profile on every loaded group and
// pushes it to the remote store.
func (e *Engine) UpdateMemberProfile(ctx context.Context, profile models.MemberProfile) {
	self := e.identity.CurrentMemberID()

	e.mu.Lock()
	e.profile = profile
	var ids []string
	for id, g := range e.groups {
		if !g.HasMember(self) {
			continue
		}
		if g.Profiles == nil {
			g.Profiles = make(map[string]models.MemberProfile)
		}
		g.Profiles[self] = profile
		ids = append(ids, id)
	}
	e.mu.Unlock()

	patch := models.GroupPatch{SetProfiles: map[string]models.MemberProfile{self: profile}}
	for _, id := range ids {
		if err := e.store.UpdateGroupFields(ctx, id, patch); err != nil {
			e.log.Warn("Remote profile update failed", "group_id", id, "error", err)
		}
	}
}

// Close flushes pending ledger writes, saves groups to the local cache, cancels
// subscriptions and forgets all groups.
func (e *Engine) Close(ctx context.Context) {
	e.syncer.Flush()
	e.saveCache(ctx)

	e.mu.Lock()
	subs := e.subs
	e.subs = make(map[string]subscription)
	e.groups = make(map[string]*models.Group)
	e.mu.Unlock()

	for _, sub := range subs {
		sub.cancel()
	}
}

func (e *Engine) seedLikes() []string {
	if e.likes == nil {
		return []string{}
	}
	return uniqueIDs(e.likes.LikedIDs())
}

func (e *Engine) saveCache(ctx context.Context) {
	if e.cache == nil {
		return
	}
	self := e.identity.CurrentMemberID()
	if err := e.cache.SaveGroups(ctx, self, e.Groups()); err != nil {
		e.log.Warn("Group cache save failed", "member_id", self, "error", err)
	}
}
