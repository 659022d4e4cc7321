package matching

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mmynk/meshimatch/internal/models"
)

type fakeTimer struct {
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// fakeScheduler records timers and fires them on demand.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(_ time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{f: f}
	s.timers = append(s.timers, t)
	return t
}

// FireAll runs every timer that is neither stopped nor fired.
func (s *fakeScheduler) FireAll() {
	s.mu.Lock()
	var due []*fakeTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	s.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

func (s *fakeScheduler) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type staticIdentity string

func (s staticIdentity) CurrentMemberID() string { return string(s) }

type staticLikes []string

func (s staticLikes) LikedIDs() []string { return s }

type patchCall struct {
	GroupID string
	Patch   models.GroupPatch
}

// fakeStore is an in-memory RemoteStore that records writes.
type fakeStore struct {
	mu      sync.Mutex
	groups  map[string]*models.Group
	creates []*models.Group
	patches []patchCall
	deletes []string
	subs    map[string]func(*models.Group)
	err     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		groups: make(map[string]*models.Group),
		subs:   make(map[string]func(*models.Group)),
	}
}

func (s *fakeStore) put(g *models.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[g.ID] = g.Clone()
}

func (s *fakeStore) GetGroupByCode(_ context.Context, code string) (*models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, g := range s.groups {
		if g.Code == code {
			return g.Clone(), nil
		}
	}
	return nil, nil
}

func (s *fakeStore) ListMemberGroups(_ context.Context, memberID string) ([]*models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []*models.Group
	for _, g := range s.groups {
		if g.HasMember(memberID) {
			out = append(out, g.Clone())
		}
	}
	return out, nil
}

func (s *fakeStore) CreateGroup(_ context.Context, g *models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.creates = append(s.creates, g.Clone())
	s.groups[g.ID] = g.Clone()
	return nil
}

func (s *fakeStore) UpdateGroupFields(_ context.Context, groupID string, patch models.GroupPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patches = append(s.patches, patchCall{GroupID: groupID, Patch: patch})
	if s.err != nil {
		return s.err
	}
	g, ok := s.groups[groupID]
	if !ok {
		return errors.New("no such group")
	}
	for _, m := range patch.AddMembers {
		if !g.HasMember(m) {
			g.Members = append(g.Members, m)
		}
	}
	for member, ids := range patch.SetLikes {
		if g.Likes == nil {
			g.Likes = make(map[string][]string)
		}
		g.Likes[member] = ids
	}
	for _, m := range patch.RemoveMembers {
		for i, cur := range g.Members {
			if cur == m {
				g.Members = append(g.Members[:i], g.Members[i+1:]...)
				break
			}
		}
		delete(g.Likes, m)
		delete(g.Profiles, m)
	}
	for _, m := range patch.RemoveLikes {
		delete(g.Likes, m)
	}
	return nil
}

func (s *fakeStore) DeleteGroup(_ context.Context, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, groupID)
	if s.err != nil {
		return s.err
	}
	delete(s.groups, groupID)
	return nil
}

func (s *fakeStore) SubscribeToGroup(_ context.Context, groupID string, onChange func(*models.Group)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.subs[groupID] = onChange
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, groupID)
	}, nil
}

// push delivers a snapshot to the group's subscriber, if any.
func (s *fakeStore) push(g *models.Group) {
	s.mu.Lock()
	fn := s.subs[g.ID]
	s.mu.Unlock()
	if fn != nil {
		fn(g.Clone())
	}
}

func (s *fakeStore) patchCalls() []patchCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]patchCall(nil), s.patches...)
}

// memCache is an in-memory LocalCache.
type memCache struct {
	mu     sync.Mutex
	groups map[string][]*models.Group
}

func (c *memCache) LoadGroups(_ context.Context, memberID string) ([]*models.Group, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.groups[memberID], nil
}

func (c *memCache) SaveGroups(_ context.Context, memberID string, groups []*models.Group) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.groups == nil {
		c.groups = make(map[string][]*models.Group)
	}
	c.groups[memberID] = groups
	return nil
}
