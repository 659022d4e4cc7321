package models

import "slices"

// Group represents a set of members whose like ledgers are intersected into matches.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string `json:"id"`

	// Code is the human-shareable join code ("MESH-" + 4 base-36 characters).
	Code string `json:"code"`

	// Name is the display name of the group (e.g., "Friday Dinner").
	Name string `json:"name"`

	// Members is the list of member ids. Order carries no meaning for matching.
	Members []string `json:"members"`

	// Likes is the swipe ledger: member id -> liked restaurant ids in like order.
	// A member missing from the map has liked nothing.
	Likes map[string][]string `json:"likes"`

	// Profiles caches each member's display snapshot.
	Profiles map[string]MemberProfile `json:"memberProfiles,omitempty"`

	// CreatedAt is the Unix timestamp (milliseconds) when the group was created.
	CreatedAt int64 `json:"createdAt"`

	// CreatedBy is the member id of the creator.
	CreatedBy string `json:"createdBy"`
}

// MemberProfile is the display snapshot of one member.
type MemberProfile struct {
	Name     string `json:"name"`
	PhotoURI string `json:"photoUri,omitempty"`
}

// HasMember reports whether memberID is a current member.
func (g *Group) HasMember(memberID string) bool {
	return slices.Contains(g.Members, memberID)
}

// LikesOf returns the member's ledger entry and whether one exists.
func (g *Group) LikesOf(memberID string) ([]string, bool) {
	ids, ok := g.Likes[memberID]
	return ids, ok
}

// Clone returns a deep copy of the group.
func (g *Group) Clone() *Group {
	if g == nil {
		return nil
	}
	out := *g
	out.Members = slices.Clone(g.Members)
	if g.Likes != nil {
		out.Likes = make(map[string][]string, len(g.Likes))
		for member, ids := range g.Likes {
			out.Likes[member] = slices.Clone(ids)
		}
	}
	if g.Profiles != nil {
		out.Profiles = make(map[string]MemberProfile, len(g.Profiles))
		for member, p := range g.Profiles {
			out.Profiles[member] = p
		}
	}
	return &out
}

// GroupPatch is a partial update of a stored group. Each member-keyed entry touches
// only that member's path, so concurrent patches for different members never
// overwrite each other.
type GroupPatch struct {
	// Name replaces the display name when non-nil.
	Name *string `json:"name,omitempty"`

	// AddMembers are appended to the membership (set union).
	AddMembers []string `json:"addMembers,omitempty"`

	// RemoveMembers are removed from the membership together with their
	// ledger entries and profiles.
	RemoveMembers []string `json:"removeMembers,omitempty"`

	// SetLikes replaces the ledger entry of each listed member.
	SetLikes map[string][]string `json:"setLikes,omitempty"`

	// RemoveLikes deletes the ledger entry of each listed member.
	RemoveLikes []string `json:"removeLikes,omitempty"`

	// SetProfiles replaces the profile snapshot of each listed member.
	SetProfiles map[string]MemberProfile `json:"setProfiles,omitempty"`

	// RemoveProfiles deletes the profile snapshot of each listed member.
	RemoveProfiles []string `json:"removeProfiles,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p GroupPatch) IsEmpty() bool {
	return p.Name == nil &&
		len(p.AddMembers) == 0 &&
		len(p.RemoveMembers) == 0 &&
		len(p.SetLikes) == 0 &&
		len(p.RemoveLikes) == 0 &&
		len(p.SetProfiles) == 0 &&
		len(p.RemoveProfiles) == 0
}

// MemberIDs returns every member id the patch touches, de-duplicated.
func (p GroupPatch) MemberIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, id := range p.AddMembers {
		add(id)
	}
	for _, id := range p.RemoveMembers {
		add(id)
	}
	for id := range p.SetLikes {
		add(id)
	}
	for _, id := range p.RemoveLikes {
		add(id)
	}
	for id := range p.SetProfiles {
		add(id)
	}
	for _, id := range p.RemoveProfiles {
		add(id)
	}
	return ids
}
