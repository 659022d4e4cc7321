// Package matching keeps a member's swipe ledgers for every group they belong to,
// reconciles them with the remote group store and intersects them into matches.
//
// The acting member's own ledger is authoritative locally: it is written to the
// remote store through a debounced sync and is never overwritten by a remote
// snapshot. Every other member's ledger comes from the remote store.
package matching

import (
	"context"
	"errors"

	"github.com/mmynk/meshimatch/internal/models"
)

var (
	// ErrGroupNotFound is returned when a join code resolves to no group.
	ErrGroupNotFound = errors.New("group not found")

	// ErrStoreUnavailable marks failures to reach the remote store.
	ErrStoreUnavailable = errors.New("group store unavailable")
)

// RemoteStore is the document store holding the shared group records.
// Lookups return (nil, nil) when no document matches.
type RemoteStore interface {
	GetGroupByCode(ctx context.Context, code string) (*models.Group, error)
	ListMemberGroups(ctx context.Context, memberID string) ([]*models.Group, error)
	CreateGroup(ctx context.Context, group *models.Group) error

	// UpdateGroupFields applies a field-path-scoped patch; entries for one member
	// never overwrite another member's fields.
	UpdateGroupFields(ctx context.Context, groupID string, patch models.GroupPatch) error

	DeleteGroup(ctx context.Context, groupID string) error

	// SubscribeToGroup delivers fresh snapshots of the group to onChange until the
	// returned function is called.
	SubscribeToGroup(ctx context.Context, groupID string, onChange func(*models.Group)) (func(), error)
}

// IdentityProvider supplies the id of the member acting on this engine.
type IdentityProvider interface {
	CurrentMemberID() string
}

// PersonalLikes supplies the restaurants the member liked outside any group.
// They seed the member's ledger when creating or joining a group.
type PersonalLikes interface {
	LikedIDs() []string
}

// LocalCache persists the member's groups for optimistic startup.
type LocalCache interface {
	LoadGroups(ctx context.Context, memberID string) ([]*models.Group, error)
	SaveGroups(ctx context.Context, memberID string, groups []*models.Group) error
}

func unavailable(err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return errors.Join(ErrStoreUnavailable, err)
}
