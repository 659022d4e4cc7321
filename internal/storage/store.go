// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/meshimatch/internal/models"
)

var (
	// ErrGroupNotFound is returned by writes addressed to a group that does not exist.
	ErrGroupNotFound = errors.New("group not found")

	// ErrCodeTaken is returned when creating a group whose join code is already in use.
	ErrCodeTaken = errors.New("group code already in use")
)

// Store defines the interface for group document storage.
// This abstraction allows swapping storage backends (SQLite, DynamoDB)
// without changing the service layer.
type Store interface {
	// CreateGroup persists a new group. The group ID and code must be set.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group by its ID.
	// Returns nil, nil if the group is not found.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// GetGroupByCode retrieves a group by its join code.
	// Returns nil, nil if no group has that code.
	GetGroupByCode(ctx context.Context, code string) (*models.Group, error)

	// ListGroupsForMember returns every group the member belongs to, oldest first.
	ListGroupsForMember(ctx context.Context, memberID string) ([]*models.Group, error)

	// UpdateGroupFields applies patch atomically. Member-keyed entries only touch
	// that member's fields. Removing a member also removes their ledger and profile.
	// Returns ErrGroupNotFound if the group does not exist.
	UpdateGroupFields(ctx context.Context, groupID string, patch models.GroupPatch) error

	// DeleteGroup removes a group and everything stored under it.
	// Returns ErrGroupNotFound if the group does not exist.
	DeleteGroup(ctx context.Context, groupID string) error

	// Close releases any resources held by the store.
	Close() error
}
