package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/mmynk/meshimatch/internal/models"
)

const keyPrefix = "meshimatch:cache:"

// RedisCache stores one Snapshot per member under "meshimatch:cache:{memberID}".
type RedisCache struct {
	client redis.UniversalClient
	log    *slog.Logger
}

// NewRedisCache creates a cache on client.
func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client, log: slog.Default()}
}

func key(memberID string) string {
	return keyPrefix + memberID
}

// Load returns the member's snapshot, or an empty current-version snapshot with
// default filters when nothing is cached.
func (c *RedisCache) Load(ctx context.Context, memberID string) (*Snapshot, error) {
	data, err := c.client.Get(ctx, key(memberID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return &Snapshot{Version: CurrentVersion, Filters: models.DefaultFilters()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache for %s: %w", memberID, err)
	}
	snap, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Save writes the member's snapshot.
func (c *RedisCache) Save(ctx context.Context, memberID string, snap *Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key(memberID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write cache for %s: %w", memberID, err)
	}
	return nil
}

// LoadGroups returns the cached groups.
func (c *RedisCache) LoadGroups(ctx context.Context, memberID string) ([]*models.Group, error) {
	snap, err := c.Load(ctx, memberID)
	if err != nil {
		return nil, err
	}
	return snap.Groups, nil
}

// SaveGroups replaces the cached groups, keeping the rest of the snapshot.
// An unreadable snapshot is replaced rather than blocking the save.
func (c *RedisCache) SaveGroups(ctx context.Context, memberID string, groups []*models.Group) error {
	snap, err := c.Load(ctx, memberID)
	if err != nil {
		c.log.Warn("Replacing unreadable cache snapshot", "member_id", memberID, "error", err)
		snap = &Snapshot{Filters: models.DefaultFilters()}
	}
	snap.Groups = groups
	return c.Save(ctx, memberID, snap)
}

// SaveSaved replaces the cached saved-restaurant list.
func (c *RedisCache) SaveSaved(ctx context.Context, memberID string, saved []models.Restaurant) error {
	snap, err := c.Load(ctx, memberID)
	if err != nil {
		c.log.Warn("Replacing unreadable cache snapshot", "member_id", memberID, "error", err)
		snap = &Snapshot{Filters: models.DefaultFilters()}
	}
	snap.Saved = saved
	return c.Save(ctx, memberID, snap)
}

// Clear removes the member's snapshot.
func (c *RedisCache) Clear(ctx context.Context, memberID string) error {
	if err := c.client.Del(ctx, key(memberID)).Err(); err != nil {
		return fmt.Errorf("failed to clear cache for %s: %w", memberID, err)
	}
	return nil
}
