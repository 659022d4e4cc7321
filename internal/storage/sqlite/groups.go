package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmynk/meshimatch/internal/models"
	"github.com/mmynk/meshimatch/internal/storage"
)

// CreateGroup persists a new group with its members, ledgers and profiles.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().UnixMilli()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Insert group
	_, err = tx.ExecContext(ctx,
		"INSERT INTO groups (id, code, name, created_at, created_by) VALUES (?, ?, ?, ?, ?)",
		group.ID, group.Code, group.Name, group.CreatedAt, group.CreatedBy,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: groups.code") {
			return storage.ErrCodeTaken
		}
		return fmt.Errorf("failed to insert group: %w", err)
	}

	if err := addMembers(ctx, tx, group.ID, group.Members); err != nil {
		return err
	}
	if err := setLikes(ctx, tx, group.ID, group.Likes); err != nil {
		return err
	}
	if err := setProfiles(ctx, tx, group.ID, group.Profiles); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetGroup retrieves a group by ID. Returns nil, nil if not found.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	return loadGroup(ctx, s.db, "id", groupID)
}

// GetGroupByCode retrieves a group by join code. Returns nil, nil if not found.
func (s *SQLiteStore) GetGroupByCode(ctx context.Context, code string) (*models.Group, error) {
	return loadGroup(ctx, s.db, "code", code)
}

// ListGroupsForMember returns the member's groups, oldest first.
func (s *SQLiteStore) ListGroupsForMember(ctx context.Context, memberID string) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.id FROM groups g
		JOIN group_members m ON m.group_id = g.id
		WHERE m.member_id = ?
		ORDER BY g.created_at, g.id
	`, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan group id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	groups := make([]*models.Group, 0, len(ids))
	for _, id := range ids {
		g, err := loadGroup(ctx, s.db, "id", id)
		if err != nil {
			return nil, err
		}
		if g != nil {
			groups = append(groups, g)
		}
	}
	return groups, nil
}

// UpdateGroupFields applies patch in one transaction.
func (s *SQLiteStore) UpdateGroupFields(ctx context.Context, groupID string, patch models.GroupPatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM groups WHERE id = ?", groupID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrGroupNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get group: %w", err)
	}

	if patch.Name != nil {
		if _, err := tx.ExecContext(ctx, "UPDATE groups SET name = ? WHERE id = ?", *patch.Name, groupID); err != nil {
			return fmt.Errorf("failed to rename group: %w", err)
		}
	}
	if err := addMembers(ctx, tx, groupID, patch.AddMembers); err != nil {
		return err
	}
	if err := setLikes(ctx, tx, groupID, patch.SetLikes); err != nil {
		return err
	}
	if err := setProfiles(ctx, tx, groupID, patch.SetProfiles); err != nil {
		return err
	}
	for _, member := range patch.RemoveLikes {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM ledgers WHERE group_id = ? AND member_id = ?", groupID, member,
		); err != nil {
			return fmt.Errorf("failed to remove ledger: %w", err)
		}
	}
	for _, member := range patch.RemoveProfiles {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM member_profiles WHERE group_id = ? AND member_id = ?", groupID, member,
		); err != nil {
			return fmt.Errorf("failed to remove profile: %w", err)
		}
	}
	// Ledgers and profiles cascade
	for _, member := range patch.RemoveMembers {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM group_members WHERE group_id = ? AND member_id = ?", groupID, member,
		); err != nil {
			return fmt.Errorf("failed to remove member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteGroup removes a group; members, ledgers and profiles cascade.
func (s *SQLiteStore) DeleteGroup(ctx context.Context, groupID string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", groupID)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if n == 0 {
		return storage.ErrGroupNotFound
	}
	return nil
}

func addMembers(ctx context.Context, q querier, groupID string, members []string) error {
	for _, member := range members {
		_, err := q.ExecContext(ctx,
			"INSERT OR IGNORE INTO group_members (group_id, member_id) VALUES (?, ?)",
			groupID, member,
		)
		if err != nil {
			return fmt.Errorf("failed to insert member: %w", err)
		}
	}
	return nil
}

func setLikes(ctx context.Context, q querier, groupID string, likes map[string][]string) error {
	for member, ids := range likes {
		if ids == nil {
			ids = []string{}
		}
		encoded, err := json.Marshal(ids)
		if err != nil {
			return fmt.Errorf("failed to encode ledger: %w", err)
		}
		_, err = q.ExecContext(ctx, `
			INSERT INTO ledgers (group_id, member_id, restaurant_ids) VALUES (?, ?, ?)
			ON CONFLICT (group_id, member_id) DO UPDATE SET restaurant_ids = excluded.restaurant_ids
		`, groupID, member, string(encoded))
		if err != nil {
			return fmt.Errorf("failed to write ledger for %s: %w", member, err)
		}
	}
	return nil
}

func setProfiles(ctx context.Context, q querier, groupID string, profiles map[string]models.MemberProfile) error {
	for member, p := range profiles {
		_, err := q.ExecContext(ctx, `
			INSERT INTO member_profiles (group_id, member_id, name, photo_uri) VALUES (?, ?, ?, ?)
			ON CONFLICT (group_id, member_id) DO UPDATE SET name = excluded.name, photo_uri = excluded.photo_uri
		`, groupID, member, p.Name, p.PhotoURI)
		if err != nil {
			return fmt.Errorf("failed to write profile for %s: %w", member, err)
		}
	}
	return nil
}

// loadGroup reads the group whose column equals value, with members in join order.
func loadGroup(ctx context.Context, q querier, column, value string) (*models.Group, error) {
	// column is one of a fixed set chosen by callers in this file
	g := &models.Group{Likes: make(map[string][]string)}
	err := q.QueryRowContext(ctx,
		"SELECT id, code, name, created_at, created_by FROM groups WHERE "+column+" = ?",
		value,
	).Scan(&g.ID, &g.Code, &g.Name, &g.CreatedAt, &g.CreatedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Group not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	// Get members
	rows, err := q.QueryContext(ctx,
		"SELECT member_id FROM group_members WHERE group_id = ? ORDER BY rowid",
		g.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}
	for rows.Next() {
		var member string
		if err := rows.Scan(&member); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		g.Members = append(g.Members, member)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	// Get ledgers
	rows, err = q.QueryContext(ctx,
		"SELECT member_id, restaurant_ids FROM ledgers WHERE group_id = ?",
		g.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledgers: %w", err)
	}
	for rows.Next() {
		var member, encoded string
		if err := rows.Scan(&member, &encoded); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan ledger: %w", err)
		}
		ids := []string{}
		if err := json.Unmarshal([]byte(encoded), &ids); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to decode ledger for %s: %w", member, err)
		}
		g.Likes[member] = ids
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledgers: %w", err)
	}

	// Get profiles
	rows, err = q.QueryContext(ctx,
		"SELECT member_id, name, photo_uri FROM member_profiles WHERE group_id = ?",
		g.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get profiles: %w", err)
	}
	for rows.Next() {
		var member string
		var p models.MemberProfile
		if err := rows.Scan(&member, &p.Name, &p.PhotoURI); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		if g.Profiles == nil {
			g.Profiles = make(map[string]models.MemberProfile)
		}
		g.Profiles[member] = p
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}

	return g, nil
}
