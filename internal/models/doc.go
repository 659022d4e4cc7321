// Package models defines the core domain models for MeshiMatch.
//
// # Models
//
//   - Group: a set of members swiping independently, plus the per-member like ledger
//   - MemberProfile: display snapshot of a member cached on the group for offline display
//   - GroupPatch: a field-path-scoped update applied to a stored group document
//   - Restaurant: a place record as known to the caller (fetched or saved)
//   - Filters: discover-deck filter preferences
//
// # Design Principles
//
// 1. **Opaque identities**: members and restaurants are plain string ids supplied by
// external collaborators (identity provider, places source).
// 2. **Ledger keys follow membership**: every key of Group.Likes names a current member.
// 3. **Absent means empty**: a member without a ledger entry has liked nothing.
// 4. **Avoid circular references**: use ID strings instead of pointers for relationships.
package models
