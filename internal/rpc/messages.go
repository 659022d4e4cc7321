package rpc

import "github.com/mmynk/meshimatch/internal/models"

type CreateGroupRequest struct {
	Group *models.Group `json:"group"`
}

type CreateGroupResponse struct {
	Group *models.Group `json:"group"`
}

type GetGroupRequest struct {
	GroupID string `json:"groupId"`
}

type GetGroupResponse struct {
	Group *models.Group `json:"group"`
}

type GetGroupByCodeRequest struct {
	Code string `json:"code"`
}

type GetGroupByCodeResponse struct {
	Group *models.Group `json:"group"`
}

// ListMemberGroupsRequest lists the calling member's groups.
type ListMemberGroupsRequest struct{}

type ListMemberGroupsResponse struct {
	Groups []*models.Group `json:"groups"`
}

type UpdateGroupFieldsRequest struct {
	GroupID string            `json:"groupId"`
	Patch   models.GroupPatch `json:"patch"`
}

// UpdateGroupFieldsResponse carries the group after the patch. Deleted is set,
// and Group is nil, when the patch left the group without members.
type UpdateGroupFieldsResponse struct {
	Group   *models.Group `json:"group,omitempty"`
	Deleted bool          `json:"deleted,omitempty"`
}

type DeleteGroupRequest struct {
	GroupID string `json:"groupId"`
}

// DeleteGroupResponse reports whether the group itself was deleted, or only the
// caller's membership removed because other members remain.
type DeleteGroupResponse struct {
	Deleted bool `json:"deleted"`
}

type WatchGroupRequest struct {
	GroupID string `json:"groupId"`
}

// WatchGroupResponse is one message of the WatchGroup stream.
type WatchGroupResponse struct {
	Group   *models.Group `json:"group,omitempty"`
	Deleted bool          `json:"deleted,omitempty"`
}
