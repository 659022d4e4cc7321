package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/mmynk/meshimatch/internal/matching"
	"github.com/mmynk/meshimatch/internal/metrics"
	"github.com/mmynk/meshimatch/internal/middleware"
	"github.com/mmynk/meshimatch/internal/models"
	"github.com/mmynk/meshimatch/internal/pubsub"
	"github.com/mmynk/meshimatch/internal/rpc"
	"github.com/mmynk/meshimatch/internal/storage"
)

var (
	errNotMember     = errors.New("caller is not a member of the group")
	errForeignMember = errors.New("patch touches another member's fields")
)

// GroupStoreService implements the Connect GroupStoreService. Every call acts on
// behalf of the member authenticated by the auth interceptor.
type GroupStoreService struct {
	store  storage.Store
	broker pubsub.Broker
}

var _ rpc.GroupStoreServiceHandler = (*GroupStoreService)(nil)

// NewGroupStoreService creates a new GroupStoreService with the given storage backend
// and change broker.
func NewGroupStoreService(store storage.Store, broker pubsub.Broker) *GroupStoreService {
	return &GroupStoreService{store: store, broker: broker}
}

// CreateGroup creates a new group whose only member is the caller.
func (s *GroupStoreService) CreateGroup(ctx context.Context, req *connect.Request[rpc.CreateGroupRequest]) (*connect.Response[rpc.CreateGroupResponse], error) {
	caller := middleware.GetMemberID(ctx)
	slog.Info("CreateGroup request received", "member_id", caller)

	if req.Msg.Group == nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("group is required"))
	}
	group := req.Msg.Group.Clone()

	if len(group.Members) != 1 || group.Members[0] != caller {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("a new group must list only the caller as member"))
	}
	for member := range group.Likes {
		if member != caller {
			return nil, connect.NewError(connect.CodePermissionDenied, errForeignMember)
		}
	}
	for member := range group.Profiles {
		if member != caller {
			return nil, connect.NewError(connect.CodePermissionDenied, errForeignMember)
		}
	}

	if group.Code == "" {
		group.Code = matching.GenerateCode()
	}
	code := matching.NormalizeCode(group.Code)
	if code == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("invalid group code"))
	}
	group.Code = code
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().UnixMilli()
	}
	group.CreatedBy = caller
	if group.Likes == nil {
		group.Likes = make(map[string][]string)
	}

	if err := s.store.CreateGroup(ctx, group); err != nil {
		slog.Error("CreateGroup failed", "group_id", group.ID, "error", err)
		if errors.Is(err, storage.ErrCodeTaken) {
			return nil, connect.NewError(connect.CodeAlreadyExists, err)
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	slog.Info("Group created", "group_id", group.ID, "code", group.Code)
	s.publish(ctx, pubsub.Event{GroupID: group.ID, Group: group})

	return connect.NewResponse(&rpc.CreateGroupResponse{Group: group}), nil
}

// GetGroup retrieves a group by ID. Only members may read it.
func (s *GroupStoreService) GetGroup(ctx context.Context, req *connect.Request[rpc.GetGroupRequest]) (*connect.Response[rpc.GetGroupResponse], error) {
	caller := middleware.GetMemberID(ctx)
	slog.Info("GetGroup request received", "group_id", req.Msg.GroupID, "member_id", caller)

	group, err := s.memberGroup(ctx, req.Msg.GroupID, caller)
	if err != nil {
		return nil, err
	}

	return connect.NewResponse(&rpc.GetGroupResponse{Group: group}), nil
}

// GetGroupByCode resolves a join code. Any authenticated member may look a code up,
// since that is how they join.
func (s *GroupStoreService) GetGroupByCode(ctx context.Context, req *connect.Request[rpc.GetGroupByCodeRequest]) (*connect.Response[rpc.GetGroupByCodeResponse], error) {
	slog.Info("GetGroupByCode request received", "code", req.Msg.Code)

	code := matching.NormalizeCode(req.Msg.Code)
	if code == "" {
		return nil, connect.NewError(connect.CodeNotFound, storage.ErrGroupNotFound)
	}

	group, err := s.store.GetGroupByCode(ctx, code)
	if err != nil {
		slog.Error("GetGroupByCode failed", "code", code, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if group == nil {
		return nil, connect.NewError(connect.CodeNotFound, storage.ErrGroupNotFound)
	}

	return connect.NewResponse(&rpc.GetGroupByCodeResponse{Group: group}), nil
}

// ListMemberGroups returns every group the caller belongs to.
func (s *GroupStoreService) ListMemberGroups(ctx context.Context, req *connect.Request[rpc.ListMemberGroupsRequest]) (*connect.Response[rpc.ListMemberGroupsResponse], error) {
	caller := middleware.GetMemberID(ctx)
	slog.Info("ListMemberGroups request received", "member_id", caller)

	groups, err := s.store.ListGroupsForMember(ctx, caller)
	if err != nil {
		slog.Error("ListMemberGroups failed", "member_id", caller, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	slog.Info("ListMemberGroups successful", "member_id", caller, "count", len(groups))

	return connect.NewResponse(&rpc.ListMemberGroupsResponse{Groups: groups}), nil
}

// UpdateGroupFields applies a member-scoped patch. A caller may only touch their
// own member entries; a non-member may only patch when adding themselves.
// A patch that leaves the group without members deletes it.
func (s *GroupStoreService) UpdateGroupFields(ctx context.Context, req *connect.Request[rpc.UpdateGroupFieldsRequest]) (*connect.Response[rpc.UpdateGroupFieldsResponse], error) {
	caller := middleware.GetMemberID(ctx)
	groupID := req.Msg.GroupID
	patch := req.Msg.Patch
	slog.Info("UpdateGroupFields request received",
		"group_id", groupID,
		"member_id", caller,
		"add_members", len(patch.AddMembers),
		"remove_members", len(patch.RemoveMembers),
		"set_likes", len(patch.SetLikes),
	)

	for _, member := range patch.MemberIDs() {
		if member != caller {
			return nil, connect.NewError(connect.CodePermissionDenied, errForeignMember)
		}
	}

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		slog.Error("UpdateGroupFields failed", "group_id", groupID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if group == nil {
		return nil, connect.NewError(connect.CodeNotFound, storage.ErrGroupNotFound)
	}
	if !group.HasMember(caller) && !slices.Contains(patch.AddMembers, caller) {
		return nil, connect.NewError(connect.CodePermissionDenied, errNotMember)
	}

	if err := s.store.UpdateGroupFields(ctx, groupID, patch); err != nil {
		slog.Error("UpdateGroupFields failed", "group_id", groupID, "error", err)
		return nil, toConnectError(err)
	}

	updated, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		slog.Error("UpdateGroupFields reload failed", "group_id", groupID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if updated == nil {
		return nil, connect.NewError(connect.CodeNotFound, storage.ErrGroupNotFound)
	}

	if len(updated.Members) == 0 {
		if err := s.store.DeleteGroup(ctx, groupID); err != nil && !errors.Is(err, storage.ErrGroupNotFound) {
			slog.Error("UpdateGroupFields delete of empty group failed", "group_id", groupID, "error", err)
			return nil, connect.NewError(connect.CodeInternal, err)
		}
		slog.Info("Group deleted after last member left", "group_id", groupID)
		s.publish(ctx, pubsub.Event{GroupID: groupID, Deleted: true})
		return connect.NewResponse(&rpc.UpdateGroupFieldsResponse{Deleted: true}), nil
	}

	s.publish(ctx, pubsub.Event{GroupID: groupID, Group: updated})
	return connect.NewResponse(&rpc.UpdateGroupFieldsResponse{Group: updated}), nil
}

// DeleteGroup removes the caller from the group, deleting the group itself when
// no other member remains.
func (s *GroupStoreService) DeleteGroup(ctx context.Context, req *connect.Request[rpc.DeleteGroupRequest]) (*connect.Response[rpc.DeleteGroupResponse], error) {
	caller := middleware.GetMemberID(ctx)
	groupID := req.Msg.GroupID
	slog.Info("DeleteGroup request received", "group_id", groupID, "member_id", caller)

	group, err := s.memberGroup(ctx, groupID, caller)
	if err != nil {
		return nil, err
	}

	if len(group.Members) > 1 {
		patch := models.GroupPatch{
			RemoveMembers:  []string{caller},
			RemoveLikes:    []string{caller},
			RemoveProfiles: []string{caller},
		}
		if err := s.store.UpdateGroupFields(ctx, groupID, patch); err != nil {
			slog.Error("DeleteGroup failed", "group_id", groupID, "error", err)
			return nil, toConnectError(err)
		}
		if updated, err := s.store.GetGroup(ctx, groupID); err == nil && updated != nil {
			s.publish(ctx, pubsub.Event{GroupID: groupID, Group: updated})
		}
		slog.Info("Member left group", "group_id", groupID, "member_id", caller)
		return connect.NewResponse(&rpc.DeleteGroupResponse{Deleted: false}), nil
	}

	if err := s.store.DeleteGroup(ctx, groupID); err != nil {
		slog.Error("DeleteGroup failed", "group_id", groupID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Group deleted", "group_id", groupID)
	s.publish(ctx, pubsub.Event{GroupID: groupID, Deleted: true})

	return connect.NewResponse(&rpc.DeleteGroupResponse{Deleted: true}), nil
}

// WatchGroup streams the current group snapshot, then every later change, until
// the group is deleted, the caller stops being a member or the client goes away.
func (s *GroupStoreService) WatchGroup(ctx context.Context, req *connect.Request[rpc.WatchGroupRequest], stream *connect.ServerStream[rpc.WatchGroupResponse]) error {
	caller := middleware.GetMemberID(ctx)
	groupID := req.Msg.GroupID
	slog.Info("WatchGroup request received", "group_id", groupID, "member_id", caller)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Subscribe before reading so no change between the read and the
	// subscription is lost.
	events, err := s.broker.Subscribe(ctx, groupID)
	if err != nil {
		slog.Error("WatchGroup subscribe failed", "group_id", groupID, "error", err)
		return connect.NewError(connect.CodeUnavailable, err)
	}

	group, err := s.memberGroup(ctx, groupID, caller)
	if err != nil {
		return err
	}

	metrics.ActiveWatchers.Inc()
	defer metrics.ActiveWatchers.Dec()

	if err := stream.Send(&rpc.WatchGroupResponse{Group: group}); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Deleted {
				return stream.Send(&rpc.WatchGroupResponse{Deleted: true})
			}
			if ev.Group == nil {
				continue
			}
			if !ev.Group.HasMember(caller) {
				slog.Info("WatchGroup ended, member left", "group_id", groupID, "member_id", caller)
				return nil
			}
			if err := stream.Send(&rpc.WatchGroupResponse{Group: ev.Group}); err != nil {
				return err
			}
		}
	}
}

// memberGroup loads a group and checks that memberID belongs to it.
func (s *GroupStoreService) memberGroup(ctx context.Context, groupID, memberID string) (*models.Group, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		slog.Error("GetGroup failed", "group_id", groupID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if group == nil {
		return nil, connect.NewError(connect.CodeNotFound, storage.ErrGroupNotFound)
	}
	if !group.HasMember(memberID) {
		return nil, connect.NewError(connect.CodePermissionDenied, errNotMember)
	}
	return group, nil
}

// publish fans an event out to watchers. Failures are logged only.
func (s *GroupStoreService) publish(ctx context.Context, ev pubsub.Event) {
	if err := s.broker.Publish(ctx, ev); err != nil {
		slog.Warn("Publish group event failed", "group_id", ev.GroupID, "error", err)
	}
}

func toConnectError(err error) error {
	if errors.Is(err, storage.ErrGroupNotFound) {
		return connect.NewError(connect.CodeNotFound, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}
