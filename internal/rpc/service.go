package rpc

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// GroupStoreServiceName is the fully-qualified name of the group store service.
const GroupStoreServiceName = "meshimatch.v1.GroupStoreService"

// Procedure paths of the group store service.
const (
	GroupStoreServiceCreateGroupProcedure       = "/meshimatch.v1.GroupStoreService/CreateGroup"
	GroupStoreServiceGetGroupProcedure          = "/meshimatch.v1.GroupStoreService/GetGroup"
	GroupStoreServiceGetGroupByCodeProcedure    = "/meshimatch.v1.GroupStoreService/GetGroupByCode"
	GroupStoreServiceListMemberGroupsProcedure  = "/meshimatch.v1.GroupStoreService/ListMemberGroups"
	GroupStoreServiceUpdateGroupFieldsProcedure = "/meshimatch.v1.GroupStoreService/UpdateGroupFields"
	GroupStoreServiceDeleteGroupProcedure       = "/meshimatch.v1.GroupStoreService/DeleteGroup"
	GroupStoreServiceWatchGroupProcedure        = "/meshimatch.v1.GroupStoreService/WatchGroup"
)

// GroupStoreServiceHandler is implemented by the group store server.
type GroupStoreServiceHandler interface {
	CreateGroup(context.Context, *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error)
	GetGroup(context.Context, *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error)
	GetGroupByCode(context.Context, *connect.Request[GetGroupByCodeRequest]) (*connect.Response[GetGroupByCodeResponse], error)
	ListMemberGroups(context.Context, *connect.Request[ListMemberGroupsRequest]) (*connect.Response[ListMemberGroupsResponse], error)
	UpdateGroupFields(context.Context, *connect.Request[UpdateGroupFieldsRequest]) (*connect.Response[UpdateGroupFieldsResponse], error)
	DeleteGroup(context.Context, *connect.Request[DeleteGroupRequest]) (*connect.Response[DeleteGroupResponse], error)
	WatchGroup(context.Context, *connect.Request[WatchGroupRequest], *connect.ServerStream[WatchGroupResponse]) error
}

// NewGroupStoreServiceHandler builds an HTTP handler for svc. It returns the path
// to mount the handler on.
func NewGroupStoreServiceHandler(svc GroupStoreServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)

	createGroup := connect.NewUnaryHandler(GroupStoreServiceCreateGroupProcedure, svc.CreateGroup, opts...)
	getGroup := connect.NewUnaryHandler(GroupStoreServiceGetGroupProcedure, svc.GetGroup, opts...)
	getGroupByCode := connect.NewUnaryHandler(GroupStoreServiceGetGroupByCodeProcedure, svc.GetGroupByCode, opts...)
	listMemberGroups := connect.NewUnaryHandler(GroupStoreServiceListMemberGroupsProcedure, svc.ListMemberGroups, opts...)
	updateGroupFields := connect.NewUnaryHandler(GroupStoreServiceUpdateGroupFieldsProcedure, svc.UpdateGroupFields, opts...)
	deleteGroup := connect.NewUnaryHandler(GroupStoreServiceDeleteGroupProcedure, svc.DeleteGroup, opts...)
	watchGroup := connect.NewServerStreamHandler(GroupStoreServiceWatchGroupProcedure, svc.WatchGroup, opts...)

	return "/" + GroupStoreServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case GroupStoreServiceCreateGroupProcedure:
			createGroup.ServeHTTP(w, r)
		case GroupStoreServiceGetGroupProcedure:
			getGroup.ServeHTTP(w, r)
		case GroupStoreServiceGetGroupByCodeProcedure:
			getGroupByCode.ServeHTTP(w, r)
		case GroupStoreServiceListMemberGroupsProcedure:
			listMemberGroups.ServeHTTP(w, r)
		case GroupStoreServiceUpdateGroupFieldsProcedure:
			updateGroupFields.ServeHTTP(w, r)
		case GroupStoreServiceDeleteGroupProcedure:
			deleteGroup.ServeHTTP(w, r)
		case GroupStoreServiceWatchGroupProcedure:
			watchGroup.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// GroupStoreServiceClient calls the group store.
type GroupStoreServiceClient struct {
	createGroup       *connect.Client[CreateGroupRequest, CreateGroupResponse]
	getGroup          *connect.Client[GetGroupRequest, GetGroupResponse]
	getGroupByCode    *connect.Client[GetGroupByCodeRequest, GetGroupByCodeResponse]
	listMemberGroups  *connect.Client[ListMemberGroupsRequest, ListMemberGroupsResponse]
	updateGroupFields *connect.Client[UpdateGroupFieldsRequest, UpdateGroupFieldsResponse]
	deleteGroup       *connect.Client[DeleteGroupRequest, DeleteGroupResponse]
	watchGroup        *connect.Client[WatchGroupRequest, WatchGroupResponse]
}

// NewGroupStoreServiceClient creates a client for the service at baseURL
// (e.g. "http://localhost:8080").
func NewGroupStoreServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *GroupStoreServiceClient {
	opts = append([]connect.ClientOption{WithJSON()}, opts...)
	return &GroupStoreServiceClient{
		createGroup:       connect.NewClient[CreateGroupRequest, CreateGroupResponse](httpClient, baseURL+GroupStoreServiceCreateGroupProcedure, opts...),
		getGroup:          connect.NewClient[GetGroupRequest, GetGroupResponse](httpClient, baseURL+GroupStoreServiceGetGroupProcedure, opts...),
		getGroupByCode:    connect.NewClient[GetGroupByCodeRequest, GetGroupByCodeResponse](httpClient, baseURL+GroupStoreServiceGetGroupByCodeProcedure, opts...),
		listMemberGroups:  connect.NewClient[ListMemberGroupsRequest, ListMemberGroupsResponse](httpClient, baseURL+GroupStoreServiceListMemberGroupsProcedure, opts...),
		updateGroupFields: connect.NewClient[UpdateGroupFieldsRequest, UpdateGroupFieldsResponse](httpClient, baseURL+GroupStoreServiceUpdateGroupFieldsProcedure, opts...),
		deleteGroup:       connect.NewClient[DeleteGroupRequest, DeleteGroupResponse](httpClient, baseURL+GroupStoreServiceDeleteGroupProcedure, opts...),
		watchGroup:        connect.NewClient[WatchGroupRequest, WatchGroupResponse](httpClient, baseURL+GroupStoreServiceWatchGroupProcedure, opts...),
	}
}

func (c *GroupStoreServiceClient) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *GroupStoreServiceClient) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error) {
	return c.getGroup.CallUnary(ctx, req)
}

func (c *GroupStoreServiceClient) GetGroupByCode(ctx context.Context, req *connect.Request[GetGroupByCodeRequest]) (*connect.Response[GetGroupByCodeResponse], error) {
	return c.getGroupByCode.CallUnary(ctx, req)
}

func (c *GroupStoreServiceClient) ListMemberGroups(ctx context.Context, req *connect.Request[ListMemberGroupsRequest]) (*connect.Response[ListMemberGroupsResponse], error) {
	return c.listMemberGroups.CallUnary(ctx, req)
}

func (c *GroupStoreServiceClient) UpdateGroupFields(ctx context.Context, req *connect.Request[UpdateGroupFieldsRequest]) (*connect.Response[UpdateGroupFieldsResponse], error) {
	return c.updateGroupFields.CallUnary(ctx, req)
}

func (c *GroupStoreServiceClient) DeleteGroup(ctx context.Context, req *connect.Request[DeleteGroupRequest]) (*connect.Response[DeleteGroupResponse], error) {
	return c.deleteGroup.CallUnary(ctx, req)
}

func (c *GroupStoreServiceClient) WatchGroup(ctx context.Context, req *connect.Request[WatchGroupRequest]) (*connect.ServerStreamForClient[WatchGroupResponse], error) {
	return c.watchGroup.CallServerStream(ctx, req)
}
