// Package remote connects the match engine to a GroupStoreService over Connect.
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/meshimatch/internal/matching"
	"github.com/mmynk/meshimatch/internal/middleware"
	"github.com/mmynk/meshimatch/internal/models"
	"github.com/mmynk/meshimatch/internal/rpc"
)

const defaultRetryDelay = 2 * time.Second

// Client implements matching.RemoteStore against a GroupStoreService.
type Client struct {
	rpc        *rpc.GroupStoreServiceClient
	log        *slog.Logger
	retryDelay time.Duration
}

var _ matching.RemoteStore = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.log = l }
}

// WithRetryDelay sets how long a broken WatchGroup stream waits before reconnecting.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) { c.retryDelay = d }
}

// NewClient creates a Client for the service at baseURL, authenticating every call
// with token.
func NewClient(httpClient connect.HTTPClient, baseURL, token string, opts ...ClientOption) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		rpc: rpc.NewGroupStoreServiceClient(httpClient, baseURL,
			connect.WithInterceptors(middleware.BearerToken(token)),
		),
		log:        slog.Default(),
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) GetGroupByCode(ctx context.Context, code string) (*models.Group, error) {
	resp, err := c.rpc.GetGroupByCode(ctx, connect.NewRequest(&rpc.GetGroupByCodeRequest{Code: code}))
	if err != nil {
		if connect.CodeOf(err) == connect.CodeNotFound {
			return nil, nil
		}
		return nil, mapError("get group by code", err)
	}
	return resp.Msg.Group, nil
}

// ListMemberGroups returns the caller's groups. memberID must be the member the
// client's token was issued to; the server only lists the caller's own groups.
func (c *Client) ListMemberGroups(ctx context.Context, memberID string) ([]*models.Group, error) {
	resp, err := c.rpc.ListMemberGroups(ctx, connect.NewRequest(&rpc.ListMemberGroupsRequest{}))
	if err != nil {
		return nil, mapError("list member groups", err)
	}
	return resp.Msg.Groups, nil
}

func (c *Client) CreateGroup(ctx context.Context, group *models.Group) error {
	if _, err := c.rpc.CreateGroup(ctx, connect.NewRequest(&rpc.CreateGroupRequest{Group: group})); err != nil {
		return mapError("create group", err)
	}
	return nil
}

func (c *Client) UpdateGroupFields(ctx context.Context, groupID string, patch models.GroupPatch) error {
	_, err := c.rpc.UpdateGroupFields(ctx, connect.NewRequest(&rpc.UpdateGroupFieldsRequest{
		GroupID: groupID,
		Patch:   patch,
	}))
	if err != nil {
		return mapError("update group", err)
	}
	return nil
}

func (c *Client) DeleteGroup(ctx context.Context, groupID string) error {
	if _, err := c.rpc.DeleteGroup(ctx, connect.NewRequest(&rpc.DeleteGroupRequest{GroupID: groupID})); err != nil {
		return mapError("delete group", err)
	}
	return nil
}

// SubscribeToGroup watches the group until the returned function is called or ctx
// is done. A broken stream is reopened after the retry delay; the stream ends for
// good when the group is deleted or the member loses access.
func (c *Client) SubscribeToGroup(ctx context.Context, groupID string, onChange func(*models.Group)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	go c.watch(ctx, groupID, onChange)
	return cancel, nil
}

func (c *Client) watch(ctx context.Context, groupID string, onChange func(*models.Group)) {
	for {
		done, err := c.watchOnce(ctx, groupID, onChange)
		if done || ctx.Err() != nil {
			return
		}
		c.log.Warn("group watch interrupted", "group_id", groupID, "error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.retryDelay):
		}
	}
}

// watchOnce runs one WatchGroup stream. done reports that the stream ended for a
// reason a reconnect cannot fix.
func (c *Client) watchOnce(ctx context.Context, groupID string, onChange func(*models.Group)) (done bool, err error) {
	stream, err := c.rpc.WatchGroup(ctx, connect.NewRequest(&rpc.WatchGroupRequest{GroupID: groupID}))
	if err != nil {
		return false, err
	}
	defer stream.Close()

	for stream.Receive() {
		msg := stream.Msg()
		if msg.Deleted {
			return true, nil
		}
		if msg.Group != nil {
			onChange(msg.Group)
		}
	}
	if err := stream.Err(); err != nil {
		switch connect.CodeOf(err) {
		case connect.CodeNotFound, connect.CodePermissionDenied, connect.CodeUnauthenticated:
			c.log.Info("group watch closed", "group_id", groupID, "code", connect.CodeOf(err))
			return true, nil
		}
		return false, err
	}
	// The server closes the stream cleanly once the member has left.
	return true, nil
}

// mapError marks transport failures with matching.ErrStoreUnavailable and missing
// groups with matching.ErrGroupNotFound.
func mapError(op string, err error) error {
	switch connect.CodeOf(err) {
	case connect.CodeUnavailable, connect.CodeDeadlineExceeded, connect.CodeUnknown, connect.CodeCanceled:
		return fmt.Errorf("%s: %w", op, errors.Join(matching.ErrStoreUnavailable, err))
	case connect.CodeNotFound:
		return fmt.Errorf("%s: %w", op, errors.Join(matching.ErrGroupNotFound, err))
	}
	return fmt.Errorf("%s: %w", op, err)
}
