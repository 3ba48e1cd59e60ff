package bridge

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/autobuy/internal/controller"
	"github.com/danielpatrickdp/autobuy/internal/orchestrator"
	"github.com/danielpatrickdp/autobuy/internal/prefs"
	"github.com/danielpatrickdp/autobuy/internal/tier"
)

// #region client-struct

// Client talks to a controller daemon.
type Client struct {
	conn   *grpc.ClientConn
	client ControllerClient
}

// #endregion client-struct

// #region constructor

// NewClient connects to the controller daemon at addr.
func NewClient(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, client: NewControllerClient(conn)}, nil
}

// NewClientWithService creates a Client with an injected service
// implementation. Used for testing without a real connection.
func NewClientWithService(svc ControllerClient) *Client {
	return &Client{client: svc}
}

// Close shuts down the connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion constructor

// #region calls

// Tick sends one snapshot and returns the effects to apply.
func (c *Client) Tick(ctx context.Context, snap controller.Snapshot) (TickReply, error) {
	resp, err := c.client.Tick(ctx, encodeSnapshot(snap))
	if err != nil {
		return TickReply{}, fmt.Errorf("tick rpc: %w", err)
	}
	r, err := decodeResult(resp)
	if err != nil {
		return TickReply{}, fmt.Errorf("decode tick reply: %w", err)
	}
	return r, nil
}

// Reset forces the remote controller idle.
func (c *Client) Reset(ctx context.Context) (orchestrator.Status, error) {
	resp, err := c.client.Reset(ctx, &emptypb.Empty{})
	if err != nil {
		return orchestrator.Status{}, fmt.Errorf("reset rpc: %w", err)
	}
	return c.status(resp)
}

// Status reports the remote controller state.
func (c *Client) Status(ctx context.Context) (orchestrator.Status, error) {
	resp, err := c.client.Status(ctx, &emptypb.Empty{})
	if err != nil {
		return orchestrator.Status{}, fmt.Errorf("status rpc: %w", err)
	}
	return c.status(resp)
}

// SetEnabled turns auto-buy on or off.
func (c *Client) SetEnabled(ctx context.Context, enabled bool) (prefs.Preferences, error) {
	return c.setPreferences(ctx, map[string]*structpb.Value{
		"enabled": structpb.NewBoolValue(enabled),
	})
}

// SelectTier changes the tier to buy.
func (c *Client) SelectTier(ctx context.Context, id tier.ID) (prefs.Preferences, error) {
	return c.setPreferences(ctx, map[string]*structpb.Value{
		"tier": structpb.NewStringValue(string(id)),
	})
}

func (c *Client) setPreferences(ctx context.Context, fields map[string]*structpb.Value) (prefs.Preferences, error) {
	resp, err := c.client.SetPreferences(ctx, &structpb.Struct{Fields: fields})
	if err != nil {
		return prefs.Preferences{}, fmt.Errorf("set preferences rpc: %w", err)
	}
	p, err := decodePreferences(resp)
	if err != nil {
		return prefs.Preferences{}, fmt.Errorf("decode preferences: %w", err)
	}
	return p, nil
}

func (c *Client) status(resp *structpb.Struct) (orchestrator.Status, error) {
	st, err := decodeStatus(resp)
	if err != nil {
		return orchestrator.Status{}, fmt.Errorf("decode status: %w", err)
	}
	return st, nil
}

// #endregion calls
