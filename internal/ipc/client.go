package ipc

import (
	"context"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"github.com/fmueller/streamplay/internal/bridge"
)

const dialTimeout = 2 * time.Second

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("connect to streamplay daemon at %s: %w", path, err)
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Invoke sends a raw method call and returns the bridge result as-is.
func (c *Client) Invoke(ctx context.Context, method string, args map[string]any) (bridge.Result, error) {
	var resp bridge.Result
	if err := c.call(ctx, "Invoke", MethodCall{Method: method, Args: args}, &resp); err != nil {
		return bridge.Result{}, err
	}
	return resp, nil
}

// Play asks the daemon to play url.
func (c *Client) Play(ctx context.Context, url string) (string, error) {
	return c.invokeValue(ctx, "play", map[string]any{bridge.ArgURL: url})
}

// Stop asks the daemon to stop playback.
func (c *Client) Stop(ctx context.Context) (string, error) {
	return c.invokeValue(ctx, "stop", nil)
}

// Status retrieves daemon and engine state.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call(ctx, "Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) invokeValue(ctx context.Context, method string, args map[string]any) (string, error) {
	result, err := c.Invoke(ctx, method, args)
	if err != nil {
		return "", err
	}
	if err := result.Err(); err != nil {
		return "", err
	}
	return result.Value, nil
}

func (c *Client) call(ctx context.Context, method string, args any, reply any) error {
	if ctx == nil {
		ctx = context.Background()
	}

	pending := c.client.Go(ServiceName+"."+method, args, reply, make(chan *rpc.Call, 1))
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s %s: %w", ServiceName, method, ctx.Err())
	case done := <-pending.Done:
		if done.Error != nil {
			return fmt.Errorf("%s %s: %w", ServiceName, method, done.Error)
		}
		return nil
	}
}
