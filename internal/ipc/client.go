package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"clipfit/internal/bitrate"
)

const serviceName = "Clipfit"

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) call(method string, req, resp any) error {
	return c.client.Call(serviceName+"."+method, req, resp)
}

// Submit asks the daemon to compress path.
func (c *Client) Submit(path, outputPath string, settings *bitrate.Settings) (*SubmitResponse, error) {
	var resp SubmitResponse
	req := SubmitRequest{Path: path, OutputPath: outputPath, Settings: settings}
	if err := c.call("Submit", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Events returns the run's events after sequence after, waiting up to wait.
func (c *Client) Events(runID string, after int64, wait time.Duration) (*EventsResponse, error) {
	var resp EventsResponse
	req := EventsRequest{RunID: runID, After: after, WaitMillis: wait.Milliseconds()}
	if err := c.call("Events", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Cancel stops the active run.
func (c *Client) Cancel() (*CancelResponse, error) {
	var resp CancelResponse
	if err := c.call("Cancel", CancelRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call("Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Runs lists recent runs.
func (c *Client) Runs(limit int) (*RunsResponse, error) {
	var resp RunsResponse
	if err := c.call("Runs", RunsRequest{Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Run fetches a run by ID or unique prefix.
func (c *Client) Run(id string) (*RunResponse, error) {
	var resp RunResponse
	if err := c.call("Run", RunRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.call("TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
