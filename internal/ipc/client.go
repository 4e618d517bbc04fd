package ipc

import (
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

const (
	dialTimeout = 2 * time.Second
	// CheckNow runs the checker inline on the daemon loop.
	callTimeout = 2 * time.Minute
)

// Client talks to a running daemon over its control socket.
type Client struct {
	rpc *rpc.Client
}

// Dial connects to the control socket at path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, dialTimeout)
	if err != nil {
		return nil, err
	}
	return &Client{rpc: rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	if c == nil || c.rpc == nil {
		return nil
	}
	return c.rpc.Close()
}

func invoke[Req, Resp any](c *Client, method string, req Req) (*Resp, error) {
	var resp Resp
	call := c.rpc.Go(ServiceName+"."+method, req, &resp, make(chan *rpc.Call, 1))
	select {
	case <-call.Done:
		if call.Error != nil {
			return nil, call.Error
		}
		return &resp, nil
	case <-time.After(callTimeout):
		return nil, fmt.Errorf("%s: no reply after %s", method, callTimeout)
	}
}

// Status returns the daemon snapshot.
func (c *Client) Status() (*StatusResponse, error) {
	return invoke[StatusRequest, StatusResponse](c, "Status", StatusRequest{})
}

// CheckNow forces an update check and returns its result.
func (c *Client) CheckNow() (*CheckResponse, error) {
	return invoke[CheckRequest, CheckResponse](c, "CheckNow", CheckRequest{})
}

// TestNotification sends a test notification through the configured channels.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	return invoke[TestNotificationRequest, TestNotificationResponse](c, "TestNotification", TestNotificationRequest{})
}

// Stop asks the daemon process to exit.
func (c *Client) Stop() (*StopResponse, error) {
	return invoke[StopRequest, StopResponse](c, "Stop", StopRequest{})
}
