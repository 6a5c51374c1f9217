package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

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

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call(serviceName+".Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Clients retrieves the live roster.
func (c *Client) Clients() (*ClientsResponse, error) {
	var resp ClientsResponse
	if err := c.client.Call(serviceName+".Clients", ClientsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Say broadcasts a server-wide message through the bot.
func (c *Client) Say(message string) (*SayResponse, error) {
	var resp SayResponse
	if err := c.client.Call(serviceName+".Say", SayRequest{Message: message}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Sync triggers regular-group reconciliation for all tracked clients.
func (c *Client) Sync() (*SyncResponse, error) {
	var resp SyncResponse
	if err := c.client.Call(serviceName+".Sync", SyncRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Link redeems a link token on behalf of a member.
func (c *Client) Link(token string, userID int64, gameID string) (*LinkResponse, error) {
	var resp LinkResponse
	req := LinkRequest{Token: token, UserID: userID, GameID: gameID}
	if err := c.client.Call(serviceName+".Link", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call(serviceName+".LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to disconnect the bot.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call(serviceName+".Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
