package query

import "context"

// Login authenticates the query session with the given credentials.
func (c *Conn) Login(ctx context.Context, username, password string) error {
	_, err := c.Do(ctx, NewCommand("login").
		String("client_login_name", username).
		String("client_login_password", password))
	return err
}

// Use selects the virtual server to operate on.
func (c *Conn) Use(ctx context.Context, serverID int) error {
	_, err := c.Do(ctx, NewCommand("use").Int("sid", serverID))
	return err
}

// Whoami returns information about the query client itself.
func (c *Conn) Whoami(ctx context.Context) (map[string]string, error) {
	return c.ExecOne(ctx, "whoami", nil, nil)
}

// ClientList lists connected clients. Flags such as "uid" or "groups" request
// additional columns.
func (c *Conn) ClientList(ctx context.Context, flags ...string) ([]map[string]string, error) {
	return c.Exec(ctx, "clientlist", flags, nil)
}

// ClientInfo returns detailed properties of one connected client.
func (c *Conn) ClientInfo(ctx context.Context, clientID int) (map[string]string, error) {
	cmd := NewCommand("clientinfo").Int("clid", clientID)
	lines, err := c.Do(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, nil
	}
	return ParseLineToMap(lines[0]), nil
}

// ChannelFind returns channels whose names match the given pattern.
func (c *Conn) ChannelFind(ctx context.Context, pattern string) ([]map[string]string, error) {
	return c.Exec(ctx, "channelfind", nil, map[string]string{"pattern": pattern})
}

// ServerGroupList lists the server groups of the selected virtual server.
func (c *Conn) ServerGroupList(ctx context.Context) ([]map[string]string, error) {
	return c.Exec(ctx, "servergrouplist", nil, nil)
}

// ClientMove moves a client into the given channel.
func (c *Conn) ClientMove(ctx context.Context, channelID, clientID int) error {
	_, err := c.Do(ctx, NewCommand("clientmove").
		Int("cid", channelID).
		Int("clid", clientID))
	return err
}

// SendTextMessage sends a text message. The target is a client id for
// TargetModePrivate, a channel id for TargetModeChannel, and ignored for
// TargetModeServer.
func (c *Conn) SendTextMessage(ctx context.Context, mode TargetMode, target int, message string) error {
	_, err := c.Do(ctx, NewCommand("sendtextmessage").
		Int("targetmode", int(mode)).
		Int("target", target).
		String("msg", message))
	return err
}

// ClientUpdate changes properties of the query client, such as its nickname.
func (c *Conn) ClientUpdate(ctx context.Context, properties map[string]string) error {
	_, err := c.Exec(ctx, "clientupdate", nil, properties)
	return err
}

// ServerGroupAddClient adds a client (by database id) to a server group.
func (c *Conn) ServerGroupAddClient(ctx context.Context, groupID, clientDBID int) error {
	_, err := c.Do(ctx, NewCommand("servergroupaddclient").
		Int("sgid", groupID).
		Int("cldbid", clientDBID))
	return err
}

// ServerGroupDelClient removes a client (by database id) from a server group.
func (c *Conn) ServerGroupDelClient(ctx context.Context, groupID, clientDBID int) error {
	_, err := c.Do(ctx, NewCommand("servergroupdelclient").
		Int("sgid", groupID).
		Int("cldbid", clientDBID))
	return err
}

func (c *Conn) register(ctx context.Context, cmd *Command) error {
	_, err := c.Do(ctx, cmd)
	return err
}

// RegisterServerEvents subscribes to server-wide events such as clients
// entering and leaving.
func (c *Conn) RegisterServerEvents(ctx context.Context) error {
	return c.register(ctx, NewCommand("servernotifyregister").String("event", "server"))
}

// RegisterServerMessages subscribes to server-wide text messages.
func (c *Conn) RegisterServerMessages(ctx context.Context) error {
	return c.register(ctx, NewCommand("servernotifyregister").String("event", "textserver"))
}

// RegisterChannelEvents subscribes to events in the given channel.
func (c *Conn) RegisterChannelEvents(ctx context.Context, channelID int) error {
	return c.register(ctx, NewCommand("servernotifyregister").
		String("event", "channel").
		Int("id", channelID))
}

// RegisterChannelMessages subscribes to channel text messages.
func (c *Conn) RegisterChannelMessages(ctx context.Context) error {
	return c.register(ctx, NewCommand("servernotifyregister").String("event", "textchannel"))
}

// RegisterPrivateMessages subscribes to private text messages addressed to
// the query client.
func (c *Conn) RegisterPrivateMessages(ctx context.Context) error {
	return c.register(ctx, NewCommand("servernotifyregister").String("event", "textprivate"))
}
