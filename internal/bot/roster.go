package bot

import (
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Client is one roster entry for a connected voice client.
type Client struct {
	ID           int
	Name         string
	UID          string
	DBID         int
	ChannelID    int
	ServerGroups []int
}

// InGroup reports whether the client carries the given server group.
func (c Client) InGroup(groupID int) bool {
	for _, id := range c.ServerGroups {
		if id == groupID {
			return true
		}
	}
	return false
}

// Roster tracks the clients currently connected to the server. The event
// loop writes it; IPC handlers read it concurrently.
type Roster struct {
	mu      sync.RWMutex
	clients map[int]Client
}

// NewRoster returns an empty roster.
func NewRoster() *Roster {
	return &Roster{clients: make(map[int]Client)}
}

// Upsert inserts or replaces a roster entry.
func (r *Roster) Upsert(client Client) {
	r.mu.Lock()
	r.clients[client.ID] = client
	r.mu.Unlock()
}

// Remove drops a client from the roster. Removing an unknown id is a no-op.
func (r *Roster) Remove(clientID int) {
	r.mu.Lock()
	delete(r.clients, clientID)
	r.mu.Unlock()
}

// Move records a channel change for a tracked client.
func (r *Roster) Move(clientID, channelID int) {
	r.mu.Lock()
	if client, ok := r.clients[clientID]; ok {
		client.ChannelID = channelID
		r.clients[clientID] = client
	}
	r.mu.Unlock()
}

// Get returns the roster entry for a client id.
func (r *Roster) Get(clientID int) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[clientID]
	return client, ok
}

// All returns every roster entry ordered by client id.
func (r *Roster) All() []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clients := make([]Client, 0, len(r.clients))
	for _, client := range r.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].ID < clients[j].ID })
	return clients
}

// Len returns the number of tracked clients.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// parseGroupList decodes the comma-separated server group ids the server
// reports in client_servergroups.
func parseGroupList(raw string) []int {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	groups := make([]int, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		groups = append(groups, id)
	}
	return groups
}
