package ipc

import "time"

// StatusRequest asks for daemon runtime information.
type StatusRequest struct{}

// StatusResponse summarizes the daemon and bot state.
type StatusResponse struct {
	Running       bool      `json:"running"`
	PID           int       `json:"pid"`
	Nickname      string    `json:"nickname"`
	HomeChannelID int       `json:"home_channel_id"`
	ClientCount   int       `json:"client_count"`
	StartedAt     time.Time `json:"started_at"`
	DatabasePath  string    `json:"database_path"`
	LockPath      string    `json:"lock_path"`
	LastError     string    `json:"last_error,omitempty"`
}

// ClientsRequest asks for the live roster.
type ClientsRequest struct{}

// ClientInfo is one roster entry on the wire.
type ClientInfo struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	UID          string `json:"uid"`
	ChannelID    int    `json:"channel_id"`
	ServerGroups []int  `json:"server_groups,omitempty"`
	Linked       bool   `json:"linked"`
}

// ClientsResponse carries the roster.
type ClientsResponse struct {
	Clients []ClientInfo `json:"clients"`
}

// SayRequest broadcasts a server-wide message.
type SayRequest struct {
	Message string `json:"message"`
}

// SayResponse acknowledges the broadcast.
type SayResponse struct {
	Sent bool `json:"sent"`
}

// SyncRequest triggers regular-group reconciliation.
type SyncRequest struct{}

// SyncResponse acknowledges the sync run.
type SyncResponse struct {
	Synced bool `json:"synced"`
}

// LinkRequest redeems a link token on behalf of a member.
type LinkRequest struct {
	Token  string `json:"token"`
	UserID int64  `json:"user_id"`
	GameID string `json:"game_id,omitempty"`
}

// LinkResponse reports the voice identity that was linked.
type LinkResponse struct {
	VoiceUID string `json:"voice_uid"`
}

// LogTailRequest reads from the daemon log. A negative Offset asks for the
// last Limit lines.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int64 `json:"wait_millis"`
}

// LogTailResponse carries log lines and the offset to resume from.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// StopRequest asks the daemon to disconnect the bot.
type StopRequest struct{}

// StopResponse acknowledges the stop.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}
