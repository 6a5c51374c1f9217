// Package bot implements the automation agent that lives on the voice server.
//
// A Bot owns one query connection. Run drives the startup sequence (login,
// server selection, nickname, home channel, event registration, keepalive)
// and then consumes the event stream until the context is canceled. Event
// handlers keep an in-memory roster of connected clients, welcome guests,
// hand out account-link tokens over private chat, and reconcile regular-group
// membership against the member-profile service.
package bot
