// Package daemon owns the bot lifecycle and enforces single-instance
// execution through a lock file. The IPC layer drives it remotely.
package daemon
