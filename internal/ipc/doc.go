// Package ipc provides JSON-RPC control of the doorman daemon over a Unix
// domain socket. The control CLI is the only intended client.
package ipc
