// Command doorman controls a running doormand instance over its Unix socket.
package main
