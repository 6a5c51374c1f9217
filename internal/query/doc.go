// Package query implements the client side of the ServerQuery protocol: a
// line-oriented, escaped text protocol carried over one persistent TCP stream
// that mixes command responses with asynchronous event notifications.
//
// The Conn owns the socket and runs a single receive loop that classifies
// every inbound line, routing it either into the in-flight command's response
// buffer, into its terminal error slot, or onto the event queue. Commands are
// strictly serialized; events are delivered independently and never block on
// a slow command. Typed wrappers cover the common administrative verbs while
// Exec passes arbitrary commands through with proper escaping.
//
// The codec, error model, and event model are pure and usable without a
// connection; tests exercise them directly.
package query
