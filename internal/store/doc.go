// Package store persists the bot's account links, one-time link tokens, and
// message templates in SQLite.
//
// The Store manages the database connection, schema initialization, and the
// token lifecycle: minting a link token revokes the requester's previous
// tokens and prunes expired ones, so at most one valid token exists per voice
// identity. Message templates are seeded with defaults on first open so a
// fresh installation greets guests without manual setup.
//
// Schema changes bump the version in schema.go; the database is small enough
// that users re-link accounts rather than migrate.
package store
