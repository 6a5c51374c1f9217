// Package profile talks to the external member-profile web service.
//
// The bot uses it to resolve display names for linked accounts and to decide
// regular-member group membership during sync. The service is optional; when
// disabled in configuration the bot skips group sync entirely.
package profile
