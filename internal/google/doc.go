// Package google handles OAuth2 credentials for the Google APIs.
//
// Tokens are stored one file per account in the user cache directory
// (google-<account>.token below "workspacekit"). Account names are limited
// to letters, digits, hyphen and underscore. A missing token surfaces as an
// Unauthenticated error carrying the command that fixes it.
//
// The TokenProvider interface decouples token lookup from the HTTP client;
// Store reads files and StaticTokenProvider serves fixed tokens.
package google
