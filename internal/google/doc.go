// Package google handles Google OAuth2 authentication for the Gmail
// API. Tokens are persisted through the storage layer so that the
// access token survives restarts and can be dropped independently of
// the refresh token when the API rejects it.
package google
