// Package organizer_tools registers the MCP tools that drive the
// organizer: processing and sweep triggers, rule CRUD, statistics,
// history, label counts and schedule configuration. Every handler
// returns exactly one result; failures become tool error results, not
// transport errors.
package organizer_tools
