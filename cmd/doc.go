// Package cmd implements the command-line interface for emailzen.
//
// This package provides the following commands:
//   - auth: Authorize access to the Gmail account
//   - process: Run one inbox processing cycle (default command)
//   - sweep: Trash messages past their rule's retention window
//   - analyze: Suggest rules for frequent unread senders
//   - rules: List the configured organization rules
//   - serve: Start the MCP server to provide tools for AI assistants
//   - version: Display version information
//
// The process command is the default command when no subcommand is
// specified.
package cmd
