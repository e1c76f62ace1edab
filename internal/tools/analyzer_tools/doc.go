// Package analyzer_tools registers the MCP tools around the frequent
// sender analyzer: running an analysis, reading the cached suggestions
// and clearing them.
package analyzer_tools
