// Package server holds the HTTP side surfaces used when the MCP server
// runs over streamable-http: Kubernetes-style health probes and a
// dedicated Prometheus metrics listener. The stdio transport uses
// neither.
package server
