// Package mcp provides an MCP (Model Context Protocol) server adapter for earnings-rag.
// It lets AI assistants ask grounded questions about the indexed earnings-call transcripts.
package mcp

import "errors"

// ErrMissingQueryService is returned when the query service is not provided.
var ErrMissingQueryService = errors.New("mcp: query service is required")
