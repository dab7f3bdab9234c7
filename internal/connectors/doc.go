// Package connectors provides the record sources that feed the indexer:
// the HuggingFace datasets-server loader and the local filesystem loader.
// Shared HTTP throttling lives here.
package connectors
