// Package logger provides structured logging for data-scribbler.
//
// This package configures log/slog for the server and CLI:
//
//   - logger.go: Handler construction, runtime level changes
//   - context.go: Request id propagation through context
//   - redact.go: Masking of document ids and secrets
//
// Edit ids are capabilities: anyone holding one may write the document.
// Every 32-character document id is therefore replaced by a short
// fingerprint before it reaches the output, which keeps log lines
// correlatable without leaking the id.
//
// @req RQ-0403
// @design DS-0402
package logger
