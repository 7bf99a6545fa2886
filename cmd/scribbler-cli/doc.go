// Package main provides the entry point for scribbler-cli.
//
// The CLI talks to a data-scribbler server the way the editor does:
//
//   - Create documents and bookmark them locally
//   - Save or append actions, retrying lost version races
//   - List history and read the latest pointer
//   - Check server health
//
// Usage:
//
//	scribbler-cli [global flags] <command> [flags] [args]
//	scribbler-cli new --name notes
//	scribbler-cli append notes --data '{"steps":[...]}'
//	scribbler-cli -o json sync notes --since 12
//
// @design DS-0601
package main
