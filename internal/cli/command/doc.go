// Package command provides CLI command definitions for scribbler-cli.
//
// This package defines all CLI commands using urfave/cli/v2:
//
//   - root.go: Root command and global flags
//   - document.go: new, save, append, sync and latest
//   - system.go: health
//   - config.go: local configuration and bookmarks
//
// Commands follow a consistent pattern of parsing flags, calling the
// server through package connection, and formatting output.
//
// @req RQ-0602
// @design DS-0601
package command
