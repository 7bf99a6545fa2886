// Package output provides output formatting for scribbler-cli.
//
//   - formatter.go: Formatter interface and factory
//   - table.go: aligned text tables for terminals
//   - json.go, yaml.go: machine-readable output for scripting
//
// @design DS-0601
package output
