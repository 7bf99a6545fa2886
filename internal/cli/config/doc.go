// Package config provides CLI configuration for scribbler-cli.
//
//   - spec.go: CLIConfig struct (~/.scribbler/cli.yaml)
//   - loader.go: loading through confloader, saving as YAML
//
// The file holds the default server, the preferred output format and
// named bookmarks for documents the user created.
//
// @design DS-0601
package config
