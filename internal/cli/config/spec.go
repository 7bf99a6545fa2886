// Package config provides CLI configuration for scribbler-cli.
package config

import "sort"

// CLIConfig is the configuration for scribbler-cli.
type CLIConfig struct {
	Server string `koanf:"server" yaml:"server"`
	Output string `koanf:"output" yaml:"output"` // table, json, yaml

	// Documents maps bookmark names to document ids.
	Documents map[string]Bookmark `koanf:"documents" yaml:"documents,omitempty"`
}

// Bookmark remembers both ids of a document.
type Bookmark struct {
	ID         string `koanf:"id" yaml:"id"`
	ReadOnlyID string `koanf:"read_only_id" yaml:"read_only_id,omitempty"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Server:    "http://localhost:5080",
		Output:    "table",
		Documents: make(map[string]Bookmark),
	}
}

// Resolve returns the document id bookmarked as ref, or ref itself.
func (c *CLIConfig) Resolve(ref string) string {
	if b, ok := c.Documents[ref]; ok {
		return b.ID
	}
	return ref
}

// Bookmarks returns the bookmark names in sorted order.
func (c *CLIConfig) Bookmarks() []string {
	names := make([]string, 0, len(c.Documents))
	for name := range c.Documents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
