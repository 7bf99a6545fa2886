// Package command provides CLI command definitions for scribbler-cli.
package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/jeff-tyrrill/data-scribbler/internal/cli/config"
	"github.com/jeff-tyrrill/data-scribbler/internal/cli/output"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Local CLI configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the effective configuration",
				Action: configShow,
			},
			{
				Name:      "set",
				Usage:     "Set server or output",
				ArgsUsage: "<key> <value>",
				Action:    configSet,
			},
			{
				Name:      "forget",
				Usage:     "Remove a document bookmark",
				ArgsUsage: "<name>",
				Action:    configForget,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return err
	}
	cfg := GetConfig(c)
	if flags.Output != output.FormatTable {
		return printResult(c, flags, cfg)
	}

	t := &output.Table{Headers: []string{"KEY", "VALUE"}}
	t.AddRow("server", cfg.Server)
	t.AddRow("output", cfg.Output)
	for _, name := range cfg.Bookmarks() {
		b := cfg.Documents[name]
		value := b.ID
		if flags.Wide && b.ReadOnlyID != "" {
			value += " (read-only " + b.ReadOnlyID + ")"
		}
		t.AddRow("documents."+name, value)
	}
	return printResult(c, flags, t)
}

func configSet(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: config set <key> <value>")
	}
	key, value := c.Args().Get(0), c.Args().Get(1)

	cfg := GetConfig(c)
	switch key {
	case "server":
		cfg.Server = value
	case "output":
		if _, err := output.ParseFormat(value); err != nil {
			return err
		}
		cfg.Output = value
	default:
		return fmt.Errorf("unknown key %q (want server or output)", key)
	}
	return config.Save(cfg, c.String("config"))
}

func configForget(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: config forget <name>")
	}
	cfg := GetConfig(c)
	name := c.Args().First()
	if _, ok := cfg.Documents[name]; !ok {
		return fmt.Errorf("no bookmark named %q", name)
	}
	delete(cfg.Documents, name)
	return config.Save(cfg, c.String("config"))
}
