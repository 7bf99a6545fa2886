// Package command provides CLI command definitions for scribbler-cli.
package command

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/jeff-tyrrill/data-scribbler/internal/cli/config"
	"github.com/jeff-tyrrill/data-scribbler/internal/cli/connection"
	"github.com/jeff-tyrrill/data-scribbler/internal/cli/output"
	"github.com/jeff-tyrrill/data-scribbler/internal/infra/buildinfo"
	"github.com/jeff-tyrrill/data-scribbler/internal/infra/tlsroots"
)

const metaConfig = "config"

func init() {
	connection.UserAgent = "scribbler-cli/" + buildinfo.Get().Version
}

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "scribbler-cli",
		Usage:   "data-scribbler command-line client",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			NewCommand(),
			SaveCommand(),
			AppendCommand(),
			SyncCommand(),
			LatestCommand(),
			HealthCommand(),
			ConfigCommand(),
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return fmt.Errorf("load cli config: %w", err)
			}
			if c.App.Metadata == nil {
				c.App.Metadata = make(map[string]any)
			}
			c.App.Metadata[metaConfig] = cfg
			return nil
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "CLI config file",
			Value: config.DefaultConfigPath(),
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "server address (e.g., localhost:5080); overrides the config file",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.StringSliceFlag{
			Name:    "ca-file",
			Usage:   "extra CA certificate (PEM) to trust for https servers",
			EnvVars: []string{"SCRIBBLER_CLI_CA_FILE"},
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "per-request timeout",
			Value: connection.DefaultTimeout,
		},
	}
}

// GlobalFlags defines flags available to all commands, merged with the
// CLI config file.
type GlobalFlags struct {
	Server  string
	Output  output.Format
	Wide    bool
	Timeout time.Duration
	CAFiles []string
}

// ParseGlobalFlags extracts global flags from context. Flags win over the
// config file.
func ParseGlobalFlags(c *cli.Context) (*GlobalFlags, error) {
	cfg := GetConfig(c)
	flags := &GlobalFlags{
		Server:  cfg.Server,
		Wide:    c.Bool("wide"),
		Timeout: c.Duration("timeout"),
		CAFiles: c.StringSlice("ca-file"),
	}
	if c.IsSet("server") {
		flags.Server = c.String("server")
	}

	format := cfg.Output
	if c.IsSet("output") {
		format = c.String("output")
	}
	f, err := output.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	flags.Output = f
	return flags, nil
}

// GetConfig returns the CLI config loaded by App.Before.
func GetConfig(c *cli.Context) *config.CLIConfig {
	if cfg, ok := c.App.Metadata[metaConfig].(*config.CLIConfig); ok {
		return cfg
	}
	return config.Default()
}

// Connect returns a client for the configured server.
func Connect(c *cli.Context) (*connection.HTTPClient, *GlobalFlags, error) {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return nil, nil, err
	}
	tlsCfg, err := tlsroots.ClientConfig(flags.CAFiles...)
	if err != nil {
		return nil, nil, err
	}
	return connection.NewHTTPClient(flags.Server, flags.Timeout, connection.WithTLSConfig(tlsCfg)), flags, nil
}

// printResult formats data in the selected output format.
func printResult(c *cli.Context, flags *GlobalFlags, data any) error {
	return output.NewFormatter(flags.Output, flags.Wide).Format(writer(c), data)
}

func writer(c *cli.Context) io.Writer {
	if c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
