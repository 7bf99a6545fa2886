// Package command provides CLI command definitions for scribbler-cli.
package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/jeff-tyrrill/data-scribbler/internal/cli/output"
)

// HealthCommand checks the server.
func HealthCommand() *cli.Command {
	return &cli.Command{
		Name:   "health",
		Usage:  "Check server health",
		Action: systemHealth,
	}
}

func systemHealth(c *cli.Context) error {
	client, flags, err := Connect(c)
	if err != nil {
		return err
	}

	result, err := client.Health(c.Context)
	if err != nil {
		return fmt.Errorf("server unhealthy: %w", err)
	}

	if flags.Output != output.FormatTable {
		return printResult(c, flags, result)
	}
	w := writer(c)
	if result.Status == "healthy" {
		fmt.Fprintf(w, "✓ Server is healthy\n")
	} else {
		fmt.Fprintf(w, "✗ Server is unhealthy: %s\n", result.Status)
	}
	fmt.Fprintf(w, "  Target:  %s\n", client.BaseURL())
	if result.Version != "" {
		fmt.Fprintf(w, "  Version: %s\n", result.Version)
	}
	return nil
}
