// Package command provides CLI command definitions for scribbler-cli.
package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/urfave/cli/v2"

	"github.com/jeff-tyrrill/data-scribbler/internal/cli/config"
	"github.com/jeff-tyrrill/data-scribbler/internal/cli/connection"
	"github.com/jeff-tyrrill/data-scribbler/internal/cli/output"
)

// defaultInitialState seeds a document created without --data or --file.
const defaultInitialState = `{"fullStateAtoms":{"root":{}}}`

func actionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "data",
			Aliases: []string{"d"},
			Usage:   "action JSON object",
		},
		&cli.StringFlag{
			Name:    "file",
			Aliases: []string{"f"},
			Usage:   "read the action JSON from a file (- for stdin)",
		},
	}
}

// NewCommand creates a document.
func NewCommand() *cli.Command {
	return &cli.Command{
		Name:  "new",
		Usage: "Create a document from an initial full-state snapshot",
		Flags: append(actionFlags(),
			&cli.StringFlag{
				Name:  "name",
				Usage: "bookmark the new document under this name",
			},
		),
		Action: documentNew,
	}
}

// SaveCommand saves an action under an explicit version number.
func SaveCommand() *cli.Command {
	return &cli.Command{
		Name:      "save",
		Usage:     "Save an action under an explicit version number",
		ArgsUsage: "<document>",
		Flags: append(actionFlags(),
			&cli.Int64Flag{
				Name:     "version",
				Aliases:  []string{"n"},
				Usage:    "version number to claim",
				Required: true,
			},
		),
		Action: documentSave,
	}
}

// AppendCommand saves an action under the next free version number,
// retrying when another writer wins the race.
func AppendCommand() *cli.Command {
	return &cli.Command{
		Name:      "append",
		Usage:     "Append an action after the current latest version",
		ArgsUsage: "<document>",
		Flags: append(actionFlags(),
			&cli.Uint64Flag{
				Name:  "retries",
				Usage: "attempts after a rejected save",
				Value: 5,
			},
			&cli.DurationFlag{
				Name:  "retry-interval",
				Usage: "initial wait between attempts",
				Value: 200 * time.Millisecond,
			},
		),
		Action: documentAppend,
	}
}

// SyncCommand lists committed actions.
func SyncCommand() *cli.Command {
	return &cli.Command{
		Name:      "sync",
		Usage:     "List actions newer than a version (default: initial load)",
		ArgsUsage: "<document>",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:  "since",
				Usage: "latest version already held; -1 for an initial load",
				Value: -1,
			},
		},
		Action: documentSync,
	}
}

// LatestCommand prints the latest pointer.
func LatestCommand() *cli.Command {
	return &cli.Command{
		Name:      "latest",
		Usage:     "Print the latest committed version",
		ArgsUsage: "<document>",
		Action:    documentLatest,
	}
}

// savedDocument is the printable result of new, save and append.
type savedDocument struct {
	ID         string `json:"id" yaml:"id"`
	ReadOnlyID string `json:"readOnlyId" yaml:"readOnlyId"`
	Version    int64  `json:"version" yaml:"version"`
	When       int64  `json:"when" yaml:"when"`
}

func (d savedDocument) Table(wide bool) *output.Table {
	t := &output.Table{Headers: []string{"ID", "READ_ONLY_ID", "VERSION"}}
	row := []string{d.ID, d.ReadOnlyID, strconv.FormatInt(d.Version, 10)}
	if wide {
		t.Headers = append(t.Headers, "WHEN")
		row = append(row, time.UnixMilli(d.When).UTC().Format(time.RFC3339))
	}
	t.AddRow(row...)
	return t
}

// actionRow summarizes one record of a sync result.
type actionRow struct {
	ID   int64           `json:"id" yaml:"id"`
	When int64           `json:"when" yaml:"when"`
	Kind string          `json:"kind" yaml:"kind"`
	Raw  json.RawMessage `json:"action" yaml:"-"`
}

type syncResult struct {
	Actions    []actionRow `json:"actions" yaml:"actions"`
	IsReadOnly bool        `json:"isReadOnly" yaml:"isReadOnly"`
	ReadOnlyID string      `json:"readOnlyId" yaml:"readOnlyId"`
}

func (s syncResult) Table(wide bool) *output.Table {
	t := &output.Table{Headers: []string{"VERSION", "WHEN", "KIND"}}
	if wide {
		t.Headers = append(t.Headers, "BYTES")
	}
	for _, a := range s.Actions {
		row := []string{
			strconv.FormatInt(a.ID, 10),
			time.UnixMilli(a.When).UTC().Format(time.RFC3339),
			a.Kind,
		}
		if wide {
			row = append(row, strconv.Itoa(len(a.Raw)))
		}
		t.AddRow(row...)
	}
	return t
}

func documentNew(c *cli.Context) error {
	client, flags, err := Connect(c)
	if err != nil {
		return err
	}

	raw, err := readAction(c, defaultInitialState)
	if err != nil {
		return err
	}
	action, err := withVersion(raw, 0)
	if err != nil {
		return err
	}

	res, err := client.Save(c.Context, "", action)
	if err != nil {
		return explainSave(err)
	}

	if name := c.String("name"); name != "" {
		cfg := GetConfig(c)
		cfg.Documents[name] = config.Bookmark{ID: res.ID, ReadOnlyID: res.ReadOnlyID}
		if err := config.Save(cfg, c.String("config")); err != nil {
			return fmt.Errorf("save bookmark: %w", err)
		}
	}

	return printResult(c, flags, savedDocument{ID: res.ID, ReadOnlyID: res.ReadOnlyID, Version: 0, When: res.When})
}

func documentSave(c *cli.Context) error {
	id, err := documentArg(c)
	if err != nil {
		return err
	}
	client, flags, err := Connect(c)
	if err != nil {
		return err
	}

	raw, err := readAction(c, "")
	if err != nil {
		return err
	}
	n := c.Int64("version")
	action, err := withVersion(raw, n)
	if err != nil {
		return err
	}

	res, err := client.Save(c.Context, id, action)
	if err != nil {
		return explainSave(err)
	}
	return printResult(c, flags, savedDocument{ID: res.ID, ReadOnlyID: res.ReadOnlyID, Version: n, When: res.When})
}

func documentAppend(c *cli.Context) error {
	id, err := documentArg(c)
	if err != nil {
		return err
	}
	client, flags, err := Connect(c)
	if err != nil {
		return err
	}

	raw, err := readAction(c, "")
	if err != nil {
		return err
	}
	if _, err := withVersion(raw, 0); err != nil {
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.Duration("retry-interval")
	retry := backoff.WithContext(backoff.WithMaxRetries(policy, c.Uint64("retries")), c.Context)

	var (
		res *connection.SaveResult
		n   int64
	)
	err = backoff.Retry(func() error {
		latest, err := client.Latest(c.Context, id)
		if err != nil {
			return backoff.Permanent(err)
		}
		n = latest + 1
		action, _ := withVersion(raw, n)

		res, err = client.Save(c.Context, id, action)
		if connection.IsRejected(err) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, retry)
	if err != nil {
		return explainSave(err)
	}

	return printResult(c, flags, savedDocument{ID: res.ID, ReadOnlyID: res.ReadOnlyID, Version: n, When: res.When})
}

func documentSync(c *cli.Context) error {
	id, err := documentArg(c)
	if err != nil {
		return err
	}
	client, flags, err := Connect(c)
	if err != nil {
		return err
	}

	res, err := client.Update(c.Context, id, c.Int64("since"))
	if err != nil {
		return err
	}

	out := syncResult{
		Actions:    make([]actionRow, 0, len(res.Actions)),
		IsReadOnly: res.IsReadOnly,
		ReadOnlyID: res.ReadOnlyID,
	}
	for _, raw := range res.Actions {
		row, err := summarize(raw)
		if err != nil {
			return err
		}
		out.Actions = append(out.Actions, row)
	}
	return printResult(c, flags, out)
}

func documentLatest(c *cli.Context) error {
	id, err := documentArg(c)
	if err != nil {
		return err
	}
	client, _, err := Connect(c)
	if err != nil {
		return err
	}

	n, err := client.Latest(c.Context, id)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(writer(c), n)
	return err
}

// documentArg resolves the first argument through the bookmarks.
func documentArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("expected exactly one document id or bookmark name")
	}
	return GetConfig(c).Resolve(c.Args().First()), nil
}

// readAction returns the action from --data, --file or fallback.
func readAction(c *cli.Context, fallback string) ([]byte, error) {
	data, file := c.String("data"), c.String("file")
	switch {
	case data != "" && file != "":
		return nil, errors.New("--data and --file are mutually exclusive")
	case data != "":
		return []byte(data), nil
	case file == "-":
		return io.ReadAll(c.App.Reader)
	case file != "":
		return os.ReadFile(file)
	case fallback != "":
		return []byte(fallback), nil
	default:
		return nil, errors.New("an action is required (--data or --file)")
	}
}

// withVersion sets the id of a JSON action object to n.
func withVersion(raw []byte, n int64) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, fmt.Errorf("action must be a JSON object")
	}
	fields["id"] = json.RawMessage(strconv.FormatInt(n, 10))
	return json.Marshal(fields)
}

// summarize extracts the display columns of a record.
func summarize(raw json.RawMessage) (actionRow, error) {
	var rec struct {
		ID             int64                      `json:"id"`
		When           int64                      `json:"when"`
		FullStateAtoms map[string]json.RawMessage `json:"fullStateAtoms"`
		JumpTo         *int64                     `json:"jumpTo"`
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return actionRow{}, fmt.Errorf("decode action: %w", err)
	}

	kind := "step"
	switch {
	case len(rec.FullStateAtoms) > 0:
		kind = "snapshot"
	case rec.JumpTo != nil:
		kind = "jump:" + strconv.FormatInt(*rec.JumpTo, 10)
	}
	return actionRow{ID: rec.ID, When: rec.When, Kind: kind, Raw: raw}, nil
}

// explainSave adds a hint to the save outcomes a user can act on.
func explainSave(err error) error {
	var oe *connection.OutcomeError
	if !errors.As(err, &oe) {
		return err
	}
	switch oe.Message {
	case connection.MessageTooBig:
		return fmt.Errorf("%w (the action exceeds the server size limit)", err)
	case connection.MessageNeedFullAtoms:
		return fmt.Errorf("%w (include a non-empty fullStateAtoms snapshot)", err)
	case connection.MessageRejected:
		return fmt.Errorf("%w (the version is taken or the id is read-only)", err)
	}
	return err
}
