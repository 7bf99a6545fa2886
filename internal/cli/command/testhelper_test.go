package command

import (
	"bytes"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jeff-tyrrill/data-scribbler/internal/core/service"
	"github.com/jeff-tyrrill/data-scribbler/internal/server/httpserver/handler"
	"github.com/jeff-tyrrill/data-scribbler/internal/storage/memory"
	"github.com/jeff-tyrrill/data-scribbler/internal/telemetry/logger"
)

// testEnv is a live server plus an isolated CLI config file.
type testEnv struct {
	t          *testing.T
	server     *httptest.Server
	configPath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	svc := service.NewDocumentService(memory.New(), service.DefaultDocumentServiceConfig())
	h, err := handler.New(handler.Config{Documents: svc, Logger: logger.Discard(), Version: "test"})
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return &testEnv{
		t:          t,
		server:     srv,
		configPath: filepath.Join(t.TempDir(), "cli.yaml"),
	}
}

// run executes the CLI and returns stdout.
func (e *testEnv) run(stdin string, args ...string) (string, error) {
	e.t.Helper()
	app := App()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &out
	app.Reader = strings.NewReader(stdin)

	full := append([]string{"scribbler-cli", "--config", e.configPath, "--server", e.server.URL}, args...)
	err := app.Run(full)
	return out.String(), err
}

func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run("", args...)
	if err != nil {
		e.t.Fatalf("%v: %v\n%s", args, err, out)
	}
	return out
}
