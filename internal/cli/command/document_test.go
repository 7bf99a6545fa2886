package command

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/jeff-tyrrill/data-scribbler/internal/cli/config"
)

// createDoc runs "new" and returns the saved ids.
func createDoc(t *testing.T, env *testEnv, args ...string) savedDocument {
	t.Helper()
	out := env.mustRun(append([]string{"-o", "json", "new"}, args...)...)
	var doc savedDocument
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("new output %q: %v", out, err)
	}
	if len(doc.ID) != 32 || len(doc.ReadOnlyID) != 32 {
		t.Fatalf("new output = %+v", doc)
	}
	return doc
}

func TestNew(t *testing.T) {
	env := newTestEnv(t)
	doc := createDoc(t, env, "--name", "notes")

	cfg, err := config.Load(env.configPath)
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.Documents["notes"]; got.ID != doc.ID || got.ReadOnlyID != doc.ReadOnlyID {
		t.Errorf("bookmark = %+v, want %+v", got, doc)
	}

	if out := env.mustRun("latest", "notes"); strings.TrimSpace(out) != "0" {
		t.Errorf("latest = %q, want 0", out)
	}
}

func TestNew_NeedsSnapshot(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run("", "new", "--data", `{"steps":[1]}`)
	if err == nil || !strings.Contains(err.Error(), "needFullAtoms") {
		t.Errorf("new without snapshot error = %v", err)
	}
}

func TestSave(t *testing.T) {
	env := newTestEnv(t)
	doc := createDoc(t, env)

	out := env.mustRun("save", doc.ID, "-n", "1", "--data", `{"steps":[1]}`)
	if !strings.Contains(out, doc.ID) {
		t.Errorf("save output = %q", out)
	}

	_, err := env.run("", "save", doc.ID, "-n", "1", "--data", `{"steps":[1]}`)
	if err == nil || !strings.Contains(err.Error(), "rejected") {
		t.Errorf("duplicate save error = %v, want rejected", err)
	}

	_, err = env.run("", "save", doc.ReadOnlyID, "-n", "2", "--data", `{"steps":[2]}`)
	if err == nil || !strings.Contains(err.Error(), "rejected") {
		t.Errorf("read-only save error = %v, want rejected", err)
	}
}

func TestSave_FromStdin(t *testing.T) {
	env := newTestEnv(t)
	doc := createDoc(t, env)

	if _, err := env.run(`{"steps":["stdin"]}`, "save", doc.ID, "-n", "1", "-f", "-"); err != nil {
		t.Fatalf("save from stdin: %v", err)
	}
	if out := env.mustRun("latest", doc.ID); strings.TrimSpace(out) != "1" {
		t.Errorf("latest = %q, want 1", out)
	}
}

func TestSave_ActionErrors(t *testing.T) {
	env := newTestEnv(t)
	doc := createDoc(t, env)

	tests := []struct {
		name string
		args []string
	}{
		{"no action", []string{"save", doc.ID, "-n", "1"}},
		{"both sources", []string{"save", doc.ID, "-n", "1", "-d", "{}", "-f", "x.json"}},
		{"not an object", []string{"save", doc.ID, "-n", "1", "-d", "[1]"}},
		{"no document", []string{"save", "-n", "1", "-d", "{}"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.run("", tt.args...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestAppend(t *testing.T) {
	env := newTestEnv(t)
	doc := createDoc(t, env)

	for want := int64(1); want <= 3; want++ {
		out := env.mustRun("-o", "json", "append", doc.ID, "-d", `{"steps":["x"]}`)
		var saved savedDocument
		if err := json.Unmarshal([]byte(out), &saved); err != nil {
			t.Fatal(err)
		}
		if saved.Version != want {
			t.Errorf("append version = %d, want %d", saved.Version, want)
		}
	}
}

func TestAppend_Concurrent(t *testing.T) {
	env := newTestEnv(t)
	doc := createDoc(t, env)

	const writers = 4
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.run("", "append", doc.ID, "-d", `{"steps":["c"]}`, "--retries", "20", "--retry-interval", "1ms")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("append: %v", err)
		}
	}

	if out := env.mustRun("latest", doc.ID); strings.TrimSpace(out) != "4" {
		t.Errorf("latest = %q, want 4", out)
	}
}

func TestAppend_ReadOnlyGivesUp(t *testing.T) {
	env := newTestEnv(t)
	doc := createDoc(t, env)

	_, err := env.run("", "append", doc.ReadOnlyID, "-d", `{"steps":[1]}`, "--retries", "2", "--retry-interval", "1ms")
	if err == nil || !strings.Contains(err.Error(), "rejected") {
		t.Errorf("append to read-only id error = %v, want rejected", err)
	}
}

func TestSync(t *testing.T) {
	env := newTestEnv(t)
	doc := createDoc(t, env)
	env.mustRun("save", doc.ID, "-n", "1", "-d", `{"steps":[1]}`)
	env.mustRun("save", doc.ID, "-n", "2", "-d", `{"jumpTo":0}`)

	out := env.mustRun("-o", "json", "sync", doc.ID)
	var res syncResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatal(err)
	}
	var kinds []string
	for _, a := range res.Actions {
		kinds = append(kinds, a.Kind)
	}
	if got := strings.Join(kinds, ","); got != "jump:0,step,snapshot" {
		t.Errorf("kinds = %s", got)
	}
	if res.IsReadOnly || res.ReadOnlyID != doc.ReadOnlyID {
		t.Errorf("sync flags = %v %q", res.IsReadOnly, res.ReadOnlyID)
	}

	out = env.mustRun("sync", "--since", "1", doc.ReadOnlyID)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "VERSION") || !strings.HasPrefix(lines[1], "2 ") {
		t.Errorf("sync table = %q", out)
	}
}

func TestLatest_Unknown(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.run("", "latest", strings.Repeat("q", 32)); err == nil {
		t.Error("latest of unknown document should fail")
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`{"id":0,"when":1,"fullStateAtoms":{"a":1}}`, "snapshot"},
		{`{"id":1,"when":1,"fullStateAtoms":{},"jumpTo":null}`, "step"},
		{`{"id":2,"when":1,"fullStateAtoms":null,"jumpTo":7}`, "jump:7"},
	}
	for _, tt := range tests {
		row, err := summarize(json.RawMessage(tt.raw))
		if err != nil {
			t.Fatal(err)
		}
		if row.Kind != tt.want {
			t.Errorf("summarize(%s) = %s, want %s", tt.raw, row.Kind, tt.want)
		}
	}
}
