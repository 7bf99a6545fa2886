package output

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewFormatter(t *testing.T) {
	if _, ok := NewFormatter(FormatJSON, false).(*JSONFormatter); !ok {
		t.Error("json: expected JSONFormatter")
	}
	if _, ok := NewFormatter(FormatYAML, false).(*YAMLFormatter); !ok {
		t.Error("yaml: expected YAMLFormatter")
	}
	tf, ok := NewFormatter("unknown", true).(*TableFormatter)
	if !ok || !tf.Wide {
		t.Error("default: expected wide TableFormatter")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"json", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

type pair struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

func (p pair) Table(wide bool) *Table {
	t := &Table{Headers: []string{"NAME"}}
	if wide {
		t.Headers = append(t.Headers, "COUNT")
		t.AddRow(p.Name, "3")
		return t
	}
	t.AddRow(p.Name)
	return t
}

func TestFormatters(t *testing.T) {
	data := pair{Name: "doc", Count: 3}

	tests := []struct {
		name string
		f    Formatter
		want string
	}{
		{"json", &JSONFormatter{}, "{\n  \"name\": \"doc\",\n  \"count\": 3\n}\n"},
		{"yaml", &YAMLFormatter{}, "name: doc\ncount: 3\n"},
		{"table", &TableFormatter{}, "NAME\ndoc\n"},
		{"wide table", &TableFormatter{Wide: true}, "NAME  COUNT\ndoc   3\n"},
		{"table without headers", &TableFormatter{NoHeaders: true}, "doc\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tt.f.Format(&buf, data); err != nil {
				t.Fatalf("Format() error = %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("Format() = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestTableFormatter_FallsBackToYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TableFormatter{}).Format(&buf, map[string]int{"latest": 4}); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != "latest: 4" {
		t.Errorf("Format() = %q", got)
	}
}

func TestTable_EmptyCells(t *testing.T) {
	tbl := &Table{}
	tbl.SetHeaders("A", "B")
	tbl.AddRow("x", "")

	var buf bytes.Buffer
	if err := tbl.Render(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "x  -") {
		t.Errorf("Render() = %q, want dash for empty cell", buf.String())
	}
}
